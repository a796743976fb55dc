package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/ctp-segment-connector/api/controllers"
	"github.com/angelmondragon/ctp-segment-connector/api/middleware"
	"github.com/angelmondragon/ctp-segment-connector/pkg/config"
	"github.com/angelmondragon/ctp-segment-connector/pkg/logger"
)

// NewRouter wires the push endpoint, health probes and metrics.
// A nil gatherer serves the default Prometheus registry.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	processor controllers.NotificationProcessor,
	readiness map[string]controllers.Pinger,
	gatherer prometheus.Gatherer,
	tokenValidator middleware.TokenValidator,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.With(middleware.PushAuth(cfg.PubSub.PushAudience, tokenValidator, logg)).
		Post("/", controllers.PubSubPush(processor, logg))

	return r
}
