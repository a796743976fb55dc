package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/ctp-segment-connector/internal/analytics/builder"
	"github.com/angelmondragon/ctp-segment-connector/internal/analytics/router"
	"github.com/angelmondragon/ctp-segment-connector/internal/analytics/worker"
	"github.com/angelmondragon/ctp-segment-connector/internal/analytics/writer"
	"github.com/angelmondragon/ctp-segment-connector/internal/customers"
	"github.com/angelmondragon/ctp-segment-connector/internal/orders"
	"github.com/angelmondragon/ctp-segment-connector/pkg/commercetools"
	"github.com/angelmondragon/ctp-segment-connector/pkg/config"
	"github.com/angelmondragon/ctp-segment-connector/pkg/idempotency"
	"github.com/angelmondragon/ctp-segment-connector/pkg/logger"
	"github.com/angelmondragon/ctp-segment-connector/pkg/metrics"
	"github.com/angelmondragon/ctp-segment-connector/pkg/redis"
	"github.com/angelmondragon/ctp-segment-connector/pkg/segment"
)

// Pipeline holds the notification processing graph shared by the push server and the pull worker.
type Pipeline struct {
	Processor *worker.Processor
	Redis     *redis.Client
}

// New connects to commercetools, Segment and (when configured) Redis and wires
// services, router and processor. Metrics are registered on reg when non-nil.
func New(ctx context.Context, cfg *config.Config, logg *logger.Logger, reg prometheus.Registerer) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}

	ctp, err := commercetools.NewClient(ctx, commercetools.Credentials{
		ClientID:     cfg.Commercetools.ClientID,
		ClientSecret: cfg.Commercetools.ClientSecret,
		ProjectKey:   cfg.Commercetools.ProjectKey,
		AuthURL:      cfg.Commercetools.AuthURL,
		APIURL:       cfg.Commercetools.APIURL,
		Scopes:       cfg.Commercetools.ProjectScopes(),
		Timeout:      cfg.Commercetools.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("commercetools client: %w", err)
	}

	segmentClient, err := segment.NewClient(cfg.Segment.SourceWriteKey,
		segment.WithHost(cfg.Segment.AnalyticsHost),
		segment.WithHTTPClient(&http.Client{Timeout: cfg.Segment.Timeout}),
		segment.WithRetryPolicy(segment.RetryPolicy{
			MaxRetries:     cfg.Segment.MaxRetries,
			InitialBackoff: cfg.Segment.RetryBackoff,
			MaximumBackoff: 20 * cfg.Segment.RetryBackoff,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("segment client: %w", err)
	}

	deliveryMetrics := metrics.NewDeliveryMetrics(reg)
	segmentWriter, err := writer.New(segmentClient, deliveryMetrics, logg)
	if err != nil {
		return nil, fmt.Errorf("segment writer: %w", err)
	}

	opts := builder.Options{
		Locale:                 cfg.Connector.Locale,
		ConsentCustomFieldName: cfg.Connector.ConsentCustomFieldName,
	}

	orderService, err := orders.NewService(ctp, segmentWriter, opts, logg)
	if err != nil {
		return nil, fmt.Errorf("order service: %w", err)
	}

	customerParams := customers.ServiceParams{
		Reader:  ctp,
		Writer:  segmentWriter,
		Options: opts,
		Logger:  logg,
	}
	if cfg.Segment.PublicAPIToken != "" {
		regulations, err := segment.NewRegulationsClient(cfg.Segment.PublicAPIToken,
			segment.WithPublicAPIHost(cfg.Segment.PublicAPIHost),
			segment.WithRegulationsHTTPClient(&http.Client{Timeout: cfg.Segment.Timeout}),
		)
		if err != nil {
			return nil, fmt.Errorf("segment regulations client: %w", err)
		}
		customerParams.Deleter = regulations
	} else {
		logg.Warn(ctx, "segment public api token not set, customer deletions will be skipped")
	}
	customerService, err := customers.NewService(customerParams)
	if err != nil {
		return nil, fmt.Errorf("customer service: %w", err)
	}

	notificationRouter, err := router.NewRouter(orderService, customerService, logg, nil)
	if err != nil {
		return nil, fmt.Errorf("notification router: %w", err)
	}

	p := &Pipeline{}
	processorParams := worker.ProcessorParams{
		Handler: notificationRouter,
		Metrics: deliveryMetrics,
		Logger:  logg,
	}
	if cfg.Redis.Enabled() {
		p.Redis, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		manager, err := idempotency.NewManager(p.Redis, cfg.Eventing.IdempotencyTTL)
		if err != nil {
			return nil, multierr.Append(fmt.Errorf("idempotency manager: %w", err), p.Close())
		}
		processorParams.Manager = manager
	} else {
		logg.Warn(ctx, "redis not configured, notifications will not be deduplicated")
	}

	p.Processor, err = worker.NewProcessor(processorParams)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("notification processor: %w", err), p.Close())
	}
	return p, nil
}

// Close releases the pipeline's connections.
func (p *Pipeline) Close() error {
	if p == nil || p.Redis == nil {
		return nil
	}
	return p.Redis.Close()
}
