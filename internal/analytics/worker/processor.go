package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/angelmondragon/ctp-segment-connector/internal/analytics/router"
	"github.com/angelmondragon/ctp-segment-connector/internal/analytics/types"
	pkgerrors "github.com/angelmondragon/ctp-segment-connector/pkg/errors"
	"github.com/angelmondragon/ctp-segment-connector/pkg/logger"
	"github.com/angelmondragon/ctp-segment-connector/pkg/metrics"
)

const consumerName = "segment"

// Handler routes a decoded notification.
type Handler interface {
	Handle(ctx context.Context, notification types.Notification) error
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer, key string) (bool, error)
	Delete(ctx context.Context, consumer, key string) error
}

// Result describes how a notification was settled. Retry asks the transport for redelivery.
type Result struct {
	Outcome string
	Retry   bool
	Err     error
}

// Processor decodes, deduplicates and routes commercetools notifications.
// It is shared by the Pub/Sub pull worker and the push endpoint.
type Processor struct {
	handler  Handler
	manager  idempotencyChecker
	metrics  *metrics.DeliveryMetrics
	validate *validator.Validate
	logg     *logger.Logger
}

// ProcessorParams groups processor dependencies. Manager may be nil when Redis is not configured.
type ProcessorParams struct {
	Handler Handler
	Manager idempotencyChecker
	Metrics *metrics.DeliveryMetrics
	Logger  *logger.Logger
}

func NewProcessor(params ProcessorParams) (*Processor, error) {
	if params.Handler == nil {
		return nil, errors.New("notification handler is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	m := params.Metrics
	if m == nil {
		m = metrics.NewDeliveryMetrics(nil)
	}
	return &Processor{
		handler:  params.Handler,
		manager:  params.Manager,
		metrics:  m,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logg:     params.Logger,
	}, nil
}

// Process handles one message payload. messageID is the transport message id and is
// used as the dedup key when the notification has no resource version.
func (p *Processor) Process(ctx context.Context, data []byte, messageID string) Result {
	ctx = p.logg.WithField(ctx, "message_id", messageID)

	notification, err := p.decode(data)
	if err != nil {
		p.logg.Warn(p.logg.WithField(ctx, "error", err.Error()), "notification.invalid")
		p.metrics.IncNotification("", "", metrics.OutcomeFailed)
		return Result{Outcome: metrics.OutcomeFailed, Err: err}
	}

	resource := notification.Resource.TypeID
	kind := notification.NotificationType
	ctx = p.logg.WithNotification(ctx, resource, notification.Resource.ID, kind)
	settle := func(res Result) Result {
		p.metrics.IncNotification(resource, kind, res.Outcome)
		return res
	}

	key := notification.DedupKey(messageID)
	if p.manager != nil && key != "" {
		already, err := p.manager.CheckAndMarkProcessed(ctx, consumerName, key)
		if err != nil {
			p.logg.Error(ctx, "notification.idempotency.failed", err)
			return settle(Result{Outcome: metrics.OutcomeFailed, Retry: true, Err: err})
		}
		if already {
			p.logg.Info(ctx, "notification.duplicate")
			return settle(Result{Outcome: metrics.OutcomeDuplicate})
		}
	}

	err = p.handler.Handle(ctx, notification)
	switch {
	case err == nil:
		return settle(Result{Outcome: metrics.OutcomeHandled})
	case errors.Is(err, router.ErrUnsupportedNotification):
		p.logg.Debug(ctx, "notification.ignored")
		return settle(Result{Outcome: metrics.OutcomeIgnored})
	case pkgerrors.IsRetryable(err):
		p.release(ctx, key)
		return settle(Result{Outcome: metrics.OutcomeFailed, Retry: true, Err: err})
	default:
		p.logg.Warn(ctx, "notification.dropped")
		return settle(Result{Outcome: metrics.OutcomeFailed, Err: err})
	}
}

func (p *Processor) decode(data []byte) (types.Notification, error) {
	var notification types.Notification
	if len(data) == 0 {
		return notification, pkgerrors.New(pkgerrors.CodeValidation, "empty notification payload")
	}
	if err := json.Unmarshal(data, &notification); err != nil {
		return notification, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode notification")
	}
	notification.Resource.TypeID = strings.TrimSpace(notification.Resource.TypeID)
	notification.Resource.ID = strings.TrimSpace(notification.Resource.ID)
	notification.NotificationType = strings.TrimSpace(notification.NotificationType)
	if err := p.validate.Struct(notification); err != nil {
		return notification, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid notification")
	}
	return notification, nil
}

func (p *Processor) release(ctx context.Context, key string) {
	if p.manager == nil || key == "" {
		return
	}
	if err := p.manager.Delete(ctx, consumerName, key); err != nil {
		p.logg.Error(ctx, "notification.idempotency.release_failed", err)
	}
}
