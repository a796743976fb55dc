package writer

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/ctp-segment-connector/internal/analytics/types"
	pkgerrors "github.com/angelmondragon/ctp-segment-connector/pkg/errors"
	"github.com/angelmondragon/ctp-segment-connector/pkg/logger"
	"github.com/angelmondragon/ctp-segment-connector/pkg/metrics"
	"github.com/angelmondragon/ctp-segment-connector/pkg/segment"
)

// Client is the Segment tracking API surface the writer delivers through.
type Client interface {
	Identify(ctx context.Context, payload any) error
	Track(ctx context.Context, payload any) error
}

// SegmentWriter validates built events, delivers them and records delivery metrics.
type SegmentWriter struct {
	client  Client
	metrics *metrics.DeliveryMetrics
	logg    *logger.Logger
	now     func() time.Time
}

func New(client Client, m *metrics.DeliveryMetrics, logg *logger.Logger) (*SegmentWriter, error) {
	if client == nil {
		return nil, errors.New("segment client required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &SegmentWriter{
		client:  client,
		metrics: m,
		logg:    logg,
		now:     time.Now,
	}, nil
}

// Identify requires exactly one of userId and anonymousId.
func (w *SegmentWriter) Identify(ctx context.Context, event *types.IdentifyEvent) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "identify event is required")
	}
	hasUser := event.UserID != ""
	hasAnon := event.AnonymousID != ""
	if hasUser == hasAnon {
		return pkgerrors.New(pkgerrors.CodeValidation, "identify needs exactly one of userId or anonymousId")
	}

	err := w.deliver(ctx, segment.CallIdentify, func(ctx context.Context) error {
		return w.client.Identify(ctx, event)
	})
	if err != nil {
		return err
	}

	id := event.UserID
	if id == "" {
		id = event.AnonymousID
	}
	w.logg.Info(w.logg.WithField(ctx, "segment_user", id), "segment.identify.sent")
	return nil
}

// Track requires at least one of userId and anonymousId.
func (w *SegmentWriter) Track(ctx context.Context, event *types.TrackEvent) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "track event is required")
	}
	if isBlank(event.UserID) && isBlank(event.AnonymousID) {
		return pkgerrors.New(pkgerrors.CodeValidation, "track needs a userId or anonymousId")
	}

	err := w.deliver(ctx, segment.CallTrack, func(ctx context.Context) error {
		return w.client.Track(ctx, event)
	})
	if err != nil {
		return err
	}

	w.logg.Info(w.logg.WithFields(ctx, map[string]any{
		"segment_event":      event.Event,
		"segment_message_id": event.MessageID,
	}), "segment.track.sent")
	return nil
}

func (w *SegmentWriter) deliver(ctx context.Context, call string, send func(context.Context) error) error {
	start := w.now()
	err := send(ctx)
	w.metrics.ObserveCall(call, w.now().Sub(start), err)
	return err
}

func isBlank(v *string) bool {
	return v == nil || *v == ""
}
