package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/ctp-segment-connector/api/responses"
	"github.com/angelmondragon/ctp-segment-connector/api/validators"
	"github.com/angelmondragon/ctp-segment-connector/internal/analytics/types"
	"github.com/angelmondragon/ctp-segment-connector/internal/analytics/worker"
	pkgerrors "github.com/angelmondragon/ctp-segment-connector/pkg/errors"
	"github.com/angelmondragon/ctp-segment-connector/pkg/logger"
)

type NotificationProcessor interface {
	Process(ctx context.Context, data []byte, messageID string) worker.Result
}

// PubSubPush receives commercetools notifications delivered by a Pub/Sub push subscription.
// A 2xx response acks the message; anything else makes Pub/Sub redeliver it, so only
// failures the processor marks for retry get an error status.
func PubSubPush(processor NotificationProcessor, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if processor == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notification processor unavailable"))
			return
		}

		var push types.PushRequest
		if err := validators.DecodeJSONBody(w, r, &push); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			ctx = logg.WithField(ctx, "subscription", push.Subscription)
		}

		res := processor.Process(ctx, push.Message.Data, push.Message.MessageID)
		if res.Err != nil && res.Retry {
			responses.WriteError(ctx, logg, w, res.Err)
			return
		}
		if res.Err != nil && logg != nil {
			dump := pkgerrors.Dump(res.Err)
			logg.Warn(logg.WithFields(ctx, map[string]any{
				"error":      dump.TopMessage,
				"error_code": dump.Code,
				"message_id": push.Message.MessageID,
			}), "notification.push.acked_failure")
		}
		responses.WriteNoContent(w)
	}
}
