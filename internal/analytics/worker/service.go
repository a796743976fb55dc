package worker

import (
	"context"
	"errors"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/ctp-segment-connector/pkg/logger"
)

// Service consumes commercetools notifications from a Pub/Sub pull subscription.
type Service struct {
	subscription *gcppubsub.Subscriber
	processor    *Processor
	logg         *logger.Logger
}

func NewService(subscription *gcppubsub.Subscriber, processor *Processor, logg *logger.Logger) (*Service, error) {
	if subscription == nil {
		return nil, errors.New("notification subscription is required")
	}
	if processor == nil {
		return nil, errors.New("notification processor is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}

	return &Service{
		subscription: subscription,
		processor:    processor,
		logg:         logg,
	}, nil
}

type processResult struct {
	nack bool
}

// Run starts consuming messages until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if s.process(innerCtx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (s *Service) process(ctx context.Context, msg *gcppubsub.Message) processResult {
	res := s.processor.Process(ctx, msg.Data, msg.ID)
	return processResult{nack: res.Retry}
}
