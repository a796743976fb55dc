package customers

import (
	"context"
	"fmt"

	"github.com/angelmondragon/ctp-segment-connector/internal/analytics/builder"
	"github.com/angelmondragon/ctp-segment-connector/internal/analytics/types"
	"github.com/angelmondragon/ctp-segment-connector/pkg/commercetools"
	"github.com/angelmondragon/ctp-segment-connector/pkg/logger"
)

type Reader interface {
	GetCustomer(ctx context.Context, id string) (*commercetools.Customer, error)
}

type EventWriter interface {
	Identify(ctx context.Context, event *types.IdentifyEvent) error
}

// UserDeleter removes a user's data from Segment.
type UserDeleter interface {
	DeleteUser(ctx context.Context, userID string) (string, error)
}

// Service turns customer change notifications into Segment calls.
type Service interface {
	HandleCustomerUpsert(ctx context.Context, customerID string) error
	HandleCustomerDeletion(ctx context.Context, customerID string) error
}

type service struct {
	reader  Reader
	writer  EventWriter
	deleter UserDeleter
	opts    builder.Options
	logg    *logger.Logger
}

// ServiceParams groups the customer service dependencies. Deleter is optional;
// deletions are skipped when no public API token is configured.
type ServiceParams struct {
	Reader  Reader
	Writer  EventWriter
	Deleter UserDeleter
	Options builder.Options
	Logger  *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Reader == nil {
		return nil, fmt.Errorf("commercetools reader required")
	}
	if params.Writer == nil {
		return nil, fmt.Errorf("event writer required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		reader:  params.Reader,
		writer:  params.Writer,
		deleter: params.Deleter,
		opts:    params.Options,
		logg:    params.Logger,
	}, nil
}

func (s *service) HandleCustomerUpsert(ctx context.Context, customerID string) error {
	ctx = s.logg.WithCustomerID(ctx, customerID)

	customer, err := s.reader.GetCustomer(ctx, customerID)
	if err != nil {
		return err
	}
	event, err := builder.BuildIdentifyEvent(customer, s.opts)
	if err != nil {
		return err
	}
	return s.writer.Identify(ctx, event)
}

func (s *service) HandleCustomerDeletion(ctx context.Context, customerID string) error {
	ctx = s.logg.WithCustomerID(ctx, customerID)

	if s.deleter == nil {
		s.logg.Warn(ctx, "customer.deletion.skipped")
		return nil
	}

	regulateID, err := s.deleter.DeleteUser(ctx, customerID)
	if err != nil {
		s.logg.Error(ctx, "customer.deletion.failed", err)
		return err
	}
	s.logg.Info(s.logg.WithField(ctx, "regulate_id", regulateID), "customer.deletion.requested")
	return nil
}
