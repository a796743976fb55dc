package orders

import (
	"context"
	"fmt"

	"github.com/angelmondragon/ctp-segment-connector/internal/analytics/builder"
	"github.com/angelmondragon/ctp-segment-connector/internal/analytics/types"
	"github.com/angelmondragon/ctp-segment-connector/pkg/commercetools"
	"github.com/angelmondragon/ctp-segment-connector/pkg/logger"
)

const guestIdentifySuffix = "-guest-identify"

// Reader is the commercetools read surface the order flow needs.
type Reader interface {
	GetOrder(ctx context.Context, id string) (*commercetools.Order, error)
	FindCustomerByEmail(ctx context.Context, email string) (*commercetools.Customer, error)
}

// EventWriter delivers built analytics events.
type EventWriter interface {
	Identify(ctx context.Context, event *types.IdentifyEvent) error
	Track(ctx context.Context, event *types.TrackEvent) error
}

// Service turns order change notifications into Segment calls.
type Service interface {
	HandleOrderCreated(ctx context.Context, orderID string) error
}

type service struct {
	reader Reader
	writer EventWriter
	opts   builder.Options
	logg   *logger.Logger
}

func NewService(reader Reader, writer EventWriter, opts builder.Options, logg *logger.Logger) (Service, error) {
	if reader == nil {
		return nil, fmt.Errorf("commercetools reader required")
	}
	if writer == nil {
		return nil, fmt.Errorf("event writer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		reader: reader,
		writer: writer,
		opts:   opts,
		logg:   logg,
	}, nil
}

// HandleOrderCreated sends "Order Completed" for the order. Guest checkouts are first
// linked to their email with an anonymous identify unless the email belongs to a registered customer.
func (s *service) HandleOrderCreated(ctx context.Context, orderID string) error {
	ctx = s.logg.WithOrderID(ctx, orderID)

	order, err := s.reader.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}

	customerID := value(order.CustomerID)
	anonymousID := value(order.AnonymousID)
	if customerID == "" && anonymousID == "" {
		s.logg.Warn(ctx, "order.skipped.no_identity")
		return nil
	}

	// build before any call so a bad order sends nothing
	event, err := builder.BuildOrderCompletedEvent(order, s.opts)
	if err != nil {
		return err
	}

	if customerID == "" {
		if err := s.identifyGuest(ctx, order, anonymousID); err != nil {
			return err
		}
	}

	return s.writer.Track(ctx, event)
}

func (s *service) identifyGuest(ctx context.Context, order *commercetools.Order, anonymousID string) error {
	email := value(order.CustomerEmail)
	if email == "" {
		return nil
	}

	registered, err := s.reader.FindCustomerByEmail(ctx, email)
	if err != nil {
		return err
	}
	if registered != nil {
		s.logg.Debug(s.logg.WithCustomerID(ctx, registered.ID), "order.guest_email_registered")
		return nil
	}

	rawConsent, err := builder.ConsentFromCustom(order.Custom, s.opts.ConsentCustomFieldName)
	if err != nil {
		return err
	}
	identify, err := builder.BuildAnonymousIdentifyEvent(anonymousID, email, rawConsent)
	if err != nil {
		return err
	}
	// keyed to the order so a redelivery after a failed track is deduped by Segment
	identify.MessageID = order.ID + guestIdentifySuffix
	createdAt := order.CreatedAt
	identify.Timestamp = &createdAt
	return s.writer.Identify(ctx, identify)
}

func value(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
