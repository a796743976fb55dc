package router

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/ctp-segment-connector/internal/analytics/types"
	pkgerrors "github.com/angelmondragon/ctp-segment-connector/pkg/errors"
	"github.com/angelmondragon/ctp-segment-connector/pkg/logger"
)

// ErrUnsupportedNotification marks notifications the connector does not act on. Callers ack them.
var ErrUnsupportedNotification = errors.New("unsupported notification")

type OrderService interface {
	HandleOrderCreated(ctx context.Context, orderID string) error
}

type CustomerService interface {
	HandleCustomerUpsert(ctx context.Context, customerID string) error
	HandleCustomerDeletion(ctx context.Context, customerID string) error
}

// Handler processes one change notification.
type Handler interface {
	Handle(ctx context.Context, notification types.Notification) error
}

type HandlerFunc func(ctx context.Context, notification types.Notification) error

func (f HandlerFunc) Handle(ctx context.Context, notification types.Notification) error {
	return f(ctx, notification)
}

// Route keys a handler by resource type and notification type.
type Route struct {
	ResourceType     string
	NotificationType string
}

func (r Route) String() string {
	return r.ResourceType + "/" + r.NotificationType
}

// Router dispatches change notifications to the configured handler per route.
type Router struct {
	handlers map[Route]Handler
	logg     *logger.Logger
}

// NewRouter wires the default handlers and allows overrides for specific routes.
func NewRouter(orders OrderService, customers CustomerService, logg *logger.Logger, overrides map[Route]Handler) (*Router, error) {
	if orders == nil {
		return nil, errors.New("order service is required")
	}
	if customers == nil {
		return nil, errors.New("customer service is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}

	upsert := newCustomerUpsertHandler(customers)
	handlers := map[Route]Handler{
		{types.ResourceOrder, types.NotificationResourceCreated}:    newOrderCreatedHandler(orders),
		{types.ResourceCustomer, types.NotificationResourceCreated}: upsert,
		{types.ResourceCustomer, types.NotificationResourceUpdated}: upsert,
		{types.ResourceCustomer, types.NotificationResourceDeleted}: newCustomerDeletedHandler(customers),
	}

	for route, custom := range overrides {
		if _, ok := handlers[route]; !ok || custom == nil {
			continue
		}
		handlers[route] = custom
	}

	return &Router{
		handlers: handlers,
		logg:     logg,
	}, nil
}

// Handle dispatches the notification to its handler.
func (r *Router) Handle(ctx context.Context, notification types.Notification) error {
	route := Route{
		ResourceType:     notification.Resource.TypeID,
		NotificationType: notification.NotificationType,
	}
	handler, ok := r.handlers[route]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedNotification, route)
	}
	if strings.TrimSpace(notification.Resource.ID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("empty resource id for %s", route))
	}

	ctx = r.logg.WithNotification(ctx, route.ResourceType, notification.Resource.ID, route.NotificationType)
	if err := handler.Handle(ctx, notification); err != nil {
		r.logg.Error(ctx, "notification.handle.failed", err)
		return err
	}
	r.logg.Info(ctx, "notification.handled")
	return nil
}
