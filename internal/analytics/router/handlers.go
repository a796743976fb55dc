package router

import (
	"context"

	"github.com/angelmondragon/ctp-segment-connector/internal/analytics/types"
)

func newOrderCreatedHandler(orders OrderService) Handler {
	return HandlerFunc(func(ctx context.Context, n types.Notification) error {
		return orders.HandleOrderCreated(ctx, n.Resource.ID)
	})
}

func newCustomerUpsertHandler(customers CustomerService) Handler {
	return HandlerFunc(func(ctx context.Context, n types.Notification) error {
		return customers.HandleCustomerUpsert(ctx, n.Resource.ID)
	})
}

func newCustomerDeletedHandler(customers CustomerService) Handler {
	return HandlerFunc(func(ctx context.Context, n types.Notification) error {
		return customers.HandleCustomerDeletion(ctx, n.Resource.ID)
	})
}
