package order

import (
	"context"

	"agrofunnel/internal/domain"
)

type Repository interface {
	// Create stores o and returns its id. Creating the same id twice is a no-op,
	// so retried calls never duplicate an order.
	Create(ctx context.Context, o domain.Order) (string, error)
	Get(ctx context.Context, id string) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error)
}
