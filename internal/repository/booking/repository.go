package booking

import (
	"context"

	"agrofunnel/internal/domain"
)

type Repository interface {
	// Create stores b; a repeated id is ignored so retries stay idempotent.
	Create(ctx context.Context, b domain.ServiceBooking) (string, error)
	ListByCustomer(ctx context.Context, customerID string) ([]domain.ServiceBooking, error)
}
