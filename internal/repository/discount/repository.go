package discount

import (
	"context"
	"time"

	"agrofunnel/internal/domain"
)

type Repository interface {
	Create(ctx context.Context, d domain.DiscountCode) (*domain.DiscountCode, error)
	Get(ctx context.Context, code string) (*domain.DiscountCode, error)
	ListByCustomer(ctx context.Context, customerID string) ([]domain.DiscountCode, error)
	// MarkUsed redeems code for orderID. Redeeming again for the same order is a
	// no-op; a code already used by another order yields domain.ErrInvalidDiscountCode.
	MarkUsed(ctx context.Context, code, orderID string, at time.Time) error
}
