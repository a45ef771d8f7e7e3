package customer

import (
	"context"

	"agrofunnel/internal/domain"
	"github.com/shopspring/decimal"
)

// Repository persists and fetches customers.
type Repository interface {
	Create(ctx context.Context, c domain.Customer) (*domain.Customer, error)
	Get(ctx context.Context, id string) (*domain.Customer, error)
	GetByEmail(ctx context.Context, email string) (*domain.Customer, error)
	Update(ctx context.Context, c domain.Customer) (*domain.Customer, error)
	// AddPurchase adds amount to the customer's total purchases once per orderID.
	AddPurchase(ctx context.Context, id, orderID string, amount decimal.Decimal) error
}
