package product

import (
	"context"

	"agrofunnel/internal/domain"
)

type Repository interface {
	Get(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
	// Search matches q.Text case-insensitively against name and description.
	Search(ctx context.Context, q domain.ProductQuery) ([]domain.Product, error)
	Upsert(ctx context.Context, p domain.Product) (*domain.Product, error)
}
