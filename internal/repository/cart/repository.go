package cart

import (
	"context"

	"agrofunnel/internal/domain"
)

// Repository stores the cart owned by each session.
type Repository interface {
	// Get returns the session's cart, empty when none was saved yet.
	Get(ctx context.Context, sessionID string) (domain.Cart, error)
	Save(ctx context.Context, sessionID string, cart domain.Cart) error
	Clear(ctx context.Context, sessionID string) error
}
