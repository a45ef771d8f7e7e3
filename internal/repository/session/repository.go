package session

import (
	"context"

	"agrofunnel/internal/domain"
)

// Repository stores session metadata. The session cart lives in the cart repository.
type Repository interface {
	Create(ctx context.Context, s domain.Session) (*domain.Session, error)
	Get(ctx context.Context, id string) (*domain.Session, error)
	Update(ctx context.Context, s domain.Session) (*domain.Session, error)
}
