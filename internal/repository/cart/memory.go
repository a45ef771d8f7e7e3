package cart

import (
	"context"
	"sync"

	"agrofunnel/internal/domain"
)

type memoryRepo struct {
	mu    sync.RWMutex
	carts map[string]domain.Cart
}

// NewMemory returns a process-local Repository.
func NewMemory() Repository {
	return &memoryRepo{carts: map[string]domain.Cart{}}
}

func (m *memoryRepo) Get(_ context.Context, sessionID string) (domain.Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.carts[sessionID].Clone(), nil
}

func (m *memoryRepo) Save(_ context.Context, sessionID string, cart domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[sessionID] = cart.Clone()
	return nil
}

func (m *memoryRepo) Clear(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, sessionID)
	return nil
}
