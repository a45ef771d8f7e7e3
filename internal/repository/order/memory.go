package order

import (
	"context"
	"sort"
	"sync"

	"agrofunnel/internal/domain"
)

type memoryRepo struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
}

// NewMemory returns a process-local Repository.
func NewMemory() Repository {
	return &memoryRepo{orders: map[string]domain.Order{}}
}

func (m *memoryRepo) Create(_ context.Context, o domain.Order) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[o.ID]; !ok {
		o.Lines = append([]domain.OrderLine(nil), o.Lines...)
		m.orders[o.ID] = o
	}
	return o.ID, nil
}

func (m *memoryRepo) Get(_ context.Context, id string) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &o, nil
}

func (m *memoryRepo) ListByCustomer(_ context.Context, customerID string) ([]domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Order
	for _, o := range m.orders {
		if o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
