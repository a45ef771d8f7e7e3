package discount

import (
	"context"
	"sort"
	"sync"
	"time"

	"agrofunnel/internal/domain"
)

type memoryRepo struct {
	mu    sync.RWMutex
	codes map[string]domain.DiscountCode
}

// NewMemory returns a process-local Repository.
func NewMemory() Repository {
	return &memoryRepo{codes: map[string]domain.DiscountCode{}}
}

func (m *memoryRepo) Create(_ context.Context, d domain.DiscountCode) (*domain.DiscountCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.codes[d.Code]; ok {
		return nil, domain.ErrAlreadyExists
	}
	m.codes[d.Code] = d
	return &d, nil
}

func (m *memoryRepo) Get(_ context.Context, code string) (*domain.DiscountCode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.codes[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &d, nil
}

func (m *memoryRepo) ListByCustomer(_ context.Context, customerID string) ([]domain.DiscountCode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.DiscountCode
	for _, d := range m.codes {
		if d.CustomerID == customerID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Code < out[j].Code
	})
	return out, nil
}

func (m *memoryRepo) MarkUsed(_ context.Context, code, orderID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.codes[code]
	if !ok {
		return domain.ErrNotFound
	}
	if d.Used {
		if d.OrderID == orderID {
			return nil
		}
		return domain.NewError(domain.KindInvalidDiscountCode, "discount code %s was already used", code)
	}
	d.Used = true
	d.UsedAt = &at
	d.OrderID = orderID
	m.codes[code] = d
	return nil
}
