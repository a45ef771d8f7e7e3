package booking

import (
	"context"
	"sort"
	"sync"

	"agrofunnel/internal/domain"
)

type memoryRepo struct {
	mu       sync.RWMutex
	bookings map[string]domain.ServiceBooking
}

// NewMemory returns a process-local Repository.
func NewMemory() Repository {
	return &memoryRepo{bookings: map[string]domain.ServiceBooking{}}
}

func (m *memoryRepo) Create(_ context.Context, b domain.ServiceBooking) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[b.ID]; !ok {
		m.bookings[b.ID] = b
	}
	return b.ID, nil
}

func (m *memoryRepo) ListByCustomer(_ context.Context, customerID string) ([]domain.ServiceBooking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.ServiceBooking
	for _, b := range m.bookings {
		if b.CustomerID == customerID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledDate.Equal(out[j].ScheduledDate) {
			return out[i].ScheduledDate.Before(out[j].ScheduledDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
