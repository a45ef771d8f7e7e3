package customer

import (
	"context"
	"strings"
	"sync"
	"time"

	"agrofunnel/internal/domain"
	"github.com/shopspring/decimal"
)

type memoryRepo struct {
	mu        sync.RWMutex
	customers map[string]domain.Customer
	applied   map[string]bool
}

// NewMemory returns a process-local Repository.
func NewMemory() Repository {
	return &memoryRepo{customers: map[string]domain.Customer{}, applied: map[string]bool{}}
}

func (m *memoryRepo) Create(_ context.Context, c domain.Customer) (*domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.customers[c.ID]; ok {
		return nil, domain.ErrAlreadyExists
	}
	c.Email = strings.ToLower(c.Email)
	if c.Email != "" && m.findByEmail(c.Email) != nil {
		return nil, domain.ErrAlreadyExists
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	m.customers[c.ID] = c
	return clone(c), nil
}

func (m *memoryRepo) Get(_ context.Context, id string) (*domain.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.customers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(c), nil
}

func (m *memoryRepo) GetByEmail(_ context.Context, email string) (*domain.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c := m.findByEmail(strings.ToLower(email))
	if c == nil {
		return nil, domain.ErrNotFound
	}
	return clone(*c), nil
}

func (m *memoryRepo) Update(_ context.Context, c domain.Customer) (*domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.customers[c.ID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c.Email = strings.ToLower(c.Email)
	if other := m.findByEmail(c.Email); c.Email != "" && other != nil && other.ID != c.ID {
		return nil, domain.ErrAlreadyExists
	}
	c.TotalPurchases = cur.TotalPurchases
	c.LoyaltyPoints = cur.LoyaltyPoints
	c.CreatedAt = cur.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	m.customers[c.ID] = c
	return clone(c), nil
}

func (m *memoryRepo) AddPurchase(_ context.Context, id, orderID string, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	if !ok {
		return domain.ErrNotFound
	}
	if m.applied[orderID] {
		return nil
	}
	c.TotalPurchases = c.TotalPurchases.Add(amount)
	c.UpdatedAt = time.Now().UTC()
	m.customers[id] = c
	m.applied[orderID] = true
	return nil
}

func (m *memoryRepo) findByEmail(email string) *domain.Customer {
	for _, c := range m.customers {
		if c.Email != "" && c.Email == email {
			found := c
			return &found
		}
	}
	return nil
}

func clone(c domain.Customer) *domain.Customer {
	if c.Hectares != nil {
		h := *c.Hectares
		c.Hectares = &h
	}
	c.MainCrops = append([]string(nil), c.MainCrops...)
	c.CurrentMachinery = append([]string(nil), c.CurrentMachinery...)
	return &c
}
