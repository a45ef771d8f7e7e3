package product

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"agrofunnel/internal/domain"
)

type memoryRepo struct {
	mu       sync.RWMutex
	products map[string]domain.Product
}

// NewMemory returns a process-local Repository.
func NewMemory() Repository {
	return &memoryRepo{products: map[string]domain.Product{}}
}

func (m *memoryRepo) Get(_ context.Context, id string) (*domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (m *memoryRepo) List(_ context.Context) ([]domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *memoryRepo) Search(_ context.Context, q domain.ProductQuery) ([]domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	text := strings.ToLower(strings.TrimSpace(q.Text))
	var out []domain.Product
	for _, p := range m.products {
		if text != "" && !strings.Contains(strings.ToLower(p.Name), text) && !strings.Contains(strings.ToLower(p.Description), text) {
			continue
		}
		if q.Category != "" && p.Category != q.Category {
			continue
		}
		if q.MinPrice != nil && p.Price.LessThan(*q.MinPrice) {
			continue
		}
		if q.MaxPrice != nil && p.Price.GreaterThan(*q.MaxPrice) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *memoryRepo) Upsert(_ context.Context, p domain.Product) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.products[p.ID]; ok {
		p.CreatedAt = cur.CreatedAt
	} else {
		p.CreatedAt = time.Now().UTC()
	}
	m.products[p.ID] = p
	return &p, nil
}
