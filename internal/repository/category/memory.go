package category

import (
	"context"
	"sort"
	"sync"

	"agrofunnel/internal/domain"
)

type memoryRepo struct {
	mu         sync.RWMutex
	categories map[domain.ProductCategory]domain.Category
}

// NewMemory returns a process-local Repository.
func NewMemory() Repository {
	return &memoryRepo{categories: map[domain.ProductCategory]domain.Category{}}
}

func (m *memoryRepo) List(context.Context) ([]domain.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Category, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *memoryRepo) Upsert(_ context.Context, c domain.Category) (*domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.categories[c.ID]; ok {
		if c.Description == "" {
			c.Description = cur.Description
		}
		if c.ImageURL == "" {
			c.ImageURL = cur.ImageURL
		}
	}
	m.categories[c.ID] = c
	return &c, nil
}
