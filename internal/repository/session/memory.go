package session

import (
	"context"
	"sync"
	"time"

	"agrofunnel/internal/domain"
)

type memoryRepo struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
}

// NewMemory returns a process-local Repository.
func NewMemory() Repository {
	return &memoryRepo{sessions: map[string]domain.Session{}}
}

func (m *memoryRepo) Create(_ context.Context, s domain.Session) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; ok {
		return nil, domain.ErrAlreadyExists
	}
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	s = detach(s)
	m.sessions[s.ID] = s
	out := detach(s)
	return &out, nil
}

func (m *memoryRepo) Get(_ context.Context, id string) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := detach(s)
	return &out, nil
}

func (m *memoryRepo) Update(_ context.Context, s domain.Session) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.sessions[s.ID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	s.CreatedAt = cur.CreatedAt
	s.UpdatedAt = time.Now().UTC()
	s = detach(s)
	m.sessions[s.ID] = s
	out := detach(s)
	return &out, nil
}

// detach drops the cart and copies slices so callers never share state with the store.
func detach(s domain.Session) domain.Session {
	s.Cart = domain.Cart{}
	s.ViewedProducts = append([]string(nil), s.ViewedProducts...)
	if s.CustomerID != nil {
		id := *s.CustomerID
		s.CustomerID = &id
	}
	return s
}
