package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryEntry struct {
	token   string
	expires time.Time
}

// Memory is a process-local Locker for single-replica deployments and tests.
type Memory struct {
	mu             sync.Mutex
	held           map[string]memoryEntry
	ttl            time.Duration
	acquireTimeout time.Duration
	now            func() time.Time
}

func NewMemory(ttl, acquireTimeout time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if acquireTimeout <= 0 {
		acquireTimeout = DefaultAcquireTimeout
	}
	return &Memory{held: map[string]memoryEntry{}, ttl: ttl, acquireTimeout: acquireTimeout, now: time.Now}
}

func (m *Memory) Acquire(ctx context.Context, key string) (*Lease, error) {
	token := uuid.NewString()
	err := wait(ctx, key, m.acquireTimeout, func(context.Context) (bool, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		now := m.now()
		if cur, ok := m.held[key]; ok && now.Before(cur.expires) {
			return false, nil
		}
		m.held[key] = memoryEntry{token: token, expires: now.Add(m.ttl)}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return &Lease{
		TTL: m.ttl,
		Extend: func(context.Context) (bool, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			cur, ok := m.held[key]
			if !ok || cur.token != token {
				return false, nil
			}
			cur.expires = m.now().Add(m.ttl)
			m.held[key] = cur
			return true, nil
		},
		Release: func(context.Context) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			if cur, ok := m.held[key]; ok && cur.token == token {
				delete(m.held, key)
			}
			return nil
		},
	}, nil
}
