package lock

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"agrofunnel/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLockIsExclusive(t *testing.T) {
	l := NewMemory(time.Second, 50*time.Millisecond)
	ctx := context.Background()

	release, err := l.Acquire(ctx, SessionKey("s1"))
	require.NoError(t, err)

	_, err = l.Acquire(ctx, SessionKey("s1"))
	require.ErrorIs(t, err, domain.ErrBusy)

	other, err := l.Acquire(ctx, SessionKey("s2"))
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, release.Release(ctx))
	again, err := l.Acquire(ctx, SessionKey("s1"))
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestMemoryLockExpires(t *testing.T) {
	l := NewMemory(time.Second, 50*time.Millisecond)
	now := time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	stale, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	fresh, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)

	// the stale holder must not free the new owner's lock
	require.NoError(t, stale.Release(context.Background()))
	_, err = l.Acquire(context.Background(), "k")
	assert.ErrorIs(t, err, domain.ErrBusy)
	require.NoError(t, fresh.Release(context.Background()))
}

func TestWithLockSerializes(t *testing.T) {
	l := NewMemory(time.Second, time.Second)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := WithLock(context.Background(), l, "cart", func(context.Context) error {
				mu.Lock()
				inside++
				if inside > maxSeen {
					maxSeen = inside
				}
				mu.Unlock()
				time.Sleep(2 * time.Millisecond)
				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestWithLockRenewsLease(t *testing.T) {
	l := NewMemory(60*time.Millisecond, 10*time.Millisecond)
	err := WithLock(context.Background(), l, "slow", func(ctx context.Context) error {
		time.Sleep(200 * time.Millisecond)
		_, err := l.Acquire(ctx, "slow")
		assert.ErrorIs(t, err, domain.ErrBusy)
		return ctx.Err()
	})
	require.NoError(t, err)
}

func TestWithLockCancelsWorkWhenLeaseIsLost(t *testing.T) {
	l := NewMemory(60*time.Millisecond, 10*time.Millisecond)
	err := WithLock(context.Background(), l, "stolen", func(ctx context.Context) error {
		l.mu.Lock()
		l.held["stolen"] = memoryEntry{token: "someone-else", expires: time.Now().Add(time.Minute)}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	})
	assert.ErrorIs(t, err, domain.ErrBusy)
	assert.ErrorIs(t, err, errLeaseLost)
}

func TestRedisLock_Integration(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set; skipping redis integration test")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	l := NewRedis(client, time.Second, 100*time.Millisecond)
	key := SessionKey("it-" + time.Now().Format("150405.000000"))

	release, err := l.Acquire(ctx, key)
	require.NoError(t, err)
	_, err = l.Acquire(ctx, key)
	require.ErrorIs(t, err, domain.ErrBusy)

	ok, err := release.Extend(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, release.Release(ctx))
	ok, err = release.Extend(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	again, err := l.Acquire(ctx, key)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}
