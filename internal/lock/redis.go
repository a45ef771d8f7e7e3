package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only when it still holds our token, so a holder whose
// TTL expired cannot release a lock that another request has since taken.
// KEYS[1] = lock key
// ARGV[1] = owner token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript resets the expiry only while the key still holds our token.
// KEYS[1] = lock key
// ARGV[1] = owner token
// ARGV[2] = ttl in milliseconds
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Redis implements Locker with SET NX PX.
type Redis struct {
	client         redis.UniversalClient
	prefix         string
	ttl            time.Duration
	acquireTimeout time.Duration
}

func NewRedis(client redis.UniversalClient, ttl, acquireTimeout time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if acquireTimeout <= 0 {
		acquireTimeout = DefaultAcquireTimeout
	}
	return &Redis{client: client, prefix: "agrofunnel:lock:", ttl: ttl, acquireTimeout: acquireTimeout}
}

func (r *Redis) Acquire(ctx context.Context, key string) (*Lease, error) {
	redisKey := r.prefix + key
	token := uuid.NewString()

	err := wait(ctx, key, r.acquireTimeout, func(ctx context.Context) (bool, error) {
		ok, err := r.client.SetNX(ctx, redisKey, token, r.ttl).Result()
		if err != nil {
			return false, fmt.Errorf("redis lock %s: %w", key, err)
		}
		return ok, nil
	})
	if err != nil {
		return nil, err
	}

	return &Lease{
		TTL: r.ttl,
		Extend: func(ctx context.Context) (bool, error) {
			n, err := extendScript.Run(ctx, r.client, []string{redisKey}, token, r.ttl.Milliseconds()).Int()
			if err != nil {
				return false, fmt.Errorf("redis extend %s: %w", key, err)
			}
			return n == 1, nil
		},
		Release: func(ctx context.Context) error {
			if err := releaseScript.Run(ctx, r.client, []string{redisKey}, token).Err(); err != nil {
				return fmt.Errorf("redis unlock %s: %w", key, err)
			}
			return nil
		},
	}, nil
}
