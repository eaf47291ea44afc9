// Package idempotency implements the fast half of the webhook idempotency
// guard described in SPEC_FULL.md §4.10: a short-TTL lock keyed by the
// gateway's event id, so two concurrent deliveries of the same
// not-yet-processed event don't both enter the transaction. The durable
// half is repository.WebhookEventRepository's audit table.
package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Locker acquires a short-lived, per-event lock. Acquire returns false
// (not an error) when the lock is already held — the caller should
// acknowledge the webhook and do no further work, trusting the gateway to
// retry if the in-flight delivery fails.
type Locker interface {
	Acquire(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string)
}

const lockTTL = 30 * time.Second

// RedisLocker backs the lock with Redis SETNX, grounded on
// shivamshaw23-Hintro's cache client.
type RedisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) Acquire(ctx context.Context, eventID string) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockKey(eventID), 1, lockTTL).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (l *RedisLocker) Release(ctx context.Context, eventID string) {
	l.client.Del(ctx, lockKey(eventID))
}

func lockKey(eventID string) string {
	return "gateway_event:" + eventID
}

// InProcessLocker is the no-Redis-configured fallback: a mutex-guarded map
// with manual TTL expiry. It gives no cross-process guarantee, only
// same-process dedup, which is what SPEC_FULL.md §4.10 asks of it.
type InProcessLocker struct {
	mu      sync.Mutex
	held    map[string]time.Time
}

func NewInProcessLocker() *InProcessLocker {
	return &InProcessLocker{held: make(map[string]time.Time)}
}

func (l *InProcessLocker) Acquire(ctx context.Context, eventID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if expiry, ok := l.held[eventID]; ok && time.Now().Before(expiry) {
		return false, nil
	}
	l.held[eventID] = time.Now().Add(lockTTL)
	return true, nil
}

func (l *InProcessLocker) Release(ctx context.Context, eventID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, eventID)
}
