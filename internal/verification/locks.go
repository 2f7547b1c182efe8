package verification

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	id "titleguard/pkg/domain"
)

// lockTTL bounds how long a claim stays locked if the holder dies
// before releasing. It must exceed the pipeline timeout.
const lockTTL = 2 * time.Minute

// Locker serializes verification pipelines per claim. Acquire returns
// false when another pipeline already holds the claim.
type Locker interface {
	Acquire(ctx context.Context, claimID id.ClaimID) (bool, error)
	Release(ctx context.Context, claimID id.ClaimID) error
}

// RedisLocker implements Locker with SET NX so the lock holds across
// replicas sharing one Redis.
type RedisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) key(claimID id.ClaimID) string {
	return "titleguard:verify-lock:" + claimID.String()
}

func (l *RedisLocker) Acquire(ctx context.Context, claimID id.ClaimID) (bool, error) {
	return l.client.SetNX(ctx, l.key(claimID), "1", lockTTL).Result()
}

func (l *RedisLocker) Release(ctx context.Context, claimID id.ClaimID) error {
	return l.client.Del(ctx, l.key(claimID)).Err()
}

// MemoryLocker is the single-process fallback used when Redis is not
// configured, and in tests.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[id.ClaimID]struct{}
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[id.ClaimID]struct{})}
}

func (l *MemoryLocker) Acquire(_ context.Context, claimID id.ClaimID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[claimID]; ok {
		return false, nil
	}
	l.held[claimID] = struct{}{}
	return true, nil
}

func (l *MemoryLocker) Release(_ context.Context, claimID id.ClaimID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, claimID)
	return nil
}
