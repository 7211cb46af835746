package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Ledger remembers which reminder thresholds already fired for a vendor's
// current certificate. A new certificate (different expiry) starts a fresh ladder.
type Ledger interface {
	// MarkFired records the threshold and reports whether this call was the first.
	MarkFired(ctx context.Context, vendorID string, expiry time.Time, threshold int) (bool, error)
}

const firedKeyPrefix = "coi:reminder:"

// FiredKey is the ledger key for one threshold of one certificate.
func FiredKey(vendorID string, expiry time.Time, threshold int) string {
	return fmt.Sprintf("%s%s:%s:%d", firedKeyPrefix, vendorID, expiry.UTC().Format(time.DateOnly), threshold)
}

// RedisLedger keeps fired thresholds in Redis so every instance of the service
// sees the same history. Keys expire a grace period after the certificate does.
type RedisLedger struct {
	client redis.Cmdable
	grace  time.Duration
	now    func() time.Time
}

// NewRedisLedger builds a Redis-backed ledger.
func NewRedisLedger(client redis.Cmdable, grace time.Duration) *RedisLedger {
	if grace <= 0 {
		grace = 7 * 24 * time.Hour
	}
	return &RedisLedger{client: client, grace: grace, now: time.Now}
}

// MarkFired uses SET NX so concurrent dispatchers agree on a single winner.
func (l *RedisLedger) MarkFired(ctx context.Context, vendorID string, expiry time.Time, threshold int) (bool, error) {
	ttl := expiry.Sub(l.now()) + l.grace
	if ttl < l.grace {
		ttl = l.grace
	}
	ok, err := l.client.SetNX(ctx, FiredKey(vendorID, expiry, threshold), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

// MemoryLedger is a process-local ledger for tests and single-instance runs.
type MemoryLedger struct {
	mu    sync.Mutex
	fired map[string]struct{}
}

// NewMemoryLedger returns an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{fired: make(map[string]struct{})}
}

func (l *MemoryLedger) MarkFired(_ context.Context, vendorID string, expiry time.Time, threshold int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := FiredKey(vendorID, expiry, threshold)
	if _, ok := l.fired[key]; ok {
		return false, nil
	}
	l.fired[key] = struct{}{}
	return true, nil
}
