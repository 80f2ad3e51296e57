package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"tagboard/internal/middleware"
	"tagboard/internal/observability"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Only the holder's token may delete the key.
const releaseLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`

// Locker hands out short-lived mutual exclusion on string keys. It uses Redis
// when a client is available and an in-process table otherwise, so a single
// instance stays safe without Redis.
type Locker struct {
	rdb *redis.Client

	mu    sync.Mutex
	local map[string]time.Time
}

// NewLocker returns a Locker over rdb. A nil rdb selects in-process locking.
func NewLocker(rdb *redis.Client) *Locker {
	return &Locker{rdb: rdb, local: make(map[string]time.Time)}
}

// Acquire tries once to take key for ttl. ok is false when someone else
// holds it. release is non-nil only when ok is true.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	if l.rdb == nil {
		return l.acquireLocal(key, ttl)
	}

	ctx, span := observability.GetTraceLayer().TraceRedisOperation(ctx, "lock.acquire")
	defer span.End()

	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		span.RecordError(err)
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// The caller's context may already be cancelled.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := l.rdb.Eval(releaseCtx, releaseLua, []string{key}, token).Err(); err != nil {
			middleware.Logger.Warn("failed to release lock",
				slog.String("key", key), slog.String("error", err.Error()))
		}
	}
	return release, true, nil
}

func (l *Locker) acquireLocal(key string, ttl time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if expires, held := l.local[key]; held && now.Before(expires) {
		return nil, false, nil
	}
	expires := now.Add(ttl)
	l.local[key] = expires

	release := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.local[key].Equal(expires) {
			delete(l.local, key)
		}
	}
	return release, true, nil
}
