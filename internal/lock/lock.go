// Package lock serialises plan runs per store.
//
// Two plans on the same store would otherwise race on the same products'
// remote state. Redis backs the lock when several instances share stores;
// a single instance uses the in-process Local locker.
package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"storepilot/internal/model"
)

// Release frees a held lock. It is safe to call more than once.
type Release func(ctx context.Context)

// Locker acquires the plan lock of a store. Acquire waits up to the
// locker's configured wait and then fails with model.ErrStoreBusy.
type Locker interface {
	Acquire(ctx context.Context, storeID string) (Release, error)
}

func busy(storeID string) error {
	return model.NewConflictError(fmt.Sprintf("store %s is running another plan", storeID), model.ErrStoreBusy)
}

// === Redis ===

const (
	keyPrefix   = "storepilot:plan:"
	retryPeriod = 250 * time.Millisecond
)

// Redis is a Locker backed by redislock. Held locks are refreshed every
// half TTL so long plans keep them; a crashed holder's lock expires after
// TTL.
type Redis struct {
	client *redislock.Client
	ttl    time.Duration
	wait   time.Duration
	logger *slog.Logger
}

// NewRedis creates a Redis locker.
func NewRedis(rdb redis.UniversalClient, ttl, wait time.Duration, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Redis{client: redislock.New(rdb), ttl: ttl, wait: wait, logger: logger}
}

// Acquire obtains the store's lock and keeps it refreshed until released.
func (r *Redis) Acquire(ctx context.Context, storeID string) (Release, error) {
	retries := int(r.wait / retryPeriod)
	opts := &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(retryPeriod), retries),
	}

	l, err := r.client.Obtain(ctx, keyPrefix+storeID, r.ttl, opts)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, busy(storeID)
	}
	if err != nil {
		return nil, fmt.Errorf("obtaining store lock: %w", err)
	}

	refreshCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	go r.keepAlive(refreshCtx, l, storeID)

	var once sync.Once
	return func(ctx context.Context) {
		once.Do(func() {
			stop()
			if err := l.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				r.logger.Warn("releasing store lock", "store_id", storeID, "error", err)
			}
		})
	}, nil
}

func (r *Redis) keepAlive(ctx context.Context, l *redislock.Lock, storeID string) {
	ticker := time.NewTicker(r.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := l.Refresh(ctx, r.ttl, nil); err != nil {
				if ctx.Err() == nil {
					r.logger.Warn("refreshing store lock", "store_id", storeID, "error", err)
				}
				return
			}
		}
	}
}

// === In-process ===

// Local is a Locker for a single process: one token per store.
type Local struct {
	wait time.Duration

	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewLocal creates an in-process locker that waits up to wait for a busy
// store.
func NewLocal(wait time.Duration) *Local {
	return &Local{wait: wait, slots: make(map[string]chan struct{})}
}

func (l *Local) slot(storeID string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[storeID]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[storeID] = ch
	}
	return ch
}

// Acquire takes the store's token.
func (l *Local) Acquire(ctx context.Context, storeID string) (Release, error) {
	ch := l.slot(storeID)

	select {
	case ch <- struct{}{}:
	default:
		timer := time.NewTimer(l.wait)
		defer timer.Stop()
		select {
		case ch <- struct{}{}:
		case <-timer.C:
			return nil, busy(storeID)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func(context.Context) {
		once.Do(func() { <-ch })
	}, nil
}

var (
	_ Locker = (*Redis)(nil)
	_ Locker = (*Local)(nil)
)
