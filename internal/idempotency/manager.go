// Package idempotency deduplicates Telegram updates so webhook retries do
// not drive the flow engine twice for the same message.
package idempotency

import (
	"context"
	"log/slog"
	"time"
)

// Operation is the guarded unit of work.
type Operation func(ctx context.Context) error

// Manager runs an operation at most once per key within the record TTL.
type Manager interface {
	// Execute runs fn unless the key was already processed. The returned
	// bool reports whether fn ran in this call.
	Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) (bool, error)
}

const lockTTL = 30 * time.Second

type manager struct {
	store Store
	log   *slog.Logger
}

// NewManager builds a Manager on top of the given store.
func NewManager(store Store, log *slog.Logger) Manager {
	if log == nil {
		log = slog.Default()
	}

	return &manager{
		store: store,
		log:   log,
	}
}

func (m *manager) Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if fn == nil {
		return false, nil
	}

	locked, err := m.store.Lock(ctx, key, lockTTL)
	if err != nil {
		// Dedupe is an optimization; when the store is down the update
		// is handled anyway rather than dropped.
		m.log.Warn("idempotency store unavailable, executing without dedupe",
			slog.String("key", key), slog.Any("error", err))
		return true, fn(ctx)
	}

	if !locked {
		// Either a concurrent delivery holds the lock or the update was
		// already processed. Both mean: do nothing.
		return false, nil
	}
	defer func() {
		if err := m.store.Unlock(ctx, key); err != nil {
			m.log.Error("failed to release idempotency lock",
				slog.String("key", key), slog.Any("error", err))
		}
	}()

	seen, err := m.store.Seen(ctx, key)
	if err != nil {
		m.log.Warn("idempotency lookup failed, executing without dedupe",
			slog.String("key", key), slog.Any("error", err))
		return true, fn(ctx)
	}
	if seen {
		return false, nil
	}

	if err := fn(ctx); err != nil {
		// Not marked as seen: a redelivery may still succeed.
		return true, err
	}

	if err := m.store.MarkSeen(ctx, key, ttl); err != nil {
		m.log.Error("failed to record processed update",
			slog.String("key", key), slog.Any("error", err))
	}

	return true, nil
}
