package idempotency

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})

	return mr, client
}

func TestManagerExecutesOnce(t *testing.T) {
	_, client := setupTestRedis(t)
	mgr := NewManager(NewRedisStore(client, testLogger()), testLogger())
	ctx := context.Background()

	calls := 0
	fn := func(context.Context) error {
		calls++
		return nil
	}

	executed, err := mgr.Execute(ctx, "msg:1:100", time.Hour, fn)
	require.NoError(t, err)
	assert.True(t, executed)

	executed, err = mgr.Execute(ctx, "msg:1:100", time.Hour, fn)
	require.NoError(t, err)
	assert.False(t, executed, "redelivered update must be dropped")
	assert.Equal(t, 1, calls)
}

func TestManagerDifferentKeysBothExecute(t *testing.T) {
	_, client := setupTestRedis(t)
	mgr := NewManager(NewRedisStore(client, testLogger()), testLogger())
	ctx := context.Background()

	calls := 0
	fn := func(context.Context) error {
		calls++
		return nil
	}

	for _, key := range []string{"msg:1:100", "msg:1:101"} {
		executed, err := mgr.Execute(ctx, key, time.Hour, fn)
		require.NoError(t, err)
		assert.True(t, executed)
	}
	assert.Equal(t, 2, calls)
}

func TestManagerRetriesAfterFailedOperation(t *testing.T) {
	_, client := setupTestRedis(t)
	mgr := NewManager(NewRedisStore(client, testLogger()), testLogger())
	ctx := context.Background()

	calls := 0
	boom := errors.New("handler failed")
	fn := func(context.Context) error {
		calls++
		if calls == 1 {
			return boom
		}
		return nil
	}

	executed, err := mgr.Execute(ctx, "msg:1:100", time.Hour, fn)
	assert.True(t, executed)
	assert.ErrorIs(t, err, boom)

	// The failed attempt was not marked processed, so a redelivery runs.
	executed, err = mgr.Execute(ctx, "msg:1:100", time.Hour, fn)
	require.NoError(t, err)
	assert.True(t, executed)
	assert.Equal(t, 2, calls)
}

func TestManagerSkipsWhileLockHeld(t *testing.T) {
	_, client := setupTestRedis(t)
	store := NewRedisStore(client, testLogger())
	mgr := NewManager(store, testLogger())
	ctx := context.Background()

	locked, err := store.Lock(ctx, "msg:1:100", time.Minute)
	require.NoError(t, err)
	require.True(t, locked)

	executed, err := mgr.Execute(ctx, "msg:1:100", time.Hour, func(context.Context) error {
		t.Fatal("operation must not run while a concurrent delivery holds the lock")
		return nil
	})
	require.NoError(t, err)
	assert.False(t, executed)
}

func TestManagerExecutesWhenStoreIsDown(t *testing.T) {
	mr, client := setupTestRedis(t)
	mgr := NewManager(NewRedisStore(client, testLogger()), testLogger())

	mr.Close()

	calls := 0
	executed, err := mgr.Execute(context.Background(), "msg:1:100", time.Hour, func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.True(t, executed, "an unavailable store must not drop updates")
	assert.Equal(t, 1, calls)
}

func TestManagerNilOperation(t *testing.T) {
	mgr := NewManager(NewMemoryStore(), testLogger())

	executed, err := mgr.Execute(context.Background(), "msg:1:100", time.Hour, nil)
	require.NoError(t, err)
	assert.False(t, executed)
}

func TestMemoryStoreLockAndSeen(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	locked, err := store.Lock(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, locked)

	locked, err = store.Lock(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.False(t, locked, "held lock must not be re-acquired")

	require.NoError(t, store.Unlock(ctx, "k"))
	locked, err = store.Lock(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, locked)

	seen, err := store.Seen(ctx, "k")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, store.MarkSeen(ctx, "k", time.Minute))
	seen, err = store.Seen(ctx, "k")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.MarkSeen(ctx, "k", -time.Second))

	seen, err := store.Seen(ctx, "k")
	require.NoError(t, err)
	assert.False(t, seen, "expired marker reads as unseen")

	locked, err := store.Lock(ctx, "stale", -time.Second)
	require.NoError(t, err)
	require.True(t, locked)

	locked, err = store.Lock(ctx, "stale", time.Minute)
	require.NoError(t, err)
	assert.True(t, locked, "expired lock is free to take")
}

func TestMemoryStoreCleanup(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.MarkSeen(ctx, "old", -time.Second))
	require.NoError(t, store.MarkSeen(ctx, "fresh", time.Minute))

	store.Cleanup()

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.NotContains(t, store.records, "old")
	assert.Contains(t, store.records, "fresh")
}
