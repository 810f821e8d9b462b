package tokenstore_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/learnpath/identity"
	"github.com/jrsteele09/learnpath/identity/tokenstore"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return rdb
}

func testSession() *identity.Session {
	return &identity.Session{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "bearer",
		ExpiresAt:    time.Now().Add(time.Hour).UTC().Truncate(time.Second),
		User:         identity.Identity{ID: "user-1", Email: "ada@example.com"},
	}
}

func exerciseStore(t *testing.T, store tokenstore.Store) {
	t.Helper()
	ctx := context.Background()

	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, got)

	want := testSession()
	require.NoError(t, store.Save(ctx, want))

	got, err = store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, want.User, got.User)
	require.Equal(t, want.RefreshToken, got.RefreshToken)
	require.True(t, want.ExpiresAt.Equal(got.ExpiresAt))

	require.NoError(t, store.Delete(ctx))
	require.NoError(t, store.Delete(ctx))

	got, err = store.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, tokenstore.NewMemory())
}

func TestMemoryStoreCopiesOnSave(t *testing.T) {
	store := tokenstore.NewMemory()
	s := testSession()
	require.NoError(t, store.Save(context.Background(), s))
	s.AccessToken = "mutated"

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "access", got.AccessToken)
}

func TestRedisStore(t *testing.T) {
	exerciseStore(t, tokenstore.NewRedis(newTestRedis(t), "test", 0))
}

func TestRedisWatchSeesOtherWriters(t *testing.T) {
	rdb := newTestRedis(t)
	watcher := tokenstore.NewRedis(rdb, "shared", time.Hour)
	writer := tokenstore.NewRedis(rdb, "shared", time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var notified atomic.Int32
	done := make(chan error, 1)
	go func() { done <- watcher.Watch(ctx, func() { notified.Add(1) }) }()

	require.Eventually(t, func() bool {
		n, err := rdb.PubSubNumSub(ctx, watcher.Channel()).Result()
		return err == nil && n[watcher.Channel()] > 0
	}, time.Second, 10*time.Millisecond)

	// The watcher's own writes are not echoed back.
	require.NoError(t, watcher.Save(ctx, testSession()))
	require.NoError(t, writer.Delete(ctx))

	require.Eventually(t, func() bool { return notified.Load() == 1 }, time.Second, 10*time.Millisecond)

	got, err := watcher.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, got)

	cancel()
	require.NoError(t, <-done)
}
