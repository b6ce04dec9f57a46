package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sh03m2a5h/filesession-go/internal/session/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMiniredisStore(t *testing.T, prefix string) (*Store, *miniredis.Miniredis) {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	store, err := NewStore(&Config{
		URL:       "redis://" + s.Addr(),
		KeyPrefix: prefix,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store, s
}

func TestDefaultConfigSimple(t *testing.T) {
	config := DefaultConfig()
	assert.Equal(t, "redis://localhost:6379/0", config.URL)
	assert.Equal(t, "filesession:", config.KeyPrefix)
	assert.Equal(t, 10, config.PoolSize)
	assert.Equal(t, 5, config.MinIdleConns)
	assert.Equal(t, 5*time.Second, config.DialTimeout)
	assert.Equal(t, 3*time.Second, config.ReadTimeout)
	assert.Equal(t, 3*time.Second, config.WriteTimeout)
}

func TestNewStoreWithInvalidURLSimple(t *testing.T) {
	config := &Config{
		URL: "invalid-url",
	}

	store, err := NewStore(config, zap.NewNop())
	assert.Error(t, err)
	assert.Nil(t, store)
	assert.Contains(t, err.Error(), "failed to parse Redis URL")
}

func TestRedisStoreWithMiniredis(t *testing.T) {
	store, s := newMiniredisStore(t, "test:")
	ctx := context.Background()

	t.Run("Load missing session", func(t *testing.T) {
		_, err := store.Load(ctx, "session1")
		assert.ErrorIs(t, err, backend.ErrNotFound)
	})

	t.Run("Save and Load session", func(t *testing.T) {
		err := store.Save(ctx, "session1", []byte(`{"theme":"dark"}`))
		require.NoError(t, err)

		data, err := store.Load(ctx, "session1")
		require.NoError(t, err)
		assert.Equal(t, `{"theme":"dark"}`, string(data))

		raw, err := s.Get("test:session1")
		require.NoError(t, err)
		assert.Equal(t, `{"theme":"dark"}`, raw)
	})

	t.Run("Saved records do not expire", func(t *testing.T) {
		assert.Equal(t, time.Duration(0), s.TTL("test:session1"))
	})

	t.Run("Session exists", func(t *testing.T) {
		exists, err := store.Exists(ctx, "session1")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = store.Exists(ctx, "nonexistent")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("List sessions", func(t *testing.T) {
		require.NoError(t, s.Set("other:session9", "{}"))

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"session1"}, ids)
	})

	t.Run("Delete session", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "session1"))

		_, err := store.Load(ctx, "session1")
		assert.ErrorIs(t, err, backend.ErrNotFound)
	})

	t.Run("Delete nonexistent session", func(t *testing.T) {
		assert.NoError(t, store.Delete(ctx, "session1"))
	})
}

func TestStatsSimple(t *testing.T) {
	store, _ := newMiniredisStore(t, "stats_test:")
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "session1", []byte(`{}`)))
	require.NoError(t, store.Save(ctx, "session2", []byte(`{}`)))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "redis", stats.Store)
	assert.Equal(t, int64(2), stats.ActiveSessions)
	assert.Equal(t, int64(-1), stats.TotalSaved)
}

func TestConnectionFailure(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	store, err := NewStore(&Config{URL: "redis://" + s.Addr()}, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	s.Close()

	err = store.Save(context.Background(), "session1", []byte(`{}`))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to store session in Redis")

	_, err = store.Load(context.Background(), "session1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, backend.ErrNotFound)
}

func TestNewStoreWithClient(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	defer client.Close()

	logger := zap.NewNop()

	store := NewStoreWithClient(client, "test:", logger)
	assert.NotNil(t, store)
	assert.Equal(t, "test:", store.keyPrefix)
	assert.Equal(t, client, store.client)
	assert.Equal(t, logger, store.logger)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "test_session", []byte(`{"a":1}`)))

	data, err := store.Load(ctx, "test_session")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))
}

func TestNewStoreWithClientDefaultPrefix(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()

	store := NewStoreWithClient(client, "", nil)
	assert.Equal(t, "filesession:", store.keyPrefix)
}
