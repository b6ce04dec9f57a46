package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/sh03m2a5h/filesession-go/internal/session/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewStore(t *testing.T) {
	t.Run("with logger", func(t *testing.T) {
		store := NewStore(zap.NewNop())
		assert.NotNil(t, store)
		assert.NotNil(t, store.sessions)
	})

	t.Run("with nil logger", func(t *testing.T) {
		store := NewStore(nil)
		assert.NotNil(t, store)
		assert.NotNil(t, store.logger)
	})
}

func TestStoreOperations(t *testing.T) {
	store := NewStore(zap.NewNop())
	defer store.Close()

	ctx := context.Background()

	t.Run("Load missing session", func(t *testing.T) {
		_, err := store.Load(ctx, "session1")
		assert.ErrorIs(t, err, backend.ErrNotFound)
	})

	t.Run("Save session", func(t *testing.T) {
		err := store.Save(ctx, "session1", []byte(`{"a":1}`))
		require.NoError(t, err)

		assert.Len(t, store.sessions, 1)
		assert.Contains(t, store.sessions, "session1")
	})

	t.Run("Load session", func(t *testing.T) {
		data, err := store.Load(ctx, "session1")
		require.NoError(t, err)
		assert.Equal(t, `{"a":1}`, string(data))
	})

	t.Run("Loaded bytes are a copy", func(t *testing.T) {
		data, err := store.Load(ctx, "session1")
		require.NoError(t, err)
		data[0] = 'X'

		again, err := store.Load(ctx, "session1")
		require.NoError(t, err)
		assert.Equal(t, `{"a":1}`, string(again))
	})

	t.Run("Save overwrites and keeps CreatedAt", func(t *testing.T) {
		created := store.sessions["session1"].CreatedAt

		require.NoError(t, store.Save(ctx, "session1", []byte(`{}`)))

		data, err := store.Load(ctx, "session1")
		require.NoError(t, err)
		assert.Equal(t, `{}`, string(data))
		assert.Equal(t, created, store.sessions["session1"].CreatedAt)
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
		require.NoError(t, store.Save(ctx, "session0", []byte(`{}`)))

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"session0", "session1"}, ids)
	})

	t.Run("Delete session", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "session1"))

		_, err := store.Load(ctx, "session1")
		assert.ErrorIs(t, err, backend.ErrNotFound)
	})

	t.Run("Delete nonexistent session", func(t *testing.T) {
		assert.NoError(t, store.Delete(ctx, "nonexistent"))
	})
}

func TestConcurrentAccess(t *testing.T) {
	store := NewStore(zap.NewNop())
	defer store.Close()

	ctx := context.Background()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("session%d", i)
			assert.NoError(t, store.Save(ctx, id, []byte(`{}`)))
			_, err := store.Load(ctx, id)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 50)
}

func TestStats(t *testing.T) {
	store := NewStore(zap.NewNop())
	defer store.Close()

	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "session1", []byte(`{}`)))
	require.NoError(t, store.Save(ctx, "session2", []byte(`{}`)))
	require.NoError(t, store.Delete(ctx, "session1"))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "memory", stats.Store)
	assert.Equal(t, int64(1), stats.ActiveSessions)
	assert.Equal(t, int64(2), stats.TotalSaved)
	assert.Equal(t, int64(1), stats.TotalDeleted)
	assert.Contains(t, stats.Info, "active_sessions=1")
}

func TestClose(t *testing.T) {
	store := NewStore(zap.NewNop())

	require.NoError(t, store.Save(context.Background(), "session1", []byte(`{}`)))
	assert.Len(t, store.sessions, 1)

	require.NoError(t, store.Close())
	assert.Len(t, store.sessions, 0)
}
