package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/sh03m2a5h/filesession-go/internal/identity"
	"github.com/sh03m2a5h/filesession-go/internal/session/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_FreshClientGetsOneID(t *testing.T) {
	store := NewStore(newManager(16), memory.NewStore(nil), nil)
	w := httptest.NewRecorder()

	// Bind installs the scope on a bare request
	sess := Bind(store, w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, identity.HasScope(sess.Request()))

	first, err := sess.ID()
	require.NoError(t, err)
	second, err := sess.ID()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 16)
	assert.Len(t, responseCookies(w), 1)

	// Reads and writes in the same request share the id
	require.NoError(t, sess.Set("a", 1))
	rec, err := sess.Values()
	require.NoError(t, err)
	assert.Equal(t, Record{"a": json.Number("1")}, rec)
	assert.Len(t, responseCookies(w), 1)
}

func TestSession_SetGetDelete(t *testing.T) {
	store := NewStore(newManager(8), memory.NewStore(nil), nil)
	sess := Bind(store, httptest.NewRecorder(), newRequest("sess0001"))

	require.NoError(t, sess.Set("user", "ada"))
	v, found, err := sess.Get("user")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "ada", v)

	require.NoError(t, sess.Delete("user"))
	_, found, err = sess.Get("user")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, sess.Set("user", "ada"))
	require.NoError(t, sess.Set("user", nil))
	_, found, err = sess.Get("user")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSession_Clear(t *testing.T) {
	store := NewStore(newManager(8), memory.NewStore(nil), nil)
	sess := Bind(store, httptest.NewRecorder(), newRequest("sess0002"))

	require.NoError(t, sess.Set("a", 1))
	require.NoError(t, sess.Set("b", 2))
	require.NoError(t, sess.Clear())

	rec, err := sess.Values()
	require.NoError(t, err)
	assert.Empty(t, rec)
}

func TestSession_Rotate(t *testing.T) {
	root := t.TempDir()
	store, _ := newFileStore(t, root, []identity.Option{identity.WithGenerator(fixedGenerator("rotated1"))})

	w := httptest.NewRecorder()
	sess := Bind(store, w, newRequest("original"))
	require.NoError(t, sess.Set("cart", "3 items"))

	newID, err := sess.Rotate()
	require.NoError(t, err)
	assert.Equal(t, "rotated1", newID)

	// The record moved with the id
	v, found, err := sess.Get("cart")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "3 items", v)

	assert.NoFileExists(t, filepath.Join(root, "sessions", "original"))
	assert.FileExists(t, filepath.Join(root, "sessions", "rotated1"))

	cookies := responseCookies(w)
	require.Len(t, cookies, 1)
	assert.Equal(t, "rotated1", cookies[0].Value)
	assert.Equal(t, 0, store.locks.size())
}

func TestSession_RotateWithoutRecord(t *testing.T) {
	store := NewStore(newManager(8, identity.WithGenerator(fixedGenerator("rotated2"))), memory.NewStore(nil), nil)
	sess := Bind(store, httptest.NewRecorder(), newRequest("emptyold"))

	newID, err := sess.Rotate()
	require.NoError(t, err)
	assert.Equal(t, "rotated2", newID)

	exists, err := store.Backend().Exists(context.Background(), newID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSession_RotateGeneratorFailure(t *testing.T) {
	store := NewStore(newManager(8, identity.WithGenerator(fixedGenerator())), memory.NewStore(nil), nil)
	sess := Bind(store, httptest.NewRecorder(), newRequest("keepme01"))
	require.NoError(t, sess.Set("a", 1))

	_, err := sess.Rotate()
	assert.ErrorIs(t, err, identity.ErrGenerate)

	// The old record is intact and still reachable
	v, found, err := sess.Get("a")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, json.Number("1"), v)
}

func TestSession_RotateFreshClientSetsOneCookie(t *testing.T) {
	store := NewStore(newManager(8, identity.WithGenerator(fixedGenerator("fresh001", "extra001"))), memory.NewStore(nil), nil)
	w := httptest.NewRecorder()
	sess := Bind(store, w, newRequest(""))

	newID, err := sess.Rotate()
	require.NoError(t, err)
	assert.Equal(t, "fresh001", newID)

	cookies := responseCookies(w)
	require.Len(t, cookies, 1)
	assert.Equal(t, "fresh001", cookies[0].Value)

	ids, err := store.Backend().List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSession_RotateMovesDataWrittenInSameRequest(t *testing.T) {
	store := NewStore(newManager(8, identity.WithGenerator(fixedGenerator("first001", "second01"))), memory.NewStore(nil), nil)
	sess := Bind(store, httptest.NewRecorder(), newRequest(""))

	require.NoError(t, sess.Set("a", 1))
	newID, err := sess.Rotate()
	require.NoError(t, err)
	assert.Equal(t, "second01", newID)

	rec, err := store.Load(context.Background(), "second01")
	require.NoError(t, err)
	assert.Equal(t, Record{"a": json.Number("1")}, rec)

	exists, err := store.Backend().Exists(context.Background(), "first001")
	require.NoError(t, err)
	assert.False(t, exists)
}
