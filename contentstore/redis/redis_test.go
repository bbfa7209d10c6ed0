package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	mr := miniredis.RunT(t)
	store, err := New(mr.Addr())
	require.NoError(t, err)
	return store
}

func TestGetMissing(t *testing.T) {
	store := newTestStore(t)
	_, ok, err := store.Get(context.Background(), "missing-id")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPutThenGet(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Put(context.Background(), "abc", "hello world"))

	text, ok, err := store.Get(context.Background(), "abc")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "hello world", text)
}
