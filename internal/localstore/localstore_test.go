package localstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStores(t *testing.T) {
	sqlite, err := OpenSQLite(
		context.Background(),
		zap.NewNop(),
		filepath.Join(t.TempDir(), "local.db"),
	)
	require.Nil(t, err)
	t.Cleanup(func() { require.Nil(t, sqlite.Close()) })

	stores := map[string]IStore{
		"memory": NewMemory(),
		"sqlite": sqlite,
	}

	for name, store := range stores {
		store := store
		t.Run(name, func(t *testing.T) {
			_, ok := store.Get("cart_user1")
			require.False(t, ok)

			require.Nil(t, store.Set("cart_user1", []byte(`[{"productId":1}]`)))
			val, ok := store.Get("cart_user1")
			require.True(t, ok)
			require.Equal(t, `[{"productId":1}]`, string(val))

			require.Nil(t, store.Set("cart_user1", []byte(`[]`)))
			val, ok = store.Get("cart_user1")
			require.True(t, ok)
			require.Equal(t, `[]`, string(val))
		})
	}
}

func TestMemoryCopies(t *testing.T) {
	store := NewMemory()
	val := []byte("abc")
	require.Nil(t, store.Set("key", val))
	val[0] = 'z'

	got, ok := store.Get("key")
	require.True(t, ok)
	require.Equal(t, "abc", string(got))
}

func TestPrefixed(t *testing.T) {
	store := NewMemory()
	browser1 := NewPrefixed(store, "browser1:")
	browser2 := NewPrefixed(store, "browser2:")

	require.Nil(t, browser1.Set("cart_user1", []byte("1")))

	_, ok := browser2.Get("cart_user1")
	require.False(t, ok)

	val, ok := store.Get("browser1:cart_user1")
	require.True(t, ok)
	require.Equal(t, "1", string(val))
}
