// Package storagetest holds the behavior every storage.Store backend must share.
package storagetest

import (
	"context"
	"testing"

	"github.com/itchan-dev/schan/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Id   int64  `json:"id"`
	Name string `json:"name"`
}

// Run exercises s through the storage.Store contract.
func Run(t *testing.T, s storage.Store) {
	ctx := context.Background()

	t.Run("Get missing key", func(t *testing.T) {
		_, err := s.Get(ctx, "missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		found, err := storage.Has(ctx, s, "missing")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("Set then Get", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "threads_b", []byte(`[]`)))
		got, err := s.Get(ctx, "threads_b")
		require.NoError(t, err)
		assert.Equal(t, []byte(`[]`), got)
	})

	t.Run("Set overwrites", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "banned.x", []byte(`true`)))
		require.NoError(t, s.Set(ctx, "banned.x", []byte(`false`)))
		got, err := s.Get(ctx, "banned.x")
		require.NoError(t, err)
		assert.Equal(t, []byte(`false`), got)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "to-delete", []byte(`1`)))
		require.NoError(t, s.Delete(ctx, "to-delete"))
		_, err := s.Get(ctx, "to-delete")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		// deleting an absent key is not an error
		assert.NoError(t, s.Delete(ctx, "to-delete"))
	})

	t.Run("Empty key rejected", func(t *testing.T) {
		assert.Error(t, s.Set(ctx, " ", []byte(`1`)))
	})

	t.Run("JSON helpers", func(t *testing.T) {
		in := []record{{Id: 1, Name: "one"}, {Id: 2, Name: "two"}}
		require.NoError(t, storage.SetJSON(ctx, s, "records", in))

		var out []record
		found, err := storage.GetJSON(ctx, s, "records", &out)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, in, out)

		found, err = storage.GetJSON(ctx, s, "absent", &out)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, s.Ping(ctx))
	})
}
