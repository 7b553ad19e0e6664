// Package storagetest holds the shared contract tests for storage drivers.
package storagetest

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/stitch/pkg/storage"

	"github.com/stretchr/testify/require"
)

// RunConformance checks the Storage contract against s. Drivers call it from
// their own tests; s should start empty for the keys used here.
func RunConformance(t *testing.T, s storage.Storage) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		_, err := s.Get(ctx, "conformance.missing")
		require.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "conformance.a", `{"user_id":"u1"}`))

		got, err := s.Get(ctx, "conformance.a")
		require.NoError(t, err)
		require.Equal(t, `{"user_id":"u1"}`, got)
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "conformance.b", "one"))
		require.NoError(t, s.Set(ctx, "conformance.b", "two"))

		got, err := s.Get(ctx, "conformance.b")
		require.NoError(t, err)
		require.Equal(t, "two", got)
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "conformance.c", "x"))
		require.NoError(t, s.Remove(ctx, "conformance.c"))

		_, err := s.Get(ctx, "conformance.c")
		require.ErrorIs(t, err, storage.ErrNotFound)

		// twice is fine
		require.NoError(t, s.Remove(ctx, "conformance.c"))
	})

	t.Run("empty value is a value", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "conformance.d", ""))

		got, err := s.Get(ctx, "conformance.d")
		require.NoError(t, err)
		require.Empty(t, got)
	})
}
