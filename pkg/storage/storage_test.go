package storage_test

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/stitch/pkg/storage"
	"github.com/aussiebroadwan/stitch/pkg/storage/storagetest"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	t.Parallel()
	storagetest.RunConformance(t, storage.NewMemory())
}

func TestPrefixed(t *testing.T) {
	t.Parallel()

	mem := storage.NewMemory()
	storagetest.RunConformance(t, storage.Prefixed(mem, "stitch.app-1."))

	ctx := context.Background()
	a := storage.Prefixed(mem, "stitch.a.")
	b := storage.Prefixed(mem, "stitch.b.")

	require.NoError(t, a.Set(ctx, "auth_info", "A"))
	require.NoError(t, b.Set(ctx, "auth_info", "B"))

	got, err := a.Get(ctx, "auth_info")
	require.NoError(t, err)
	require.Equal(t, "A", got)

	got, err = mem.Get(ctx, "stitch.b.auth_info")
	require.NoError(t, err)
	require.Equal(t, "B", got)

	require.NoError(t, a.Remove(ctx, "auth_info"))
	_, err = b.Get(ctx, "auth_info")
	require.NoError(t, err)
}
