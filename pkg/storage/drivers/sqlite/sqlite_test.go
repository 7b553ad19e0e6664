package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aussiebroadwan/stitch/pkg/storage/drivers/sqlite"
	"github.com/aussiebroadwan/stitch/pkg/storage/storagetest"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) (*sqlite.Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "stitch.db")
	s, err := sqlite.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestConformance(t *testing.T) {
	t.Parallel()

	s, _ := openTemp(t)
	storagetest.RunConformance(t, s)
}

func TestReopenKeepsValuesAndSkipsMigrations(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s, path := openTemp(t)
	require.NoError(t, s.Set(ctx, "k", "v"))
	require.NoError(t, s.Close())

	reopened, err := sqlite.Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v", got)
}
