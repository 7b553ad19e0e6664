package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/aussiebroadwan/stitch/pkg/idx"
	"github.com/aussiebroadwan/stitch/pkg/storage"
	"github.com/aussiebroadwan/stitch/pkg/storage/drivers/postgres"
	"github.com/aussiebroadwan/stitch/pkg/storage/storagetest"
	"github.com/stretchr/testify/require"
)

func TestConformance(t *testing.T) {
	url := os.Getenv("STITCH_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("STITCH_TEST_POSTGRES_URL not set")
	}

	s, err := postgres.Connect(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	storagetest.RunConformance(t, storage.Prefixed(s, "test."+idx.NewString()+"."))
}
