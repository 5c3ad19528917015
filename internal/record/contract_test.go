package record_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/edvin/swapd/internal/db"
	"github.com/edvin/swapd/internal/record"
	"github.com/edvin/swapd/internal/record/recordtest"
)

func TestFileStoreContract(t *testing.T) {
	recordtest.Run(t, func(t *testing.T) record.Store {
		return record.NewFileStore(filepath.Join(t.TempDir(), "deploy.lock"))
	})
}

func TestSQLiteStoreContract(t *testing.T) {
	recordtest.Run(t, func(t *testing.T) record.Store {
		s, err := record.OpenSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "records.db"), "default")
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

// Set SWAPD_TEST_POSTGRES_URL to run against a real database.
func TestPostgresStoreContract(t *testing.T) {
	url := os.Getenv("SWAPD_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("SWAPD_TEST_POSTGRES_URL not set")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	recordtest.Run(t, func(t *testing.T) record.Store {
		// Each subtest gets its own target so runs do not interfere.
		s, err := record.NewPostgresStore(ctx, pool, "test-"+uuid.New().String())
		require.NoError(t, err)
		t.Cleanup(func() { s.Clear(context.Background()) })
		return s
	})
}
