package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"

	"github.com/adstream-io/adstream/internal/config"
)

func setupPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()

	ctx := context.Background()
	testDB := config.SetupTestDatabase(ctx, t)

	t.Cleanup(func() {
		_ = testDB.Connection.Close()
		_ = testcontainers.TerminateContainer(testDB.Container)
	})

	return NewPostgresStore(&Connection{db: testDB.Connection})
}

func TestPostgresStoreGetMissing_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	store := setupPostgresStore(t)

	value, err := store.Get(context.Background(), "campaign_performance_report", "profile-1")
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestPostgresStoreSetGet_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	store := setupPostgresStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "campaign_performance_report", "profile-1", "2024-06-01"))

	value, err := store.Get(ctx, "campaign_performance_report", "profile-1")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01", value)
}

func TestPostgresStoreUpsert_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	store := setupPostgresStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "campaign_performance_report", "profile-1", "2024-06-01"))
	require.NoError(t, store.Set(ctx, "campaign_performance_report", "profile-1", "2024-06-02"))

	value, err := store.Get(ctx, "campaign_performance_report", "profile-1")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-02", value)
}

func TestPostgresStoreIsolatesProfiles_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	store := setupPostgresStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "campaign_performance_report", "profile-1", "2024-06-01"))
	require.NoError(t, store.Set(ctx, "search_terms_report", "profile-1", "2024-06-03"))

	value, err := store.Get(ctx, "campaign_performance_report", "profile-2")
	require.NoError(t, err)
	assert.Empty(t, value)

	value, err = store.Get(ctx, "search_terms_report", "profile-1")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-03", value)
}

func TestConnectRejectsInvalidConfig(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	_, err := Connect(context.Background(), NewConfig(""))
	assert.ErrorIs(t, err, ErrDatabaseURLEmpty)
}
