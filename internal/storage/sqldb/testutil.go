package sqldb

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"video_notifier/internal/config"
)

// SetupTestDB opens a migrated in-memory sqlite database closed at test cleanup.
func SetupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := Open(context.Background(), config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   ":memory:",
	})
	require.NoError(t, err, "Failed to create test database")

	require.NoError(t, Migrate(db), "Failed to run migrations on test database")

	t.Cleanup(func() {
		require.NoError(t, db.Close(), "Failed to close test database")
	})

	return db
}
