package sqldb

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"video_notifier/internal/config"
	"video_notifier/migrations"
)

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, cfg.Driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Driver, err)
	}

	if cfg.Driver == config.DriverSQLite {
		// Writes are serialized by sqlite itself; a single connection also
		// keeps ":memory:" databases shared across callers.
		db.SetMaxOpenConns(1)
	}

	return db, nil
}

// Migrate applies the embedded schema migrations.
func Migrate(db *sqlx.DB) error {
	if err := migrations.Migrate(db.DB, db.DriverName()); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
