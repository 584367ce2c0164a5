package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/GuiaBolso/darwin"
	"github.com/diegoclair/sqlmigrator"
)

//go:embed sql/*.sql
var SqlFiles embed.FS

// Migrate applies the embedded migrations using the dialect of driverName.
func Migrate(db *sql.DB, driverName string) error {
	dialect, err := dialectFor(driverName)
	if err != nil {
		return err
	}

	migrator := sqlmigrator.New(db, dialect)

	return migrator.Migrate(SqlFiles, "sql")
}

func dialectFor(driverName string) (darwin.Dialect, error) {
	switch driverName {
	case "postgres":
		return darwin.PostgresDialect{}, nil
	case "sqlite3":
		return darwin.SqliteDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driverName)
	}
}
