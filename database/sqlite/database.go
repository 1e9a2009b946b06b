package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mkravets/filevault"

	_ "modernc.org/sqlite" // SQLite driver
)

// database provides SQLite database operations.
type database struct {
	db     *sql.DB
	tables filevault.Tables
}

// Connect establishes a connection to SQLite.
// Tables should be validated before calling Connect.
func Connect(ctx context.Context, dsn string, tables filevault.Tables) (*database, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}

	return &database{
		db:     db,
		tables: tables,
	}, nil
}

// Ping verifies the database connection is alive.
func (d *database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Migrate runs database migrations to create required tables.
func (d *database) Migrate(ctx context.Context) error {
	return Migrate(ctx, d.db, d.tables)
}

// Validate checks that the database schema matches the expected structure.
func (d *database) Validate(ctx context.Context) error {
	return ValidateSchema(ctx, d.db, d.tables)
}

// Users returns the user repository.
func (d *database) Users() filevault.UserRepo {
	return &usersRepo{db: d.db, tableName: d.tables.Users}
}

// Files returns the file metadata repository.
func (d *database) Files() filevault.FileRepo {
	return &filesRepo{db: d.db, tableName: d.tables.Files}
}

// Close closes the database connection.
func (d *database) Close() error {
	return d.db.Close()
}
