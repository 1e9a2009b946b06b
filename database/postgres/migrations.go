package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkravets/filevault"
)

// Migrate creates the users and files tables. Order matters: files
// references users.
func Migrate(ctx context.Context, pool *pgxpool.Pool, tables filevault.Tables) error {
	if err := createUsersTable(ctx, pool, tables.Users); err != nil {
		return fmt.Errorf("migrate up %s: %w", tables.Users, err)
	}
	if err := createFilesTable(ctx, pool, tables.Files, tables.Users); err != nil {
		return fmt.Errorf("migrate up %s: %w", tables.Files, err)
	}
	return nil
}

// DropTables removes the metadata tables in reverse dependency order.
func DropTables(ctx context.Context, pool *pgxpool.Pool, tables filevault.Tables) error {
	for _, tableName := range []string{tables.Files, tables.Users} {
		quotedTable := pgx.Identifier{tableName}.Sanitize()
		if _, err := pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", quotedTable)); err != nil {
			return fmt.Errorf("migrate down %s: %w", tableName, err)
		}
	}
	return nil
}

func createUsersTable(ctx context.Context, pool *pgxpool.Pool, tableName string) error {
	quotedTable := pgx.Identifier{tableName}.Sanitize()

	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`, quotedTable)

	_, err := pool.Exec(ctx, sql)
	if err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

func createFilesTable(ctx context.Context, pool *pgxpool.Pool, tableName, usersTableName string) error {
	quotedTable := pgx.Identifier{tableName}.Sanitize()
	quotedUsers := pgx.Identifier{usersTableName}.Sanitize()
	indexOwner := pgx.Identifier{fmt.Sprintf("idx_%s_owner", tableName)}.Sanitize()

	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			name TEXT NOT NULL,
			fs_path TEXT NOT NULL,
			owner_id BIGINT NOT NULL REFERENCES %s (id),
			version BIGINT NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS %s
		ON %s (owner_id, id);
	`,
		quotedTable, quotedUsers,
		indexOwner, quotedTable,
	)

	_, err := pool.Exec(ctx, sql)
	if err != nil {
		return fmt.Errorf("create files table: %w", err)
	}
	return nil
}
