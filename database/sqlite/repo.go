// Package sqlite implements the metadata repositories using SQLite
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mkravets/filevault"
)

type usersRepo struct {
	db        *sql.DB
	tableName string
}

func (r *usersRepo) Create(ctx context.Context, user filevault.User) (filevault.User, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (username, password_hash, created_at)
		VALUES (?, ?, ?)`, r.tableName)

	result, err := r.db.ExecContext(ctx, query, user.Username, user.PasswordHash, now)
	if err != nil {
		if isUniqueViolation(err) {
			return filevault.User{}, fmt.Errorf("create user: username %q taken: %w", user.Username, filevault.ErrConflict)
		}
		return filevault.User{}, fmt.Errorf("create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return filevault.User{}, fmt.Errorf("create user: last insert id: %w", err)
	}

	user.ID = id
	user.CreatedAt, _ = time.Parse(time.RFC3339Nano, now)

	return user, nil
}

func (r *usersRepo) GetByID(ctx context.Context, id int64) (filevault.User, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id, username, password_hash, created_at
		FROM %s
		WHERE id = ?`, r.tableName)

	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *usersRepo) GetByUsername(ctx context.Context, username string) (filevault.User, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id, username, password_hash, created_at
		FROM %s
		WHERE username = ?`, r.tableName)

	return r.scanUser(r.db.QueryRowContext(ctx, query, username))
}

func (r *usersRepo) scanUser(row *sql.Row) (filevault.User, error) {
	var u filevault.User
	var createdAt string

	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return filevault.User{}, filevault.ErrNotFound
		}
		return filevault.User{}, fmt.Errorf("get user: %w", err)
	}

	u.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return filevault.User{}, fmt.Errorf("get user: parse created_at: %w", err)
	}

	return u, nil
}

type filesRepo struct {
	db        *sql.DB
	tableName string
}

func (r *filesRepo) Create(ctx context.Context, item filevault.FileItem) (filevault.FileItem, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (name, fs_path, owner_id, version, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)`, r.tableName)

	result, err := r.db.ExecContext(ctx, query, item.Name, item.FSPath, item.OwnerID, now, now)
	if err != nil {
		return filevault.FileItem{}, fmt.Errorf("create file: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return filevault.FileItem{}, fmt.Errorf("create file: last insert id: %w", err)
	}

	item.ID = id
	item.Version = 1
	item.CreatedAt, _ = time.Parse(time.RFC3339Nano, now)
	item.UpdatedAt = item.CreatedAt

	return item, nil
}

func (r *filesRepo) GetByID(ctx context.Context, id int64) (filevault.FileItem, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id, name, fs_path, owner_id, version, created_at, updated_at
		FROM %s
		WHERE id = ?`, r.tableName)

	var item filevault.FileItem
	var createdAt, updatedAt string

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID, &item.Name, &item.FSPath, &item.OwnerID, &item.Version, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return filevault.FileItem{}, filevault.ErrNotFound
		}
		return filevault.FileItem{}, fmt.Errorf("get file: %w", err)
	}

	if err := parseTimes(&item, createdAt, updatedAt); err != nil {
		return filevault.FileItem{}, fmt.Errorf("get file: %w", err)
	}

	return item, nil
}

func (r *filesRepo) ListByOwner(ctx context.Context, ownerID int64) ([]filevault.FileItem, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id, name, fs_path, owner_id, version, created_at, updated_at
		FROM %s
		WHERE owner_id = ?
		ORDER BY id`, r.tableName)

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list by owner: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := []filevault.FileItem{}
	for rows.Next() {
		var item filevault.FileItem
		var createdAt, updatedAt string

		if scanErr := rows.Scan(&item.ID, &item.Name, &item.FSPath, &item.OwnerID, &item.Version, &createdAt, &updatedAt); scanErr != nil {
			return nil, fmt.Errorf("list by owner: scan: %w", scanErr)
		}

		if err := parseTimes(&item, createdAt, updatedAt); err != nil {
			return nil, fmt.Errorf("list by owner: %w", err)
		}

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list by owner: rows: %w", err)
	}

	return items, nil
}

func (r *filesRepo) Update(ctx context.Context, item filevault.FileItem) (filevault.FileItem, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`UPDATE %s
		SET name = ?, fs_path = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`, r.tableName)

	result, err := r.db.ExecContext(ctx, query, item.Name, item.FSPath, now, item.ID, item.Version)
	if err != nil {
		return filevault.FileItem{}, fmt.Errorf("update file: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return filevault.FileItem{}, fmt.Errorf("update file: rows affected: %w", err)
	}

	if rowsAffected == 0 {
		// Distinguish a missing record from a stale version.
		var existingID int64
		checkQuery := fmt.Sprintf(`SELECT id FROM %s WHERE id = ?`, r.tableName) //nolint:gosec // table name is validated
		checkErr := r.db.QueryRowContext(ctx, checkQuery, item.ID).Scan(&existingID)
		if errors.Is(checkErr, sql.ErrNoRows) {
			return filevault.FileItem{}, fmt.Errorf("update file: %w", filevault.ErrNotFound)
		}
		if checkErr != nil {
			return filevault.FileItem{}, fmt.Errorf("update file: check existing: %w", checkErr)
		}
		return filevault.FileItem{}, fmt.Errorf("update file: stale version %d: %w", item.Version, filevault.ErrConflict)
	}

	item.Version++
	item.UpdatedAt, _ = time.Parse(time.RFC3339Nano, now)

	return item, nil
}

func parseTimes(item *filevault.FileItem, createdAt, updatedAt string) error {
	var err error

	item.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return fmt.Errorf("parse created_at: %w", err)
	}

	item.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return fmt.Errorf("parse updated_at: %w", err)
	}

	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
