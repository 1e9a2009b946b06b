// Package postgres implements the metadata repositories using PostgreSQL
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkravets/filevault"
)

type usersRepo struct {
	pool      *pgxpool.Pool
	tableName string
}

func (r *usersRepo) Create(ctx context.Context, user filevault.User) (filevault.User, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (username, password_hash)
		VALUES ($1, $2)
		RETURNING id, created_at
	`, r.tableName)

	err := r.pool.QueryRow(ctx, query, user.Username, user.PasswordHash).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return filevault.User{}, fmt.Errorf("create user: username %q taken: %w", user.Username, filevault.ErrConflict)
		}
		return filevault.User{}, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

func (r *usersRepo) GetByID(ctx context.Context, id int64) (filevault.User, error) {
	query := fmt.Sprintf(`
		SELECT id, username, password_hash, created_at
		FROM %s
		WHERE id = $1
	`, r.tableName)

	var u filevault.User
	err := r.pool.QueryRow(ctx, query, id).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return filevault.User{}, filevault.ErrNotFound
		}
		return filevault.User{}, fmt.Errorf("get user: %w", err)
	}

	return u, nil
}

func (r *usersRepo) GetByUsername(ctx context.Context, username string) (filevault.User, error) {
	query := fmt.Sprintf(`
		SELECT id, username, password_hash, created_at
		FROM %s
		WHERE username = $1
	`, r.tableName)

	var u filevault.User
	err := r.pool.QueryRow(ctx, query, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return filevault.User{}, filevault.ErrNotFound
		}
		return filevault.User{}, fmt.Errorf("get user: %w", err)
	}

	return u, nil
}

type filesRepo struct {
	pool      *pgxpool.Pool
	tableName string
}

func (r *filesRepo) Create(ctx context.Context, item filevault.FileItem) (filevault.FileItem, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (name, fs_path, owner_id)
		VALUES ($1, $2, $3)
		RETURNING id, version, created_at, updated_at
	`, r.tableName)

	err := r.pool.QueryRow(ctx, query, item.Name, item.FSPath, item.OwnerID).Scan(
		&item.ID, &item.Version, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return filevault.FileItem{}, fmt.Errorf("create file: %w", err)
	}

	return item, nil
}

func (r *filesRepo) GetByID(ctx context.Context, id int64) (filevault.FileItem, error) {
	query := fmt.Sprintf(`
		SELECT id, name, fs_path, owner_id, version, created_at, updated_at
		FROM %s
		WHERE id = $1
	`, r.tableName)

	var item filevault.FileItem
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&item.ID, &item.Name, &item.FSPath, &item.OwnerID, &item.Version, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return filevault.FileItem{}, filevault.ErrNotFound
		}
		return filevault.FileItem{}, fmt.Errorf("get file: %w", err)
	}

	return item, nil
}

func (r *filesRepo) ListByOwner(ctx context.Context, ownerID int64) ([]filevault.FileItem, error) {
	query := fmt.Sprintf(`
		SELECT id, name, fs_path, owner_id, version, created_at, updated_at
		FROM %s
		WHERE owner_id = $1
		ORDER BY id
	`, r.tableName)

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list by owner: %w", err)
	}
	defer rows.Close()

	items := []filevault.FileItem{}
	for rows.Next() {
		var item filevault.FileItem
		if scanErr := rows.Scan(&item.ID, &item.Name, &item.FSPath, &item.OwnerID, &item.Version, &item.CreatedAt, &item.UpdatedAt); scanErr != nil {
			return nil, fmt.Errorf("list by owner: scan: %w", scanErr)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list by owner: rows: %w", err)
	}

	return items, nil
}

func (r *filesRepo) Update(ctx context.Context, item filevault.FileItem) (filevault.FileItem, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, fs_path = $2, version = version + 1, updated_at = NOW()
		WHERE id = $3 AND version = $4
		RETURNING version, updated_at
	`, r.tableName)

	err := r.pool.QueryRow(ctx, query, item.Name, item.FSPath, item.ID, item.Version).Scan(
		&item.Version, &item.UpdatedAt,
	)
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return filevault.FileItem{}, fmt.Errorf("update file: %w", err)
	}

	// Distinguish a missing record from a stale version.
	var existingID int64
	checkQuery := fmt.Sprintf(`SELECT id FROM %s WHERE id = $1`, r.tableName)
	checkErr := r.pool.QueryRow(ctx, checkQuery, item.ID).Scan(&existingID)
	if errors.Is(checkErr, pgx.ErrNoRows) {
		return filevault.FileItem{}, fmt.Errorf("update file: %w", filevault.ErrNotFound)
	}
	if checkErr != nil {
		return filevault.FileItem{}, fmt.Errorf("update file: check existing: %w", checkErr)
	}

	return filevault.FileItem{}, fmt.Errorf("update file: stale version %d: %w", item.Version, filevault.ErrConflict)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
