// Package database selects and connects the metadata backend.
package database

import (
	"context"
	"fmt"

	"github.com/mkravets/filevault"
	"github.com/mkravets/filevault/database/postgres"
	"github.com/mkravets/filevault/database/sqlite"
)

// Config holds the configuration for connecting to a metadata backend.
type Config struct {
	// Type specifies the database type: "sqlite" or "postgres"
	Type string `mapstructure:"type"`
	// DSN is the data source name (connection string)
	DSN string `mapstructure:"dsn"`
	// AutoMigrate runs migrations on startup when true
	AutoMigrate bool `mapstructure:"auto_migrate"`
	// Tables holds the metadata table names
	Tables filevault.Tables `mapstructure:"tables"`
}

// Store is a connected metadata backend exposing the user and file
// repositories. Callers are expected to Ping, optionally Migrate, and
// Validate before use, and Close when done.
type Store interface {
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Validate(ctx context.Context) error
	Users() filevault.UserRepo
	Files() filevault.FileRepo
	Close() error
}

// Connect establishes a connection to the configured database backend.
func Connect(ctx context.Context, cfg Config) (Store, error) {
	if err := cfg.Tables.Validate(); err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	switch cfg.Type {
	case "sqlite":
		return sqlite.Connect(ctx, cfg.DSN, cfg.Tables)
	case "postgres":
		return postgres.Connect(ctx, cfg.DSN, cfg.Tables)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}
