package filevault

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// User is an identity record. Users are created through registration (auth
// package or the adduser command) and are read-only from the storage
// service's perspective.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// FileItem is the metadata record for one stored file. Name is the original
// (untrusted) upload filename, kept for display only. FSPath is the blob
// location relative to the configured storage root. Version is a monotonic
// counter incremented on every update for optimistic concurrency control.
type FileItem struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	FSPath    string    `json:"-"`
	OwnerID   int64     `json:"-"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BlobInfo describes a blob written to physical storage.
type BlobInfo struct {
	// Path is the blob location relative to the storage root.
	Path string
	// Size is the number of bytes written.
	Size int64
	// Etag is the hex-encoded SHA256 of the content.
	Etag string
}

// Tables holds configurable table names for metadata storage.
// This allows multi-tenant deployments to use different table names.
type Tables struct {
	Users string `mapstructure:"users"`
	Files string `mapstructure:"files"`
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Validate checks that all required table names are set and valid.
func (t Tables) Validate() error {
	if t.Users == "" {
		return errors.New("validate tables: users table name cannot be empty")
	}
	if t.Files == "" {
		return errors.New("validate tables: files table name cannot be empty")
	}

	if !IsValidTableName(t.Users) {
		return fmt.Errorf("validate tables: invalid users table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", t.Users)
	}
	if !IsValidTableName(t.Files) {
		return fmt.Errorf("validate tables: invalid files table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", t.Files)
	}

	return nil
}
