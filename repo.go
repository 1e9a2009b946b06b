package filevault

import (
	"context"
	"io"
)

// UserRepo defines the interface for user record persistence.
//
// All methods accept a context for cancellation and timeout control.
// Implementations should return ErrNotFound when a lookup misses.
type UserRepo interface {
	// Create persists a new user and returns it with its assigned ID.
	// A duplicate username yields ErrConflict.
	Create(ctx context.Context, user User) (User, error)

	// GetByID retrieves a user by its numeric ID.
	GetByID(ctx context.Context, id int64) (User, error)

	// GetByUsername retrieves a user by its unique username.
	GetByUsername(ctx context.Context, username string) (User, error)
}

// FileRepo defines the interface for file metadata persistence.
// Implementations must handle concurrent access safely and ensure data
// consistency between callers.
type FileRepo interface {
	// Create persists a new file record and returns it with its assigned ID
	// and initial version.
	Create(ctx context.Context, item FileItem) (FileItem, error)

	// GetByID retrieves a file record by its numeric ID regardless of owner.
	// Ownership is enforced by the StorageService, not here.
	GetByID(ctx context.Context, id int64) (FileItem, error)

	// ListByOwner returns every file record owned by the given user, ordered
	// by ID. Returns an empty slice, never nil, when the user owns nothing.
	ListByOwner(ctx context.Context, ownerID int64) ([]FileItem, error)

	// Update persists changes to an existing record using optimistic
	// concurrency: the stored version must equal item.Version or the update
	// is rejected with ErrConflict. On success the returned record carries
	// the incremented version.
	Update(ctx context.Context, item FileItem) (FileItem, error)
}

// BlobStorage defines the interface for physical file storage operations.
//
// Paths are always relative to the storage root. Implementations should
// respect context cancellation during long-running reads and writes.
type BlobStorage interface {
	// EnsureOwnerDir creates the per-owner directory if it does not exist.
	// Must be idempotent: concurrent calls for the same owner never fail on
	// an already existing directory.
	EnsureOwnerDir(ctx context.Context, ownerID int64) error

	// Write stores content under a freshly generated opaque name inside the
	// owner's directory and returns where it landed. Implementations should
	// write atomically (temp file then rename) and compute an etag during
	// the copy.
	Write(ctx context.Context, ownerID int64, content io.Reader) (BlobInfo, error)

	// Open opens a blob for reading. Returns ErrNotFound if the blob does
	// not exist. The caller is responsible for closing the returned reader.
	Open(ctx context.Context, path string) (io.ReadSeekCloser, error)

	// Remove deletes a blob. Returns ErrNotFound if the blob does not exist.
	// Used to clean up orphans after a failed metadata insert.
	Remove(ctx context.Context, path string) error
}
