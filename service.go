package filevault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// StorageService orchestrates ownership-scoped file operations, keeping the
// blob store and the metadata store consistent. It is stateless across calls;
// all state lives in the repositories and on disk.
type StorageService struct {
	users          UserRepo
	files          FileRepo
	blobs          BlobStorage
	cleanupTimeout time.Duration
}

// ServiceConfig holds configuration options for StorageService.
type ServiceConfig struct {
	CleanupTimeout time.Duration // Timeout for orphan blob cleanup (default: 30s)
}

func NewStorageService(users UserRepo, files FileRepo, blobs BlobStorage, cfg ServiceConfig) (*StorageService, error) {
	if users == nil {
		return nil, errors.New("new storage service: user repo is required")
	}
	if files == nil {
		return nil, errors.New("new storage service: file repo is required")
	}
	if blobs == nil {
		return nil, errors.New("new storage service: blob storage is required")
	}

	cleanupTimeout := cfg.CleanupTimeout
	if cleanupTimeout <= 0 {
		cleanupTimeout = 30 * time.Second
	}

	return &StorageService{
		users:          users,
		files:          files,
		blobs:          blobs,
		cleanupTimeout: cleanupTimeout,
	}, nil
}

// resolveOwner loads the user record backing an authenticated identity. A
// missing record means the identity provider and the metadata store disagree,
// which is reported as ErrUnknownUser rather than ErrNotFound.
func (s *StorageService) resolveOwner(ctx context.Context, ownerID int64) (User, error) {
	owner, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, fmt.Errorf("%w: no user record for id %d", ErrUnknownUser, ownerID)
		}
		return User{}, fmt.Errorf("resolve owner %d: %w", ownerID, err)
	}
	return owner, nil
}

// Store writes uploaded content to the owner's blob directory and persists a
// matching metadata record.
//
// The blob gets a generated opaque name decoupled from originalName, which is
// kept only as display metadata and never used for path construction. If the
// metadata insert fails after the blob was written, the blob is deleted under
// a background cleanup context so no orphan is left behind.
//
// Returns the persisted record including its assigned ID and version.
func (s *StorageService) Store(ctx context.Context, ownerID int64, originalName string, content io.Reader) (FileItem, error) {
	if err := ctx.Err(); err != nil {
		return FileItem{}, fmt.Errorf("store file: %w", err)
	}

	if originalName == "" {
		return FileItem{}, fmt.Errorf("store file: %w: original name cannot be empty", ErrInvalidInput)
	}

	owner, err := s.resolveOwner(ctx, ownerID)
	if err != nil {
		return FileItem{}, fmt.Errorf("store file: %w", err)
	}

	if err := s.blobs.EnsureOwnerDir(ctx, owner.ID); err != nil {
		return FileItem{}, fmt.Errorf("store file: prepare owner directory: %w", err)
	}

	blob, err := s.blobs.Write(ctx, owner.ID, content)
	if err != nil {
		return FileItem{}, fmt.Errorf("store file %q: write failed: %w", originalName, err)
	}

	item, err := s.files.Create(ctx, FileItem{
		Name:    originalName,
		FSPath:  blob.Path,
		OwnerID: owner.ID,
	})
	if err != nil {
		// Use a background context for cleanup since the original context may
		// be cancelled already.
		cleanupCtx, cancel := context.WithTimeout(context.Background(), s.cleanupTimeout)
		defer cancel()

		if rmErr := s.blobs.Remove(cleanupCtx, blob.Path); rmErr != nil {
			return FileItem{}, fmt.Errorf("store file %q: metadata insert failed (%w) and blob cleanup failed: %w", originalName, err, rmErr)
		}
		return FileItem{}, fmt.Errorf("store file %q: metadata insert failed: %w", originalName, err)
	}

	return item, nil
}

// LoadAll returns every file record owned by the given user, ordered by ID.
// Returns an empty slice, never nil, when the user owns nothing.
func (s *StorageService) LoadAll(ctx context.Context, ownerID int64) ([]FileItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load all files: %w", err)
	}

	owner, err := s.resolveOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load all files: %w", err)
	}

	items, err := s.files.ListByOwner(ctx, owner.ID)
	if err != nil {
		return nil, fmt.Errorf("load all files: %w", err)
	}

	if items == nil {
		items = []FileItem{}
	}

	return items, nil
}

// Load returns the file record with the given ID if it is owned by the given
// user. A missing record yields ErrNotFound; a record owned by someone else
// yields ErrAccessDenied. The two outcomes stay distinct so the transport
// layer can answer 404 and 403 respectively. No side effects.
func (s *StorageService) Load(ctx context.Context, ownerID, fileID int64) (FileItem, error) {
	if err := ctx.Err(); err != nil {
		return FileItem{}, fmt.Errorf("load file: %w", err)
	}

	owner, err := s.resolveOwner(ctx, ownerID)
	if err != nil {
		return FileItem{}, fmt.Errorf("load file: %w", err)
	}

	item, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return FileItem{}, fmt.Errorf("load file %d: %w", fileID, err)
	}

	if item.OwnerID != owner.ID {
		return FileItem{}, fmt.Errorf("load file %d: %w", fileID, ErrAccessDenied)
	}

	return item, nil
}

// Open loads the file record (with the same ownership checks as Load) and
// opens its blob for reading. A record whose physical file has gone missing
// yields ErrNotFound instead of an internal error, so an externally deleted
// blob surfaces as a plain 404 downstream.
func (s *StorageService) Open(ctx context.Context, ownerID, fileID int64) (FileItem, io.ReadSeekCloser, error) {
	item, err := s.Load(ctx, ownerID, fileID)
	if err != nil {
		return FileItem{}, nil, err
	}

	f, err := s.blobs.Open(ctx, item.FSPath)
	if err != nil {
		return FileItem{}, nil, fmt.Errorf("open file %d: %w", fileID, err)
	}

	return item, f, nil
}
