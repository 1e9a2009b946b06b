// Package filesystem provides the file system blob store for filevault.
// Blobs live in one flat directory per owner id, named by generated UUID
// tokens rather than by upload names. Writes are atomic (temp file plus
// rename) and produce SHA256-based etags.
package filesystem

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/mkravets/filevault"
)

// Store provides blob operations below a sandboxed root directory.
type Store struct {
	root *os.Root
}

// NewBlobStore creates a new Store with the given root directory.
// The root provides sandboxed file operations preventing path traversal.
func NewBlobStore(root *os.Root) *Store {
	return &Store{root: root}
}

// ownerDir returns the directory name for an owner, relative to the root.
func ownerDir(ownerID int64) string {
	return strconv.FormatInt(ownerID, 10)
}

// EnsureOwnerDir creates the per-owner directory if it is missing. Idempotent:
// concurrent calls for the same owner tolerate the directory already existing.
func (s *Store) EnsureOwnerDir(ctx context.Context, ownerID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := ownerDir(ownerID)
	if err := s.root.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("could not create owner directory %s: %w", dir, err)
	}
	return nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// Write stores content under a freshly generated UUID name inside the owner's
// directory using a temp file and rename. It returns the blob's root-relative
// path, the number of bytes written, and a SHA256-based etag. The operation
// respects context cancellation.
func (s *Store) Write(ctx context.Context, ownerID int64, content io.Reader) (filevault.BlobInfo, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return filevault.BlobInfo{}, ctxErr
	}

	tmpFile := tmpFileName()
	t, createErr := s.root.Create(tmpFile)
	if createErr != nil {
		return filevault.BlobInfo{}, fmt.Errorf("could not open temp file: %w", createErr)
	}

	success := false
	defer func() {
		if closeErr := t.Close(); closeErr != nil {
			slog.Warn("failed to close tmp file", "err", closeErr)
		}
		if !success {
			if rmErr := s.root.Remove(t.Name()); rmErr != nil {
				slog.Warn("failed to remove tmp file", "err", rmErr)
			}
		}
	}()

	h := sha256.New()
	w := io.MultiWriter(h, t)

	size, err := io.Copy(w, &ctxReader{ctx: ctx, r: content})
	if err != nil {
		return filevault.BlobInfo{}, fmt.Errorf("could not copy file contents: %w", err)
	}

	err = t.Sync()
	if err != nil {
		return filevault.BlobInfo{}, fmt.Errorf("could not sync written file: %w", err)
	}

	dir := ownerDir(ownerID)
	if err := s.root.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, fs.ErrExist) {
		return filevault.BlobInfo{}, fmt.Errorf("could not create owner directory: %w", err)
	}

	path := filepath.Join(dir, uuid.New().String())
	if renameErr := s.root.Rename(tmpFile, path); renameErr != nil {
		return filevault.BlobInfo{}, fmt.Errorf("failed to rename file: %w", renameErr)
	}

	etag := hex.EncodeToString(h.Sum(nil))
	success = true

	return filevault.BlobInfo{Path: path, Size: size, Etag: etag}, nil
}

// Open opens a blob for reading. Returns filevault.ErrNotFound if the blob
// does not exist.
func (s *Store) Open(ctx context.Context, path string) (io.ReadSeekCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := s.root.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, filevault.ErrNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return f, nil
}

// Remove deletes a blob. Returns filevault.ErrNotFound if the blob does not exist.
func (s *Store) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.root.Remove(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return filevault.ErrNotFound
		}
		return fmt.Errorf("could not delete file: %w", err)
	}
	return nil
}

func tmpFileName() string {
	return fmt.Sprintf(".t%s", uuid.New().String())
}
