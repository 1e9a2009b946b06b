package filevault

import "errors"

var (
	// ErrNotFound is returned when a referenced record or blob does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAccessDenied is returned when a record exists but belongs to another
	// owner. Deliberately distinct from ErrNotFound so the transport layer can
	// answer 403 instead of 404.
	ErrAccessDenied = errors.New("access denied")
	// ErrUnauthorized is returned when authentication fails.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict is returned when an optimistic version check fails.
	ErrConflict = errors.New("version conflict")
	// ErrUnknownUser is returned when an authenticated identity has no
	// corresponding user record. The identity provider and the metadata store
	// disagree, which is a deployment inconsistency, not a caller error.
	ErrUnknownUser = errors.New("unknown user")
	// ErrInternal is returned when an internal error occurs.
	ErrInternal = errors.New("internal error")
)
