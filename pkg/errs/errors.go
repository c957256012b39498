// Package errs holds the error taxonomy surfaced by image backends.
//
// Callers match these with errors.Is; the concrete error usually wraps the
// underlying store fault or carries a descriptive suffix.
package errs

import "errors"

// Lookup and access errors.
var (
	// ErrImageNotFound is returned when no valid image exists at the resolved location,
	// or when no accessible version of a removed object remains.
	ErrImageNotFound = errors.New("image not found")

	// ErrForbidden is returned when the object store denies the operation for the caller.
	ErrForbidden = errors.New("forbidden")
)

// Input errors.
var (
	// ErrInvalidMetadata is returned when a metadata key or value exceeds its maximum length.
	ErrInvalidMetadata = errors.New("invalid metadata")

	// ErrInvalidLocation is returned when a locator string is malformed.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrInvalidValue is returned for business rule violations: unsupported store,
	// disallowed format, size or checksum mismatch, caller supplied id, bad sort parameters.
	ErrInvalidValue = errors.New("invalid value")
)

// Backend errors.
var (
	// ErrNotSupported is returned by read-only backends for mutating operations.
	ErrNotSupported = errors.New("operation not supported")

	// ErrInconsistentStore is returned when the store reports permissions for a null path.
	ErrInconsistentStore = errors.New("database inconsistency")

	// ErrUnknownBackend is returned when the configured backend key is not registered.
	ErrUnknownBackend = errors.New("unknown image backend")
)
