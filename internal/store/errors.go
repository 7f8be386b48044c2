package store

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupported is returned by Supported when the SQLite driver cannot
	// open a database in this build (for example a binary built without cgo).
	ErrUnsupported = errors.New("sqlite storage unavailable")

	// ErrConstraint is returned when a write violates a schema constraint.
	// The enclosing transaction has been rolled back.
	ErrConstraint = errors.New("constraint violation")

	// ErrDuplicateNumber is returned when an insert reuses a live invoice number.
	ErrDuplicateNumber = fmt.Errorf("%w: invoice number already exists", ErrConstraint)

	// ErrNotFound is returned when a lookup matches no record.
	ErrNotFound = errors.New("invoice not found")

	// ErrVersionTooNew is returned when the file is at a higher schema version
	// than the one requested.
	ErrVersionTooNew = errors.New("stored schema version is newer than requested")

	// ErrUnknownVersion is returned when no migration declares the requested version.
	ErrUnknownVersion = errors.New("no migration for requested schema version")

	// ErrInvalidVersion is returned for schema versions below 1.
	ErrInvalidVersion = errors.New("schema version must be positive")

	// ErrInvalidName is returned for store names that cannot be used as file names.
	ErrInvalidName = errors.New("invalid store name")
)
