package manager

import (
	"errors"
	"fmt"

	"github.com/roach88/invstore/internal/invoice"
	"github.com/roach88/invstore/internal/store"
)

// Code categorizes manager errors.
type Code string

const (
	// CodeUnsupportedPlatform indicates the storage engine is unavailable in
	// this build. The manager is disabled and every operation is a no-op.
	CodeUnsupportedPlatform Code = "UNSUPPORTED_PLATFORM"

	// CodeOpenFailure indicates the store could not be opened: a blocked
	// upgrade, a version conflict, an invalid name or a driver failure.
	CodeOpenFailure Code = "OPEN_FAILURE"

	// CodeConstraintViolation indicates a write violated uniqueness or typing.
	// The transaction was rolled back.
	CodeConstraintViolation Code = "CONSTRAINT_VIOLATION"

	// CodeNotReady indicates an operation was issued without an open store.
	CodeNotReady Code = "NOT_READY"

	// CodeNotFound indicates a lookup matched no record.
	CodeNotFound Code = "NOT_FOUND"

	// CodeTransactionFailure indicates any other storage failure.
	CodeTransactionFailure Code = "TRANSACTION_FAILURE"
)

var (
	// ErrNotReady is wrapped by NOT_READY errors.
	ErrNotReady = errors.New("store is not open")

	// ErrBlocked is wrapped by OPEN_FAILURE errors when connections at an
	// older version did not close before the opener gave up.
	ErrBlocked = errors.New("open blocked by connections at an older version")

	// ErrAlreadyOpen is wrapped by OPEN_FAILURE errors when Open is called on
	// a Manager that is already open or opening.
	ErrAlreadyOpen = errors.New("manager already open")
)

// Error is the error type resolved by every manager Future.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Op is the operation that failed ("open", "add", "delete", ...).
	Op string

	// Name is the logical store name, when known.
	Name string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Name, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf extracts the Code from err. Returns "" if err is not an *Error.
func CodeOf(err error) Code {
	var mErr *Error
	if errors.As(err, &mErr) {
		return mErr.Code
	}
	return ""
}

// IsCode reports whether err is an *Error with the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// classify wraps a store error from a data operation into an *Error.
func classify(op, name string, err error) error {
	if err == nil {
		return nil
	}
	var mErr *Error
	if errors.As(err, &mErr) {
		return err
	}

	code := CodeTransactionFailure
	switch {
	case errors.Is(err, store.ErrUnsupported):
		code = CodeUnsupportedPlatform
	case errors.Is(err, store.ErrConstraint), errors.Is(err, invoice.ErrInvalidID):
		code = CodeConstraintViolation
	case errors.Is(err, store.ErrNotFound):
		code = CodeNotFound
	}
	return &Error{Code: code, Op: op, Name: name, Err: err}
}

// openError wraps a failure to open a store into an *Error.
func openError(name string, err error) error {
	var mErr *Error
	if errors.As(err, &mErr) {
		return err
	}
	if errors.Is(err, store.ErrUnsupported) {
		return &Error{Code: CodeUnsupportedPlatform, Op: "open", Name: name, Err: err}
	}
	return &Error{Code: CodeOpenFailure, Op: "open", Name: name, Err: err}
}

func notReady(op, name string) error {
	return &Error{Code: CodeNotReady, Op: op, Name: name, Err: ErrNotReady}
}
