package invoice

import "errors"

var (
	// ErrEmptyNumber is returned when an invoice number is blank after normalization.
	ErrEmptyNumber = errors.New("invoice number is required")

	// ErrNumberTooLong is returned when an invoice number exceeds MaxNumberLength.
	ErrNumberTooLong = errors.New("invoice number too long")

	// ErrInvalidID is returned when a textual ID is not a positive integer.
	ErrInvalidID = errors.New("invalid invoice id")
)
