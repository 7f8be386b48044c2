package invoice

import (
	"fmt"
	"strings"
)

// Invoice is a single invoice record.
type Invoice struct {
	ID     int64  `json:"invoiceID" db:"invoice_id" yaml:"invoiceID"`
	Number string `json:"invNumber" db:"inv_number" yaml:"invNumber"`
	Name   string `json:"name,omitempty" db:"name" yaml:"name,omitempty"`
}

// New builds an unsaved invoice with a normalized number.
func New(number, name string) Invoice {
	return Invoice{
		Number: NormalizeNumber(number),
		Name:   strings.TrimSpace(name),
	}
}

// Validate checks the fields a caller controls.
// The ID is ignored because the store assigns it.
func (inv Invoice) Validate() error {
	if NormalizeNumber(inv.Number) == "" {
		return ErrEmptyNumber
	}
	if len(inv.Number) > MaxNumberLength {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrNumberTooLong, len(inv.Number), MaxNumberLength)
	}
	return nil
}

// String renders the invoice for text output.
func (inv Invoice) String() string {
	if inv.Name == "" {
		return fmt.Sprintf("%d\t%s", inv.ID, inv.Number)
	}
	return fmt.Sprintf("%d\t%s\t%s", inv.ID, inv.Number, inv.Name)
}

// MaxNumberLength bounds the stored invoice number.
const MaxNumberLength = 64

// Direction selects the traversal order of a listing.
type Direction int

const (
	// Next walks the collection from the lowest ID to the highest.
	Next Direction = iota
	// Prev walks the collection from the highest ID to the lowest.
	Prev
)

// String returns the direction name used in logs and flags.
func (d Direction) String() string {
	switch d {
	case Next:
		return "next"
	case Prev:
		return "prev"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ParseDirection converts "next" or "prev" into a Direction.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "next":
		return Next, nil
	case "prev":
		return Prev, nil
	default:
		return Next, fmt.Errorf("invalid direction %q: must be next or prev", s)
	}
}
