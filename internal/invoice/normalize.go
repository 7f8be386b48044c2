package invoice

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeNumber trims surrounding whitespace and converts the number to
// Unicode NFC so that visually identical numbers collide on the unique index.
func NormalizeNumber(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// ParseID coerces a textual identifier into the numeric form the store keys on.
// Stored IDs are int64; a string never matches one directly.
func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %v", ErrInvalidID, s, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("%w %q: must be positive", ErrInvalidID, s)
	}
	return id, nil
}
