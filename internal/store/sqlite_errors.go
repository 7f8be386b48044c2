//go:build cgo

package store

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// classify maps driver errors onto the package sentinels.
func classify(err error) error {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}
	if sqliteErr.Code != sqlite3.ErrConstraint {
		return err
	}
	if sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%w (%v)", ErrDuplicateNumber, err)
	}
	return fmt.Errorf("%w: %v", ErrConstraint, err)
}
