package store

import (
	"database/sql"
	"fmt"
	"sync"
)

var (
	probeOnce sync.Once
	probeErr  error
)

// Supported reports whether this build can open SQLite databases.
// The probe opens a throwaway in-memory database once per process.
func Supported() error {
	probeOnce.Do(func() {
		probeErr = probe()
	})
	return probeErr
}

func probe() error {
	db, err := sql.Open(driverName, ":memory:")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	return nil
}
