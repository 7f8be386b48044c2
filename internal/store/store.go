package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const driverName = "sqlite3"

// dsnParams are applied by the driver to every pooled connection.
// Per-connection pragmas set with db.Exec would only reach one of them.
const dsnParams = "_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate"

// validName matches store names that are safe to use as file names.
var validName = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// maxOpenConns sizes the pool for one writer plus open cursors, each of
// which holds a connection until closed. Writes still serialize through
// IMMEDIATE transactions.
const maxOpenConns = 4

// Store is one open connection to a versioned invoice database file.
type Store struct {
	db      *sqlx.DB
	path    string
	version int
	applied []int
}

// Open creates or opens the database at path and migrates it to version
// using the default migrations.
func Open(path string, version int) (*Store, error) {
	return OpenWithMigrations(path, version, DefaultMigrations())
}

// OpenWithMigrations creates or opens the database at path and applies every
// migration above the persisted version up to and including version.
//
// Opening an already-migrated file at the same version applies nothing.
// A file whose persisted version is greater than version is rejected with
// ErrVersionTooNew; the file is left untouched.
func OpenWithMigrations(path string, version int, migrations []Migration) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("open store: empty path")
	}
	if version < 1 {
		return nil, fmt.Errorf("open store: %w: %d", ErrInvalidVersion, version)
	}

	db, err := sqlx.Open(driverName, path+"?"+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	// Verify connection works (creates the file if missing)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect store: %w", err)
	}

	// An in-memory database is private to its connection
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(2)
	}

	applied, err := runMigrations(context.Background(), db.DB, version, migrations)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, path: path, version: version, applied: applied}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	if s.db == nil {
		return nil
	}
	return s.db.DB
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// SchemaVersion returns the version the store was opened at.
func (s *Store) SchemaVersion() int {
	return s.version
}

// Applied returns the migration versions run by this Open call, in order.
// Empty when the file was already at the requested version.
func (s *Store) Applied() []int {
	out := make([]int, len(s.applied))
	copy(out, s.applied)
	return out
}

// PathFor returns the database file path for a store name inside dir.
func PathFor(dir, name string) string {
	return filepath.Join(dir, name+".db")
}

// ValidateName reports whether name can be used as a store name.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if !validName.MatchString(name) {
		return fmt.Errorf("%w: %q (allowed: letters, digits, '_', '.', '-')", ErrInvalidName, name)
	}
	return nil
}

// Remove deletes the database file at path with its WAL and shared-memory
// companions. Missing files are not an error.
func Remove(path string) error {
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove store file %s: %w", p, err)
		}
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
