package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/invstore/internal/invoice"
)

// createTestStore creates a fresh store at schema version 1 in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	return createTestStoreAt(t, filepath.Join(t.TempDir(), "test.db"), 1)
}

// createTestStoreAt opens path at version and closes it on cleanup.
func createTestStoreAt(t *testing.T, path string, version int) *Store {
	t.Helper()
	s, err := Open(path, version)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testInvoice creates an unsaved invoice with only a number.
func testInvoice(number string) invoice.Invoice {
	return invoice.Invoice{Number: number}
}
