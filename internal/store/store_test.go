package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path, 1)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	// Verify file was created
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_OpensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path, 1)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	s1.Close()

	s2, err := Open(path, 1)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer s2.Close()

	var count int
	err = s2.db.QueryRow("SELECT COUNT(*) FROM invoice").Scan(&count)
	if err != nil {
		t.Errorf("query failed: %v", err)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	// Try to open in non-existent directory
	path := "/nonexistent/dir/test.db"

	_, err := Open(path, 1)
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestOpen_RejectsInvalidVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	_, err := Open(path, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidVersion)
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("", 1)
	require.Error(t, err)
}

func TestOpen_InitializesSchemaOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s1, err := Open(path, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, s1.Applied())
	require.NoError(t, s1.Close())

	for i := 0; i < 3; i++ {
		s, err := Open(path, 1)
		require.NoError(t, err, "open iteration %d", i)
		assert.Empty(t, s.Applied(), "open iteration %d re-ran migrations", i)
		require.NoError(t, s.Close())
	}

	s := createTestStoreAt(t, path, 1)

	idx, err := s.Indexes(ctx)
	require.NoError(t, err)
	require.Len(t, idx, 1)
	assert.Equal(t, "idx_invoice_inv_number", idx[0].Name)
	assert.True(t, idx[0].Unique)

	migrations, err := s.Migrations(ctx)
	require.NoError(t, err)
	require.Len(t, migrations, 1)
	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "create invoice", migrations[0].Description)

	version, err := s.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestOpen_UpgradeAppliesOnlyNewSteps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s1, err := Open(path, 1)
	require.NoError(t, err)
	_, err = s1.Add(ctx, testInvoice("LC4578"))
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2 := createTestStoreAt(t, path, 2)
	assert.Equal(t, []int{2}, s2.Applied())

	idx, err := s2.Indexes(ctx)
	require.NoError(t, err)
	require.Len(t, idx, 2)
	assert.Equal(t, "idx_invoice_inv_number", idx[0].Name)
	assert.True(t, idx[0].Unique)
	assert.Equal(t, "idx_invoice_name", idx[1].Name)
	assert.False(t, idx[1].Unique)

	// Data survives the upgrade
	n, err := s2.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestOpen_FreshFileRunsEveryStepInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s := createTestStoreAt(t, path, CurrentSchemaVersion())
	assert.Equal(t, []int{1, 2}, s.Applied())
}

func TestOpen_VersionTooNew(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path, 2)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(path, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVersionTooNew)
}

func TestOpen_UnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	_, err := Open(path, CurrentSchemaVersion()+1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownVersion)
}

func TestOpen_FailedMigrationKeepsPreviousVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	migrations := append(DefaultMigrations(), Migration{
		Version:     3,
		Description: "broken",
		Up: func(tx *sql.Tx) error {
			if _, err := tx.Exec(`CREATE TABLE scratch (id INTEGER)`); err != nil {
				return err
			}
			return errors.New("boom")
		},
	})

	_, err := OpenWithMigrations(path, 3, migrations)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration v3 (broken)")

	s := createTestStoreAt(t, path, 2)
	version, err := s.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	var name string
	err = s.db.QueryRow(`SELECT name FROM sqlite_master WHERE name = 'scratch'`).Scan(&name)
	assert.ErrorIs(t, err, sql.ErrNoRows, "failed step must roll back its statements")
}

func TestOpen_DuplicateMigrationVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	up := func(tx *sql.Tx) error { return nil }

	_, err := OpenWithMigrations(path, 1, []Migration{
		{Version: 1, Description: "a", Up: up},
		{Version: 1, Description: "b", Up: up},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declared twice")
}

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	require.NoError(t, s.verifyPragma("journal_mode", "wal"))
	require.NoError(t, s.verifyPragma("foreign_keys", "1"))
	require.NoError(t, s.verifyPragma("busy_timeout", "5000"))
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	err := s.Close()
	if err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestClose_MultipleCalls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path, 1)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("first Close() failed: %v", err)
	}

	// Second close should not panic (though may error)
	_ = s.Close()
}

func TestDB_ReturnsUnderlyingConnection(t *testing.T) {
	s := createTestStore(t)

	db := s.DB()
	require.NotNil(t, db)
	require.NoError(t, db.Ping())
}

func TestValidateName(t *testing.T) {
	require.NoError(t, ValidateName("dbInvoices"))
	require.NoError(t, ValidateName("shop-2.invoices_v1"))

	for _, bad := range []string{"", "../etc", "a/b", "has space", "semi;colon"} {
		err := ValidateName(bad)
		require.Error(t, err, "name %q", bad)
		assert.ErrorIs(t, err, ErrInvalidName)
	}
}

func TestPathFor(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "dbInvoices.db"), PathFor("data", "dbInvoices"))
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.db")

	s, err := Open(path, 1)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	require.NoError(t, Remove(path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Removing again is not an error
	require.NoError(t, Remove(path))
}

func TestSupported(t *testing.T) {
	// Test binaries link the cgo driver
	require.NoError(t, Supported())
}

func TestLoadMigrations_RejectsBadFileName(t *testing.T) {
	_, err := LoadMigrations(os.DirFS(t.TempDir()), ".")
	require.NoError(t, err, "empty dir yields no migrations")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "create.sql"), []byte("SELECT 1;"), 0o644))
	_, err = LoadMigrations(os.DirFS(dir), ".")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NNNN_description.sql")
}
