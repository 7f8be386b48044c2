package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migration is one schema step. Up runs inside the transaction that also
// records the new version, so a failed step leaves the file at the previous
// version.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// AppliedMigration is a row of the schema_migrations table.
type AppliedMigration struct {
	Version     int    `db:"version"`
	Description string `db:"description"`
	AppliedAt   string `db:"applied_at"`
}

var defaultMigrations = mustLoadMigrations(migrationFiles, "migrations")

// DefaultMigrations returns a copy of the embedded migration list, ordered by version.
func DefaultMigrations() []Migration {
	out := make([]Migration, len(defaultMigrations))
	copy(out, defaultMigrations)
	return out
}

// CurrentSchemaVersion returns the highest version the default migrations declare.
func CurrentSchemaVersion() int {
	return maxMigrationVersion(defaultMigrations)
}

// LoadMigrations reads NNNN_description.sql files from dir in fsys.
// Each file becomes one migration executing the file's statements.
func LoadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".sql" {
			continue
		}
		base := strings.TrimSuffix(entry.Name(), ".sql")
		num, desc, ok := strings.Cut(base, "_")
		if !ok {
			return nil, fmt.Errorf("migration file %q: want NNNN_description.sql", entry.Name())
		}
		version, err := strconv.Atoi(num)
		if err != nil {
			return nil, fmt.Errorf("migration file %q: version: %w", entry.Name(), err)
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %q: %w", entry.Name(), err)
		}
		stmt := string(data)
		migrations = append(migrations, Migration{
			Version:     version,
			Description: strings.ReplaceAll(desc, "_", " "),
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(stmt)
				return err
			},
		})
	}

	if err := validateMigrations(migrations); err != nil {
		return nil, err
	}
	sortMigrations(migrations)
	return migrations, nil
}

func mustLoadMigrations(fsys fs.FS, dir string) []Migration {
	migrations, err := LoadMigrations(fsys, dir)
	if err != nil {
		panic(err)
	}
	return migrations
}

// runMigrations applies every migration with persisted < Version <= target.
// Returns the versions applied by this call.
func runMigrations(ctx context.Context, db *sql.DB, target int, migrations []Migration) ([]int, error) {
	if err := validateMigrations(migrations); err != nil {
		return nil, err
	}

	ordered := make([]Migration, len(migrations))
	copy(ordered, migrations)
	sortMigrations(ordered)

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  TEXT NOT NULL
		)
	`); err != nil {
		return nil, fmt.Errorf("ensure schema_migrations: %w", err)
	}

	current, err := readUserVersion(ctx, db)
	if err != nil {
		return nil, err
	}
	if current > target {
		return nil, fmt.Errorf("%w: db=%d requested=%d", ErrVersionTooNew, current, target)
	}
	if max := maxMigrationVersion(ordered); target > max {
		return nil, fmt.Errorf("%w: requested=%d latest=%d", ErrUnknownVersion, target, max)
	}

	var applied []int
	for _, m := range ordered {
		if m.Version > target {
			break
		}
		ok, err := applyMigration(ctx, db, m)
		if err != nil {
			return applied, err
		}
		if ok {
			applied = append(applied, m.Version)
		}
	}

	return applied, nil
}

// applyMigration runs one step in its own immediate transaction. The version
// is re-read under the write lock so a concurrent opener that already ran the
// step makes this a no-op.
func applyMigration(ctx context.Context, db *sql.DB, m Migration) (bool, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin migration v%d: %w", m.Version, err)
	}
	defer tx.Rollback() // No-op if committed

	var current int
	if err := tx.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return false, fmt.Errorf("migration v%d: read user_version: %w", m.Version, err)
	}
	if current >= m.Version {
		return false, nil
	}

	if err := m.Up(tx); err != nil {
		return false, fmt.Errorf("migration v%d (%s): %w", m.Version, m.Description, err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)`,
		m.Version, m.Description, time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return false, fmt.Errorf("record migration v%d: %w", m.Version, err)
	}

	// user_version lives in the file header and is covered by the transaction
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
		return false, fmt.Errorf("set user_version v%d: %w", m.Version, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit migration v%d: %w", m.Version, err)
	}
	return true, nil
}

func readUserVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("get user_version: %w", err)
	}
	return version, nil
}

func validateMigrations(migrations []Migration) error {
	seen := make(map[int]bool, len(migrations))
	for _, m := range migrations {
		if m.Version < 1 {
			return fmt.Errorf("migration %q: %w: %d", m.Description, ErrInvalidVersion, m.Version)
		}
		if m.Up == nil {
			return fmt.Errorf("migration v%d: missing Up", m.Version)
		}
		if seen[m.Version] {
			return fmt.Errorf("migration v%d declared twice", m.Version)
		}
		seen[m.Version] = true
	}
	return nil
}

func sortMigrations(migrations []Migration) {
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
}

func maxMigrationVersion(migrations []Migration) int {
	max := 0
	for _, m := range migrations {
		if m.Version > max {
			max = m.Version
		}
	}
	return max
}
