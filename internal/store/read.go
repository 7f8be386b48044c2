package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"sort"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/invstore/internal/invoice"
)

// invoiceRow is the scan target for the invoice table.
type invoiceRow struct {
	ID     int64          `db:"invoice_id"`
	Number string         `db:"inv_number"`
	Name   sql.NullString `db:"name"`
}

func (r invoiceRow) toInvoice() invoice.Invoice {
	return invoice.Invoice{ID: r.ID, Number: r.Number, Name: r.Name.String}
}

// IndexInfo describes one index on the invoice table, as reported by
// PRAGMA index_list.
type IndexInfo struct {
	Seq     int    `db:"seq"`
	Name    string `db:"name"`
	Unique  bool   `db:"unique"`
	Origin  string `db:"origin"`
	Partial bool   `db:"partial"`
}

func listQuery(dir invoice.Direction) string {
	if dir == invoice.Prev {
		return `SELECT invoice_id, inv_number, name FROM invoice ORDER BY invoice_id DESC`
	}
	return `SELECT invoice_id, inv_number, name FROM invoice ORDER BY invoice_id ASC`
}

// FindByNumber looks an invoice up through the unique number index.
// Returns ErrNotFound if no live record has that number.
func (s *Store) FindByNumber(ctx context.Context, number string) (invoice.Invoice, error) {
	var row invoiceRow
	err := s.db.GetContext(ctx, &row,
		`SELECT invoice_id, inv_number, name FROM invoice WHERE inv_number = ?`,
		invoice.NormalizeNumber(number),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return invoice.Invoice{}, fmt.Errorf("find invoice %q: %w", number, ErrNotFound)
	}
	if err != nil {
		return invoice.Invoice{}, fmt.Errorf("find invoice %q: %w", number, err)
	}
	return row.toInvoice(), nil
}

// Get reads one invoice by ID. Returns ErrNotFound if it does not exist.
func (s *Store) Get(ctx context.Context, id int64) (invoice.Invoice, error) {
	var row invoiceRow
	err := s.db.GetContext(ctx, &row,
		`SELECT invoice_id, inv_number, name FROM invoice WHERE invoice_id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return invoice.Invoice{}, fmt.Errorf("get invoice %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return invoice.Invoice{}, fmt.Errorf("get invoice %d: %w", id, err)
	}
	return row.toInvoice(), nil
}

// Count returns the number of live invoices.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM invoice`); err != nil {
		return 0, fmt.Errorf("count invoices: %w", err)
	}
	return n, nil
}

// List materializes every invoice in the given direction.
// An empty store returns an empty, non-nil slice.
func (s *Store) List(ctx context.Context, dir invoice.Direction) ([]invoice.Invoice, error) {
	var rows []invoiceRow
	if err := s.db.SelectContext(ctx, &rows, listQuery(dir)); err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}

	out := make([]invoice.Invoice, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toInvoice())
	}
	return out, nil
}

// Invoices returns a lazy sequence over the collection. Every range over the
// sequence opens a fresh cursor, so the sequence can be walked repeatedly.
// A failure is yielded once as (zero, err) and ends the sequence.
func (s *Store) Invoices(ctx context.Context, dir invoice.Direction) iter.Seq2[invoice.Invoice, error] {
	return func(yield func(invoice.Invoice, error) bool) {
		cur, err := s.OpenCursor(ctx, dir)
		if err != nil {
			yield(invoice.Invoice{}, err)
			return
		}
		defer cur.Close()

		for cur.Next() {
			if !yield(cur.Invoice(), nil) {
				return
			}
		}
		if err := cur.Err(); err != nil {
			yield(invoice.Invoice{}, err)
		}
	}
}

// Cursor walks the invoice collection one record at a time.
//
// Usage follows sql.Rows:
//
//	cur, err := st.OpenCursor(ctx, invoice.Next)
//	if err != nil { ... }
//	defer cur.Close()
//	for cur.Next() {
//	    inv := cur.Invoice()
//	}
//	if err := cur.Err(); err != nil { ... }
type Cursor struct {
	rows   *sqlx.Rows
	cur    invoice.Invoice
	err    error
	closed bool
}

// OpenCursor starts a read-only traversal in the given direction.
// The traversal reads one consistent snapshot of the collection.
func (s *Store) OpenCursor(ctx context.Context, dir invoice.Direction) (*Cursor, error) {
	rows, err := s.db.QueryxContext(ctx, listQuery(dir))
	if err != nil {
		return nil, fmt.Errorf("open cursor: %w", err)
	}
	return &Cursor{rows: rows}, nil
}

// Next advances to the next record. Returns false when the collection is
// exhausted or an error occurred; check Err to tell the two apart.
func (c *Cursor) Next() bool {
	if c.closed {
		return false
	}
	if !c.rows.Next() {
		if err := c.rows.Err(); err != nil {
			c.err = fmt.Errorf("advance cursor: %w", err)
		}
		c.Close()
		return false
	}

	var row invoiceRow
	if err := c.rows.StructScan(&row); err != nil {
		c.err = fmt.Errorf("scan invoice: %w", err)
		c.Close()
		return false
	}
	c.cur = row.toInvoice()
	return true
}

// Invoice returns the record at the cursor position.
func (c *Cursor) Invoice() invoice.Invoice {
	return c.cur
}

// Err returns the error that ended the traversal, if any.
func (c *Cursor) Err() error {
	return c.err
}

// Close releases the traversal. Safe to call more than once.
func (c *Cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.rows.Close()
}

// Version reads the persisted schema version.
func (s *Store) Version(ctx context.Context) (int, error) {
	return readUserVersion(ctx, s.db.DB)
}

// Indexes lists the explicitly created indexes on the invoice table,
// ordered by name.
func (s *Store) Indexes(ctx context.Context) ([]IndexInfo, error) {
	var all []IndexInfo
	if err := s.db.SelectContext(ctx, &all, `PRAGMA index_list('invoice')`); err != nil {
		return nil, fmt.Errorf("list indexes: %w", err)
	}

	out := make([]IndexInfo, 0, len(all))
	for _, idx := range all {
		if idx.Origin == "c" {
			out = append(out, idx)
		}
	}
	sortIndexes(out)
	return out, nil
}

// Migrations returns the recorded schema_migrations rows in version order.
func (s *Store) Migrations(ctx context.Context) ([]AppliedMigration, error) {
	var out []AppliedMigration
	if err := s.db.SelectContext(ctx, &out,
		`SELECT version, description, applied_at FROM schema_migrations ORDER BY version ASC`,
	); err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	return out, nil
}

func sortIndexes(idx []IndexInfo) {
	sort.Slice(idx, func(i, j int) bool { return idx[i].Name < idx[j].Name })
}
