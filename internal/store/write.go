package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/invstore/internal/invoice"
)

// Add inserts an invoice and returns it with its assigned ID.
//
// The insert runs in its own transaction and Add returns only after COMMIT,
// so a returned record is durable. A duplicate number fails with
// ErrDuplicateNumber and rolls the transaction back; the existing record is
// untouched. Any ID already set on inv is ignored.
func (s *Store) Add(ctx context.Context, inv invoice.Invoice) (invoice.Invoice, error) {
	rec := invoice.New(inv.Number, inv.Name)
	if err := rec.Validate(); err != nil {
		return invoice.Invoice{}, fmt.Errorf("add invoice: %w: %w", ErrConstraint, err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return invoice.Invoice{}, fmt.Errorf("add invoice: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx,
		`INSERT INTO invoice (inv_number, name) VALUES (?, ?)`,
		rec.Number,
		nullString(rec.Name),
	)
	if err != nil {
		return invoice.Invoice{}, fmt.Errorf("add invoice %q: %w", rec.Number, classify(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return invoice.Invoice{}, fmt.Errorf("add invoice: last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return invoice.Invoice{}, fmt.Errorf("add invoice: commit: %w", classify(err))
	}

	rec.ID = id
	return rec, nil
}

// Delete removes the invoice with the given ID.
// Returns false when no record had that ID; that is not an error.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("delete invoice: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `DELETE FROM invoice WHERE invoice_id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete invoice %d: %w", id, classify(err))
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete invoice: rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("delete invoice: commit: %w", err)
	}
	return n > 0, nil
}

// Clear removes every invoice in one transaction and returns how many were
// removed. AUTOINCREMENT keeps the sequence, so cleared IDs are not reused.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("clear invoices: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `DELETE FROM invoice`)
	if err != nil {
		return 0, fmt.Errorf("clear invoices: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear invoices: rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("clear invoices: commit: %w", err)
	}
	return n, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
