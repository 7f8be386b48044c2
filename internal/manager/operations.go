package manager

import (
	"context"
	"iter"

	"github.com/roach88/invstore/internal/invoice"
	"github.com/roach88/invstore/internal/store"
)

// Add inserts inv and resolves with the stored record, ID assigned, once the
// transaction has committed. A duplicate or empty number resolves with
// CONSTRAINT_VIOLATION and leaves the collection unchanged.
func (m *Manager) Add(ctx context.Context, inv invoice.Invoice) *Future[invoice.Invoice] {
	return submit(m, ctx, "add", func(ctx context.Context, st *store.Store) (invoice.Invoice, error) {
		return st.Add(ctx, inv)
	})
}

// Delete removes the invoice with the given ID and resolves once the
// transaction has committed. The result reports whether a record was
// removed; deleting a missing ID resolves with (false, nil).
func (m *Manager) Delete(ctx context.Context, id int64) *Future[bool] {
	return submit(m, ctx, "delete", func(ctx context.Context, st *store.Store) (bool, error) {
		return st.Delete(ctx, id)
	})
}

// Find looks an invoice up by number through the unique index.
// An unknown number resolves with NOT_FOUND.
func (m *Manager) Find(ctx context.Context, number string) *Future[invoice.Invoice] {
	return submit(m, ctx, "find", func(ctx context.Context, st *store.Store) (invoice.Invoice, error) {
		return st.FindByNumber(ctx, number)
	})
}

// Clear removes every invoice in one transaction and resolves with the
// number removed.
func (m *Manager) Clear(ctx context.Context) *Future[int64] {
	return submit(m, ctx, "clear", func(ctx context.Context, st *store.Store) (int64, error) {
		return st.Clear(ctx)
	})
}

// Count resolves with the number of live invoices.
func (m *Manager) Count(ctx context.Context) *Future[int64] {
	return submit(m, ctx, "count", func(ctx context.Context, st *store.Store) (int64, error) {
		return st.Count(ctx)
	})
}

// Indexes resolves with the explicitly created indexes of the invoice table.
func (m *Manager) Indexes(ctx context.Context) *Future[[]store.IndexInfo] {
	return submit(m, ctx, "indexes", func(ctx context.Context, st *store.Store) ([]store.IndexInfo, error) {
		return st.Indexes(ctx)
	})
}

// All materializes the collection in the given direction. Because it is
// queued behind earlier writes, it observes every operation issued before it.
func (m *Manager) All(ctx context.Context, dir invoice.Direction) *Future[[]invoice.Invoice] {
	return submit(m, ctx, "list", func(ctx context.Context, st *store.Store) ([]invoice.Invoice, error) {
		return st.List(ctx, dir)
	})
}

// List returns a lazy sequence over the collection in the given direction.
//
// Each range opens a fresh read-only traversal on the caller's goroutine,
// so the sequence can be walked any number of times. An empty store yields
// nothing. A failure, including ranging before Open or after Close, is
// yielded once as (zero, err) and ends the sequence.
func (m *Manager) List(ctx context.Context, dir invoice.Direction) iter.Seq2[invoice.Invoice, error] {
	return func(yield func(invoice.Invoice, error) bool) {
		st, name, err := m.usable("list")
		if err != nil {
			yield(invoice.Invoice{}, err)
			return
		}

		for inv, err := range st.Invoices(ctx, dir) {
			if err != nil {
				yield(invoice.Invoice{}, classify("list", name, err))
				return
			}
			if !yield(inv, nil) {
				return
			}
		}
	}
}

// Cursor opens an explicit traversal for callers that advance manually.
// The caller must Close the cursor before closing the Manager.
func (m *Manager) Cursor(ctx context.Context, dir invoice.Direction) (*store.Cursor, error) {
	st, name, err := m.usable("cursor")
	if err != nil {
		return nil, err
	}

	cur, err := st.OpenCursor(ctx, dir)
	if err != nil {
		return nil, classify("cursor", name, err)
	}
	return cur, nil
}
