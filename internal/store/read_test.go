package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/invstore/internal/invoice"
)

func seedInvoices(t *testing.T, s *Store, numbers ...string) []invoice.Invoice {
	t.Helper()
	out := make([]invoice.Invoice, 0, len(numbers))
	for _, n := range numbers {
		inv, err := s.Add(context.Background(), testInvoice(n))
		require.NoError(t, err)
		out = append(out, inv)
	}
	return out
}

func TestList_EmptyStore(t *testing.T) {
	s := createTestStore(t)

	got, err := s.List(context.Background(), invoice.Next)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestList_Directions(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seeded := seedInvoices(t, s, "A", "B", "C")

	asc, err := s.List(ctx, invoice.Next)
	require.NoError(t, err)
	assert.Equal(t, seeded, asc)

	desc, err := s.List(ctx, invoice.Prev)
	require.NoError(t, err)
	assert.Equal(t, []invoice.Invoice{seeded[2], seeded[1], seeded[0]}, desc)
}

func TestCursor_WalksInOrder(t *testing.T) {
	s := createTestStore(t)
	seeded := seedInvoices(t, s, "A", "B", "C")

	cur, err := s.OpenCursor(context.Background(), invoice.Next)
	require.NoError(t, err)
	defer cur.Close()

	var got []invoice.Invoice
	for cur.Next() {
		got = append(got, cur.Invoice())
	}
	require.NoError(t, cur.Err())
	assert.Equal(t, seeded, got)

	// Exhausted cursor stays exhausted
	assert.False(t, cur.Next())
	require.NoError(t, cur.Close())
}

func TestCursor_EmptyStore(t *testing.T) {
	s := createTestStore(t)

	cur, err := s.OpenCursor(context.Background(), invoice.Next)
	require.NoError(t, err)
	defer cur.Close()

	assert.False(t, cur.Next())
	assert.NoError(t, cur.Err())
}

func TestInvoices_Restartable(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seeded := seedInvoices(t, s, "A", "B")

	seq := s.Invoices(ctx, invoice.Next)

	for round := 0; round < 2; round++ {
		var got []invoice.Invoice
		for inv, err := range seq {
			require.NoError(t, err)
			got = append(got, inv)
		}
		assert.Equal(t, seeded, got, "round %d", round)
	}

	// A later range sees records added after the sequence was created
	more := seedInvoices(t, s, "C")
	var got []invoice.Invoice
	for inv, err := range seq {
		require.NoError(t, err)
		got = append(got, inv)
	}
	assert.Equal(t, append(seeded, more...), got)
}

func TestInvoices_EarlyBreakReleasesCursor(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedInvoices(t, s, "A", "B", "C")

	for inv, err := range s.Invoices(ctx, invoice.Prev) {
		require.NoError(t, err)
		assert.Equal(t, "C", inv.Number)
		break
	}

	// Writes still go through after the early break
	_, err := s.Add(ctx, testInvoice("D"))
	require.NoError(t, err)
}

func TestInvoices_YieldsErrorAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "closed.db")
	s, err := Open(path, 1)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	var errs int
	for _, err := range s.Invoices(context.Background(), invoice.Next) {
		require.Error(t, err)
		errs++
	}
	assert.Equal(t, 1, errs)
}

func TestFindByNumber(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seeded := seedInvoices(t, s, "LC4578", "LC4579")

	got, err := s.FindByNumber(ctx, " LC4579 ")
	require.NoError(t, err)
	assert.Equal(t, seeded[1], got)

	_, err = s.FindByNumber(ctx, "LC0000")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGet(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seeded := seedInvoices(t, s, "A")

	got, err := s.Get(ctx, seeded[0].ID)
	require.NoError(t, err)
	assert.Equal(t, seeded[0], got)

	_, err = s.Get(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCount(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	seedInvoices(t, s, "A", "B")
	n, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestCursor_OpenCursorDoesNotBlockWrites(t *testing.T) {
	s := createTestStore(t)
	seeded := seedInvoices(t, s, "A", "B")
	assert.Equal(t, maxOpenConns, s.DB().Stats().MaxOpenConnections)

	cur, err := s.OpenCursor(context.Background(), invoice.Next)
	require.NoError(t, err)
	defer cur.Close()
	require.True(t, cur.Next())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	added, err := s.Add(ctx, testInvoice("C"))
	require.NoError(t, err, "write commits while a cursor is open")
	assert.Equal(t, int64(3), added.ID)

	got := []invoice.Invoice{cur.Invoice()}
	for cur.Next() {
		got = append(got, cur.Invoice())
	}
	require.NoError(t, cur.Err())
	assert.Equal(t, seeded, got, "cursor reads the snapshot it started on")
}
