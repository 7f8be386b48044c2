// Package testutil provides fixtures for tests that drive invoice stores
// through a manager.Manager.
//
// Every fixture registers its own cleanup, so tests only need to ask for
// what they use. Request IDs are sequential ("req-1", "req-2", ...) to keep
// log output deterministic.
package testutil

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/invstore/internal/invoice"
	"github.com/roach88/invstore/internal/manager"
)

// DefaultTimeout bounds every fixture context.
const DefaultTimeout = 10 * time.Second

// Context returns a context cancelled at test end or after DefaultTimeout.
func Context(tb testing.TB) context.Context {
	tb.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	tb.Cleanup(cancel)
	return ctx
}

// tbWriter forwards each log line to tb.Log so output shows up next to
// the failing test.
type tbWriter struct {
	tb testing.TB
}

func (w tbWriter) Write(p []byte) (int, error) {
	w.tb.Helper()
	w.tb.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// Logger returns a debug-level text logger that writes through tb.Log.
func Logger(tb testing.TB) *slog.Logger {
	return slog.New(slog.NewTextHandler(tbWriter{tb: tb}, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// NewRegistry creates a registry rooted at dir, or at a fresh temporary
// directory when dir is empty.
func NewRegistry(tb testing.TB, dir string, opts ...manager.RegistryOption) *manager.Registry {
	tb.Helper()
	if dir == "" {
		dir = tb.TempDir()
	}
	opts = append([]manager.RegistryOption{manager.WithRegistryLogger(Logger(tb))}, opts...)
	return manager.NewRegistry(dir, opts...)
}

// OpenManager opens name at version on reg and closes it at test end.
func OpenManager(tb testing.TB, reg *manager.Registry, name string, version int) *manager.Manager {
	tb.Helper()

	m := manager.New(reg,
		manager.WithLogger(Logger(tb)),
		manager.WithRequestIDs(manager.NewSequenceGenerator("req")),
	)
	ctx := Context(tb)
	_, err := m.Open(ctx, name, version).Wait(ctx)
	require.NoError(tb, err, "open %s v%d", name, version)
	tb.Cleanup(func() { _ = m.Close() })
	return m
}

// Seed adds one invoice per number, in order, and returns the stored records.
func Seed(tb testing.TB, m *manager.Manager, numbers ...string) []invoice.Invoice {
	tb.Helper()

	ctx := Context(tb)
	futures := make([]*manager.Future[invoice.Invoice], len(numbers))
	for i, n := range numbers {
		futures[i] = m.Add(ctx, invoice.New(n, ""))
	}

	out := make([]invoice.Invoice, len(numbers))
	for i, f := range futures {
		inv, err := f.Wait(ctx)
		require.NoError(tb, err, "seed %q", numbers[i])
		out[i] = inv
	}
	return out
}

// Collect ranges over m.List and fails the test on the first error.
func Collect(tb testing.TB, m *manager.Manager, dir invoice.Direction) []invoice.Invoice {
	tb.Helper()

	out := []invoice.Invoice{}
	for inv, err := range m.List(Context(tb), dir) {
		require.NoError(tb, err)
		out = append(out, inv)
	}
	return out
}

// Numbers extracts the invoice numbers, in order.
func Numbers(invoices []invoice.Invoice) []string {
	out := make([]string, len(invoices))
	for i, inv := range invoices {
		out[i] = inv.Number
	}
	return out
}
