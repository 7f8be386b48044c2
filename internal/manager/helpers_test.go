package manager

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testName = "dbInvoices"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// newTestRegistry creates a registry rooted in a fresh temp dir.
func newTestRegistry(t *testing.T, opts ...RegistryOption) *Registry {
	t.Helper()
	opts = append([]RegistryOption{WithRegistryLogger(discardLogger())}, opts...)
	return NewRegistry(t.TempDir(), opts...)
}

// openTestManager opens a Manager on reg and closes it at test end.
func openTestManager(t *testing.T, reg *Registry, name string, version int) *Manager {
	t.Helper()
	m := New(reg, WithRequestIDs(NewSequenceGenerator("req")))
	_, err := m.Open(testContext(t), name, version).Wait(testContext(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}
