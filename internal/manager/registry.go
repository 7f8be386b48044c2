package manager

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/roach88/invstore/internal/store"
)

// DefaultBlockedTimeout bounds how long an open waits for older connections
// to close when the caller's context has no deadline.
const DefaultBlockedTimeout = 5 * time.Second

// VersionChange is delivered to an open Manager when another Manager wants
// the same store at a newer version, or wants to delete it (NewVersion 0).
type VersionChange struct {
	Name       string
	OldVersion int
	NewVersion int
}

// BlockedEvent is delivered to an opening Manager when connections at an
// older version stay open after being notified.
type BlockedEvent struct {
	Name       string
	NewVersion int
	// Holders lists the versions of the connections still open, ascending.
	Holders []int
}

// Registry is the process-wide view of open stores. It plays the role of
// the storage platform: it probes driver support, hands out connections,
// and coordinates version changes between Managers that share a store name.
//
// Thread-safety: all methods are safe for concurrent use.
type Registry struct {
	dir            string
	logger         *slog.Logger
	blockedTimeout time.Duration
	supportCheck   func() error

	supportOnce sync.Once
	supportErr  error

	mu      sync.Mutex
	conns   map[string]map[*Manager]conn // store name -> manager -> connection
	changed chan struct{}                // closed and replaced on every release or settle
}

// conn is one Manager's claim on a store. A pending conn has been admitted
// but its migrations have not finished yet.
type conn struct {
	version int
	pending bool
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger used for platform and version-change events.
func WithRegistryLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = l
	}
}

// WithBlockedTimeout sets how long an open may stay blocked when the
// caller's context has no earlier deadline. Zero waits for the context only.
func WithBlockedTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		r.blockedTimeout = d
	}
}

// WithSupportCheck replaces the driver probe. Used to exercise the
// unsupported-platform path.
func WithSupportCheck(check func() error) RegistryOption {
	return func(r *Registry) {
		r.supportCheck = check
	}
}

// NewRegistry creates a registry whose stores live in dir.
func NewRegistry(dir string, opts ...RegistryOption) *Registry {
	r := &Registry{
		dir:            dir,
		logger:         slog.Default(),
		blockedTimeout: DefaultBlockedTimeout,
		supportCheck:   store.Supported,
		conns:          make(map[string]map[*Manager]conn),
		changed:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dir returns the directory holding the store files.
func (r *Registry) Dir() string {
	return r.dir
}

// Path returns the file path for a store name.
func (r *Registry) Path(name string) string {
	return store.PathFor(r.dir, name)
}

// Supported reports whether stores can be opened at all.
// The first failure is logged once as a warning; later calls stay silent.
func (r *Registry) Supported() error {
	r.supportOnce.Do(func() {
		r.supportErr = r.supportCheck()
		if r.supportErr != nil {
			r.logger.Warn("invoice storage not supported, store operations are disabled",
				"error", r.supportErr,
			)
		}
	})
	return r.supportErr
}

// Connections returns how many Managers hold the named store open.
func (r *Registry) Connections(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns[name])
}

// connect opens name at version on behalf of m.
//
// Admission and registration happen under one lock, so two openers can
// never both pass the version checks against a stale view:
//   - Managers holding the store at an older version are notified, and the
//     open waits until they have all released it
//   - a pending opener at a newer version is waited for
//   - an admitted opener at a newer version fails the open with
//     store.ErrVersionTooNew
//
// The wait ends with ErrBlocked when ctx (or the blocked timeout) ends.
func (r *Registry) connect(ctx context.Context, m *Manager, name string, version int) (*store.Store, error) {
	if err := r.Supported(); err != nil {
		return nil, err
	}
	if err := store.ValidateName(name); err != nil {
		return nil, err
	}
	if version < 1 {
		return nil, fmt.Errorf("%w: %d", store.ErrInvalidVersion, version)
	}

	if err := r.admit(ctx, m, name, version); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		r.release(m, name)
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	st, err := store.Open(r.Path(name), version)
	if err != nil {
		r.release(m, name)
		return nil, err
	}
	r.settle(m, name)
	return st, nil
}

// admit registers m as a pending holder of name at version once no other
// holder conflicts with it.
func (r *Registry) admit(ctx context.Context, m *Manager, name string, version int) error {
	ctx, cancel := r.blockedContext(ctx)
	defer cancel()

	notified := make(map[*Manager]bool)
	reported := false
	for {
		r.mu.Lock()
		older := make(map[*Manager]int)
		newerPending := false
		for h, c := range r.conns[name] {
			if h == m {
				continue
			}
			switch {
			case c.version < version:
				older[h] = c.version
			case c.version > version && c.pending:
				newerPending = true
			case c.version > version:
				r.mu.Unlock()
				return fmt.Errorf("%w: open at version %d, requested %d", store.ErrVersionTooNew, c.version, version)
			}
		}
		if len(older) == 0 && !newerPending {
			if r.conns[name] == nil {
				r.conns[name] = make(map[*Manager]conn)
			}
			r.conns[name][m] = conn{version: version, pending: true}
			r.mu.Unlock()
			return nil
		}
		changed := r.changed
		r.mu.Unlock()

		fresh := false
		for h, v := range older {
			if !notified[h] {
				notified[h] = true
				fresh = true
				h.versionChange(VersionChange{Name: name, OldVersion: v, NewVersion: version})
			}
		}
		// Handlers usually close right away, so look again before reporting
		if fresh {
			continue
		}

		if len(older) > 0 && !reported {
			reported = true
			ev := BlockedEvent{Name: name, NewVersion: version, Holders: sortedVersions(older)}
			r.logger.Warn("open blocked by connections at an older version",
				"name", name,
				"new_version", version,
				"holders", ev.Holders,
			)
			m.blocked(ev)
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrBlocked, ctx.Err())
		}
	}
}

// settle marks m's claim on name as open and wakes waiting openers.
func (r *Registry) settle(m *Manager, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[name][m]
	if !ok {
		return
	}
	c.pending = false
	r.conns[name][m] = c
	r.broadcastLocked()
}

// release forgets m's connection to name and wakes blocked openers.
func (r *Registry) release(m *Manager, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	holders := r.conns[name]
	if _, ok := holders[m]; !ok {
		return
	}
	delete(holders, m)
	if len(holders) == 0 {
		delete(r.conns, name)
	}
	r.broadcastLocked()
}

func (r *Registry) broadcastLocked() {
	close(r.changed)
	r.changed = make(chan struct{})
}

// blockedContext bounds ctx by the blocked timeout, when one is set.
func (r *Registry) blockedContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.blockedTimeout > 0 {
		return context.WithTimeout(ctx, r.blockedTimeout)
	}
	return ctx, func() {}
}

// DeleteDatabase removes the named store's files. Every open Manager is
// notified with NewVersion 0 and the deletion waits for all of them to
// close, exactly like an upgrade.
func (r *Registry) DeleteDatabase(ctx context.Context, name string) error {
	if err := r.Supported(); err != nil {
		return &Error{Code: CodeUnsupportedPlatform, Op: "delete database", Name: name, Err: err}
	}
	if err := store.ValidateName(name); err != nil {
		return &Error{Code: CodeOpenFailure, Op: "delete database", Name: name, Err: err}
	}

	if err := r.awaitRelease(ctx, name); err != nil {
		return &Error{Code: CodeOpenFailure, Op: "delete database", Name: name, Err: err}
	}

	if err := store.Remove(r.Path(name)); err != nil {
		return &Error{Code: CodeTransactionFailure, Op: "delete database", Name: name, Err: err}
	}
	r.logger.Info("store deleted", "name", name, "path", r.Path(name))
	return nil
}

// awaitRelease notifies every holder of name and waits for them to close.
func (r *Registry) awaitRelease(ctx context.Context, name string) error {
	holders := r.holders(name)
	if len(holders) == 0 {
		return nil
	}

	for h, v := range holders {
		h.versionChange(VersionChange{Name: name, OldVersion: v, NewVersion: 0})
	}

	ctx, cancel := r.blockedContext(ctx)
	defer cancel()

	reported := false
	for {
		r.mu.Lock()
		remaining := r.holdersLocked(name)
		changed := r.changed
		r.mu.Unlock()

		if len(remaining) == 0 {
			return nil
		}

		if !reported {
			reported = true
			r.logger.Warn("delete blocked by open connections",
				"name", name,
				"holders", sortedVersions(remaining),
			)
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrBlocked, ctx.Err())
		}
	}
}

func (r *Registry) holders(name string) map[*Manager]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.holdersLocked(name)
}

func (r *Registry) holdersLocked(name string) map[*Manager]int {
	out := make(map[*Manager]int)
	for m, c := range r.conns[name] {
		out[m] = c.version
	}
	return out
}

func sortedVersions(holders map[*Manager]int) []int {
	out := make([]int, 0, len(holders))
	for _, v := range holders {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}
