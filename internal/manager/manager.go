package manager

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/invstore/internal/store"
)

type state int

const (
	stateIdle state = iota
	stateOpening
	stateReady
	stateClosing
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateOpening:
		return "opening"
	case stateReady:
		return "ready"
	case stateClosing:
		return "closing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Info describes an open store.
type Info struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Version int    `json:"version"`
	// Migrated lists the schema versions applied by this open, in order.
	Migrated []int `json:"migrated"`
}

// Manager is the owned handle to one invoice store.
//
// Thread-safety model:
//   - Open/Close/operations: safe from any goroutine
//   - Writes execute on the Manager's loop goroutine in issue order
//   - List and Cursor read on the caller's goroutine from a WAL snapshot
type Manager struct {
	reg    *Registry
	logger *slog.Logger
	ids    RequestIDGenerator

	mu              sync.Mutex
	state           state
	name            string
	version         int
	st              *store.Store
	queue           *requestQueue
	loopDone        chan struct{}
	opened          chan struct{} // closed when a pending open settles
	closed          chan struct{} // closed when a pending close settles
	onVersionChange func(VersionChange)
	onBlocked       func(BlockedEvent)
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the Manager's logger. Defaults to the registry's logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithRequestIDs sets the generator for request correlation IDs.
// Defaults to UUIDv7Generator.
func WithRequestIDs(g RequestIDGenerator) Option {
	return func(m *Manager) {
		m.ids = g
	}
}

// New creates an unopened Manager attached to reg.
func New(reg *Registry, opts ...Option) *Manager {
	m := &Manager{
		reg:    reg,
		logger: reg.logger,
		ids:    UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnVersionChange installs the handler run when another Manager upgrades or
// deletes this Manager's store. Without a handler the Manager closes itself.
// A handler that leaves the Manager open blocks the other Manager's request.
func (m *Manager) OnVersionChange(fn func(VersionChange)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onVersionChange = fn
}

// OnBlocked installs the observer run once when this Manager's Open has to
// wait for connections at an older version.
func (m *Manager) OnBlocked(fn func(BlockedEvent)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onBlocked = fn
}

// Ready reports whether the Manager has an open store.
func (m *Manager) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == stateReady
}

// Name returns the open store's name, or "" when not open.
func (m *Manager) Name() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.name
}

// Version returns the open store's schema version, or 0 when not open.
func (m *Manager) Version() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != stateReady {
		return 0
	}
	return m.version
}

// Open connects the Manager to the named store at version, running schema
// migrations first when the store is new or older than version.
//
// The Future resolves once the store is usable. Operations issued before
// then resolve with NOT_READY. Failures resolve with OPEN_FAILURE (or
// UNSUPPORTED_PLATFORM) and leave the Manager unopened; nothing is retried.
func (m *Manager) Open(ctx context.Context, name string, version int) *Future[Info] {
	if err := m.reg.Supported(); err != nil {
		return resolvedFuture(Info{}, &Error{Code: CodeUnsupportedPlatform, Op: "open", Name: name, Err: err})
	}

	m.mu.Lock()
	m.awaitClosedLocked()
	if m.state != stateIdle {
		current := m.state
		m.mu.Unlock()
		return resolvedFuture(Info{}, openError(name, fmt.Errorf("%w (%s)", ErrAlreadyOpen, current)))
	}
	m.state = stateOpening
	m.name = name
	m.opened = make(chan struct{})
	m.mu.Unlock()

	f := newFuture[Info]()
	go m.open(ctx, name, version, f)
	return f
}

func (m *Manager) open(ctx context.Context, name string, version int, f *Future[Info]) {
	m.logger.Debug("opening store", "name", name, "version", version)

	st, err := m.reg.connect(ctx, m, name, version)
	if err != nil {
		m.mu.Lock()
		m.state = stateIdle
		m.name = ""
		close(m.opened)
		m.opened = nil
		m.mu.Unlock()

		m.logger.Error("store failed to open", "name", name, "version", version, "error", err)
		f.resolve(Info{}, openError(name, err))
		return
	}

	m.mu.Lock()
	m.state = stateReady
	m.version = version
	m.st = st
	m.queue = newRequestQueue()
	m.loopDone = make(chan struct{})
	go m.run(st, m.queue, m.loopDone)
	close(m.opened)
	m.opened = nil
	m.mu.Unlock()

	info := Info{Name: name, Path: st.Path(), Version: version, Migrated: st.Applied()}
	if len(info.Migrated) > 0 {
		m.logger.Info("store schema initialized", "name", name, "version", version, "migrated", info.Migrated)
	}
	m.logger.Info("store opened", "name", name, "version", version, "path", info.Path)
	f.resolve(info, nil)
}

// Close stops accepting operations, waits for queued transactions to
// finish, and releases the store. Close on an unopened Manager is a no-op.
// Close during a pending Open waits for the Open to settle first.
// The Manager may be opened again afterwards; an Open issued while Close
// is still running waits for it, so the registry never loses track of the
// new connection.
func (m *Manager) Close() error {
	m.mu.Lock()
	for m.state == stateOpening || m.state == stateClosing {
		if m.state == stateOpening {
			opened := m.opened
			m.mu.Unlock()
			<-opened
			m.mu.Lock()
			continue
		}
		m.awaitClosedLocked()
	}
	if m.state == stateIdle {
		m.mu.Unlock()
		return nil
	}

	name := m.name
	st := m.st
	q := m.queue
	done := m.loopDone

	m.state = stateClosing
	m.closed = make(chan struct{})
	m.st = nil
	m.queue = nil
	m.loopDone = nil
	m.mu.Unlock()

	q.Close()
	<-done

	err := st.Close()
	m.reg.release(m, name)

	m.mu.Lock()
	m.state = stateIdle
	m.name = ""
	m.version = 0
	close(m.closed)
	m.closed = nil
	m.mu.Unlock()

	m.logger.Info("store closed", "name", name)
	if err != nil {
		return fmt.Errorf("close store %s: %w", name, err)
	}
	return nil
}

// awaitClosedLocked waits, with m.mu held on entry and exit, until no
// Close is in progress.
func (m *Manager) awaitClosedLocked() {
	for m.state == stateClosing {
		closed := m.closed
		m.mu.Unlock()
		<-closed
		m.mu.Lock()
	}
}

// versionChange is called by the Registry, never with m.mu held.
func (m *Manager) versionChange(ev VersionChange) {
	m.mu.Lock()
	handler := m.onVersionChange
	m.mu.Unlock()

	if handler != nil {
		handler(ev)
		return
	}

	m.logger.Warn("store is outdated, closing connection",
		"name", ev.Name,
		"old_version", ev.OldVersion,
		"new_version", ev.NewVersion,
	)
	if err := m.Close(); err != nil {
		m.logger.Error("error closing outdated store", "name", ev.Name, "error", err)
	}
}

// blocked is called by the Registry, never with m.mu held.
func (m *Manager) blocked(ev BlockedEvent) {
	m.mu.Lock()
	handler := m.onBlocked
	m.mu.Unlock()

	if handler != nil {
		handler(ev)
	}
}

// run is the single-writer loop. It drains the queue in FIFO order and
// returns once the queue is closed and empty.
func (m *Manager) run(st *store.Store, q *requestQueue, done chan struct{}) {
	defer close(done)

	for {
		if req, ok := q.TryDequeue(); ok {
			m.execute(st, req)
			continue
		}

		<-q.Wait()
		if q.Drained() {
			return
		}
	}
}

// execute runs one request on the loop goroutine.
func (m *Manager) execute(st *store.Store, req request) {
	m.logger.Debug("processing request", "request_id", req.ID, "op", req.Op)

	if err := req.run(req.ctx, st); err != nil {
		m.logger.Warn("request failed",
			"request_id", req.ID,
			"op", req.Op,
			"code", CodeOf(err),
			"error", err,
		)
		return
	}
	m.logger.Debug("request completed", "request_id", req.ID, "op", req.Op)
}

// usable returns the open store, or the error an operation should resolve with.
func (m *Manager) usable(op string) (*store.Store, string, error) {
	if err := m.reg.Supported(); err != nil {
		return nil, "", &Error{Code: CodeUnsupportedPlatform, Op: op, Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != stateReady {
		return nil, m.name, notReady(op, m.name)
	}
	return m.st, m.name, nil
}

// submit queues fn on the loop and returns its Future. The transaction runs
// detached from ctx cancellation; ctx values are preserved.
func submit[T any](m *Manager, ctx context.Context, op string, fn func(context.Context, *store.Store) (T, error)) *Future[T] {
	var zero T
	if err := m.reg.Supported(); err != nil {
		return resolvedFuture(zero, &Error{Code: CodeUnsupportedPlatform, Op: op, Err: err})
	}

	m.mu.Lock()
	name := m.name
	if m.state != stateReady {
		m.mu.Unlock()
		return resolvedFuture(zero, notReady(op, name))
	}

	f := newFuture[T]()
	req := request{
		ID:  m.ids.Generate(),
		Op:  op,
		ctx: context.WithoutCancel(ctx),
		run: func(ctx context.Context, st *store.Store) error {
			v, err := fn(ctx, st)
			err = classify(op, name, err)
			f.resolve(v, err)
			return err
		},
	}
	ok := m.queue.Enqueue(req)
	m.mu.Unlock()

	if !ok {
		return resolvedFuture(zero, notReady(op, name))
	}
	return f
}
