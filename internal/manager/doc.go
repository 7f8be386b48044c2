// Package manager owns the lifecycle of a named, versioned invoice store and
// exposes its operations as asynchronous results.
//
// A Manager is the explicitly owned handle the UI layer talks to. It is
// created unopened, becomes usable once Open resolves, and is torn down
// with Close. Operations issued before Open succeeds (or after Close)
// resolve immediately with a NOT_READY error.
//
// # Single-Writer Loop
//
// Every write (and every read that must observe preceding writes) is queued
// and executed in FIFO order by one goroutine per Manager. A Future resolves
// only after the store transaction has committed, never after the individual
// statement. Queued transactions are detached from caller cancellation: a
// caller may stop waiting on a Future, but the transaction still runs to
// completion or failure.
//
// # Version Changes
//
// The Registry tracks every open Manager per store name. Opening a store at
// a higher version notifies every Manager holding it at a lower version. The
// default reaction is to close; a Manager with a custom handler that stays
// open blocks the upgrade until it closes or the opener gives up.
//
// # Errors
//
// Every failure is an *Error carrying one of the codes UNSUPPORTED_PLATFORM,
// OPEN_FAILURE, CONSTRAINT_VIOLATION, NOT_READY, NOT_FOUND or
// TRANSACTION_FAILURE. The wrapped store error stays reachable through
// errors.Is.
package manager
