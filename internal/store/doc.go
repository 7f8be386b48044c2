// Package store provides SQLite-backed durable storage for invoice records.
//
// Each logical store name maps to one database file holding a single
// collection:
//   - invoice: records keyed by an AUTOINCREMENT invoice_id
//   - idx_invoice_inv_number: UNIQUE index enforcing one live record per number
//   - schema_migrations: one row per applied schema version
//
// # Schema Versions
//
// The schema version lives in PRAGMA user_version. Migrations are an ordered
// list keyed by version; Open applies every step above the persisted version
// up to the requested one, each in its own transaction that also bumps
// user_version. A step therefore runs at most once per file.
//
// # Transactions
//
//   - Writes run in BEGIN IMMEDIATE transactions and return only after COMMIT
//   - A failed statement rolls the whole transaction back
//   - Cursors run a single SELECT, which reads from one WAL snapshot
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
