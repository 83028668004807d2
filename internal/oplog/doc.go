// Package oplog provides the SQLite-backed append-only operation log.
//
// The log records every content mutation on the staging store plus explicit
// commit boundaries, and is the single shared mutable resource of the
// synchronization engine:
//
//   - Content entries: INSERT/UPDATE/DELETE on a specific record identity
//   - Boundary entries: START/END delimiting a commit's extent
//
// # Ordering
//
// All ordering uses seq (AUTOINCREMENT rowid), never timestamps. Sequence
// numbers are never reused, so the log's total order survives deletion of
// consumed entries. Every query orders by seq ASC for deterministic results.
//
// # Mutation discipline
//
// Entries are appended and deleted, never updated in place. Corrections are
// made only by appending new entries; the synchronizer deletes entries once
// consumed or superseded.
//
// # Database configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - single-connection pool: one writer, no SQLITE_BUSY surprises
package oplog
