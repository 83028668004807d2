// Package sync implements the staging-to-production synchronization engine.
//
// The synchronizer reads the operation log, decides which logged mutations
// are safe to replay, applies them to the production store, and deletes the
// consumed entries. Three entry points:
//
//   - SyncRecord: replay one identity, then tear down the bookkeeping of
//     every commit transitively related to it (commit closure)
//   - Sync: batch replay of uncontained entries below the safe frontier
//   - SyncNow: replay only the uncontained mutations produced by a block
//
// # Safe frontier
//
// The log's total order is the only synchronization-free evidence of
// "happened before the in-flight commit". While a commit is open, batch sync
// withholds every entry at or after its START, even uncontained ones:
// operations whose grouping is not yet final cannot be safely separated
// from it.
//
// # Idempotency
//
// All three operations are idempotent with respect to final production
// state. Application to production happens before log deletion, so a crash
// between the two is safe to re-run: the second pass re-applies the same
// effective operation and then deletes.
package sync
