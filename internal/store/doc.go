// Package store provides persistent storage for the gateway using SQLite.
//
// # Architecture
//
// SQLiteStore implements the queue.Store interface, which covers three
// concerns:
//
//   - Queue definitions: call-queue configuration keyed by name
//   - Memberships: agent interfaces assigned to queues
//   - Audit log: append-only record of every configuration mutation
//
// The interface lives in the queue package next to its consumers; this
// package only supplies the SQLite-backed implementation.
//
// # Data Models
//
//   - queue.Queue: ring strategy, timers, announcement settings
//   - queue.Member: interface reference, penalty, paused flag
//   - queue.AuditEntry: actor, action, target, old/new JSON snapshots
//
// Memberships reference their queue with ON DELETE CASCADE, so deleting a
// queue removes its members in the same statement.
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// Timestamps are stored as RFC 3339 text. Database file locations:
//
//   - Production: /var/lib/pbx-gateway/gateway.db
//   - Development: ~/.local/share/pbx-gateway/gateway.db
//   - Testing: :memory: (in-memory database)
//
// # Error Handling
//
// Driver-level constraint failures are mapped to the queue package's
// sentinels:
//
//   - UNIQUE violation -> queue.ErrConflict
//   - FOREIGN KEY violation, zero rows affected -> queue.ErrNotFound
//
// All methods accept context.Context for cancellation support.
//
// # Testing
//
// Use queue.NewMockStore() for unit tests; use NewSQLiteStore(":memory:")
// for integration tests with real SQLite.
package store
