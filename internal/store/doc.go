// Package store provides the SQLite-backed Assignment Store.
//
// The store keeps one row per rotation group in round_robin_assignments:
//   - assignment_group: UNIQUE, NFC-normalized group key
//   - last_assigned_id: most recent selection (indexed for audit lookups)
//   - last_assigned_at: RFC 3339 timestamp with nanoseconds, UTC
//   - assignment_count: CHECK (>= 0)
//
// # Atomicity
//
// Every write runs in a transaction opened with BEGIN IMMEDIATE (the
// _txlock=immediate DSN parameter), so the database write lock is held from
// the read of the current row until commit. The UPDATE is additionally
// guarded on the previously read assignment_count, and INSERT relies on the
// UNIQUE constraint; either guard failing is reported as record.ErrConflict.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
