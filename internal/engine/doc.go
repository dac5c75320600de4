// Package engine implements the rotation engine.
//
// The engine is a stateless façade over an Assignment Store. Given a group
// and the caller's current candidate set it picks the next assignee and
// commits the new group state in one atomic store operation.
//
// ROTATION:
//
// Candidates are sorted ascending and deduplicated (a duplicated id is one
// candidate). Then:
//   - no record: the smallest id
//   - last assignee still present: the id after it, wrapping to the smallest
//   - last assignee removed: the smallest id greater than it, wrapping to
//     the smallest
//
// An empty candidate set returns no assignee and touches no state.
//
// CONCURRENCY:
//
// Read-compute-write runs inside Store.UpsertAtomic, which holds exclusive
// access to the group (row lock, per-group mutex, or WATCH). Stores that
// detect a racing writer return record.ErrConflict; the engine reruns the
// whole sequence up to MaxAttempts times and then gives up with a
// StoreError. Groups never coordinate with each other.
//
// The engine owns no goroutines and keeps no state between calls.
package engine
