// Package record defines the persisted rotation state shared by the engine
// and every Assignment Store implementation.
//
// One Record exists per rotation group. A group with no record is
// Unassigned; the first successful selection creates the record with
// AssignmentCount = 1, later selections mutate it in place, and a reset
// deletes it.
//
// The package also owns the error taxonomy used across the module:
//   - ValidationError: rejected input, raised before any store mutation
//   - ErrConflict: a concurrent writer raced the caller; retried by the engine
//   - StoreError: storage failure or contention that did not resolve
package record
