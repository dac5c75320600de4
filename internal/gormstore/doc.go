// Package gormstore provides a gorm-backed Assignment Store for Postgres
// and SQLite.
//
// UpsertAtomic runs in a transaction that reads the group's row with
// SELECT ... FOR UPDATE, so concurrent writers to an existing group queue on
// the row lock. Two writers creating the same group race on the unique index
// on assignment_group; the loser gets gorm.ErrDuplicatedKey, which is
// reported as record.ErrConflict so the engine can retry. SQLite has no row
// locks; there the store keeps a single connection and transactions
// serialize on it.
//
// Postgres serialization failures and deadlocks are treated as conflicts as
// well.
package gormstore
