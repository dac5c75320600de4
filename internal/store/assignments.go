package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/rotation/internal/record"
)

// timeFormat is the on-disk timestamp encoding. Always UTC.
const timeFormat = time.RFC3339Nano

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Find returns the record for group. found is false if no record exists.
func (s *Store) Find(ctx context.Context, group string) (rec record.Record, found bool, err error) {
	group, err = record.NormalizeGroup(group)
	if err != nil {
		return record.Record{}, false, err
	}

	rec, found, err = findRecord(ctx, s.db, group)
	if err != nil {
		return record.Record{}, false, classify("find", group, err)
	}
	return rec, found, nil
}

// StatsOf returns the observable stats for group. found is false if no
// record exists.
func (s *Store) StatsOf(ctx context.Context, group string) (record.Stats, bool, error) {
	group, err := record.NormalizeGroup(group)
	if err != nil {
		return record.Stats{}, false, err
	}

	rec, found, err := findRecord(ctx, s.db, group)
	if err != nil {
		return record.Stats{}, false, classify("stats", group, err)
	}
	if !found {
		return record.Stats{}, false, nil
	}
	return rec.Stats(), true, nil
}

// UpsertAtomic reads the group's record, applies fn and persists the result
// inside one IMMEDIATE transaction.
//
// Returns an error wrapping record.ErrConflict if the row changed or was
// created by another writer, or if the database stayed locked past the
// busy timeout.
func (s *Store) UpsertAtomic(ctx context.Context, group string, fn record.UpdateFunc) (record.Record, error) {
	group, err := record.NormalizeGroup(group)
	if err != nil {
		return record.Record{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return record.Record{}, classify("upsert", group, fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback() // No-op if committed

	cur, found, err := findRecord(ctx, tx, group)
	if err != nil {
		return record.Record{}, classify("upsert", group, err)
	}

	var current *record.Record
	if found {
		current = &cur
	}

	next, err := fn(current)
	if err != nil {
		return record.Record{}, err
	}
	next.Group = group
	if err := next.Validate(); err != nil {
		return record.Record{}, err
	}

	now := time.Now().UTC().Format(timeFormat)
	assignedAt := next.LastAssignedAt.UTC().Format(timeFormat)

	if found {
		res, err := tx.ExecContext(ctx, `
			UPDATE round_robin_assignments
			SET last_assigned_id = ?, last_assigned_at = ?, assignment_count = ?, updated_at = ?
			WHERE assignment_group = ? AND assignment_count = ?
		`,
			next.LastAssignedID,
			assignedAt,
			next.AssignmentCount,
			now,
			group,
			cur.AssignmentCount,
		)
		if err != nil {
			return record.Record{}, classify("upsert", group, fmt.Errorf("update: %w", err))
		}
		n, err := res.RowsAffected()
		if err != nil {
			return record.Record{}, classify("upsert", group, fmt.Errorf("rows affected: %w", err))
		}
		if n == 0 {
			return record.Record{}, record.Conflict("upsert", group, nil)
		}
	} else {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO round_robin_assignments
			(assignment_group, last_assigned_id, last_assigned_at, assignment_count, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`,
			group,
			next.LastAssignedID,
			assignedAt,
			next.AssignmentCount,
			now,
			now,
		)
		if err != nil {
			return record.Record{}, classify("upsert", group, fmt.Errorf("insert: %w", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return record.Record{}, classify("upsert", group, fmt.Errorf("commit: %w", err))
	}

	next.LastAssignedAt = next.LastAssignedAt.UTC()
	return next, nil
}

// Delete removes the record for group. Returns whether a record existed.
func (s *Store) Delete(ctx context.Context, group string) (bool, error) {
	group, err := record.NormalizeGroup(group)
	if err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM round_robin_assignments WHERE assignment_group = ?
	`, group)
	if err != nil {
		return false, classify("delete", group, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, classify("delete", group, fmt.Errorf("rows affected: %w", err))
	}
	return n > 0, nil
}

// ListGroups returns every record ordered by group key.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListGroups(ctx context.Context) ([]record.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT assignment_group, last_assigned_id, last_assigned_at, assignment_count
		FROM round_robin_assignments
		ORDER BY assignment_group COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, classify("list", "", err)
	}
	return scanRecords(rows, "list")
}

// FindByAssignee returns every group whose most recent selection was id,
// ordered by group key.
func (s *Store) FindByAssignee(ctx context.Context, id int64) ([]record.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT assignment_group, last_assigned_id, last_assigned_at, assignment_count
		FROM round_robin_assignments
		WHERE last_assigned_id = ?
		ORDER BY assignment_group COLLATE BINARY ASC
	`, id)
	if err != nil {
		return nil, classify("find by assignee", "", err)
	}
	return scanRecords(rows, "find by assignee")
}

func findRecord(ctx context.Context, q queryer, group string) (record.Record, bool, error) {
	var (
		rec        record.Record
		assignedAt string
	)
	err := q.QueryRowContext(ctx, `
		SELECT assignment_group, last_assigned_id, last_assigned_at, assignment_count
		FROM round_robin_assignments
		WHERE assignment_group = ?
	`, group).Scan(&rec.Group, &rec.LastAssignedID, &assignedAt, &rec.AssignmentCount)
	if errors.Is(err, sql.ErrNoRows) {
		return record.Record{}, false, nil
	}
	if err != nil {
		return record.Record{}, false, fmt.Errorf("select: %w", err)
	}

	rec.LastAssignedAt, err = time.Parse(timeFormat, assignedAt)
	if err != nil {
		return record.Record{}, false, fmt.Errorf("parse last_assigned_at %q: %w", assignedAt, err)
	}
	return rec, true, nil
}

func scanRecords(rows *sql.Rows, op string) ([]record.Record, error) {
	defer rows.Close()

	records := []record.Record{}
	for rows.Next() {
		var (
			rec        record.Record
			assignedAt string
		)
		if err := rows.Scan(&rec.Group, &rec.LastAssignedID, &assignedAt, &rec.AssignmentCount); err != nil {
			return nil, classify(op, "", fmt.Errorf("scan: %w", err))
		}
		at, err := time.Parse(timeFormat, assignedAt)
		if err != nil {
			return nil, classify(op, rec.Group, fmt.Errorf("parse last_assigned_at %q: %w", assignedAt, err))
		}
		rec.LastAssignedAt = at
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, "", fmt.Errorf("iterate: %w", err))
	}
	return records, nil
}

// classify maps lock contention and uniqueness violations to
// record.ErrConflict and everything else to a StoreError.
func classify(op, group string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch {
		case sqliteErr.Code == sqlite3.ErrBusy, sqliteErr.Code == sqlite3.ErrLocked:
			return record.Conflict(op, group, err)
		case sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique:
			return record.Conflict(op, group, err)
		}
	}
	return record.NewStoreError(op, group, err)
}
