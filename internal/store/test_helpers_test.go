package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/rotation/internal/record"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// assignTo returns an UpdateFunc that selects id at the given time.
func assignTo(id int64, at time.Time) record.UpdateFunc {
	return func(cur *record.Record) (record.Record, error) {
		var count int64
		if cur != nil {
			count = cur.AssignmentCount
		}
		return record.Record{LastAssignedID: id, LastAssignedAt: at, AssignmentCount: count + 1}, nil
	}
}
