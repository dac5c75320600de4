package record

import "time"

// Record is the durable rotation state of a single group.
type Record struct {
	// Group is the unique, normalized group key.
	Group string

	// LastAssignedID is the most recently selected candidate.
	LastAssignedID int64

	// LastAssignedAt is when the most recent selection happened.
	LastAssignedAt time.Time

	// AssignmentCount is the number of successful selections since the
	// record was created. Never negative.
	AssignmentCount int64
}

// Stats is the observable snapshot of a group's Record.
type Stats struct {
	LastAssignedID   int64     `json:"last_assigned_id"`
	LastAssignedAt   time.Time `json:"last_assigned_at"`
	TotalAssignments int64     `json:"total_assignments"`
}

// Stats returns the observable fields of r.
func (r Record) Stats() Stats {
	return Stats{
		LastAssignedID:   r.LastAssignedID,
		LastAssignedAt:   r.LastAssignedAt,
		TotalAssignments: r.AssignmentCount,
	}
}

// Validate checks the record before it is persisted.
func (r Record) Validate() error {
	if r.Group == "" {
		return &ValidationError{Field: "group", Reason: "must not be empty"}
	}
	if r.AssignmentCount < 0 {
		return &ValidationError{Field: "assignment_count", Reason: "must not be negative"}
	}
	if r.LastAssignedAt.IsZero() {
		return &ValidationError{Field: "last_assigned_at", Reason: "must be set"}
	}
	return nil
}

// UpdateFunc computes the next record from the current one. current is nil
// when the group has no record. Stores call it while holding exclusive
// access to the group and persist its result atomically.
type UpdateFunc func(current *Record) (Record, error)
