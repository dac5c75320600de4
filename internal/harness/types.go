package harness

// TraceEvent records what one step actually returned.
type TraceEvent struct {
	Step       int         `json:"step"`
	Op         string      `json:"op"`
	Group      string      `json:"group"`
	Candidates []int64     `json:"candidates,omitempty"`
	Assignee   *int64      `json:"assignee,omitempty"`
	Existed    *bool       `json:"existed,omitempty"`
	Stats      *TraceStats `json:"stats,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// TraceStats is the timestamp-free part of record.Stats.
type TraceStats struct {
	LastAssignedID   int64 `json:"last_assigned_id"`
	TotalAssignments int64 `json:"total_assignments"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expectation held.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds an expectation failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends an event to the trace.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
