package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/rotation/internal/engine"
	"github.com/roach88/rotation/internal/memstore"
	"github.com/roach88/rotation/internal/record"
	"github.com/roach88/rotation/internal/store"
	"github.com/roach88/rotation/internal/testutil"
)

// Harness executes scenario steps against one engine.
type Harness struct {
	engine *engine.Engine
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh store for isolation. The clock and
// call ids are deterministic, so the trace is identical across runs.
// An error is returned only if the store cannot be created; failed
// expectations are reported in Result.Errors.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, closeStore, err := openBackend(scenario.Backend)
	if err != nil {
		return nil, err
	}
	defer closeStore()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests

	h := &Harness{
		engine: engine.New(st,
			engine.WithClock(testutil.NewDeterministicClock()),
			engine.WithIDGenerator(testutil.NewConstantIDGenerator("scenario-"+scenario.Name)),
			engine.WithLogger(logger),
		),
		logger: logger,
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		ev := h.execute(ctx, i, step)
		result.AddTrace(ev)
		for _, msg := range checkStep(i, step, ev) {
			result.AddError(msg)
		}
	}
	return result, nil
}

func openBackend(backend string) (engine.Store, func(), error) {
	switch backend {
	case "", BackendMemory:
		return memstore.New(), func() {}, nil
	case BackendSQLite:
		st, err := store.Open(":memory:")
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		return st, func() { st.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", backend)
	}
}

// execute runs one step and records what the engine returned.
func (h *Harness) execute(ctx context.Context, i int, step Step) TraceEvent {
	ev := TraceEvent{
		Step:       i,
		Op:         step.Op,
		Group:      step.Group,
		Candidates: step.Candidates,
	}

	var err error
	switch step.Op {
	case OpNext, OpPeek:
		var (
			id int64
			ok bool
		)
		if step.Op == OpNext {
			id, ok, err = h.engine.GetNextAssignee(ctx, step.Group, step.Candidates)
		} else {
			id, ok, err = h.engine.PeekNextAssignee(ctx, step.Group, step.Candidates)
		}
		if err == nil && ok {
			ev.Assignee = &id
		}
	case OpReset:
		var existed bool
		existed, err = h.engine.ResetGroup(ctx, step.Group)
		if err == nil {
			ev.Existed = &existed
		}
	case OpStats:
		var (
			stats record.Stats
			found bool
		)
		stats, found, err = h.engine.GroupStats(ctx, step.Group)
		if err == nil && found {
			ev.Stats = &TraceStats{
				LastAssignedID:   stats.LastAssignedID,
				TotalAssignments: stats.TotalAssignments,
			}
		}
	}

	if err != nil {
		ev.Error = errorKind(err)
	}

	h.logger.Info("step completed",
		"step", i,
		"op", step.Op,
		"group", step.Group,
		"error", ev.Error,
	)
	return ev
}

// errorKind reduces an engine error to the kind a scenario can expect.
func errorKind(err error) string {
	switch {
	case record.IsValidationError(err):
		return ErrorKindValidation
	case record.IsStoreError(err):
		return ErrorKindStore
	default:
		return "unknown: " + err.Error()
	}
}
