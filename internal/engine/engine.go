package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/rotation/internal/record"
)

// Store is the storage contract the engine consumes. Implementations must
// run UpsertAtomic's read-compute-write as one unit with respect to other
// callers on the same group, and report a racing writer by wrapping
// record.ErrConflict.
type Store interface {
	Find(ctx context.Context, group string) (record.Record, bool, error)
	UpsertAtomic(ctx context.Context, group string, fn record.UpdateFunc) (record.Record, error)
	Delete(ctx context.Context, group string) (bool, error)
	StatsOf(ctx context.Context, group string) (record.Stats, bool, error)
}

// DefaultMaxAttempts is the default number of read-compute-write attempts
// per selection before contention is reported as a StoreError.
const DefaultMaxAttempts = 5

// Engine selects assignees by round-robin rotation over a Store.
//
// Thread-safety: all methods are safe for concurrent use; the Engine holds
// no mutable state of its own.
type Engine struct {
	store       Store
	clock       Clock
	ids         IDGenerator
	logger      *slog.Logger
	maxAttempts int
	retryBase   time.Duration
	retryMax    time.Duration
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithClock sets the source of selection timestamps.
// Default: SystemClock.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithMaxAttempts sets how many times a conflicting selection is attempted.
// Values below 1 are treated as 1.
//
// Default: 5 (DefaultMaxAttempts)
func WithMaxAttempts(n int) Option {
	return func(e *Engine) {
		if n < 1 {
			n = 1
		}
		e.maxAttempts = n
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithIDGenerator sets the call id generator. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// New creates an Engine over store.
func New(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		clock:       SystemClock{},
		ids:         UUIDv7Generator{},
		logger:      slog.Default(),
		maxAttempts: DefaultMaxAttempts,
		retryBase:   DefaultRetryBase,
		retryMax:    DefaultRetryMax,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GetNextAssignee selects the next assignee for group from candidateIDs and
// commits the new group state.
//
// ok is false, and no state is touched, when candidateIDs is empty.
// Errors are a *record.ValidationError for a bad group, or a
// *record.StoreError from the store, including contention that outlasted
// every attempt.
func (e *Engine) GetNextAssignee(ctx context.Context, group string, candidateIDs []int64) (id int64, ok bool, err error) {
	group, err = record.NormalizeGroup(group)
	if err != nil {
		return 0, false, err
	}
	if len(candidateIDs) == 0 {
		return 0, false, nil
	}

	sorted := CanonicalCandidates(candidateIDs)
	log := e.logger.With("call", e.ids.Generate(), "group", group)

	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		rec, err := e.store.UpsertAtomic(ctx, group, func(cur *record.Record) (record.Record, error) {
			return e.advance(cur, sorted), nil
		})
		if err == nil {
			log.Debug("assignee selected",
				"assignee", rec.LastAssignedID,
				"count", rec.AssignmentCount,
				"candidates", len(sorted),
				"attempt", attempt,
			)
			return rec.LastAssignedID, true, nil
		}
		if !record.IsConflict(err) {
			log.Debug("selection failed", "error", err)
			return 0, false, err
		}

		lastErr = err
		if attempt == e.maxAttempts {
			break
		}

		delay := e.backoff(attempt)
		log.Debug("selection conflict, retrying", "attempt", attempt, "delay", delay, "error", err)
		if ctxErr := wait(ctx, delay); ctxErr != nil {
			return 0, false, record.NewStoreError("upsert", group, ctxErr)
		}
	}

	log.Warn("selection contention did not resolve", "attempts", e.maxAttempts, "error", lastErr)
	return 0, false, newContentionError(group, e.maxAttempts, lastErr)
}

// PeekNextAssignee returns the assignee GetNextAssignee would select right
// now, without committing anything. The answer may be stale by the time
// the caller acts on it.
func (e *Engine) PeekNextAssignee(ctx context.Context, group string, candidateIDs []int64) (int64, bool, error) {
	group, err := record.NormalizeGroup(group)
	if err != nil {
		return 0, false, err
	}
	if len(candidateIDs) == 0 {
		return 0, false, nil
	}

	rec, found, err := e.store.Find(ctx, group)
	if err != nil {
		return 0, false, err
	}

	var prev *record.Record
	if found {
		prev = &rec
	}
	return NextAssignee(CanonicalCandidates(candidateIDs), prev), true, nil
}

// ResetGroup deletes the group's state. Returns whether any existed.
// The next selection for the group behaves like the first one ever.
func (e *Engine) ResetGroup(ctx context.Context, group string) (bool, error) {
	group, err := record.NormalizeGroup(group)
	if err != nil {
		return false, err
	}

	existed, err := e.store.Delete(ctx, group)
	if err != nil {
		return false, err
	}
	e.logger.Debug("group reset", "group", group, "existed", existed)
	return existed, nil
}

// GroupStats returns the group's committed state. found is false if the
// group has none.
func (e *Engine) GroupStats(ctx context.Context, group string) (stats record.Stats, found bool, err error) {
	group, err = record.NormalizeGroup(group)
	if err != nil {
		return record.Stats{}, false, err
	}
	return e.store.StatsOf(ctx, group)
}

// advance computes the record that follows cur.
func (e *Engine) advance(cur *record.Record, sorted []int64) record.Record {
	var count int64
	if cur != nil {
		count = cur.AssignmentCount
	}
	return record.Record{
		LastAssignedID:  NextAssignee(sorted, cur),
		LastAssignedAt:  e.clock.Now(),
		AssignmentCount: count + 1,
	}
}
