// Package memstore provides an in-memory Assignment Store.
//
// State lives only as long as the process. Each group has its own mutex,
// held for the whole read-compute-write of UpsertAtomic, so calls for the
// same group serialize while calls for different groups never wait on each
// other's compute.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/roach88/rotation/internal/record"
)

// Store is an in-memory Assignment Store. The zero value is not usable;
// call New.
type Store struct {
	mu      sync.Mutex
	records map[string]record.Record
	locks   map[string]*sync.Mutex
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		records: make(map[string]record.Record),
		locks:   make(map[string]*sync.Mutex),
	}
}

// lockFor returns the mutex guarding group, creating it on first use.
// Group mutexes are never removed, so a lock taken before Delete still
// excludes writers that arrive after it.
func (s *Store) lockFor(group string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[group]
	if !ok {
		l = &sync.Mutex{}
		s.locks[group] = l
	}
	return l
}

func (s *Store) get(group string) (record.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[group]
	return rec, ok
}

// Find returns the record for group. found is false if no record exists.
func (s *Store) Find(ctx context.Context, group string) (record.Record, bool, error) {
	group, err := record.NormalizeGroup(group)
	if err != nil {
		return record.Record{}, false, err
	}
	if err := ctx.Err(); err != nil {
		return record.Record{}, false, record.NewStoreError("find", group, err)
	}

	rec, ok := s.get(group)
	return rec, ok, nil
}

// StatsOf returns the observable stats for group.
func (s *Store) StatsOf(ctx context.Context, group string) (record.Stats, bool, error) {
	group, err := record.NormalizeGroup(group)
	if err != nil {
		return record.Stats{}, false, err
	}
	if err := ctx.Err(); err != nil {
		return record.Stats{}, false, record.NewStoreError("stats", group, err)
	}

	rec, ok := s.get(group)
	if !ok {
		return record.Stats{}, false, nil
	}
	return rec.Stats(), true, nil
}

// UpsertAtomic applies fn to the group's current record while holding the
// group's lock and stores the result.
func (s *Store) UpsertAtomic(ctx context.Context, group string, fn record.UpdateFunc) (record.Record, error) {
	group, err := record.NormalizeGroup(group)
	if err != nil {
		return record.Record{}, err
	}
	if err := ctx.Err(); err != nil {
		return record.Record{}, record.NewStoreError("upsert", group, err)
	}

	l := s.lockFor(group)
	l.Lock()
	defer l.Unlock()

	var current *record.Record
	if cur, ok := s.get(group); ok {
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

	s.mu.Lock()
	s.records[group] = next
	s.mu.Unlock()

	return next, nil
}

// Delete removes the record for group. Returns whether a record existed.
func (s *Store) Delete(ctx context.Context, group string) (bool, error) {
	group, err := record.NormalizeGroup(group)
	if err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, record.NewStoreError("delete", group, err)
	}

	l := s.lockFor(group)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[group]
	delete(s.records, group)
	return ok, nil
}

// ListGroups returns every record ordered by group key.
func (s *Store) ListGroups(ctx context.Context) ([]record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, record.NewStoreError("list", "", err)
	}

	s.mu.Lock()
	out := make([]record.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Group < out[j].Group })
	return out, nil
}

// Close is a no-op; it exists so Store can be used wherever a closable
// store is expected.
func (s *Store) Close() error {
	return nil
}

// Ping reports ctx's error, if any. An in-memory store is always reachable.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}
