// Package redisstore provides a Redis-backed Assignment Store.
//
// Each group is one hash at <prefix>group:<name> with the fields
// last_assigned_id, last_assigned_at (RFC 3339, nanoseconds, UTC) and
// assignment_count. UpsertAtomic is an optimistic transaction: WATCH the
// key, read it, compute, then MULTI/EXEC the write. If another client
// touched the key in between, EXEC aborts and the store reports
// record.ErrConflict.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/roach88/rotation/internal/record"
)

// DefaultKeyPrefix namespaces every key the store writes.
const DefaultKeyPrefix = "rotation:"

const (
	fieldLastAssignedID  = "last_assigned_id"
	fieldLastAssignedAt  = "last_assigned_at"
	fieldAssignmentCount = "assignment_count"
)

// Store is a Redis-backed Assignment Store.
type Store struct {
	rdb    goredis.UniversalClient
	prefix string
}

// Options configures Open.
type Options struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// Open connects to Redis and verifies the connection with PING.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return New(rdb, opts.KeyPrefix), nil
}

// New wraps an existing client. An empty prefix means DefaultKeyPrefix.
func New(rdb goredis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{rdb: rdb, prefix: prefix}
}

// Close closes the client.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// Ping verifies the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) key(group string) string {
	return s.prefix + "group:" + group
}

// Find returns the record for group. found is false if no record exists.
func (s *Store) Find(ctx context.Context, group string) (record.Record, bool, error) {
	group, err := record.NormalizeGroup(group)
	if err != nil {
		return record.Record{}, false, err
	}

	rec, found, err := read(ctx, s.rdb, s.key(group), group)
	if err != nil {
		return record.Record{}, false, record.NewStoreError("find", group, err)
	}
	return rec, found, nil
}

// StatsOf returns the observable stats for group.
func (s *Store) StatsOf(ctx context.Context, group string) (record.Stats, bool, error) {
	group, err := record.NormalizeGroup(group)
	if err != nil {
		return record.Stats{}, false, err
	}

	rec, found, err := read(ctx, s.rdb, s.key(group), group)
	if err != nil {
		return record.Stats{}, false, record.NewStoreError("stats", group, err)
	}
	if !found {
		return record.Stats{}, false, nil
	}
	return rec.Stats(), true, nil
}

// UpsertAtomic runs a WATCH/MULTI/EXEC transaction on the group's key.
func (s *Store) UpsertAtomic(ctx context.Context, group string, fn record.UpdateFunc) (record.Record, error) {
	group, err := record.NormalizeGroup(group)
	if err != nil {
		return record.Record{}, err
	}
	key := s.key(group)

	var (
		out   record.Record
		fnErr error
	)
	err = s.rdb.Watch(ctx, func(tx *goredis.Tx) error {
		cur, found, err := read(ctx, tx, key, group)
		if err != nil {
			return err
		}

		var current *record.Record
		if found {
			current = &cur
		}

		next, err := fn(current)
		if err != nil {
			fnErr = err
			return err
		}
		next.Group = group
		if err := next.Validate(); err != nil {
			fnErr = err
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.HSet(ctx, key,
				fieldLastAssignedID, next.LastAssignedID,
				fieldLastAssignedAt, next.LastAssignedAt.UTC().Format(time.RFC3339Nano),
				fieldAssignmentCount, next.AssignmentCount,
			)
			return nil
		})
		if err != nil {
			return err
		}

		out = next
		out.LastAssignedAt = next.LastAssignedAt.UTC()
		return nil
	}, key)

	if fnErr != nil {
		return record.Record{}, fnErr
	}
	if errors.Is(err, goredis.TxFailedErr) {
		return record.Record{}, record.Conflict("upsert", group, err)
	}
	if err != nil {
		return record.Record{}, record.NewStoreError("upsert", group, err)
	}
	return out, nil
}

// Delete removes the record for group. Returns whether a record existed.
func (s *Store) Delete(ctx context.Context, group string) (bool, error) {
	group, err := record.NormalizeGroup(group)
	if err != nil {
		return false, err
	}

	n, err := s.rdb.Del(ctx, s.key(group)).Result()
	if err != nil {
		return false, record.NewStoreError("delete", group, err)
	}
	return n > 0, nil
}

// ListGroups returns every record under the prefix, ordered by group key.
func (s *Store) ListGroups(ctx context.Context) ([]record.Record, error) {
	keyPrefix := s.key("")
	out := []record.Record{}

	iter := s.rdb.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		group := key[len(keyPrefix):]
		rec, found, err := read(ctx, s.rdb, key, group)
		if err != nil {
			return nil, record.NewStoreError("list", group, err)
		}
		if found {
			out = append(out, rec)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, record.NewStoreError("list", "", err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Group < out[j].Group })
	return out, nil
}

// hashReader is satisfied by clients and by *goredis.Tx.
type hashReader interface {
	HGetAll(ctx context.Context, key string) *goredis.MapStringStringCmd
}

// read loads the hash at key. A missing key is reported as found=false.
func read(ctx context.Context, c hashReader, key, group string) (record.Record, bool, error) {
	fields, err := c.HGetAll(ctx, key).Result()
	if err != nil {
		return record.Record{}, false, fmt.Errorf("hgetall: %w", err)
	}
	if len(fields) == 0 {
		return record.Record{}, false, nil
	}

	rec, err := decode(group, fields)
	if err != nil {
		return record.Record{}, false, err
	}
	return rec, true, nil
}

func decode(group string, fields map[string]string) (record.Record, error) {
	id, err := strconv.ParseInt(fields[fieldLastAssignedID], 10, 64)
	if err != nil {
		return record.Record{}, fmt.Errorf("decode %s: %w", fieldLastAssignedID, err)
	}
	count, err := strconv.ParseInt(fields[fieldAssignmentCount], 10, 64)
	if err != nil {
		return record.Record{}, fmt.Errorf("decode %s: %w", fieldAssignmentCount, err)
	}
	at, err := time.Parse(time.RFC3339Nano, fields[fieldLastAssignedAt])
	if err != nil {
		return record.Record{}, fmt.Errorf("decode %s: %w", fieldLastAssignedAt, err)
	}
	return record.Record{
		Group:           group,
		LastAssignedID:  id,
		LastAssignedAt:  at,
		AssignmentCount: count,
	}, nil
}
