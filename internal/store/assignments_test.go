package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rotation/internal/record"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)

func TestFind_Absent(t *testing.T) {
	s := createTestStore(t)

	_, found, err := s.Find(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestUpsertAtomic_CreatesRecord(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	var seen *record.Record
	rec, err := s.UpsertAtomic(ctx, "g1", func(cur *record.Record) (record.Record, error) {
		seen = cur
		return assignTo(3, t0)(cur)
	})
	require.NoError(t, err)
	assert.Nil(t, seen, "first upsert should observe no record")
	assert.Equal(t, "g1", rec.Group)
	assert.Equal(t, int64(3), rec.LastAssignedID)
	assert.Equal(t, int64(1), rec.AssignmentCount)

	got, found, err := s.Find(ctx, "g1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(3), got.LastAssignedID)
	assert.Equal(t, int64(1), got.AssignmentCount)
	assert.True(t, t0.Equal(got.LastAssignedAt), "timestamp round-trip: got %v want %v", got.LastAssignedAt, t0)
}

func TestUpsertAtomic_UpdatesRecord(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertAtomic(ctx, "g1", assignTo(1, t0))
	require.NoError(t, err)

	later := t0.Add(time.Minute)
	var seen record.Record
	_, err = s.UpsertAtomic(ctx, "g1", func(cur *record.Record) (record.Record, error) {
		require.NotNil(t, cur)
		seen = *cur
		return assignTo(2, later)(cur)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), seen.LastAssignedID)
	assert.Equal(t, int64(1), seen.AssignmentCount)

	stats, found, err := s.StatsOf(ctx, "g1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(2), stats.LastAssignedID)
	assert.Equal(t, int64(2), stats.TotalAssignments)
	assert.True(t, later.Equal(stats.LastAssignedAt))
}

func TestUpsertAtomic_ComputeErrorLeavesNoState(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	_, err := s.UpsertAtomic(ctx, "g1", func(*record.Record) (record.Record, error) {
		return record.Record{}, boom
	})
	require.ErrorIs(t, err, boom)

	_, found, err := s.Find(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestUpsertAtomic_RejectsNegativeCount(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertAtomic(ctx, "g1", func(*record.Record) (record.Record, error) {
		return record.Record{LastAssignedID: 1, LastAssignedAt: t0, AssignmentCount: -1}, nil
	})
	require.Error(t, err)
	assert.True(t, record.IsValidationError(err))

	_, found, err := s.Find(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestUpsertAtomic_InvalidGroup(t *testing.T) {
	s := createTestStore(t)

	_, err := s.UpsertAtomic(context.Background(), "", assignTo(1, t0))
	require.Error(t, err)
	assert.True(t, record.IsValidationError(err))
}

func TestUpsertAtomic_NormalizesGroup(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertAtomic(ctx, "cafe\u0301", assignTo(1, t0))
	require.NoError(t, err)

	rec, found, err := s.Find(ctx, "caf\u00e9")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "caf\u00e9", rec.Group)
}

func TestUpsertAtomic_ConcurrentIncrements(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.UpsertAtomic(ctx, "hot", assignTo(1, t0))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	stats, found, err := s.StatsOf(ctx, "hot")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(workers), stats.TotalAssignments)
}

func TestDelete(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	existed, err := s.Delete(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, existed)

	_, err = s.UpsertAtomic(ctx, "g1", assignTo(1, t0))
	require.NoError(t, err)

	existed, err = s.Delete(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, existed)

	_, found, err := s.Find(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, found)

	// Recreated record starts over
	rec, err := s.UpsertAtomic(ctx, "g1", assignTo(5, t0))
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.AssignmentCount)
}

func TestStatsOf_Absent(t *testing.T) {
	s := createTestStore(t)

	_, found, err := s.StatsOf(context.Background(), "g3")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestListGroups(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	groups, err := s.ListGroups(ctx)
	require.NoError(t, err)
	assert.NotNil(t, groups)
	assert.Empty(t, groups)

	for _, g := range []string{"beta", "alpha", "gamma"} {
		_, err := s.UpsertAtomic(ctx, g, assignTo(1, t0))
		require.NoError(t, err)
	}

	groups, err = s.ListGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Equal(t, "alpha", groups[0].Group)
	assert.Equal(t, "beta", groups[1].Group)
	assert.Equal(t, "gamma", groups[2].Group)
}

func TestFindByAssignee(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertAtomic(ctx, "g1", assignTo(7, t0))
	require.NoError(t, err)
	_, err = s.UpsertAtomic(ctx, "g2", assignTo(8, t0))
	require.NoError(t, err)
	_, err = s.UpsertAtomic(ctx, "g3", assignTo(7, t0))
	require.NoError(t, err)

	recs, err := s.FindByAssignee(ctx, 7)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "g1", recs[0].Group)
	assert.Equal(t, "g3", recs[1].Group)

	recs, err = s.FindByAssignee(ctx, 99)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestClosedStore_ReturnsStoreError(t *testing.T) {
	s := createTestStore(t)
	require.NoError(t, s.Close())

	_, _, err := s.Find(context.Background(), "g1")
	require.Error(t, err)
	assert.True(t, record.IsStoreError(err))
	assert.False(t, record.IsConflict(err))
}
