package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNext_RotatesAcrossInvocations(t *testing.T) {
	db := sqliteArgs(t)

	var got []string
	for range 4 {
		out, err := execute(t, append(db, "next", "g1", "3", "1", "2")...)
		require.NoError(t, err)
		got = append(got, strings.TrimSpace(out))
	}
	assert.Equal(t, []string{"1", "2", "3", "1"}, got)
}

func TestNext_NoCandidates(t *testing.T) {
	db := sqliteArgs(t)

	out, err := execute(t, append(db, "next", "g3")...)
	require.NoError(t, err)
	assert.Equal(t, "none\n", out)

	out, err = execute(t, append(db, "stats", "g3")...)
	require.NoError(t, err)
	assert.Contains(t, out, "g3 has no rotation state")
}

func TestNext_DryRunCommitsNothing(t *testing.T) {
	db := sqliteArgs(t)

	_, err := execute(t, append(db, "next", "g", "10", "20")...)
	require.NoError(t, err)

	for range 2 {
		out, err := execute(t, append(db, "next", "g", "10", "20", "--dry-run", "--format", "json")...)
		require.NoError(t, err)

		var res NextResult
		resp := decodeResponse(t, out, &res)
		assert.Equal(t, "ok", resp.Status)
		require.NotNil(t, res.Assignee)
		assert.Equal(t, int64(20), *res.Assignee)
		assert.False(t, res.Committed)
	}

	out, err := execute(t, append(db, "next", "g", "10", "20")...)
	require.NoError(t, err)
	assert.Equal(t, "20\n", out)
}

func TestNext_JSON(t *testing.T) {
	db := sqliteArgs(t)

	out, err := execute(t, append(db, "--format", "json", "next", "g", "5")...)
	require.NoError(t, err)

	var res NextResult
	resp := decodeResponse(t, out, &res)
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.TraceID)
	assert.Equal(t, "g", res.Group)
	require.NotNil(t, res.Assignee)
	assert.Equal(t, int64(5), *res.Assignee)
	assert.True(t, res.Committed)
}

func TestNext_InvalidCandidate(t *testing.T) {
	db := sqliteArgs(t)

	out, err := execute(t, append(db, "--format", "json", "next", "g", "1", "two")...)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeValidation, resp.Error.Code)
}

func TestNext_InvalidGroup(t *testing.T) {
	db := sqliteArgs(t)

	_, err := execute(t, append(db, "next", "   ", "1")...)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestNext_BackendUnavailable(t *testing.T) {
	_, err := execute(t, "--backend", "sqlite", "--dsn", "/nonexistent/dir/rotation.db", "next", "g", "1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to open sqlite store")
}

func TestNext_BackendUnavailableJSON(t *testing.T) {
	out, err := execute(t, "--backend", "sqlite", "--dsn", "/nonexistent/dir/rotation.db", "--format", "json", "next", "g", "1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeBackend, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "failed to open sqlite store")
}

func TestNext_EchoesNormalizedGroup(t *testing.T) {
	db := sqliteArgs(t)

	out, err := execute(t, append(db, "--format", "json", "next", " g1 ", "1", "2")...)
	require.NoError(t, err)
	var next NextResult
	decodeResponse(t, out, &next)
	assert.Equal(t, "g1", next.Group)

	out, err = execute(t, append(db, "--format", "json", "stats", "g1")...)
	require.NoError(t, err)
	var stats StatsResult
	decodeResponse(t, out, &stats)
	assert.True(t, stats.Found)
	assert.Equal(t, "g1", stats.Group)
	assert.Equal(t, int64(1), stats.TotalAssignments)

	out, err = execute(t, append(db, "--format", "json", "reset", "\tg1")...)
	require.NoError(t, err)
	var reset ResetResult
	decodeResponse(t, out, &reset)
	assert.Equal(t, "g1", reset.Group)
	assert.True(t, reset.Existed)
}

func TestReset(t *testing.T) {
	db := sqliteArgs(t)

	_, err := execute(t, append(db, "next", "g5", "4", "2", "9")...)
	require.NoError(t, err)

	out, err := execute(t, append(db, "--format", "json", "reset", "g5")...)
	require.NoError(t, err)
	var res ResetResult
	decodeResponse(t, out, &res)
	assert.True(t, res.Existed)

	out, err = execute(t, append(db, "reset", "g5")...)
	require.NoError(t, err)
	assert.Contains(t, out, "g5 has no rotation state")

	out, err = execute(t, append(db, "next", "g5", "4", "2", "9")...)
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)
}

func TestStats(t *testing.T) {
	db := sqliteArgs(t)

	for range 3 {
		_, err := execute(t, append(db, "next", "g4", "10", "20")...)
		require.NoError(t, err)
	}

	out, err := execute(t, append(db, "--format", "json", "stats", "g4")...)
	require.NoError(t, err)

	var res StatsResult
	decodeResponse(t, out, &res)
	assert.True(t, res.Found)
	assert.Equal(t, int64(10), res.LastAssignedID)
	assert.Equal(t, int64(3), res.TotalAssignments)
	require.NotNil(t, res.LastAssignedAt)

	out, err = execute(t, append(db, "stats", "g4")...)
	require.NoError(t, err)
	assert.Contains(t, out, "g4: last assignee 10")
	assert.Contains(t, out, "3 assignments")
}

func TestGroupsAndAssignee(t *testing.T) {
	db := sqliteArgs(t)

	out, err := execute(t, append(db, "groups")...)
	require.NoError(t, err)
	assert.Equal(t, "No groups.\n", out)

	_, err = execute(t, append(db, "next", "beta", "7")...)
	require.NoError(t, err)
	_, err = execute(t, append(db, "next", "alpha", "7", "8")...)
	require.NoError(t, err)
	_, err = execute(t, append(db, "next", "gamma", "8")...)
	require.NoError(t, err)

	out, err = execute(t, append(db, "--format", "json", "groups")...)
	require.NoError(t, err)
	var list GroupList
	decodeResponse(t, out, &list)
	require.Len(t, list.Groups, 3)
	assert.Equal(t, "alpha", list.Groups[0].Group)
	assert.Equal(t, "beta", list.Groups[1].Group)
	assert.Equal(t, "gamma", list.Groups[2].Group)

	out, err = execute(t, append(db, "--format", "json", "assignee", "7")...)
	require.NoError(t, err)
	list = GroupList{}
	decodeResponse(t, out, &list)
	require.Len(t, list.Groups, 2)
	assert.Equal(t, "alpha", list.Groups[0].Group)
	assert.Equal(t, "beta", list.Groups[1].Group)

	out, err = execute(t, append(db, "groups")...)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(out, "\n"))
}

func TestAssignee_UnsupportedBackend(t *testing.T) {
	_, err := execute(t, "--backend", "memory", "assignee", "7")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "does not support assignee queries")
}

func TestAssignee_UnsupportedBackendJSON(t *testing.T) {
	out, err := execute(t, "--backend", "memory", "--format", "json", "assignee", "7")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeBackend, resp.Error.Code)
}

func TestGormSQLiteBackend(t *testing.T) {
	db := []string{"--backend", "gorm-sqlite", "--dsn", t.TempDir() + "/gorm.db"}

	var got []string
	for range 3 {
		out, err := execute(t, append(db, "next", "g", "2", "1")...)
		require.NoError(t, err)
		got = append(got, strings.TrimSpace(out))
	}
	assert.Equal(t, []string{"1", "2", "1"}, got)

	out, err := execute(t, append(db, "assignee", "1")...)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "g\t1\t3\t"), "got %q", out)
}
