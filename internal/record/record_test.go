package record

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeGroup_Valid(t *testing.T) {
	got, err := NormalizeGroup("support-tier-1")
	require.NoError(t, err)
	assert.Equal(t, "support-tier-1", got)
}

func TestNormalizeGroup_NFC(t *testing.T) {
	decomposed := "cafe\u0301"
	precomposed := "caf\u00e9"

	a, err := NormalizeGroup(decomposed)
	require.NoError(t, err)
	b, err := NormalizeGroup(precomposed)
	require.NoError(t, err)

	assert.Equal(t, b, a)
}

func TestNormalizeGroup_TrimsWhitespace(t *testing.T) {
	for _, in := range []string{" g1", "g1 ", "  g1\t", "\u00a0g1"} {
		got, err := NormalizeGroup(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, "g1", got, "input %q", in)
	}

	// Inner whitespace is significant
	got, err := NormalizeGroup(" tier 1 ")
	require.NoError(t, err)
	assert.Equal(t, "tier 1", got)
}

func TestNormalizeGroup_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		group string
	}{
		{"empty", ""},
		{"whitespace", "  \t "},
		{"control character", "g1\x00"},
		{"newline", "g1\nother"},
		{"invalid utf8", "g\xff1"},
		{"too long", strings.Repeat("a", MaxGroupLen+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeGroup(tt.group)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestRecord_Validate(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	valid := Record{Group: "g", LastAssignedID: 1, LastAssignedAt: now, AssignmentCount: 1}
	assert.NoError(t, valid.Validate())

	negative := valid
	negative.AssignmentCount = -1
	err := negative.Validate()
	require.Error(t, err)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "assignment_count", ve.Field)

	noGroup := valid
	noGroup.Group = ""
	assert.True(t, IsValidationError(noGroup.Validate()))

	noTime := valid
	noTime.LastAssignedAt = time.Time{}
	assert.True(t, IsValidationError(noTime.Validate()))
}

func TestRecord_Stats(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := Record{Group: "g", LastAssignedID: 7, LastAssignedAt: now, AssignmentCount: 3}

	s := r.Stats()
	assert.Equal(t, int64(7), s.LastAssignedID)
	assert.Equal(t, now, s.LastAssignedAt)
	assert.Equal(t, int64(3), s.TotalAssignments)
}

func TestStoreError_Wrapping(t *testing.T) {
	cause := errors.New("disk full")
	err := NewStoreError("upsert", "g1", cause)

	assert.True(t, IsStoreError(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "upsert")
	assert.Contains(t, err.Error(), "group=g1")

	// Already-typed errors pass through
	assert.Same(t, err, NewStoreError("find", "g2", err))
	ve := &ValidationError{Field: "group", Reason: "bad"}
	assert.Same(t, error(ve), NewStoreError("find", "g2", ve))

	assert.Nil(t, NewStoreError("find", "g", nil))
}

func TestConflict(t *testing.T) {
	err := Conflict("upsert", "g1", errors.New("UNIQUE constraint failed"))
	assert.True(t, IsConflict(err))
	assert.True(t, IsStoreError(err))
	assert.Contains(t, err.Error(), "UNIQUE constraint failed")

	wrapped := fmt.Errorf("outer: %w", Conflict("upsert", "g1", nil))
	assert.True(t, IsConflict(wrapped))

	assert.False(t, IsConflict(errors.New("other")))
}
