package engine

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/rotation/internal/record"
)

// CanonicalCandidates returns ids sorted ascending with duplicates removed.
// The input slice is not modified.
func CanonicalCandidates(ids []int64) []int64 {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	return slices.Compact(sorted)
}

// NextAssignee picks the id that follows prev in sorted, which must be
// non-empty, ascending and free of duplicates.
//
// prev == nil selects the smallest id. If prev's id is in sorted the next
// one is chosen, wrapping after the largest. If it is gone, the smallest id
// greater than it is chosen, wrapping to the smallest.
func NextAssignee(sorted []int64, prev *record.Record) int64 {
	if prev == nil {
		return sorted[0]
	}

	i, found := slices.BinarySearch(sorted, prev.LastAssignedID)
	if found {
		return sorted[(i+1)%len(sorted)]
	}
	if i < len(sorted) {
		return sorted[i]
	}
	return sorted[0]
}

// ParseCandidateIDs parses decimal candidate ids. Surrounding whitespace is
// ignored; anything else that is not a base-10 int64 is a ValidationError.
func ParseCandidateIDs(raw []string) ([]int64, error) {
	ids := make([]int64, 0, len(raw))
	for i, s := range raw {
		id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, &record.ValidationError{
				Field:  "candidate_ids",
				Reason: fmt.Sprintf("entry %d (%q) is not an integer", i, s),
			}
		}
		ids = append(ids, id)
	}
	return ids, nil
}
