package harness

import (
	"fmt"
)

// checkStep compares a step's expectations with what the engine returned.
// Returns one message per failed expectation.
func checkStep(i int, step Step, ev TraceEvent) []string {
	var errs []string
	fail := func(format string, args ...any) {
		prefix := fmt.Sprintf("step %d (%s %q): ", i, step.Op, step.Group)
		errs = append(errs, prefix+fmt.Sprintf(format, args...))
	}

	if step.ExpectError != "" {
		if ev.Error != step.ExpectError {
			fail("expected %s error, got %s", step.ExpectError, describeError(ev.Error))
		}
		return errs
	}
	if ev.Error != "" {
		fail("unexpected %s error", ev.Error)
		return errs
	}

	switch step.Op {
	case OpNext, OpPeek:
		switch {
		case step.Expect != nil && ev.Assignee == nil:
			fail("expected assignee %d, got none", *step.Expect)
		case step.Expect != nil && *ev.Assignee != *step.Expect:
			fail("expected assignee %d, got %d", *step.Expect, *ev.Assignee)
		case step.ExpectNone && ev.Assignee != nil:
			fail("expected no assignee, got %d", *ev.Assignee)
		}
	case OpReset:
		if step.ExpectExisted != nil && *ev.Existed != *step.ExpectExisted {
			fail("expected existed=%t, got %t", *step.ExpectExisted, *ev.Existed)
		}
	case OpStats:
		switch {
		case step.ExpectNone && ev.Stats != nil:
			fail("expected no stats, got last_assigned_id=%d total_assignments=%d",
				ev.Stats.LastAssignedID, ev.Stats.TotalAssignments)
		case step.ExpectStats != nil && ev.Stats == nil:
			fail("expected stats, got none")
		case step.ExpectStats != nil:
			want := *step.ExpectStats
			if ev.Stats.LastAssignedID != want.LastAssignedID {
				fail("expected last_assigned_id=%d, got %d", want.LastAssignedID, ev.Stats.LastAssignedID)
			}
			if ev.Stats.TotalAssignments != want.TotalAssignments {
				fail("expected total_assignments=%d, got %d", want.TotalAssignments, ev.Stats.TotalAssignments)
			}
		}
	}
	return errs
}

func describeError(kind string) string {
	if kind == "" {
		return "success"
	}
	return kind + " error"
}
