package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/rotation/internal/engine"
	"github.com/roach88/rotation/internal/record"
)

// NextOptions holds flags for the next command.
type NextOptions struct {
	*RootOptions
	DryRun bool
}

// NextResult is the output of the next command.
type NextResult struct {
	Group     string `json:"group"`
	Assignee  *int64 `json:"assignee"`
	Committed bool   `json:"committed"`
}

func (r NextResult) String() string {
	if r.Assignee == nil {
		return "none"
	}
	return strconv.FormatInt(*r.Assignee, 10)
}

// NewNextCommand creates the next command.
func NewNextCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NextOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "next <group> [candidate-id...]",
		Short: "Select the next assignee for a group",
		Long: `Select the next assignee for a group from the given candidate ids.

Candidates are sorted and de-duplicated. The group's rotation advances past
the previous assignee, wrapping at the end. With no candidates nothing is
selected and the group is left untouched.

Examples:
  rotation next support 14 7 22
  rotation next support 14 7 22 --dry-run
  rotation next support 14 7 22 --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNext(opts, args[0], args[1:], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "show the next assignee without committing")

	return cmd
}

func runNext(opts *NextOptions, group string, rawIDs []string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	group, err := record.NormalizeGroup(group)
	if err != nil {
		return f.Fail(err)
	}
	ids, err := engine.ParseCandidateIDs(rawIDs)
	if err != nil {
		return f.Fail(err)
	}

	return withBackend(cmd.Context(), opts.RootOptions, f, func(st backendStore) error {
		eng := newEngine(opts.RootOptions, st)

		var (
			id int64
			ok bool
		)
		if opts.DryRun {
			id, ok, err = eng.PeekNextAssignee(cmd.Context(), group, ids)
		} else {
			id, ok, err = eng.GetNextAssignee(cmd.Context(), group, ids)
		}
		if err != nil {
			return f.Fail(err)
		}

		result := NextResult{Group: group, Committed: ok && !opts.DryRun}
		if ok {
			result.Assignee = &id
		}
		f.VerboseLog("trace %s: group %q, %d candidate(s)", f.TraceID, group, len(ids))
		return f.Success(result)
	})
}

// formatCount renders n with a singular or plural noun.
func formatCount(n int64, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
