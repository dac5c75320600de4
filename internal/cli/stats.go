package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/rotation/internal/record"
)

// StatsResult is the output of the stats command.
type StatsResult struct {
	Group            string     `json:"group"`
	Found            bool       `json:"found"`
	LastAssignedID   int64      `json:"last_assigned_id"`
	LastAssignedAt   *time.Time `json:"last_assigned_at,omitempty"`
	TotalAssignments int64      `json:"total_assignments"`
}

func (r StatsResult) String() string {
	if !r.Found {
		return fmt.Sprintf("%s has no rotation state", r.Group)
	}
	return fmt.Sprintf("%s: last assignee %d at %s, %s",
		r.Group,
		r.LastAssignedID,
		r.LastAssignedAt.Format(time.RFC3339),
		formatCount(r.TotalAssignments, "assignment"),
	)
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats <group>",
		Short: "Show a group's rotation state",
		Long: `Show a group's last assignee, when it was selected and how many
selections the group has made since it was created or last reset.

Example:
  rotation stats support --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runStats(opts *RootOptions, group string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	group, err := record.NormalizeGroup(group)
	if err != nil {
		return f.Fail(err)
	}

	return withBackend(cmd.Context(), opts, f, func(st backendStore) error {
		stats, found, err := newEngine(opts, st).GroupStats(cmd.Context(), group)
		if err != nil {
			return f.Fail(err)
		}

		result := StatsResult{Group: group, Found: found}
		if found {
			at := stats.LastAssignedAt
			result.LastAssignedID = stats.LastAssignedID
			result.LastAssignedAt = &at
			result.TotalAssignments = stats.TotalAssignments
		}
		return f.Success(result)
	})
}
