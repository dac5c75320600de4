package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/rotation/internal/engine"
	"github.com/roach88/rotation/internal/record"
)

// GroupEntry is one group in a listing.
type GroupEntry struct {
	Group            string    `json:"group"`
	LastAssignedID   int64     `json:"last_assigned_id"`
	LastAssignedAt   time.Time `json:"last_assigned_at"`
	TotalAssignments int64     `json:"total_assignments"`
}

// GroupList is the output of the groups and assignee commands.
type GroupList struct {
	Groups []GroupEntry `json:"groups"`
}

func (l GroupList) String() string {
	if len(l.Groups) == 0 {
		return "No groups."
	}
	var b strings.Builder
	for i, g := range l.Groups {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s\t%d\t%d\t%s", g.Group, g.LastAssignedID, g.TotalAssignments, g.LastAssignedAt.Format(time.RFC3339))
	}
	return b.String()
}

func newGroupList(recs []record.Record) GroupList {
	list := GroupList{Groups: make([]GroupEntry, 0, len(recs))}
	for _, rec := range recs {
		list.Groups = append(list.Groups, GroupEntry{
			Group:            rec.Group,
			LastAssignedID:   rec.LastAssignedID,
			LastAssignedAt:   rec.LastAssignedAt,
			TotalAssignments: rec.AssignmentCount,
		})
	}
	return list
}

// NewGroupsCommand creates the groups command.
func NewGroupsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "List every group with rotation state",
		Long: `List every group with rotation state, ordered by name.

Text output is tab separated: group, last assignee, selections, last
selection time.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			return withBackend(cmd.Context(), rootOpts, f, func(st backendStore) error {
				recs, err := st.ListGroups(cmd.Context())
				if err != nil {
					return f.Fail(err)
				}
				return f.Success(newGroupList(recs))
			})
		},
	}
	return cmd
}

// NewAssigneeCommand creates the assignee command.
func NewAssigneeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assignee <candidate-id>",
		Short: "List groups whose last selection was a candidate",
		Long: `List groups whose most recent selection was the given candidate.

Only the SQL backends (sqlite, gorm-sqlite, postgres) support this query.

Example:
  rotation assignee 14`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssignee(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runAssignee(opts *RootOptions, rawID string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	ids, err := engine.ParseCandidateIDs([]string{rawID})
	if err != nil {
		return f.Fail(err)
	}

	return withBackend(cmd.Context(), opts, f, func(st backendStore) error {
		finder, ok := st.(assigneeFinder)
		if !ok {
			return f.Unsupported(fmt.Sprintf("backend %s does not support assignee queries", opts.Config.Backend))
		}
		recs, err := finder.FindByAssignee(cmd.Context(), ids[0])
		if err != nil {
			return f.Fail(err)
		}
		return f.Success(newGroupList(recs))
	})
}
