package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/rotation/internal/record"
)

// ResetResult is the output of the reset command.
type ResetResult struct {
	Group   string `json:"group"`
	Existed bool   `json:"existed"`
}

func (r ResetResult) String() string {
	if r.Existed {
		return fmt.Sprintf("reset %s", r.Group)
	}
	return fmt.Sprintf("%s has no rotation state", r.Group)
}

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset <group>",
		Short: "Forget a group's rotation state",
		Long: `Forget a group's rotation state.

The next selection for the group starts again from the smallest candidate.

Example:
  rotation reset support`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReset(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runReset(opts *RootOptions, group string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	group, err := record.NormalizeGroup(group)
	if err != nil {
		return f.Fail(err)
	}

	return withBackend(cmd.Context(), opts, f, func(st backendStore) error {
		existed, err := newEngine(opts, st).ResetGroup(cmd.Context(), group)
		if err != nil {
			return f.Fail(err)
		}
		return f.Success(ResetResult{Group: group, Existed: existed})
	})
}
