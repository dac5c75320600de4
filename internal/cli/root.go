package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/rotation/internal/config"
	"github.com/roach88/rotation/internal/engine"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose     bool
	Format      string // "json" | "text"
	ConfigPath  string
	Backend     string
	DSN         string
	MaxAttempts int

	// Config is the effective configuration, resolved before any
	// subcommand runs.
	Config config.Config

	// Logger writes diagnostics to the command's stderr.
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the rotation CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

// newRootCommand binds the global flags to opts.
func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rotation",
		Short: "Durable round-robin assignment",
		Long: `Assign work to candidates in strict round-robin order.

Each named group keeps its own rotation state in a store shared by every
caller, so concurrent callers and restarts continue the same sequence.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if err := resolveConfig(opts, cmd); err != nil {
				return WrapExitError(ExitCommandError, "invalid configuration", err)
			}
			opts.Logger = newLogger(cmd.ErrOrStderr(), opts.Verbose)
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "store backend (memory|sqlite|gorm-sqlite|postgres|redis)")
	cmd.PersistentFlags().StringVar(&opts.DSN, "dsn", "", "database path or connection string")
	cmd.PersistentFlags().IntVar(&opts.MaxAttempts, "max-attempts", 0, "attempts per selection under contention")

	// Add subcommands
	cmd.AddCommand(NewNextCommand(opts))
	cmd.AddCommand(NewResetCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewGroupsCommand(opts))
	cmd.AddCommand(NewAssigneeCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// resolveConfig layers explicitly set flags over the config file.
func resolveConfig(opts *RootOptions, cmd *cobra.Command) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = opts.Backend
	}
	if flags.Changed("dsn") {
		cfg.DSN = opts.DSN
	}
	if flags.Changed("max-attempts") {
		cfg.MaxAttempts = opts.MaxAttempts
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	opts.Config = cfg
	return nil
}

// newEngine builds an engine over st from the resolved configuration.
func newEngine(opts *RootOptions, st engine.Store) *engine.Engine {
	return engine.New(st,
		engine.WithLogger(opts.Logger),
		engine.WithMaxAttempts(opts.Config.MaxAttempts),
	)
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
