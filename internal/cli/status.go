package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/stagesync/internal/record"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	Stores StoreOptions
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status <table> <id>",
		Short: "Show a record's sync status",
		Long: `Resolve a record's sync status without touching anything.

NEW means production holds no copy, MODIFIED means production's copy
disagrees with staging, NOT_MODIFIED means the two sides match.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts, args[0], args[1], cmd)
		},
	}

	registerStoreFlags(cmd, &opts.Stores)
	return cmd
}

func runStatus(opts *StatusOptions, table, id string, cmd *cobra.Command) error {
	identity, err := record.Derive([2]string{table, id})
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid record identity", err)
	}

	handles, cleanup, err := openEngine(&opts.Stores)
	if err != nil {
		return err
	}
	defer cleanup()

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	status, err := handles.syncer.Resolver().Status(cmd.Context(), identity)
	if err != nil {
		return WrapExitError(ExitFailure, fmt.Sprintf("status of %s failed", identity), err)
	}

	if opts.Format == "json" {
		return formatter.Success(map[string]any{
			"table_name": identity.Table,
			"record_id":  identity.ID,
			"status":     status.String(),
		})
	}
	return formatter.Success(fmt.Sprintf("%s: %s", identity, status))
}
