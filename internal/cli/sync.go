package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// SyncOptions holds flags for the sync command.
type SyncOptions struct {
	*RootOptions
	Stores StoreOptions
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Replay all safe pending mutations to production",
		Long: `Run a batch synchronization pass.

Replays every uncontained log entry below the safe frontier (the earliest
open commit's START) to the production store and deletes the consumed
entries. While a commit is open, everything logged at or after its START is
withheld until a later pass.

Example:
  stagesync sync --log ./oplog.db --staging ./staging.db --production ./production.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(opts, cmd)
		},
	}

	registerStoreFlags(cmd, &opts.Stores)
	return cmd
}

func runSync(opts *SyncOptions, cmd *cobra.Command) error {
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

	count, err := handles.syncer.Sync(cmd.Context())
	if err != nil {
		// Partial failure still reports what did apply.
		_ = formatter.Error("E_SYNC", err.Error(), map[string]any{"synchronized": count})
		return WrapExitError(ExitFailure, "sync failed", err)
	}

	if opts.Format == "json" {
		return formatter.Success(map[string]any{"synchronized": count})
	}
	return formatter.Success(fmt.Sprintf("synchronized %d record(s)", count))
}
