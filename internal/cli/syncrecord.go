package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/stagesync/internal/record"
)

// SyncRecordOptions holds flags for the sync-record command.
type SyncRecordOptions struct {
	*RootOptions
	Stores StoreOptions
}

// NewSyncRecordCommand creates the sync-record command.
func NewSyncRecordCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncRecordOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync-record <table> <id>",
		Short: "Synchronize one record and clear its commit bookkeeping",
		Long: `Replay a single record's effective operation to production.

Afterwards the bookkeeping of every commit transitively related to the
record (via shared member records) is torn down; other records' production
state is left untouched.

Example:
  stagesync sync-record articles 42 --log ./oplog.db --staging ./staging.db --production ./production.db`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSyncRecord(opts, args[0], args[1], cmd)
		},
	}

	registerStoreFlags(cmd, &opts.Stores)
	return cmd
}

func runSyncRecord(opts *SyncRecordOptions, table, id string, cmd *cobra.Command) error {
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

	count, err := handles.syncer.SyncRecord(cmd.Context(), identity)
	if err != nil {
		if errors.Is(err, record.ErrInvalidIdentity) {
			return WrapExitError(ExitCommandError, "invalid record identity", err)
		}
		_ = formatter.Error("E_SYNC_RECORD", err.Error(), map[string]any{"record": identity.String()})
		return WrapExitError(ExitFailure, fmt.Sprintf("sync of %s failed", identity), err)
	}

	if opts.Format == "json" {
		return formatter.Success(map[string]any{
			"table_name":   identity.Table,
			"record_id":    identity.ID,
			"synchronized": count,
		})
	}
	return formatter.Success(fmt.Sprintf("synchronized %d record(s)", count))
}
