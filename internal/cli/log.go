package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/stagesync/internal/oplog"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	LogDB string
}

// NewLogCommand creates the log command, a diagnostic listing of pending
// entries useful when investigating a stalled frontier.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "List pending operation-log entries",
		Long: `List every entry still in the operation log, in sequence order.

Also reports the earliest open commit, which is what holds back batch sync.

Example:
  stagesync log --log ./oplog.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.LogDB, "log", "", "path to the operation log database (required)")
	_ = cmd.MarkFlagRequired("log")
	return cmd
}

func runLog(opts *LogOptions, cmd *cobra.Command) error {
	log, err := oplog.Open(opts.LogDB)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open log database", err)
	}
	defer log.Close()

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	entries, err := log.Entries(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read log", err)
	}
	frontier, open, err := log.EarliestOpenCommitSeq(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read log", err)
	}

	if opts.Format == "json" {
		type jsonEntry struct {
			Seq      int64  `json:"seq"`
			Op       string `json:"op"`
			CommitID string `json:"commit_id,omitempty"`
			Table    string `json:"table_name,omitempty"`
			RecordID string `json:"record_id,omitempty"`
		}
		out := make([]jsonEntry, len(entries))
		for i, e := range entries {
			out[i] = jsonEntry{
				Seq:      e.Seq,
				Op:       string(e.Op),
				CommitID: e.CommitID,
				Table:    e.Identity.Table,
				RecordID: e.Identity.ID,
			}
		}
		data := map[string]any{"entries": out}
		if open {
			data["earliest_open_commit_seq"] = frontier
		}
		return formatter.Success(data)
	}

	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintln(&b, e.String())
	}
	if open {
		fmt.Fprintf(&b, "earliest open commit at seq %d\n", frontier)
	}
	fmt.Fprintf(&b, "%d entr(ies) pending", len(entries))
	return formatter.Success(b.String())
}
