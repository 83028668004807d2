package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/stagesync/internal/oplog"
	"github.com/roach88/stagesync/internal/recordstore"
	"github.com/roach88/stagesync/internal/sync"
)

// StoreOptions holds the database path flags shared by the sync commands.
type StoreOptions struct {
	LogDB        string
	StagingDB    string
	ProductionDB string
}

// registerStoreFlags attaches the shared --log/--staging/--production flags.
func registerStoreFlags(cmd *cobra.Command, opts *StoreOptions) {
	cmd.Flags().StringVar(&opts.LogDB, "log", "", "path to the operation log database (required)")
	cmd.Flags().StringVar(&opts.StagingDB, "staging", "", "path to the staging record database (required)")
	cmd.Flags().StringVar(&opts.ProductionDB, "production", "", "path to the production record database (required)")
	_ = cmd.MarkFlagRequired("log")
	_ = cmd.MarkFlagRequired("staging")
	_ = cmd.MarkFlagRequired("production")
}

// engineHandles bundles the opened stores and the synchronizer built on them.
type engineHandles struct {
	log        *oplog.Log
	staging    *recordstore.Staging
	production *recordstore.Store
	syncer     *sync.Synchronizer
}

// openEngine opens the three databases and wires the synchronizer.
// Callers must invoke the returned cleanup func when done.
func openEngine(opts *StoreOptions) (*engineHandles, func(), error) {
	log, err := oplog.Open(opts.LogDB)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open log database", err)
	}

	stagingStore, err := recordstore.Open(opts.StagingDB)
	if err != nil {
		log.Close()
		return nil, nil, WrapExitError(ExitCommandError, "failed to open staging database", err)
	}

	production, err := recordstore.Open(opts.ProductionDB)
	if err != nil {
		log.Close()
		stagingStore.Close()
		return nil, nil, WrapExitError(ExitCommandError, "failed to open production database", err)
	}

	staging := recordstore.NewStaging(stagingStore, oplog.NewRecorder(log, nil))
	handles := &engineHandles{
		log:        log,
		staging:    staging,
		production: production,
		syncer:     sync.New(log, staging, production),
	}
	cleanup := func() {
		if err := production.Close(); err != nil {
			slog.Error("error closing production database", "error", err)
		}
		if err := stagingStore.Close(); err != nil {
			slog.Error("error closing staging database", "error", err)
		}
		if err := log.Close(); err != nil {
			slog.Error("error closing log database", "error", err)
		}
	}
	return handles, cleanup, nil
}
