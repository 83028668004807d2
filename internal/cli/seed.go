package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/stagesync/internal/record"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	Stores StoreOptions
}

// seedFile is the YAML fixture format accepted by the seed command.
type seedFile struct {
	// Commit wraps all saves in a single captured commit, so a later batch
	// sync treats them as one group.
	Commit  bool         `yaml:"commit"`
	Records []seedRecord `yaml:"records"`
}

type seedRecord struct {
	Table string         `yaml:"table"`
	ID    string         `yaml:"id"`
	Attrs map[string]any `yaml:"attrs"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed <fixtures.yaml>",
		Short: "Load record fixtures into the staging store",
		Long: `Load a YAML fixture file into the staging store.

Every save goes through the instrumented staging store, so the operation log
records the mutations exactly as application writes would. With "commit:
true" in the fixture, all saves are captured as one commit.

Example fixture:
  commit: true
  records:
    - table: articles
      id: "1"
      attrs: {title: "Hello", body: "..."}

Example:
  stagesync seed fixtures.yaml --log ./oplog.db --staging ./staging.db --production ./production.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(opts, args[0], cmd)
		},
	}

	registerStoreFlags(cmd, &opts.Stores)
	return cmd
}

func runSeed(opts *SeedOptions, path string, cmd *cobra.Command) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read fixture file", err)
	}

	var fixtures seedFile
	if err := yaml.Unmarshal(data, &fixtures); err != nil {
		return WrapExitError(ExitCommandError, "failed to parse fixture file", err)
	}
	for i, rec := range fixtures.Records {
		if rec.Table == "" || rec.ID == "" {
			return NewExitError(ExitCommandError, fmt.Sprintf("fixture record %d: table and id are required", i))
		}
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

	saveAll := func(ctx context.Context) error {
		for _, rec := range fixtures.Records {
			identity := record.NewIdentity(rec.Table, rec.ID)
			if err := handles.staging.Save(ctx, identity, rec.Attrs); err != nil {
				return err
			}
			formatter.VerboseLog("seeded %s", identity)
		}
		return nil
	}

	if fixtures.Commit {
		_, err = handles.staging.Recorder().Capture(cmd.Context(), saveAll)
	} else {
		err = saveAll(cmd.Context())
	}
	if err != nil {
		return WrapExitError(ExitFailure, "seeding failed", err)
	}

	if opts.Format == "json" {
		return formatter.Success(map[string]any{"seeded": len(fixtures.Records)})
	}
	return formatter.Success(fmt.Sprintf("seeded %d record(s)", len(fixtures.Records)))
}
