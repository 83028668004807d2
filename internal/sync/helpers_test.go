package sync

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/stagesync/internal/oplog"
	"github.com/roach88/stagesync/internal/record"
	"github.com/roach88/stagesync/internal/recordstore"
)

// env wires a real log, staging store, and production store in a temp dir.
type env struct {
	log        *oplog.Log
	recorder   *oplog.Recorder
	staging    *recordstore.Staging
	production *recordstore.Store
	syncer     *Synchronizer
}

// newEnv creates a full test environment. When commitIDs are given, captures
// use them in order; otherwise commit ids are UUIDv7.
func newEnv(t *testing.T, commitIDs ...string) *env {
	t.Helper()
	dir := t.TempDir()

	log, err := oplog.Open(filepath.Join(dir, "oplog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	stagingStore, err := recordstore.Open(filepath.Join(dir, "staging.db"))
	require.NoError(t, err)
	t.Cleanup(func() { stagingStore.Close() })

	production, err := recordstore.Open(filepath.Join(dir, "production.db"))
	require.NoError(t, err)
	t.Cleanup(func() { production.Close() })

	var gen oplog.IDGenerator
	if len(commitIDs) > 0 {
		gen = oplog.NewFixedGenerator(commitIDs...)
	}
	recorder := oplog.NewRecorder(log, gen)
	staging := recordstore.NewStaging(stagingStore, recorder)

	return &env{
		log:        log,
		recorder:   recorder,
		staging:    staging,
		production: production,
		syncer:     New(log, staging, production),
	}
}

func (e *env) save(t *testing.T, table, id string, attrs map[string]any) record.Identity {
	t.Helper()
	identity := record.NewIdentity(table, id)
	require.NoError(t, e.staging.Save(context.Background(), identity, attrs))
	return identity
}

func (e *env) remove(t *testing.T, identity record.Identity) {
	t.Helper()
	require.NoError(t, e.staging.Remove(context.Background(), identity))
}

func (e *env) capture(t *testing.T, work func(ctx context.Context) error) *oplog.Commit {
	t.Helper()
	commit, err := e.recorder.Capture(context.Background(), work)
	require.NoError(t, err)
	return commit
}

func (e *env) status(t *testing.T, identity record.Identity) record.Status {
	t.Helper()
	status, err := e.syncer.Resolver().Status(context.Background(), identity)
	require.NoError(t, err)
	return status
}

func (e *env) matching(t *testing.T, identity record.Identity) []record.Entry {
	t.Helper()
	entries, err := e.log.Matching(context.Background(), identity)
	require.NoError(t, err)
	return entries
}

func (e *env) productionRow(t *testing.T, identity record.Identity) *record.Row {
	t.Helper()
	row, err := e.production.Lookup(context.Background(), identity)
	require.NoError(t, err)
	return row
}
