package recordstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/stagesync/internal/oplog"
	"github.com/roach88/stagesync/internal/record"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestStaging(t *testing.T) (*Staging, *oplog.Log) {
	t.Helper()
	dir := t.TempDir()
	log, err := oplog.Open(filepath.Join(dir, "oplog.db"))
	if err != nil {
		t.Fatalf("oplog.Open() failed: %v", err)
	}
	t.Cleanup(func() { log.Close() })

	store, err := Open(filepath.Join(dir, "staging.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return NewStaging(store, oplog.NewRecorder(log, nil)), log
}

func TestLookup_AbsentReturnsNil(t *testing.T) {
	s := createTestStore(t)

	row, err := s.Lookup(context.Background(), record.NewIdentity("articles", "1"))
	if err != nil {
		t.Fatalf("Lookup() failed: %v", err)
	}
	if row != nil {
		t.Errorf("expected nil for absent record, got %v", row)
	}
}

func TestUpsert_PreservesGivenRevision(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	identity := record.NewIdentity("articles", "1")

	row := record.Row{Identity: identity, Attrs: map[string]any{"title": "hello"}, Revision: 7}
	if err := s.Upsert(ctx, row); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}

	got, err := s.Lookup(ctx, identity)
	if err != nil {
		t.Fatalf("Lookup() failed: %v", err)
	}
	if got == nil || got.Revision != 7 {
		t.Errorf("Lookup() = %v, want revision 7", got)
	}
	if got.Attrs["title"] != "hello" {
		t.Errorf("attrs = %v", got.Attrs)
	}

	// Replacing keeps the caller's revision, it does not bump.
	row.Revision = 3
	if err := s.Upsert(ctx, row); err != nil {
		t.Fatalf("second Upsert() failed: %v", err)
	}
	got, _ = s.Lookup(ctx, identity)
	if got.Revision != 3 {
		t.Errorf("revision after replace = %d, want 3", got.Revision)
	}
}

func TestUpsert_RejectsZeroIdentity(t *testing.T) {
	s := createTestStore(t)

	err := s.Upsert(context.Background(), record.Row{})
	if err == nil {
		t.Error("expected error for zero identity, got nil")
	}
}

func TestDelete_AbsentIsNoop(t *testing.T) {
	s := createTestStore(t)

	if err := s.Delete(context.Background(), record.NewIdentity("articles", "1")); err != nil {
		t.Errorf("Delete() of absent record failed: %v", err)
	}
}

func TestStagingSave_BumpsRevisionAndLogs(t *testing.T) {
	staging, log := createTestStaging(t)
	ctx := context.Background()
	identity := record.NewIdentity("articles", "1")

	if err := staging.Save(ctx, identity, map[string]any{"title": "v1"}); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if err := staging.Save(ctx, identity, map[string]any{"title": "v2"}); err != nil {
		t.Fatalf("second Save() failed: %v", err)
	}

	row, err := staging.Lookup(ctx, identity)
	if err != nil {
		t.Fatalf("Lookup() failed: %v", err)
	}
	if row.Revision != 2 {
		t.Errorf("revision = %d, want 2", row.Revision)
	}

	entries, err := log.Matching(ctx, identity)
	if err != nil {
		t.Fatalf("Matching() failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d log entries, want 2", len(entries))
	}
	if entries[0].Op != record.OpInsert || entries[1].Op != record.OpUpdate {
		t.Errorf("ops = %v, %v; want INSERT then UPDATE", entries[0].Op, entries[1].Op)
	}
}

func TestStagingRemove_DeletesAndLogs(t *testing.T) {
	staging, log := createTestStaging(t)
	ctx := context.Background()
	identity := record.NewIdentity("articles", "1")

	if err := staging.Save(ctx, identity, map[string]any{"title": "v1"}); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if err := staging.Remove(ctx, identity); err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}

	row, err := staging.Lookup(ctx, identity)
	if err != nil {
		t.Fatalf("Lookup() failed: %v", err)
	}
	if row != nil {
		t.Errorf("record still present after Remove: %v", row)
	}

	entries, err := log.Matching(ctx, identity)
	if err != nil {
		t.Fatalf("Matching() failed: %v", err)
	}
	if len(entries) != 2 || entries[1].Op != record.OpDelete {
		t.Errorf("entries = %v, want INSERT then DELETE", entries)
	}
}

func TestStagingSave_TaggedInsideCapture(t *testing.T) {
	staging, log := createTestStaging(t)
	ctx := context.Background()
	identity := record.NewIdentity("articles", "1")

	commit, err := staging.Recorder().Capture(ctx, func(ctx context.Context) error {
		return staging.Save(ctx, identity, map[string]any{"title": "v1"})
	})
	if err != nil {
		t.Fatalf("Capture() failed: %v", err)
	}

	entries, err := log.Matching(ctx, identity)
	if err != nil {
		t.Fatalf("Matching() failed: %v", err)
	}
	if len(entries) != 1 || entries[0].CommitID != commit.ID() {
		t.Errorf("entries = %v, want one entry tagged %s", entries, commit.ID())
	}
}
