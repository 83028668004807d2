package recordstore

import (
	"context"
	"fmt"

	"github.com/roach88/stagesync/internal/oplog"
	"github.com/roach88/stagesync/internal/record"
)

// Staging wraps a Store with the operation-log instrumentation contract:
// every content mutation appends a matching log entry, tagged with the
// currently open commit id if any, before control returns to the caller.
type Staging struct {
	*Store
	recorder *oplog.Recorder
}

// NewStaging creates an instrumented staging store.
func NewStaging(store *Store, recorder *oplog.Recorder) *Staging {
	return &Staging{Store: store, recorder: recorder}
}

// Recorder returns the recorder used by this store, for commit capture.
func (s *Staging) Recorder() *oplog.Recorder {
	return s.recorder
}

// Save writes attrs for the referenced record, bumping its revision, and
// records an INSERT or UPDATE entry depending on whether the record already
// existed.
func (s *Staging) Save(ctx context.Context, ref any, attrs map[string]any) error {
	identity, err := record.Derive(ref)
	if err != nil {
		return err
	}

	existing, err := s.Lookup(ctx, identity)
	if err != nil {
		return err
	}

	op := record.OpInsert
	revision := int64(1)
	if existing != nil {
		op = record.OpUpdate
		revision = existing.Revision + 1
	}

	if err := s.Upsert(ctx, record.Row{Identity: identity, Attrs: attrs, Revision: revision}); err != nil {
		return err
	}
	if _, err := s.recorder.Record(ctx, op, identity); err != nil {
		return fmt.Errorf("save %s: %w", identity, err)
	}
	return nil
}

// Remove deletes the referenced record and records a DELETE entry.
// Removing an absent record still logs, matching the contract that every
// mutation call is observed by the log.
func (s *Staging) Remove(ctx context.Context, ref any) error {
	identity, err := record.Derive(ref)
	if err != nil {
		return err
	}

	if err := s.Delete(ctx, identity); err != nil {
		return err
	}
	if _, err := s.recorder.Record(ctx, record.OpDelete, identity); err != nil {
		return fmt.Errorf("remove %s: %w", identity, err)
	}
	return nil
}
