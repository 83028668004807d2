package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/stagesync/internal/oplog"
	"github.com/roach88/stagesync/internal/record"
)

// Synchronizer replays logged mutations from the staging store to the
// production store and consumes the log entries it resolved.
type Synchronizer struct {
	log        *oplog.Log
	staging    Staging
	production Production
	resolver   *Resolver
}

// New creates a Synchronizer over the operation log and the two stores.
func New(log *oplog.Log, staging Staging, production Production) *Synchronizer {
	return &Synchronizer{
		log:        log,
		staging:    staging,
		production: production,
		resolver:   NewResolver(staging, production),
	}
}

// Resolver returns the status resolver bound to the same stores.
func (s *Synchronizer) Resolver() *Resolver {
	return s.resolver
}

// SyncRecord replays one record to production, then tears down the
// bookkeeping of every commit in the record's closure.
//
// The most recent matching entry decides the effective operation: DELETE
// removes the production record, INSERT/UPDATE upserts staging's current
// attributes (read at apply time; the log records that a mutation happened,
// not its content). With no matching entries the record is reconciled by
// status alone.
//
// Entries of other records inside the closed-over commits are discarded as
// bookkeeping only; their production state is untouched. Resolving this
// record individually invalidates the grouping guarantee for the whole
// connected component, so the group's tracking is torn down rather than
// partially honored.
//
// Fail-fast: on a production I/O failure nothing is deleted, so the next
// pass retries. Returns the number of production records mutated (at most 1).
func (s *Synchronizer) SyncRecord(ctx context.Context, ref any) (int, error) {
	identity, err := record.Derive(ref)
	if err != nil {
		return 0, err
	}

	entries, err := s.log.Matching(ctx, identity)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return s.reconcileByStatus(ctx, identity)
	}

	if err := s.apply(ctx, identity, entries[len(entries)-1].Op); err != nil {
		return 0, &ApplyError{Identity: identity, Err: err}
	}

	commits, err := commitClosure(ctx, s.log, identity)
	if err != nil {
		return 0, err
	}

	doomed := make([]record.Entry, len(entries))
	copy(doomed, entries)
	for _, commitID := range commits {
		commitEntries, err := s.log.EntriesForCommit(ctx, commitID)
		if err != nil {
			return 0, err
		}
		doomed = append(doomed, commitEntries...)
	}

	if err := s.log.DeleteEntries(ctx, doomed); err != nil {
		return 0, err
	}

	slog.Info("record synchronized",
		"record", identity.String(),
		"effective", string(entries[len(entries)-1].Op),
		"commits_cleared", len(commits),
		"entries_cleared", len(doomed))
	return 1, nil
}

// Sync replays every uncontained entry below the safe frontier.
//
// The frontier is the earliest open commit's START sequence; when no commit
// is open it sits past the end of the log. Entries at or after an open
// commit's START are withheld even when uncontained.
//
// Continue-on-error: a failed identity keeps its entries for the next pass
// and does not block unrelated records. Returns the count of records
// synchronized plus the joined failures, if any.
func (s *Synchronizer) Sync(ctx context.Context) (int, error) {
	frontier, open, err := s.log.EarliestOpenCommitSeq(ctx)
	if err != nil {
		return 0, err
	}
	if !open {
		tail, err := s.log.TailSeq(ctx)
		if err != nil {
			return 0, err
		}
		frontier = tail + 1
	}

	entries, err := s.log.UncontainedBefore(ctx, frontier)
	if err != nil {
		return 0, err
	}

	slog.Debug("batch sync selected", "frontier", frontier, "open_commit", open, "entries", len(entries))
	return s.replay(ctx, entries)
}

// SyncNow executes work and synchronizes exactly the uncontained mutations
// it produced. Entries tagged with any commit id, and entries already in the
// log before work ran, are never touched, even when interleaved in sequence
// with the block's own.
//
// Fails with ErrSyncBlockRequired before any side effect when work is nil.
// A work error aborts the sync; the block's entries stay in the log for a
// later batch pass.
func (s *Synchronizer) SyncNow(ctx context.Context, work func(context.Context) error) (int, error) {
	if work == nil {
		return 0, ErrSyncBlockRequired
	}

	before, err := s.log.TailSeq(ctx)
	if err != nil {
		return 0, err
	}

	if err := work(ctx); err != nil {
		return 0, fmt.Errorf("sync block: %w", err)
	}

	entries, err := s.log.UncontainedAfter(ctx, before)
	if err != nil {
		return 0, err
	}

	slog.Debug("sync-now selected", "after_seq", before, "entries", len(entries))
	return s.replay(ctx, entries)
}

// replay groups entries by identity, applies each identity's effective
// operation, and deletes the entries it consumed. Identities are processed
// in order of first appearance in the log.
func (s *Synchronizer) replay(ctx context.Context, entries []record.Entry) (int, error) {
	groups := make(map[record.Identity][]record.Entry)
	var order []record.Identity
	for _, e := range entries {
		if _, ok := groups[e.Identity]; !ok {
			order = append(order, e.Identity)
		}
		groups[e.Identity] = append(groups[e.Identity], e)
	}

	var (
		count    int
		consumed []record.Entry
		errs     []error
	)
	for _, identity := range order {
		group := groups[identity]
		effective := group[len(group)-1].Op
		if err := s.apply(ctx, identity, effective); err != nil {
			// Entries retained; the next pass retries this identity.
			errs = append(errs, &ApplyError{Identity: identity, Err: err})
			slog.Error("apply failed", "record", identity.String(), "error", err)
			continue
		}
		consumed = append(consumed, group...)
		count++
		slog.Debug("record applied", "record", identity.String(), "effective", string(effective))
	}

	if len(consumed) > 0 {
		if err := s.log.DeleteEntries(ctx, consumed); err != nil {
			errs = append(errs, err)
		}
	}

	if count > 0 {
		slog.Info("sync pass complete", "synchronized", count, "failed", len(errs))
	}
	return count, errors.Join(errs...)
}

// apply performs the effective operation for one identity against
// production. Staging attributes are read at apply time; a staging record
// that vanished since its last logged content op is treated as a delete.
func (s *Synchronizer) apply(ctx context.Context, identity record.Identity, effective record.Op) error {
	if effective == record.OpDelete {
		return s.production.Delete(ctx, identity)
	}

	staged, err := s.staging.Lookup(ctx, identity)
	if err != nil {
		return fmt.Errorf("staging lookup: %w", err)
	}
	if staged == nil {
		return s.production.Delete(ctx, identity)
	}
	return s.production.Upsert(ctx, *staged)
}

// reconcileByStatus handles SyncRecord for an identity with no log entries.
// A record can still need work (or nothing at all) based on status.
func (s *Synchronizer) reconcileByStatus(ctx context.Context, identity record.Identity) (int, error) {
	status, err := s.resolver.Status(ctx, identity)
	if err != nil {
		return 0, err
	}

	switch status {
	case record.StatusNotModified:
		return 0, nil
	case record.StatusNew:
		staged, err := s.staging.Lookup(ctx, identity)
		if err != nil {
			return 0, fmt.Errorf("staging lookup: %w", err)
		}
		if staged == nil {
			// Absent on both sides; nothing to reconcile.
			return 0, nil
		}
		if err := s.production.Upsert(ctx, *staged); err != nil {
			return 0, &ApplyError{Identity: identity, Err: err}
		}
	case record.StatusModified:
		staged, err := s.staging.Lookup(ctx, identity)
		if err != nil {
			return 0, fmt.Errorf("staging lookup: %w", err)
		}
		if staged == nil {
			if err := s.production.Delete(ctx, identity); err != nil {
				return 0, &ApplyError{Identity: identity, Err: err}
			}
		} else if err := s.production.Upsert(ctx, *staged); err != nil {
			return 0, &ApplyError{Identity: identity, Err: err}
		}
	}

	slog.Info("record reconciled by status", "record", identity.String(), "status", status.String())
	return 1, nil
}
