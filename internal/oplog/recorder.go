package oplog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/stagesync/internal/record"
)

// Recorder is the instrumentation entry point for the operation log.
//
// Every content mutation on the staging store must go through Record before
// control returns to the caller, so the log observes mutations in the order
// they happen. Record tags each entry with the innermost open commit's id,
// or leaves it uncontained when no commit is open.
//
// Thread-safety model:
//   - Record: safe from any goroutine
//   - Capture: one logical thread of control per recorder; an inner Capture
//     from inside work nests, a concurrent Capture from another goroutine
//     would interleave boundary entries and is not supported
type Recorder struct {
	log *Log
	gen IDGenerator

	mu   sync.Mutex
	open []string // stack of open commit ids, innermost last
}

// NewRecorder creates a recorder over the given log.
// A nil generator defaults to UUIDv7Generator.
func NewRecorder(log *Log, gen IDGenerator) *Recorder {
	if gen == nil {
		gen = UUIDv7Generator{}
	}
	return &Recorder{log: log, gen: gen}
}

// Log returns the underlying operation log.
func (r *Recorder) Log() *Log {
	return r.log
}

// Record appends a content entry for the given mutation, tagged with the
// currently open commit id if any.
func (r *Recorder) Record(ctx context.Context, op record.Op, ref any) (record.Entry, error) {
	if !op.Content() {
		return record.Entry{}, fmt.Errorf("record: %s is not a content op", op)
	}
	identity, err := record.Derive(ref)
	if err != nil {
		return record.Entry{}, fmt.Errorf("record %s: %w", op, err)
	}

	entry, err := r.log.Append(ctx, op, r.currentCommit(), identity)
	if err != nil {
		return record.Entry{}, err
	}
	slog.Debug("mutation recorded", "seq", entry.Seq, "op", string(op), "record", identity.String(), "commit", entry.CommitID)
	return entry, nil
}

// Capture brackets work in a commit: it appends a START entry with a freshly
// generated commit id, runs work, and appends the matching END entry on all
// exit paths, panics included. Content entries recorded while work runs are
// tagged with this commit's id.
//
// Nested Capture calls open their own commit; entries recorded between the
// outer START and the inner START carry the outer id, entries recorded while
// the inner commit is open carry the inner id.
//
// The returned handle stays valid after cleanup elsewhere deletes member
// entries; Commit.Entries re-reads the live set.
func (r *Recorder) Capture(ctx context.Context, work func(context.Context) error) (*Commit, error) {
	if work == nil {
		return nil, fmt.Errorf("capture: work is required")
	}

	id := r.gen.Generate()
	if _, err := r.log.Append(ctx, record.OpStart, id, record.Identity{}); err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	r.push(id)
	slog.Debug("commit opened", "commit", id)

	commit := &Commit{log: r.log, id: id}

	var workErr, closeErr error
	func() {
		// END must be written even when work panics, otherwise the commit
		// stays open forever and stalls the batch sync frontier.
		defer func() {
			r.pop(id)
			if _, err := r.log.Append(ctx, record.OpEnd, id, record.Identity{}); err != nil {
				closeErr = fmt.Errorf("capture: close commit %s: %w", id, err)
				return
			}
			slog.Debug("commit closed", "commit", id)
		}()
		workErr = work(ctx)
	}()

	return commit, errors.Join(workErr, closeErr)
}

func (r *Recorder) currentCommit() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.open) == 0 {
		return ""
	}
	return r.open[len(r.open)-1]
}

func (r *Recorder) push(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.open = append(r.open, id)
}

// pop removes the innermost occurrence of id from the open stack.
// Tolerates out-of-order unwinds so a panic escaping several nested captures
// still leaves the stack consistent.
func (r *Recorder) pop(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.open) - 1; i >= 0; i-- {
		if r.open[i] == id {
			r.open = append(r.open[:i], r.open[i+1:]...)
			return
		}
	}
}
