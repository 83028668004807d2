package oplog

import (
	"context"

	"github.com/roach88/stagesync/internal/record"
)

// Commit is a handle to a logical group of operations delimited by a
// START/END pair sharing one commit id.
//
// The handle does not cache membership: cleanup elsewhere may delete member
// entries at any time, so Entries re-reads the live set from the log.
// A commit may legitimately have zero members.
type Commit struct {
	log *Log
	id  string
}

// ID returns the commit identifier.
func (c *Commit) ID() string {
	return c.id
}

// Entries returns the content entries currently tagged with this commit's
// id, in sequence order. The set shrinks as the synchronizer consumes them.
func (c *Commit) Entries(ctx context.Context) ([]record.Entry, error) {
	return c.log.MemberEntries(ctx, c.id)
}

// Open reports whether the commit has a START entry with no matching END.
func (c *Commit) Open(ctx context.Context) (bool, error) {
	entries, err := c.log.EntriesForCommit(ctx, c.id)
	if err != nil {
		return false, err
	}
	var started, ended bool
	for _, e := range entries {
		switch e.Op {
		case record.OpStart:
			started = true
		case record.OpEnd:
			ended = true
		}
	}
	return started && !ended, nil
}
