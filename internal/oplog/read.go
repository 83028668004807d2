package oplog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/stagesync/internal/record"
)

const entryColumns = "seq, op, commit_id, table_name, record_id"

// Matching returns all content entries for the given identity in sequence
// order, regardless of commit membership.
func (l *Log) Matching(ctx context.Context, identity record.Identity) ([]record.Entry, error) {
	return l.queryEntries(ctx, `
		SELECT `+entryColumns+` FROM entries
		WHERE table_name = ? AND record_id = ?
		ORDER BY seq ASC
	`, identity.Table, identity.ID)
}

// Entries returns every entry in the log in sequence order.
// Diagnostic surface for the CLI; the synchronizer uses the narrower queries.
func (l *Log) Entries(ctx context.Context) ([]record.Entry, error) {
	return l.queryEntries(ctx, `
		SELECT `+entryColumns+` FROM entries ORDER BY seq ASC
	`)
}

// EarliestOpenCommitSeq returns the sequence number of the oldest START
// entry lacking a matching END. ok is false when no commit is open.
func (l *Log) EarliestOpenCommitSeq(ctx context.Context) (seq int64, ok bool, err error) {
	err = l.db.QueryRowContext(ctx, `
		SELECT s.seq FROM entries s
		WHERE s.op = 'START'
		  AND NOT EXISTS (
			SELECT 1 FROM entries e
			WHERE e.op = 'END' AND e.commit_id = s.commit_id
		  )
		ORDER BY s.seq ASC
		LIMIT 1
	`).Scan(&seq)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("earliest open commit: %w", err)
	}
	return seq, true, nil
}

// TailSeq returns the highest sequence number ever assigned.
// Zero means the log has never held an entry. Because seqs are never reused,
// the tail is a stable high-water mark even after deletions.
func (l *Log) TailSeq(ctx context.Context) (int64, error) {
	// AUTOINCREMENT tracks the high-water mark in sqlite_sequence, which
	// survives deletion of the newest rows.
	var seq int64
	err := l.db.QueryRowContext(ctx, `
		SELECT COALESCE(
			(SELECT seq FROM sqlite_sequence WHERE name = 'entries'),
			(SELECT COALESCE(MAX(seq), 0) FROM entries)
		)
	`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("tail seq: %w", err)
	}
	return seq, nil
}

// UncontainedBefore returns content entries with no commit id and sequence
// strictly below frontier, in sequence order.
func (l *Log) UncontainedBefore(ctx context.Context, frontier int64) ([]record.Entry, error) {
	return l.queryEntries(ctx, `
		SELECT `+entryColumns+` FROM entries
		WHERE commit_id IS NULL AND seq < ?
		ORDER BY seq ASC
	`, frontier)
}

// UncontainedAfter returns content entries with no commit id and sequence
// strictly above seq, in sequence order.
func (l *Log) UncontainedAfter(ctx context.Context, seq int64) ([]record.Entry, error) {
	return l.queryEntries(ctx, `
		SELECT `+entryColumns+` FROM entries
		WHERE commit_id IS NULL AND seq > ?
		ORDER BY seq ASC
	`, seq)
}

// EntriesForCommit returns every entry tagged with the commit id, boundary
// entries included, in sequence order.
func (l *Log) EntriesForCommit(ctx context.Context, commitID string) ([]record.Entry, error) {
	return l.queryEntries(ctx, `
		SELECT `+entryColumns+` FROM entries
		WHERE commit_id = ?
		ORDER BY seq ASC
	`, commitID)
}

// MemberEntries returns the commit's content entries only, in sequence order.
func (l *Log) MemberEntries(ctx context.Context, commitID string) ([]record.Entry, error) {
	return l.queryEntries(ctx, `
		SELECT `+entryColumns+` FROM entries
		WHERE commit_id = ? AND op NOT IN ('START', 'END')
		ORDER BY seq ASC
	`, commitID)
}

// CommitIDsFor returns the distinct commit ids referenced by the identity's
// content entries, ordered by first appearance in the log.
func (l *Log) CommitIDsFor(ctx context.Context, identity record.Identity) ([]string, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT commit_id FROM entries
		WHERE table_name = ? AND record_id = ? AND commit_id IS NOT NULL
		GROUP BY commit_id
		ORDER BY MIN(seq) ASC
	`, identity.Table, identity.ID)
	if err != nil {
		return nil, fmt.Errorf("commit ids for %s: %w", identity, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan commit id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commit ids: %w", err)
	}
	return ids, nil
}

// IdentitiesForCommit returns the distinct record identities referenced by
// the commit's content entries, ordered by first appearance in the log.
func (l *Log) IdentitiesForCommit(ctx context.Context, commitID string) ([]record.Identity, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT table_name, record_id FROM entries
		WHERE commit_id = ? AND op NOT IN ('START', 'END')
		GROUP BY table_name, record_id
		ORDER BY MIN(seq) ASC
	`, commitID)
	if err != nil {
		return nil, fmt.Errorf("identities for commit %s: %w", commitID, err)
	}
	defer rows.Close()

	var identities []record.Identity
	for rows.Next() {
		var table, id string
		if err := rows.Scan(&table, &id); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		identities = append(identities, record.Identity{Table: table, ID: id})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return identities, nil
}

func (l *Log) queryEntries(ctx context.Context, query string, args ...any) ([]record.Entry, error) {
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []record.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

func scanEntry(rows *sql.Rows) (record.Entry, error) {
	var (
		e      record.Entry
		op     string
		commit sql.NullString
		table  sql.NullString
		id     sql.NullString
	)
	if err := rows.Scan(&e.Seq, &op, &commit, &table, &id); err != nil {
		return record.Entry{}, fmt.Errorf("scan entry: %w", err)
	}
	e.Op = record.Op(op)
	if commit.Valid {
		e.CommitID = commit.String
	}
	if table.Valid && id.Valid {
		e.Identity = record.Identity{Table: table.String, ID: id.String}
	}
	return e, nil
}
