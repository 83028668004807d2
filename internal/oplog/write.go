package oplog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/stagesync/internal/record"
)

// Append inserts an entry and assigns it the next sequence number.
// Content entries may reference an open commit's id; boundary entries must.
// Returns the stored entry with its assigned Seq.
func (l *Log) Append(ctx context.Context, op record.Op, commitID string, identity record.Identity) (record.Entry, error) {
	if !op.Valid() {
		return record.Entry{}, fmt.Errorf("append: unknown op %q", op)
	}
	if op.Content() && identity.IsZero() {
		return record.Entry{}, fmt.Errorf("append: %s entry requires a record identity", op)
	}
	if op.Boundary() {
		if commitID == "" {
			return record.Entry{}, fmt.Errorf("append: %s entry requires a commit id", op)
		}
		if !identity.IsZero() {
			return record.Entry{}, fmt.Errorf("append: %s entry must not carry an identity", op)
		}
	}

	var commitCol, tableCol, idCol sql.NullString
	if commitID != "" {
		commitCol = sql.NullString{String: commitID, Valid: true}
	}
	if op.Content() {
		tableCol = sql.NullString{String: identity.Table, Valid: true}
		idCol = sql.NullString{String: identity.ID, Valid: true}
	}

	res, err := l.db.ExecContext(ctx, `
		INSERT INTO entries (op, commit_id, table_name, record_id)
		VALUES (?, ?, ?, ?)
	`, string(op), commitCol, tableCol, idCol)
	if err != nil {
		return record.Entry{}, fmt.Errorf("append entry: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return record.Entry{}, fmt.Errorf("append entry: read seq: %w", err)
	}

	return record.Entry{Seq: seq, Op: op, CommitID: commitID, Identity: identity}, nil
}

// DeleteEntries removes the given entries from the log in one transaction.
// Entries are matched by seq; seqs no longer present are ignored, which keeps
// re-running a partially applied cleanup safe.
func (l *Log) DeleteEntries(ctx context.Context, entries []record.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	seqs := make(map[int64]struct{}, len(entries))
	for _, e := range entries {
		seqs[e.Seq] = struct{}{}
	}

	placeholders := make([]string, 0, len(seqs))
	args := make([]any, 0, len(seqs))
	for seq := range seqs {
		placeholders = append(placeholders, "?")
		args = append(args, seq)
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete entries: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	query := fmt.Sprintf("DELETE FROM entries WHERE seq IN (%s)", strings.Join(placeholders, ", "))
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete entries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete entries: commit: %w", err)
	}
	return nil
}
