// Package recordstore provides SQLite-backed record stores for the staging
// and production sides. Both sides share one schema; the staging store
// additionally records every mutation into the operation log before
// returning control to the caller.
package recordstore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/stagesync/internal/record"
)

//go:embed schema.sql
var schemaSQL string

// Store is a plain record store. It satisfies the synchronizer's Production
// interface; wrap it in a Staging store to get recorded mutations.
type Store struct {
	db *sql.DB
}

// Open creates or opens a record database at the given path.
// Applies the same pragma discipline as the operation log; idempotent.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open record database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to record database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Lookup returns the stored row for the identity, or nil when absent.
func (s *Store) Lookup(ctx context.Context, identity record.Identity) (*record.Row, error) {
	var (
		attrsJSON string
		revision  int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT attrs, revision FROM records
		WHERE table_name = ? AND record_id = ?
	`, identity.Table, identity.ID).Scan(&attrsJSON, &revision)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", identity, err)
	}

	var attrs map[string]any
	if err := json.Unmarshal([]byte(attrsJSON), &attrs); err != nil {
		return nil, fmt.Errorf("lookup %s: decode attrs: %w", identity, err)
	}

	return &record.Row{Identity: identity, Attrs: attrs, Revision: revision}, nil
}

// Upsert stores the row exactly as given, revision included. The
// synchronizer uses this to replicate a staging row verbatim so the
// resolver's freshness comparison sees the two sides as equal afterwards.
func (s *Store) Upsert(ctx context.Context, row record.Row) error {
	if row.Identity.IsZero() {
		return fmt.Errorf("upsert: %w", record.ErrInvalidIdentity)
	}

	attrsJSON, err := json.Marshal(row.Attrs)
	if err != nil {
		return fmt.Errorf("upsert %s: encode attrs: %w", row.Identity, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (table_name, record_id, attrs, revision)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(table_name, record_id) DO UPDATE SET
			attrs = excluded.attrs,
			revision = excluded.revision
	`, row.Identity.Table, row.Identity.ID, string(attrsJSON), row.Revision)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", row.Identity, err)
	}
	return nil
}

// Delete removes the row for the identity. Deleting an absent row is a
// no-op, which keeps sync replay idempotent.
func (s *Store) Delete(ctx context.Context, identity record.Identity) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM records WHERE table_name = ? AND record_id = ?
	`, identity.Table, identity.ID)
	if err != nil {
		return fmt.Errorf("delete %s: %w", identity, err)
	}
	return nil
}
