package oplog

import (
	"path/filepath"
	"testing"

	"github.com/roach88/stagesync/internal/record"
)

// createTestLog creates a fresh log in a temp directory.
func createTestLog(t *testing.T) *Log {
	t.Helper()
	path := filepath.Join(t.TempDir(), "oplog.db")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

// ident is shorthand for a normalized test identity.
func ident(table, id string) record.Identity {
	return record.NewIdentity(table, id)
}
