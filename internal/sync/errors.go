package sync

import (
	"errors"
	"fmt"

	"github.com/roach88/stagesync/internal/record"
)

// ErrSyncBlockRequired is returned by SyncNow when called without a block of
// work to execute. Surfaced before any log or production interaction.
var ErrSyncBlockRequired = errors.New("sync block required")

// ApplyError reports a production I/O failure while replaying one identity.
// The identity's log entries are retained so the next sync pass retries it.
type ApplyError struct {
	Identity record.Identity
	Err      error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply %s: %v", e.Identity, e.Err)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}
