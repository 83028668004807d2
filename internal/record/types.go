package record

import (
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// Identity is the canonical (table, record) key used to correlate staging
// content, production content, and log entries. Both components are NFC
// normalized at construction so that the same logical record always produces
// byte-identical keys regardless of how the caller composed the strings.
type Identity struct {
	Table string
	ID    string
}

// NewIdentity builds an Identity with NFC-normalized components.
func NewIdentity(table, id string) Identity {
	return Identity{
		Table: norm.NFC.String(table),
		ID:    norm.NFC.String(id),
	}
}

// IsZero reports whether the identity is missing either component.
// A partial identity never names a record.
func (i Identity) IsZero() bool {
	return i.Table == "" || i.ID == ""
}

// String returns "table/id" for logs and error messages.
func (i Identity) String() string {
	return i.Table + "/" + i.ID
}

// Op is the kind of a log entry.
//
// START/END are boundary ops delimiting a commit; INSERT/UPDATE/DELETE are
// content ops recording a mutation of a specific record.
type Op string

const (
	OpStart  Op = "START"
	OpEnd    Op = "END"
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// Content reports whether the op records a record mutation.
func (o Op) Content() bool {
	return o == OpInsert || o == OpUpdate || o == OpDelete
}

// Boundary reports whether the op delimits a commit.
func (o Op) Boundary() bool {
	return o == OpStart || o == OpEnd
}

// Valid reports whether the op is one of the five known kinds.
func (o Op) Valid() bool {
	return o.Content() || o.Boundary()
}

// Entry is a single operation-log entry.
//
// Seq is assigned by the log on append and defines the global total order;
// it is never reused, even after entries are deleted. CommitID is empty for
// uncontained entries. Identity is zero for boundary entries.
//
// Invariant: Op.Content() implies !Identity.IsZero(); Op.Boundary() implies
// Identity.IsZero() and CommitID != "".
type Entry struct {
	Seq      int64
	Op       Op
	CommitID string
	Identity Identity
}

// Uncontained reports whether the entry was logged outside any commit.
func (e Entry) Uncontained() bool {
	return e.CommitID == ""
}

// String renders the entry for logs and debugging output.
func (e Entry) String() string {
	switch {
	case e.Op.Boundary():
		return fmt.Sprintf("#%d %s commit=%s", e.Seq, e.Op, e.CommitID)
	case e.CommitID != "":
		return fmt.Sprintf("#%d %s %s commit=%s", e.Seq, e.Op, e.Identity, e.CommitID)
	default:
		return fmt.Sprintf("#%d %s %s", e.Seq, e.Op, e.Identity)
	}
}

// Row is a stored record representation: its identity, its attributes, and
// the revision marker bumped on every staging save. The revision is the
// freshness signal the status resolver compares across stores.
type Row struct {
	Identity Identity
	Attrs    map[string]any
	Revision int64
}

// Status classifies the relationship between a record's staging and
// production representations. It is derived at read time, never stored.
type Status int

const (
	// StatusNew means production holds no record for the identity.
	//
	// Note: a staging record that was deleted and whose production
	// counterpart was removed by a prior sync also resolves to StatusNew.
	// Existence-in-production is the discriminant; there is no tombstone
	// state.
	StatusNew Status = iota

	// StatusModified means production holds a record that disagrees with
	// staging's current representation (staging is strictly newer, or the
	// staging record is gone).
	StatusModified

	// StatusNotModified means production's representation matches staging's.
	StatusNotModified
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusNew:
		return "NEW"
	case StatusModified:
		return "MODIFIED"
	case StatusNotModified:
		return "NOT_MODIFIED"
	default:
		return "unknown"
	}
}
