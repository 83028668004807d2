package record

import (
	"errors"
	"fmt"
)

// ErrInvalidIdentity is returned when a reference yields no usable
// (table, record) pair. Callers should surface it before touching the log.
var ErrInvalidIdentity = errors.New("invalid record identity")

// Derive resolves a record reference to its canonical Identity.
//
// Accepted shapes form a closed set:
//   - Identity: returned as-is (must be complete)
//   - Entry / *Entry: content entries only; boundary entries carry no identity
//   - Row / *Row: a stored record
//   - [2]string: raw {table, id} pair, normalized
//
// Anything else fails with ErrInvalidIdentity. All public entry points that
// accept a reference rather than a raw identity resolve through here.
func Derive(ref any) (Identity, error) {
	switch v := ref.(type) {
	case Identity:
		if v.IsZero() {
			return Identity{}, fmt.Errorf("%w: incomplete pair %q/%q", ErrInvalidIdentity, v.Table, v.ID)
		}
		return v, nil
	case Entry:
		return identityFromEntry(v)
	case *Entry:
		if v == nil {
			return Identity{}, fmt.Errorf("%w: nil entry", ErrInvalidIdentity)
		}
		return identityFromEntry(*v)
	case Row:
		return Derive(v.Identity)
	case *Row:
		if v == nil {
			return Identity{}, fmt.Errorf("%w: nil row", ErrInvalidIdentity)
		}
		return Derive(v.Identity)
	case [2]string:
		id := NewIdentity(v[0], v[1])
		if id.IsZero() {
			return Identity{}, fmt.Errorf("%w: incomplete pair %q/%q", ErrInvalidIdentity, v[0], v[1])
		}
		return id, nil
	default:
		return Identity{}, fmt.Errorf("%w: unsupported reference %T", ErrInvalidIdentity, ref)
	}
}

func identityFromEntry(e Entry) (Identity, error) {
	if !e.Op.Content() {
		return Identity{}, fmt.Errorf("%w: %s entry carries no record identity", ErrInvalidIdentity, e.Op)
	}
	if e.Identity.IsZero() {
		return Identity{}, fmt.Errorf("%w: content entry #%d missing identity", ErrInvalidIdentity, e.Seq)
	}
	return e.Identity, nil
}
