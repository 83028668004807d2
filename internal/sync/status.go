package sync

import (
	"context"
	"fmt"

	"github.com/roach88/stagesync/internal/record"
)

// Staging is the store receiving ordinary application writes.
// Lookup returns nil when the record is absent (deleted or never created).
type Staging interface {
	Lookup(ctx context.Context, identity record.Identity) (*record.Row, error)
}

// Production is the store holding reconciled, replicated content.
// Lookup returns nil when absent; Delete of an absent record is a no-op.
type Production interface {
	Lookup(ctx context.Context, identity record.Identity) (*record.Row, error)
	Upsert(ctx context.Context, row record.Row) error
	Delete(ctx context.Context, identity record.Identity) error
}

// Resolver classifies the relationship between a record's staging and
// production representations. Pure read; no side effects.
type Resolver struct {
	staging    Staging
	production Production
}

// NewResolver creates a resolver over the two stores.
func NewResolver(staging Staging, production Production) *Resolver {
	return &Resolver{staging: staging, production: production}
}

// Status resolves the sync status for a record reference.
//
// Production absent resolves to StatusNew regardless of staging state, which
// deliberately conflates "never synced" with "deleted then synced". When
// production holds a copy, any disagreement with staging (strictly newer
// revision, or the staging record gone) is StatusModified.
func (r *Resolver) Status(ctx context.Context, ref any) (record.Status, error) {
	identity, err := record.Derive(ref)
	if err != nil {
		return 0, err
	}

	prod, err := r.production.Lookup(ctx, identity)
	if err != nil {
		return 0, fmt.Errorf("status %s: production lookup: %w", identity, err)
	}
	if prod == nil {
		return record.StatusNew, nil
	}

	staged, err := r.staging.Lookup(ctx, identity)
	if err != nil {
		return 0, fmt.Errorf("status %s: staging lookup: %w", identity, err)
	}
	if staged == nil || staged.Revision > prod.Revision {
		return record.StatusModified, nil
	}
	return record.StatusNotModified, nil
}
