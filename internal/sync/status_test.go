package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stagesync/internal/record"
)

func TestStatus_NewWhenAbsentEverywhere(t *testing.T) {
	e := newEnv(t)

	status := e.status(t, record.NewIdentity("articles", "missing"))
	assert.Equal(t, record.StatusNew, status)
}

func TestStatus_NewWhenOnlyStaged(t *testing.T) {
	e := newEnv(t)

	identity := e.save(t, "articles", "1", map[string]any{"title": "draft"})
	assert.Equal(t, record.StatusNew, e.status(t, identity))
}

func TestStatus_NotModifiedAfterReplication(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	identity := e.save(t, "articles", "1", map[string]any{"title": "v1"})
	row, err := e.staging.Lookup(ctx, identity)
	require.NoError(t, err)
	require.NoError(t, e.production.Upsert(ctx, *row))

	assert.Equal(t, record.StatusNotModified, e.status(t, identity))
}

func TestStatus_ModifiedWhenStagingNewer(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	identity := e.save(t, "articles", "1", map[string]any{"title": "v1"})
	row, err := e.staging.Lookup(ctx, identity)
	require.NoError(t, err)
	require.NoError(t, e.production.Upsert(ctx, *row))

	e.save(t, "articles", "1", map[string]any{"title": "v2"})
	assert.Equal(t, record.StatusModified, e.status(t, identity))
}

func TestStatus_ModifiedWhenStagingDeleted(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	identity := e.save(t, "articles", "1", map[string]any{"title": "v1"})
	row, err := e.staging.Lookup(ctx, identity)
	require.NoError(t, err)
	require.NoError(t, e.production.Upsert(ctx, *row))

	e.remove(t, identity)
	assert.Equal(t, record.StatusModified, e.status(t, identity))
}

func TestStatus_InvalidReference(t *testing.T) {
	e := newEnv(t)

	_, err := e.syncer.Resolver().Status(context.Background(), 42)
	assert.ErrorIs(t, err, record.ErrInvalidIdentity)
}
