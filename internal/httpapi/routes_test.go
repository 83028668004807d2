package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stagesync/internal/oplog"
	"github.com/roach88/stagesync/internal/record"
	"github.com/roach88/stagesync/internal/recordstore"
	"github.com/roach88/stagesync/internal/sync"
)

type testAPI struct {
	staging *recordstore.Staging
	handler http.Handler
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	dir := t.TempDir()

	log, err := oplog.Open(filepath.Join(dir, "oplog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	stagingStore, err := recordstore.Open(filepath.Join(dir, "staging.db"))
	require.NoError(t, err)
	t.Cleanup(func() { stagingStore.Close() })

	production, err := recordstore.Open(filepath.Join(dir, "production.db"))
	require.NoError(t, err)
	t.Cleanup(func() { production.Close() })

	staging := recordstore.NewStaging(stagingStore, oplog.NewRecorder(log, nil))
	mux := http.NewServeMux()
	NewServer(sync.New(log, staging, production)).RegisterRoutes(mux)

	return &testAPI{staging: staging, handler: mux}
}

func (a *testAPI) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandleSync(t *testing.T) {
	api := newTestAPI(t)
	ctx := context.Background()

	require.NoError(t, api.staging.Save(ctx, record.NewIdentity("articles", "1"), map[string]any{"title": "v1"}))
	require.NoError(t, api.staging.Save(ctx, record.NewIdentity("articles", "2"), map[string]any{"title": "v2"}))

	rec := api.do(t, http.MethodPost, "/sync", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decodeBody(t, rec)["synchronized"])

	// Idempotent: nothing left to do.
	rec = api.do(t, http.MethodPost, "/sync", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), decodeBody(t, rec)["synchronized"])
}

func TestHandleSync_MethodGuard(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/sync", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleSyncRecord(t *testing.T) {
	api := newTestAPI(t)
	ctx := context.Background()

	require.NoError(t, api.staging.Save(ctx, record.NewIdentity("articles", "1"), map[string]any{"title": "v1"}))

	rec := api.do(t, http.MethodPost, "/sync/record", map[string]string{
		"table_name": "articles",
		"record_id":  "1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decodeBody(t, rec)["synchronized"])
}

func TestHandleSyncRecord_BadInput(t *testing.T) {
	api := newTestAPI(t)

	// Missing record_id.
	rec := api.do(t, http.MethodPost, "/sync/record", map[string]string{"table_name": "articles"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown field rejected by the strict decoder.
	rec = api.do(t, http.MethodPost, "/sync/record", map[string]string{"table": "articles", "id": "1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleStatus(t *testing.T) {
	api := newTestAPI(t)
	ctx := context.Background()

	require.NoError(t, api.staging.Save(ctx, record.NewIdentity("articles", "1"), map[string]any{"title": "v1"}))

	rec := api.do(t, http.MethodGet, "/status?table=articles&id=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "NEW", decodeBody(t, rec)["status"])

	api.do(t, http.MethodPost, "/sync", nil)

	rec = api.do(t, http.MethodGet, "/status?table=articles&id=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "NOT_MODIFIED", decodeBody(t, rec)["status"])
}

func TestHandleStatus_BadInput(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/status?table=articles", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHealthz(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}
