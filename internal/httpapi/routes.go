// Package httpapi exposes the synchronization engine as a minimal JSON
// service: batch sync, single-record sync, and status lookup.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/roach88/stagesync/internal/record"
	"github.com/roach88/stagesync/internal/sync"
)

type jsonResponse map[string]any

type errorResponse struct {
	Error string `json:"error"`
}

// Server serves the sync API over a Synchronizer.
type Server struct {
	syncer *sync.Synchronizer
}

// NewServer creates a Server.
func NewServer(syncer *sync.Synchronizer) *Server {
	return &Server{syncer: syncer}
}

// RegisterRoutes attaches all handlers to the mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/sync", s.handleSync)
	mux.HandleFunc("/sync/record", s.handleSyncRecord)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/healthz", handleHealthz)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	count, err := s.syncer.Sync(r.Context())
	if err != nil {
		slog.Error("batch sync failed", "synchronized", count, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"synchronized": count})
}

func (s *Server) handleSyncRecord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var payload struct {
		TableName string `json:"table_name"`
		RecordID  string `json:"record_id"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	identity, err := record.Derive([2]string{payload.TableName, payload.RecordID})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	count, err := s.syncer.SyncRecord(r.Context(), identity)
	if err != nil {
		slog.Error("record sync failed", "record", identity.String(), "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"synchronized": count})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	identity, err := record.Derive([2]string{
		r.URL.Query().Get("table"),
		r.URL.Query().Get("id"),
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	status, err := s.syncer.Resolver().Status(r.Context(), identity)
	if err != nil {
		if errors.Is(err, record.ErrInvalidIdentity) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{
		"table_name": identity.Table,
		"record_id":  identity.ID,
		"status":     status.String(),
	})
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(payload)
}
