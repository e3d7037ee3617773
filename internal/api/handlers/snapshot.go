package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/wonny/movers/internal/movers"
	"github.com/wonny/movers/internal/store"
	"github.com/wonny/movers/pkg/logger"
)

// SnapshotReader loads the latest stored snapshot
type SnapshotReader interface {
	LoadLast(ctx context.Context) (*movers.MarketSnapshot, error)
}

// SnapshotRunner produces a fresh snapshot on demand
type SnapshotRunner interface {
	Run(ctx context.Context) (*movers.RunResult, error)
}

// HistoryLister lists stored snapshots, newest first
type HistoryLister interface {
	History(ctx context.Context, limit int) ([]store.HistoryEntry, error)
}

// DefaultRefreshTimeout bounds an on-demand run; it stays under the server write timeout
const DefaultRefreshTimeout = 2 * time.Minute

// SnapshotHandler handles market movers API endpoints
// ⭐ SSOT: 스냅샷 API 핸들러는 이 구조체에서만
type SnapshotHandler struct {
	reader         SnapshotReader
	runner         SnapshotRunner
	history        HistoryLister
	logger         *logger.Logger
	refreshTimeout time.Duration
}

// NewSnapshotHandler creates a new snapshot handler. history may be nil.
func NewSnapshotHandler(reader SnapshotReader, runner SnapshotRunner, history HistoryLister, log *logger.Logger) *SnapshotHandler {
	return &SnapshotHandler{
		reader:         reader,
		runner:         runner,
		history:        history,
		logger:         log,
		refreshTimeout: DefaultRefreshTimeout,
	}
}

// WithRefreshTimeout overrides the on-demand run timeout
func (h *SnapshotHandler) WithRefreshTimeout(d time.Duration) *SnapshotHandler {
	h.refreshTimeout = d
	return h
}

// GetLatest returns the stored artifact as written
// GET /api/snapshot
func (h *SnapshotHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.reader.LoadLast(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load snapshot")
		respondError(w, http.StatusInternalServerError, "Failed to load snapshot")
		return
	}
	if snapshot == nil {
		respondError(w, http.StatusNotFound, "No snapshot stored yet")
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}

// RefreshResponse reports an on-demand run
type RefreshResponse struct {
	RunID    string                 `json:"run_id"`
	State    string                 `json:"state"`
	Error    string                 `json:"error,omitempty"`
	Rows     int                    `json:"rows"`
	Rejected int                    `json:"rejected"`
	Snapshot *movers.MarketSnapshot `json:"snapshot"`
}

// Refresh runs the pipeline once, detached from the client connection and
// bounded by refreshTimeout
// POST /api/snapshot/refresh
func (h *SnapshotHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.refreshTimeout)
	defer cancel()

	result, err := h.runner.Run(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Snapshot refresh failed")
		respondError(w, http.StatusInternalServerError, "Failed to store snapshot")
		return
	}

	resp := RefreshResponse{
		RunID:    result.RunID,
		State:    result.State.String(),
		Rows:     result.Rows,
		Rejected: result.Rejected,
		Snapshot: result.Snapshot,
	}
	if result.Err != nil {
		resp.Error = result.Err.Error()
	}

	respondJSON(w, http.StatusOK, resp)
}

// GetHistory lists recent snapshots
// GET /api/snapshot/history?limit=20
func (h *SnapshotHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, http.StatusNotFound, "Snapshot history is not configured")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			respondError(w, http.StatusBadRequest, "Invalid 'limit' (expected 1-500)")
			return
		}
		limit = n
	}

	entries, err := h.history.History(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list snapshot history")
		respondError(w, http.StatusInternalServerError, "Failed to list snapshot history")
		return
	}
	if entries == nil {
		entries = []store.HistoryEntry{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(entries),
		"entries": entries,
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
