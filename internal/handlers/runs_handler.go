package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/parityguard/internal/storage"
)

// RunHandler serves the read-only Run and RunArtifact surface; runs are
// only ever created through JobHandler.triggerRunHandler.
type RunHandler struct {
	store  *storage.Store
	logger arbor.ILogger
}

func NewRunHandler(store *storage.Store, logger arbor.ILogger) *RunHandler {
	return &RunHandler{store: store, logger: logger}
}

// ListRunsHandler handles GET /api/runs.
func (h *RunHandler) ListRunsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	WriteJSON(w, http.StatusOK, h.store.ListRuns())
}

// HandleRunsRoutes dispatches /api/runs/{id} and /api/runs/{id}/artifacts.
func (h *RunHandler) HandleRunsRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	const prefix = "/api/runs/"
	suffix := strings.TrimPrefix(r.URL.Path, prefix)

	if strings.HasSuffix(suffix, "/artifacts") {
		id := strings.TrimSuffix(suffix, "/artifacts")
		WriteJSON(w, http.StatusOK, h.store.ListArtifacts(id))
		return
	}

	run, err := h.store.GetRun(suffix)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, run)
}
