package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/parityguard/internal/common"
)

// SystemHandler serves the liveness and version endpoints, grounded on the
// teacher's APIHandler.
type SystemHandler struct{}

func NewSystemHandler() *SystemHandler {
	return &SystemHandler{}
}

// HealthHandler handles GET /health.
func (h *SystemHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// VersionHandler handles GET /api/version.
func (h *SystemHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version":   common.GetVersion(),
		"buildTime": common.BuildTime,
		"gitCommit": common.GitCommit,
	})
}
