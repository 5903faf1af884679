package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/parityguard/internal/models"
	"github.com/ternarybob/parityguard/internal/orchestrator"
	"github.com/ternarybob/parityguard/internal/services/jobs"
	"github.com/ternarybob/parityguard/internal/storage"
)

// JobHandler serves the ComparisonJob CRUD and run-trigger surface.
type JobHandler struct {
	jobs         *jobs.Service
	store        *storage.Store
	orchestrator *orchestrator.Orchestrator
	logger       arbor.ILogger
}

func NewJobHandler(jobService *jobs.Service, store *storage.Store, orch *orchestrator.Orchestrator, logger arbor.ILogger) *JobHandler {
	return &JobHandler{jobs: jobService, store: store, orchestrator: orch, logger: logger}
}

// createJobRequest mirrors jobs.CreateInput for wire decoding.
type createJobRequest struct {
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	BaselineURL  string              `json:"baselineUrl"`
	CandidateURL string              `json:"candidateUrl"`
	CrawlConfig  *models.CrawlConfig `json:"crawlConfig"`
	PageMap      models.PageMap      `json:"pageMap"`
	TestMatrix   *models.TestMatrix  `json:"testMatrix"`
}

// updateJobRequest mirrors jobs.UpdateInput; every field is optional.
type updateJobRequest struct {
	Name         *string             `json:"name"`
	Description  *string             `json:"description"`
	BaselineURL  *string             `json:"baselineUrl"`
	CandidateURL *string             `json:"candidateUrl"`
	CrawlConfig  *models.CrawlConfig `json:"crawlConfig"`
	PageMap      *models.PageMap     `json:"pageMap"`
	TestMatrix   *models.TestMatrix  `json:"testMatrix"`
	Status       *models.JobStatus   `json:"status"`
}

// ListJobsHandler handles GET /api/jobs.
func (h *JobHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	WriteJSON(w, http.StatusOK, h.jobs.List())
}

// CreateJobHandler handles POST /api/jobs.
func (h *JobHandler) CreateJobHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createJobRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	job, err := h.jobs.Create(jobs.CreateInput{
		Name:         req.Name,
		Description:  req.Description,
		BaselineURL:  req.BaselineURL,
		CandidateURL: req.CandidateURL,
		CrawlConfig:  req.CrawlConfig,
		PageMap:      req.PageMap,
		TestMatrix:   req.TestMatrix,
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, job)
}

// HandleJobsCollection dispatches GET/POST on /api/jobs.
func (h *JobHandler) HandleJobsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.ListJobsHandler(w, r)
	case http.MethodPost:
		h.CreateJobHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleJobsRoutes dispatches every /api/jobs/... sub-path: migrate,
// {id}, {id}/run.
func (h *JobHandler) HandleJobsRoutes(w http.ResponseWriter, r *http.Request) {
	const prefix = "/api/jobs/"
	suffix := strings.TrimPrefix(r.URL.Path, prefix)

	switch {
	case suffix == "migrate":
		h.migrateHandler(w, r)
	case strings.HasSuffix(suffix, "/run"):
		id := strings.TrimSuffix(suffix, "/run")
		h.triggerRunHandler(w, r, id)
	default:
		h.jobItemHandler(w, r, suffix)
	}
}

func (h *JobHandler) jobItemHandler(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		job, err := h.jobs.Get(id)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, job)
	case http.MethodPut:
		var req updateJobRequest
		if err := DecodeJSON(r, &req); err != nil {
			WriteError(w, err)
			return
		}
		job, err := h.jobs.Update(id, jobs.UpdateInput{
			Name:         req.Name,
			Description:  req.Description,
			BaselineURL:  req.BaselineURL,
			CandidateURL: req.CandidateURL,
			CrawlConfig:  req.CrawlConfig,
			PageMap:      req.PageMap,
			TestMatrix:   req.TestMatrix,
			Status:       req.Status,
		})
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, job)
	case http.MethodDelete:
		if err := h.jobs.Delete(id); err != nil {
			WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// triggerRunHandler handles POST /api/jobs/{id}/run.
func (h *JobHandler) triggerRunHandler(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	triggeredBy := r.URL.Query().Get("triggeredBy")
	if triggeredBy == "" {
		triggeredBy = "api"
	}

	run, err := h.jobs.TriggerRun(id, triggeredBy)
	if err != nil {
		WriteError(w, err)
		return
	}

	h.orchestrator.TriggerRun(id, run.ID)
	WriteJSON(w, http.StatusAccepted, run)
}

// migrateHandler handles POST /api/jobs/migrate: re-applies the legacy
// snapshot migration and reports how many entries it touched.
func (h *JobHandler) migrateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	count, err := h.store.MigrateNow()
	if err != nil {
		WriteError(w, fmt.Errorf("migration failed: %w", err))
		return
	}
	WriteJSON(w, http.StatusOK, map[string]int{"count": count})
}
