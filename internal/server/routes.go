package server

import "net/http"

// setupRoutes configures every HTTP route the comparison engine exposes,
// grounded on the teacher's mux.HandleFunc + sub-path dispatcher pattern
// but trimmed to this domain's much smaller REST surface (no UI templates,
// auth capture, chat, or MCP endpoints).
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handlers.System.HealthHandler)
	mux.HandleFunc("/api/version", s.handlers.System.VersionHandler)

	mux.HandleFunc("/api/jobs", s.handlers.Jobs.HandleJobsCollection)
	mux.HandleFunc("/api/jobs/", s.handlers.Jobs.HandleJobsRoutes)

	mux.HandleFunc("/api/runs", s.handlers.Runs.ListRunsHandler)
	mux.HandleFunc("/api/runs/", s.handlers.Runs.HandleRunsRoutes)

	return mux
}
