package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Sync
	mux.HandleFunc("/api/sync/trigger", s.app.SyncHandler.TriggerHandler) // POST - start a pass
	mux.HandleFunc("/api/sync/status", s.app.SyncHandler.StatusHandler)   // GET - scheduler/sync state
	mux.HandleFunc("/api/sync/runs", s.app.SyncHandler.ListRunsHandler)   // GET - run history
	mux.HandleFunc("/api/sync/runs/", s.handleRunRoutes)                  // GET /{id}

	// API routes - Trackers
	mux.HandleFunc("/api/trackers", s.app.TrackerHandler.ListHandler) // GET - loaded definitions
	mux.HandleFunc("/api/trackers/", s.app.TrackerHandler.GetHandler) // GET /{id}, POST /{id}/test

	// API routes - Mappings (diagnostics)
	mux.HandleFunc("/api/mappings/users", s.app.MappingHandler.UserMappingsHandler) // GET - global user table
	mux.HandleFunc("/api/mappings/", s.handleMappingRoutes)                         // GET /{projectID}/{table}

	// API routes - Server-side reference data
	mux.HandleFunc("/api/projects", s.app.ProjectHandler.ListHandler)      // GET - active projects
	mux.HandleFunc("/api/projects/", s.app.ProjectHandler.ReleasesHandler) // GET /{id}/releases
	mux.HandleFunc("/api/users", s.app.ProjectHandler.UsersHandler)        // GET - user accounts

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleRunRoutes dispatches /api/sync/runs/ subpaths. A bare trailing
// slash lists runs rather than looking up an empty id.
func (s *Server) handleRunRoutes(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/sync/runs/")
	if id == "" {
		s.app.SyncHandler.ListRunsHandler(w, r)
		return
	}

	s.app.SyncHandler.GetRunHandler(w, r)
}

// handleMappingRoutes dispatches /api/mappings/ subpaths
func (s *Server) handleMappingRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/mappings/")
	if path == "" {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}

	s.app.MappingHandler.ProjectMappingsHandler(w, r)
}
