package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Jobs (generation job lifecycle)
	mux.HandleFunc("/api/jobs", s.handleJobsRoute)  // GET (list), POST (start)
	mux.HandleFunc("/api/jobs/", s.handleJobRoutes) // GET/POST /{id} and subpaths

	// API routes - Recipes (read-only catalog access)
	mux.HandleFunc("/api/recipes", s.app.RecipeHandler.ListRecipesHandler)
	mux.HandleFunc("/api/recipes/", s.handleRecipeRoutes)

	// API routes - System
	mux.HandleFunc("/api/statistics", s.app.StatusHandler.StatisticsHandler)
	mux.HandleFunc("/api/health", s.app.StatusHandler.HealthHandler)
	mux.HandleFunc("/api/version", s.app.StatusHandler.VersionHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.StatusHandler.NotFoundHandler)

	return mux
}

// handleJobsRoute dispatches the jobs collection endpoint by method
func (s *Server) handleJobsRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.app.JobHandler.ListJobsHandler(w, r)
	case http.MethodPost:
		s.app.JobHandler.StartJobHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleJobRoutes routes /api/jobs/{id} and its subpaths
func (s *Server) handleJobRoutes(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	// parts: ["api", "jobs", "{id}", subpath?]
	if len(parts) < 3 || parts[2] == "" {
		http.Error(w, "Job ID is required", http.StatusBadRequest)
		return
	}
	jobID := parts[2]

	if len(parts) == 3 {
		s.app.JobHandler.GetJobHandler(w, r, jobID)
		return
	}

	switch parts[3] {
	case "logs":
		s.app.JobHandler.GetJobLogsHandler(w, r, jobID)
	case "cancel":
		s.app.JobHandler.CancelJobHandler(w, r, jobID)
	case "resume":
		s.app.JobHandler.ResumeJobHandler(w, r, jobID)
	case "reconcile":
		s.app.JobHandler.ReconcileHandler(w, r, jobID)
	default:
		http.Error(w, "Unknown job route", http.StatusNotFound)
	}
}

// handleRecipeRoutes routes /api/recipes/{id}
func (s *Server) handleRecipeRoutes(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 3 || parts[2] == "" {
		http.Error(w, "Recipe ID is required", http.StatusBadRequest)
		return
	}
	s.app.RecipeHandler.GetRecipeHandler(w, r, parts[2])
}
