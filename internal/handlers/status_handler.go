package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/coquo/internal/common"
	"github.com/ternarybob/coquo/internal/interfaces"
)

// StatusHandler serves statistics, health, and version endpoints
type StatusHandler struct {
	orchestrator interfaces.Orchestrator
	storage      interfaces.StorageManager
	generation   interfaces.GenerationService
	artifacts    interfaces.ArtifactStore
	logger       arbor.ILogger
	startedAt    time.Time
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(orch interfaces.Orchestrator, storage interfaces.StorageManager, generation interfaces.GenerationService, artifacts interfaces.ArtifactStore, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		orchestrator: orch,
		storage:      storage,
		generation:   generation,
		artifacts:    artifacts,
		logger:       logger,
		startedAt:    time.Now(),
	}
}

// StatisticsHandler returns catalog and job aggregates
// GET /api/statistics
func (h *StatusHandler) StatisticsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	stats, err := h.orchestrator.GetStatistics(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to compute statistics")
		WriteError(w, http.StatusInternalServerError, "Failed to compute statistics")
		return
	}

	WriteJSON(w, http.StatusOK, stats)
}

// HealthHandler reports service health and backend readiness
// GET /api/health
func (h *StatusHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	recipeCount, err := h.storage.RecipeStorage().CountRecipes(r.Context())
	storageHealthy := err == nil

	status := "healthy"
	httpStatus := http.StatusOK
	if !storageHealthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	activeJobID := ""
	if active, err := h.storage.JobStorage().GetActiveJob(r.Context()); err == nil && active != nil {
		activeJobID = active.ID
	}

	WriteJSON(w, httpStatus, map[string]interface{}{
		"status":                status,
		"uptime":                time.Since(h.startedAt).String(),
		"storage":               storageHealthy,
		"recipes":               recipeCount,
		"active_job":            activeJobID,
		"generation_configured": h.generation.Configured(),
		"artifacts_configured":  h.artifacts.Configured(),
	})
}

// VersionHandler returns build information
// GET /api/version
func (h *StatusHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.Build,
		"commit":  common.GitCommit,
	})
}

// NotFoundHandler is the fallback for unmatched API routes
func (h *StatusHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusNotFound, "Unknown API route: "+r.URL.Path)
}
