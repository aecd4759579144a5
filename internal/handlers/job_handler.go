package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/coquo/internal/interfaces"
	"github.com/ternarybob/coquo/internal/models"
)

// JobHandler handles job lifecycle API requests
type JobHandler struct {
	orchestrator interfaces.Orchestrator
	logger       arbor.ILogger
	validate     *validator.Validate
}

// NewJobHandler creates a new job handler
func NewJobHandler(orch interfaces.Orchestrator, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		orchestrator: orch,
		logger:       logger,
		validate:     validator.New(),
	}
}

type startJobRequest struct {
	Type      string              `json:"type" validate:"required,oneof=mass_generation specific_generation validation"`
	Target    models.TargetFilter `json:"target_filter"`
	FixFlags  models.FixFlags     `json:"fix_flags"`
	StartedBy string              `json:"started_by" validate:"required"`
}

type reconcileRequest struct {
	Choice string `json:"choice" validate:"required,oneof=generate load_from_s3"`
}

// StartJobHandler opens a new generation or validation job
// POST /api/jobs
func (h *JobHandler) StartJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req startJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.orchestrator.StartJob(r.Context(), &interfaces.StartJobRequest{
		Type:      models.JobType(req.Type),
		Target:    req.Target,
		FixFlags:  req.FixFlags,
		StartedBy: req.StartedBy,
	})
	if err != nil {
		h.logger.Warn().Err(err).Str("type", req.Type).Msg("Failed to start job")
		WriteCommandError(w, err)
		return
	}

	status := http.StatusAccepted
	if result.AwaitingReconciliation {
		status = http.StatusOK
	}
	WriteJSON(w, status, result)
}

// ReconcileHandler answers the check-before-generate prompt
// POST /api/jobs/{id}/reconcile
func (h *JobHandler) ReconcileHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req reconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.orchestrator.ResolveReconciliation(r.Context(), jobID, models.ReconciliationChoice(req.Choice)); err != nil {
		h.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to resolve reconciliation")
		WriteCommandError(w, err)
		return
	}

	WriteSuccess(w, "Job started")
}

// CancelJobHandler requests a graceful stop of a running job
// POST /api/jobs/{id}/cancel
func (h *JobHandler) CancelJobHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if err := h.orchestrator.CancelJob(r.Context(), jobID); err != nil {
		h.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to cancel job")
		WriteCommandError(w, err)
		return
	}

	WriteSuccess(w, "Cancellation requested; job stops at the next recipe boundary")
}

// ResumeJobHandler continues a failed or cancelled job from its cursor
// POST /api/jobs/{id}/resume
func (h *JobHandler) ResumeJobHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	newJobID, err := h.orchestrator.ResumeJob(r.Context(), jobID)
	if err != nil {
		h.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to resume job")
		WriteCommandError(w, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":       newJobID,
		"resumed_from": jobID,
	})
}

// GetJobHandler returns the polling status projection of one job
// GET /api/jobs/{id}
func (h *JobHandler) GetJobHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	report, err := h.orchestrator.GetJobStatus(r.Context(), jobID)
	if err != nil {
		WriteCommandError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, report)
}

// ListJobsHandler returns jobs, newest first
// GET /api/jobs?status=running&type=mass_generation&limit=50&offset=0
func (h *JobHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	opts := &interfaces.JobListOptions{
		Status: models.JobStatus(r.URL.Query().Get("status")),
		Type:   models.JobType(r.URL.Query().Get("type")),
		Limit:  50,
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		if parsed, err := strconv.Atoi(limit); err == nil && parsed > 0 {
			opts.Limit = parsed
		}
	}
	if offset := r.URL.Query().Get("offset"); offset != "" {
		if parsed, err := strconv.Atoi(offset); err == nil && parsed >= 0 {
			opts.Offset = parsed
		}
	}

	jobs, err := h.orchestrator.ListJobs(r.Context(), opts)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list jobs")
		WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":   jobs,
		"count":  len(jobs),
		"limit":  opts.Limit,
		"offset": opts.Offset,
	})
}

// GetJobLogsHandler returns a job's log entries, newest first
// GET /api/jobs/{id}/logs?limit=100
func (h *JobHandler) GetJobLogsHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	logs, err := h.orchestrator.GetJobLogs(r.Context(), jobID, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job logs")
		WriteError(w, http.StatusInternalServerError, "Failed to get job logs")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"job_id": jobID,
		"logs":   logs,
		"count":  len(logs),
	})
}
