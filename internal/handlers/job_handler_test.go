package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ternarybob/coquo/internal/common"
	"github.com/ternarybob/coquo/internal/interfaces"
	"github.com/ternarybob/coquo/internal/models"
	"github.com/ternarybob/coquo/internal/orchestrator"
)

// stubOrchestrator returns canned results for handler tests
type stubOrchestrator struct {
	startResult *interfaces.StartJobResult
	startErr    error
	cancelErr   error
	resumeID    string
	resumeErr   error
}

func (s *stubOrchestrator) StartJob(ctx context.Context, req *interfaces.StartJobRequest) (*interfaces.StartJobResult, error) {
	return s.startResult, s.startErr
}

func (s *stubOrchestrator) ResolveReconciliation(ctx context.Context, jobID string, choice models.ReconciliationChoice) error {
	return nil
}

func (s *stubOrchestrator) CancelJob(ctx context.Context, jobID string) error {
	return s.cancelErr
}

func (s *stubOrchestrator) ResumeJob(ctx context.Context, jobID string) (string, error) {
	return s.resumeID, s.resumeErr
}

func (s *stubOrchestrator) GetJobStatus(ctx context.Context, jobID string) (*interfaces.JobStatusReport, error) {
	return nil, fmt.Errorf("job not found: %s", jobID)
}

func (s *stubOrchestrator) ListJobs(ctx context.Context, opts *interfaces.JobListOptions) ([]*models.Job, error) {
	return nil, nil
}

func (s *stubOrchestrator) GetJobLogs(ctx context.Context, jobID string, limit int) ([]*models.JobLogEntry, error) {
	return nil, nil
}

func (s *stubOrchestrator) GetStatistics(ctx context.Context) (*models.Statistics, error) {
	return &models.Statistics{}, nil
}

func newTestJobHandler(stub *stubOrchestrator) *JobHandler {
	return NewJobHandler(stub, common.GetLogger())
}

func TestStartJobHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		stub       *stubOrchestrator
		wantStatus int
	}{
		{
			name:       "malformed body",
			body:       `{not json`,
			stub:       &stubOrchestrator{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing started_by",
			body:       `{"type": "mass_generation", "fix_flags": {"main_image": true}}`,
			stub:       &stubOrchestrator{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown job type",
			body:       `{"type": "bulk", "started_by": "tester", "fix_flags": {"main_image": true}}`,
			stub:       &stubOrchestrator{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "accepted",
			body:       `{"type": "mass_generation", "started_by": "tester", "fix_flags": {"main_image": true}}`,
			stub:       &stubOrchestrator{startResult: &interfaces.StartJobResult{JobID: "job_1"}},
			wantStatus: http.StatusAccepted,
		},
		{
			name: "held for reconciliation",
			body: `{"type": "mass_generation", "started_by": "tester", "fix_flags": {"main_image": true}}`,
			stub: &stubOrchestrator{startResult: &interfaces.StartJobResult{
				JobID:                  "job_1",
				AwaitingReconciliation: true,
			}},
			wantStatus: http.StatusOK,
		},
		{
			name:       "no fix flag selected",
			body:       `{"type": "mass_generation", "started_by": "tester"}`,
			stub:       &stubOrchestrator{startErr: orchestrator.ErrNoFixFlagSelected},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "duplicate recipe conflict",
			body:       `{"type": "specific_generation", "started_by": "tester", "target_filter": {"recipe_name": "Pho"}, "fix_flags": {"main_image": true}}`,
			stub:       &stubOrchestrator{startErr: orchestrator.ErrDuplicateRecipe},
			wantStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newTestJobHandler(tt.stub)
			req := httptest.NewRequest(http.MethodPost, "/api/jobs", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			handler.StartJobHandler(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body: %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestStartJobHandlerRejectsWrongMethod(t *testing.T) {
	handler := newTestJobHandler(&stubOrchestrator{})
	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	rec := httptest.NewRecorder()

	handler.StartJobHandler(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestCancelJobHandlerMapsJobState(t *testing.T) {
	handler := newTestJobHandler(&stubOrchestrator{
		cancelErr: fmt.Errorf("%w: job job_1 is completed", orchestrator.ErrJobNotRunning),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/jobs/job_1/cancel", nil)
	rec := httptest.NewRecorder()

	handler.CancelJobHandler(rec, req, "job_1")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestResumeJobHandler(t *testing.T) {
	handler := newTestJobHandler(&stubOrchestrator{resumeID: "job_2"})
	req := httptest.NewRequest(http.MethodPost, "/api/jobs/job_1/resume", nil)
	rec := httptest.NewRecorder()

	handler.ResumeJobHandler(rec, req, "job_1")

	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "job_2") {
		t.Errorf("response must carry the new job ID: %s", rec.Body.String())
	}
}

func TestGetJobHandlerNotFound(t *testing.T) {
	handler := newTestJobHandler(&stubOrchestrator{})
	req := httptest.NewRequest(http.MethodGet, "/api/jobs/job_missing", nil)
	rec := httptest.NewRecorder()

	handler.GetJobHandler(rec, req, "job_missing")

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestWriteCommandError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"duplicate", orchestrator.ErrDuplicateRecipe, http.StatusConflict},
		{"no flags", orchestrator.ErrNoFixFlagSelected, http.StatusBadRequest},
		{"empty target set", orchestrator.ErrEmptyTargetSet, http.StatusBadRequest},
		{"invalid state wrapped", fmt.Errorf("%w: job x is not awaiting reconciliation", orchestrator.ErrInvalidJobState), http.StatusBadRequest},
		{"cannot resume", orchestrator.ErrCannotResume, http.StatusBadRequest},
		{"not found", errors.New("job not found: job_9"), http.StatusNotFound},
		{"unrecognized", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteCommandError(rec, tt.err)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
