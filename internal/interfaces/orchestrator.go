package interfaces

import (
	"context"

	"github.com/ternarybob/coquo/internal/models"
)

// StartJobRequest carries everything needed to open a job. StartedBy is the
// already-authenticated operator identity; the orchestrator never reads
// ambient auth state.
type StartJobRequest struct {
	Type      models.JobType      `json:"type"`
	Target    models.TargetFilter `json:"target_filter"`
	FixFlags  models.FixFlags     `json:"fix_flags"`
	StartedBy string              `json:"started_by"`
}

// StartJobResult reports the opened job. When AwaitingReconciliation is
// true, processing has not begun: the caller must answer the
// check-before-generate prompt via ResolveReconciliation.
type StartJobResult struct {
	JobID                  string                        `json:"job_id"`
	AwaitingReconciliation bool                          `json:"awaiting_reconciliation"`
	FoundArtifacts         []*models.ExistingArtifactSet `json:"found_artifacts,omitempty"`
}

// JobStatusReport is the polling projection of a job
type JobStatusReport struct {
	Job                *models.Job `json:"job"`
	ProgressPercentage float64     `json:"progress_percentage"`
	EstimatedRemaining int         `json:"estimated_remaining"` // seconds; 0 when unknown
}

// Orchestrator owns the job lifecycle: target resolution, reconciliation,
// sequential processing, cancellation, and resumption.
type Orchestrator interface {
	// Commands
	StartJob(ctx context.Context, req *StartJobRequest) (*StartJobResult, error)
	ResolveReconciliation(ctx context.Context, jobID string, choice models.ReconciliationChoice) error
	CancelJob(ctx context.Context, jobID string) error
	ResumeJob(ctx context.Context, jobID string) (string, error)

	// Queries
	GetJobStatus(ctx context.Context, jobID string) (*JobStatusReport, error)
	ListJobs(ctx context.Context, opts *JobListOptions) ([]*models.Job, error)
	GetJobLogs(ctx context.Context, jobID string, limit int) ([]*models.JobLogEntry, error)
	GetStatistics(ctx context.Context) (*models.Statistics, error)
}
