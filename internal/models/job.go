package models

import (
	"fmt"
	"time"
)

// JobStatus represents the state of a generation job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// JobType classifies how a job selects its target recipes
type JobType string

const (
	JobTypeMassGeneration     JobType = "mass_generation"
	JobTypeSpecificGeneration JobType = "specific_generation"
	JobTypeValidation         JobType = "validation"
)

// IsValid returns true for a known job type
func (t JobType) IsValid() bool {
	switch t {
	case JobTypeMassGeneration, JobTypeSpecificGeneration, JobTypeValidation:
		return true
	}
	return false
}

// TargetFilter selects the recipe set a job operates on.
// Immutable once the job is running.
type TargetFilter struct {
	CuisineFilter string  `json:"cuisine_filter,omitempty"` // mass_generation: region filter (empty = all)
	RecipeName    string  `json:"recipe_name,omitempty"`    // specific_generation: recipe identified by name
	RecipeIDs     []int64 `json:"recipe_ids,omitempty"`     // validation: explicit id list (empty = all incomplete)
	Limit         int     `json:"limit,omitempty"`          // mass_generation: cap on targeted recipes

	// ConfirmedNotDuplicate acknowledges a fuzzy-match duplicate warning
	// for specific_generation.
	ConfirmedNotDuplicate bool `json:"confirmed_not_duplicate,omitempty"`
}

// RecipeOutcome is the aggregate classification of one processed recipe
type RecipeOutcome string

const (
	RecipeOutcomeSuccess RecipeOutcome = "success"
	RecipeOutcomeFailed  RecipeOutcome = "failed"
	RecipeOutcomeSkipped RecipeOutcome = "skipped"
)

// Job is the persisted record of one orchestration run. The Job row is the
// single source of truth for progress; monitoring clients poll it and never
// mutate it. While running, the row is owned exclusively by its runner.
type Job struct {
	ID     string    `json:"id" badgerhold:"key"`
	Type   JobType   `json:"type"`
	Status JobStatus `json:"status"`

	Target   TargetFilter `json:"target_filter"`
	FixFlags FixFlags     `json:"fix_flags"`

	// Progress counters. Invariant: ProcessedCount == SuccessCount +
	// FailedCount + SkippedCount and ProcessedCount <= TotalCount.
	TotalCount     int `json:"total_count"`
	ProcessedCount int `json:"processed_count"`
	SuccessCount   int `json:"success_count"`
	FailedCount    int `json:"failed_count"`
	SkippedCount   int `json:"skipped_count"`

	// LastProcessedRecipeID is the resumption cursor; nil until the first
	// recipe completes. Only ever advances in target-set order.
	LastProcessedRecipeID *int64 `json:"last_processed_recipe_id"`

	// Display fields for the polling UI
	CurrentRecipeID   *int64 `json:"current_recipe_id,omitempty"`
	CurrentRecipeName string `json:"current_recipe_name,omitempty"`

	// ShouldStop is the cooperative cancellation flag, checked once per
	// recipe at the top of the processing loop.
	ShouldStop bool `json:"should_stop"`

	// AwaitingReconciliation holds the job in pending until the caller
	// answers the check-before-generate prompt.
	AwaitingReconciliation bool `json:"awaiting_reconciliation"`

	// ResumedFromJobID links a resumed run back to the terminal job it
	// continues, so operators can reconstruct the full chain.
	ResumedFromJobID string `json:"resumed_from_job_id,omitempty"`

	StartedBy    string `json:"started_by"`
	ErrorMessage string `json:"error_message,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewJob creates a pending job
func NewJob(id string, jobType JobType, target TargetFilter, flags FixFlags, startedBy string) *Job {
	now := time.Now()
	return &Job{
		ID:        id,
		Type:      jobType,
		Status:    JobStatusPending,
		Target:    target,
		FixFlags:  flags,
		StartedBy: startedBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MarkRunning transitions pending -> running
func (j *Job) MarkRunning() error {
	if j.Status != JobStatusPending {
		return fmt.Errorf("illegal transition %s -> running", j.Status)
	}
	now := time.Now()
	j.Status = JobStatusRunning
	j.AwaitingReconciliation = false
	j.StartedAt = &now
	j.UpdatedAt = now
	return nil
}

// MarkCompleted transitions running -> completed
func (j *Job) MarkCompleted() error {
	if j.Status != JobStatusRunning {
		return fmt.Errorf("illegal transition %s -> completed", j.Status)
	}
	now := time.Now()
	j.Status = JobStatusCompleted
	j.CurrentRecipeID = nil
	j.CurrentRecipeName = ""
	j.CompletedAt = &now
	j.UpdatedAt = now
	return nil
}

// MarkFailed transitions running -> failed with a terminal diagnostic
func (j *Job) MarkFailed(errorMsg string) error {
	if j.Status != JobStatusRunning {
		return fmt.Errorf("illegal transition %s -> failed", j.Status)
	}
	now := time.Now()
	j.Status = JobStatusFailed
	j.ErrorMessage = errorMsg
	j.CurrentRecipeID = nil
	j.CurrentRecipeName = ""
	j.CompletedAt = &now
	j.UpdatedAt = now
	return nil
}

// MarkCancelled transitions running -> cancelled. A pending job awaiting
// reconciliation may also be cancelled by the expiry sweeper.
func (j *Job) MarkCancelled() error {
	if j.Status != JobStatusRunning && !(j.Status == JobStatusPending && j.AwaitingReconciliation) {
		return fmt.Errorf("illegal transition %s -> cancelled", j.Status)
	}
	now := time.Now()
	j.Status = JobStatusCancelled
	j.AwaitingReconciliation = false
	j.CurrentRecipeID = nil
	j.CurrentRecipeName = ""
	j.CompletedAt = &now
	j.UpdatedAt = now
	return nil
}

// RecordOutcome applies one recipe's aggregate outcome to the counters and
// advances the resumption cursor. The caller persists the job in a single
// write so counters and cursor move atomically.
func (j *Job) RecordOutcome(recipeID int64, outcome RecipeOutcome) {
	switch outcome {
	case RecipeOutcomeSuccess:
		j.SuccessCount++
	case RecipeOutcomeFailed:
		j.FailedCount++
	case RecipeOutcomeSkipped:
		j.SkippedCount++
	}
	j.ProcessedCount++
	id := recipeID
	j.LastProcessedRecipeID = &id
	j.UpdatedAt = time.Now()
}

// IsTerminal returns true if the job is in a terminal state
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted ||
		j.Status == JobStatusFailed ||
		j.Status == JobStatusCancelled
}

// CanResume is true only for failed or cancelled jobs that recorded at
// least one processed recipe.
func (j *Job) CanResume() bool {
	if j.Status != JobStatusFailed && j.Status != JobStatusCancelled {
		return false
	}
	return j.LastProcessedRecipeID != nil
}

// Progress returns the percentage of targeted recipes processed
func (j *Job) Progress() float64 {
	if j.TotalCount == 0 {
		return 0
	}
	return float64(j.ProcessedCount) / float64(j.TotalCount) * 100
}

// Remaining returns how many targeted recipes have not been processed
func (j *Job) Remaining() int {
	if j.TotalCount < j.ProcessedCount {
		return 0
	}
	return j.TotalCount - j.ProcessedCount
}
