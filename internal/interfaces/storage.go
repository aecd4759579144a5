package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/coquo/internal/models"
)

// JobListOptions filters and pages job queries
type JobListOptions struct {
	Status models.JobStatus
	Type   models.JobType
	Limit  int
	Offset int
}

// RecipeListOptions filters recipe scans. Results are always ordered by
// ascending recipe ID so resumption cursors are deterministic.
type RecipeListOptions struct {
	Region         string // filter by cuisine/region (case-insensitive)
	AfterID        int64  // exclusive lower bound on recipe ID
	IncompleteOnly bool   // only recipes with is_complete == false
	Limit          int
}

// JobStorage persists job records. The per-recipe progress update must be a
// single atomic write scoped to the job row.
type JobStorage interface {
	SaveJob(ctx context.Context, job *models.Job) error
	// UpdateJob applies a read-modify-write to one job row as a single
	// atomic operation; concurrent updates to the same row never interleave
	UpdateJob(ctx context.Context, jobID string, update func(*models.Job) error) error
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	ListJobs(ctx context.Context, opts *JobListOptions) ([]*models.Job, error)
	GetActiveJob(ctx context.Context) (*models.Job, error)
	ListAwaitingReconciliation(ctx context.Context, olderThan time.Time) ([]*models.Job, error)
	CountByStatus(ctx context.Context) (map[models.JobStatus]int, error)
}

// JobLogStorage is the append-only log sink. Safe for concurrent writers
// across different jobs.
type JobLogStorage interface {
	AppendLog(ctx context.Context, entry *models.JobLogEntry) error
	GetLogsByJob(ctx context.Context, jobID string, limit int) ([]*models.JobLogEntry, error)
	CountLogsByJob(ctx context.Context, jobID string) (int, error)
}

// RecipeStorage persists recipe records
type RecipeStorage interface {
	SaveRecipe(ctx context.Context, recipe *models.Recipe) error
	GetRecipe(ctx context.Context, id int64) (*models.Recipe, error)
	GetRecipeByName(ctx context.Context, name string) (*models.Recipe, error)
	ListRecipes(ctx context.Context, opts *RecipeListOptions) ([]*models.Recipe, error)
	CountRecipes(ctx context.Context) (int, error)
}

// StorageManager provides access to all storage interfaces
type StorageManager interface {
	JobStorage() JobStorage
	JobLogStorage() JobLogStorage
	RecipeStorage() RecipeStorage
	Close() error
}
