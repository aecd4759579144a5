package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/coquo/internal/common"
	"github.com/ternarybob/coquo/internal/interfaces"
	"github.com/ternarybob/coquo/internal/models"
)

// Service is the job orchestrator: it resolves target sets, runs the
// check-before-generate reconciliation pass, executes jobs sequentially in
// background goroutines, and serves the polling query surface.
type Service struct {
	config     *common.Config
	storage    interfaces.StorageManager
	generation interfaces.GenerationService
	artifacts  interfaces.ArtifactStore
	resolver   *targetResolver
	reconciler *reconciler
	runner     *jobRunner
	logger     arbor.ILogger

	cron      *cron.Cron
	runCtx    context.Context
	runCancel context.CancelFunc

	// createMu serializes catalog inserts; two concurrent start requests
	// must never allocate the same recipe ID
	createMu sync.Mutex
}

// NewService creates the orchestrator. Call Start to begin the reconciliation
// expiry sweeper and Stop to shut background work down.
func NewService(config *common.Config, storage interfaces.StorageManager, generation interfaces.GenerationService, artifacts interfaces.ArtifactStore, logger arbor.ILogger) *Service {
	runCtx, runCancel := context.WithCancel(context.Background())

	return &Service{
		config:     config,
		storage:    storage,
		generation: generation,
		artifacts:  artifacts,
		resolver:   newTargetResolver(storage.RecipeStorage(), config.Jobs.DefaultMassLimit),
		reconciler: newReconciler(artifacts, logger),
		runner:     newJobRunner(config, storage, generation, artifacts, logger),
		logger:     logger,
		runCtx:     runCtx,
		runCancel:  runCancel,
	}
}

// Start launches the reconciliation expiry sweeper. A job abandoned at the
// reconciliation prompt must not sit pending forever.
func (s *Service) Start() error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.config.Jobs.ReconciliationSweep, s.sweepExpiredReconciliations); err != nil {
		return fmt.Errorf("invalid reconciliation sweep schedule '%s': %w", s.config.Jobs.ReconciliationSweep, err)
	}
	s.cron.Start()

	s.logger.Info().
		Str("schedule", s.config.Jobs.ReconciliationSweep).
		Dur("ttl", s.config.ReconciliationTTL()).
		Msg("Reconciliation expiry sweeper started")
	return nil
}

// Stop halts the sweeper and signals running jobs to wind down
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	s.runCancel()
}

// StartJob validates the request, resolves the target set, and either opens
// the job for processing or holds it pending a reconciliation answer.
func (s *Service) StartJob(ctx context.Context, req *interfaces.StartJobRequest) (*interfaces.StartJobResult, error) {
	if !req.Type.IsValid() {
		return nil, fmt.Errorf("invalid job type: %s", req.Type)
	}
	if !req.FixFlags.Any() {
		return nil, ErrNoFixFlagSelected
	}

	if req.Type == models.JobTypeSpecificGeneration {
		if err := s.ensureSpecificRecipe(ctx, req.Target); err != nil {
			return nil, err
		}
	}

	targets, err := s.resolver.Resolve(ctx, req.Type, req.Target, req.FixFlags, 0)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, ErrEmptyTargetSet
	}

	job := models.NewJob(common.NewJobID(), req.Type, req.Target, req.FixFlags, req.StartedBy)
	job.TotalCount = len(targets)

	// Validation jobs never touch the artifact store, so the
	// check-before-generate pass only applies to generation runs.
	if req.Type != models.JobTypeValidation {
		sets, hasUnlinked, err := s.reconciler.Check(ctx, targets)
		if err != nil {
			return nil, err
		}
		if hasUnlinked {
			job.AwaitingReconciliation = true
			if err := s.storage.JobStorage().SaveJob(ctx, job); err != nil {
				return nil, fmt.Errorf("failed to save job: %w", err)
			}
			s.logger.Info().
				Str("job_id", job.ID).
				Int("recipes_with_artifacts", len(sets)).
				Msg("Job held for reconciliation")
			return &interfaces.StartJobResult{
				JobID:                  job.ID,
				AwaitingReconciliation: true,
				FoundArtifacts:         sets,
			}, nil
		}
	}

	if err := s.storage.JobStorage().SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	s.launch(job, targets, false)
	return &interfaces.StartJobResult{JobID: job.ID}, nil
}

// ResolveReconciliation answers the check-before-generate prompt and starts
// the held job
func (s *Service) ResolveReconciliation(ctx context.Context, jobID string, choice models.ReconciliationChoice) error {
	if !choice.IsValid() {
		return fmt.Errorf("%w: unknown reconciliation choice '%s'", ErrInvalidJobState, choice)
	}

	job, err := s.storage.JobStorage().GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != models.JobStatusPending || !job.AwaitingReconciliation {
		return fmt.Errorf("%w: job %s is not awaiting reconciliation", ErrInvalidJobState, jobID)
	}

	// Re-resolve with the unchanged filter; the catalog may have moved while
	// the prompt was open.
	targets, err := s.resolver.Resolve(ctx, job.Type, job.Target, job.FixFlags, 0)
	if err != nil {
		return err
	}
	job.TotalCount = len(targets)

	s.logger.Info().
		Str("job_id", job.ID).
		Str("choice", string(choice)).
		Int("targets", len(targets)).
		Msg("Reconciliation resolved")

	s.launch(job, targets, choice == models.ReconciliationLoadFromS3)
	return nil
}

// CancelJob sets the cooperative stop flag on a running job. The flag is
// written as a scoped update of the job row, so it cannot be lost under a
// concurrent progress write; the runner honors it at the next recipe boundary.
func (s *Service) CancelJob(ctx context.Context, jobID string) error {
	err := s.storage.JobStorage().UpdateJob(ctx, jobID, func(job *models.Job) error {
		if job.Status != models.JobStatusRunning {
			return fmt.Errorf("%w: job %s is %s", ErrJobNotRunning, jobID, job.Status)
		}
		job.ShouldStop = true
		job.UpdatedAt = time.Now()
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info().Str("job_id", jobID).Msg("Cancellation requested")
	return nil
}

// ResumeJob opens a fresh job continuing a failed or cancelled run from its
// resumption cursor. The original job's record and logs are left untouched.
func (s *Service) ResumeJob(ctx context.Context, jobID string) (string, error) {
	original, err := s.storage.JobStorage().GetJob(ctx, jobID)
	if err != nil {
		return "", err
	}
	if !original.CanResume() {
		return "", fmt.Errorf("%w: job %s is %s with no recorded progress cursor", ErrCannotResume, jobID, original.Status)
	}

	afterID := *original.LastProcessedRecipeID
	targets, err := s.resolver.Resolve(ctx, original.Type, original.Target, original.FixFlags, afterID)
	if err != nil {
		return "", err
	}
	if len(targets) == 0 {
		return "", fmt.Errorf("%w: no recipes remain after id %d", ErrEmptyTargetSet, afterID)
	}

	job := models.NewJob(common.NewJobID(), original.Type, original.Target, original.FixFlags, original.StartedBy)
	job.ResumedFromJobID = original.ID
	job.TotalCount = len(targets)

	if err := s.storage.JobStorage().SaveJob(ctx, job); err != nil {
		return "", fmt.Errorf("failed to save resumed job: %w", err)
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("resumed_from", original.ID).
		Int64("after_recipe_id", afterID).
		Int("remaining", len(targets)).
		Msg("Job resumed")

	s.launch(job, targets, false)
	return job.ID, nil
}

// GetJobStatus returns the polling projection of one job
func (s *Service) GetJobStatus(ctx context.Context, jobID string) (*interfaces.JobStatusReport, error) {
	job, err := s.storage.JobStorage().GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	return &interfaces.JobStatusReport{
		Job:                job,
		ProgressPercentage: job.Progress(),
		EstimatedRemaining: estimateRemaining(job),
	}, nil
}

// estimateRemaining projects seconds left from the observed per-recipe pace;
// 0 when there is nothing to project from
func estimateRemaining(job *models.Job) int {
	if job.Status != models.JobStatusRunning || job.ProcessedCount == 0 || job.StartedAt == nil {
		return 0
	}
	elapsed := time.Since(*job.StartedAt)
	perRecipe := elapsed / time.Duration(job.ProcessedCount)
	return int((perRecipe * time.Duration(job.Remaining())).Seconds())
}

func (s *Service) ListJobs(ctx context.Context, opts *interfaces.JobListOptions) ([]*models.Job, error) {
	return s.storage.JobStorage().ListJobs(ctx, opts)
}

func (s *Service) GetJobLogs(ctx context.Context, jobID string, limit int) ([]*models.JobLogEntry, error) {
	if limit <= 0 {
		limit = s.config.Jobs.LogQueryLimit
	}
	return s.storage.JobLogStorage().GetLogsByJob(ctx, jobID, limit)
}

// GetStatistics derives the catalog and job aggregates on demand
func (s *Service) GetStatistics(ctx context.Context) (*models.Statistics, error) {
	stats := &models.Statistics{}

	recipes, err := s.storage.RecipeStorage().ListRecipes(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to scan recipes for statistics: %w", err)
	}

	stats.TotalRecipes = len(recipes)
	for _, recipe := range recipes {
		if !recipe.IsComplete {
			stats.IncompleteRecipes++
		}
		if !recipe.FieldComplete(models.OperationMainImage) {
			stats.MissingMainImage++
		}
		if !recipe.FieldComplete(models.OperationIngredientsImage) {
			stats.MissingIngredientsImage++
		}
		if !recipe.FieldComplete(models.OperationStepImages) {
			stats.MissingStepImages++
		}
		if !recipe.FieldComplete(models.OperationStepText) {
			stats.MissingStepText++
		}
		if !recipe.FieldComplete(models.OperationIngredientsText) {
			stats.MissingIngredientsText++
		}
	}

	byStatus, err := s.storage.JobStorage().CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs for statistics: %w", err)
	}
	for status, count := range byStatus {
		stats.TotalJobs += count
		switch status {
		case models.JobStatusRunning:
			stats.RunningJobs += count
		case models.JobStatusCompleted:
			stats.CompletedJobs += count
		case models.JobStatusFailed:
			stats.FailedJobs += count
		case models.JobStatusCancelled:
			stats.CancelledJobs += count
		}
	}

	jobs, err := s.storage.JobStorage().ListJobs(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs for statistics: %w", err)
	}
	for _, job := range jobs {
		stats.TotalRecipesSucceeded += job.SuccessCount
		stats.TotalRecipesFailed += job.FailedCount
	}

	return stats, nil
}

// ensureSpecificRecipe applies the fuzzy-match duplicate gate for
// specific_generation and creates the catalog record when the name is new
func (s *Service) ensureSpecificRecipe(ctx context.Context, target models.TargetFilter) error {
	name := strings.TrimSpace(target.RecipeName)
	if name == "" {
		return ErrEmptyTargetSet
	}

	// Lookup, ID allocation, and insert run under one lock
	s.createMu.Lock()
	defer s.createMu.Unlock()

	existing, err := s.storage.RecipeStorage().GetRecipeByName(ctx, name)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	similar, score, err := s.resolver.FindSimilarRecipe(ctx, name)
	if err != nil {
		return err
	}
	if similar != nil && !target.ConfirmedNotDuplicate {
		return fmt.Errorf("%w: '%s' matches '%s' at %.0f%% similarity; confirm not a duplicate to proceed", ErrDuplicateRecipe, name, similar.Name, score*100)
	}

	recipe := &models.Recipe{
		ID:   s.nextRecipeID(ctx),
		Name: name,
	}
	if err := s.storage.RecipeStorage().SaveRecipe(ctx, recipe); err != nil {
		return fmt.Errorf("failed to create recipe '%s': %w", name, err)
	}

	s.logger.Info().
		Int64("recipe_id", recipe.ID).
		Str("name", name).
		Msg("Created new recipe for specific generation")
	return nil
}

func (s *Service) nextRecipeID(ctx context.Context) int64 {
	recipes, err := s.storage.RecipeStorage().ListRecipes(ctx, nil)
	if err != nil || len(recipes) == 0 {
		return 1
	}
	return recipes[len(recipes)-1].ID + 1
}

// launch runs a job in a panic-protected background goroutine
func (s *Service) launch(job *models.Job, targets []*models.Recipe, linkFromStore bool) {
	common.SafeGo(s.logger, "job-runner-"+job.ID, func() {
		s.runner.Run(s.runCtx, job, targets, linkFromStore)
	})
}

// sweepExpiredReconciliations cancels pending jobs whose reconciliation
// prompt was abandoned past the TTL
func (s *Service) sweepExpiredReconciliations() {
	ctx := s.runCtx
	cutoff := time.Now().Add(-s.config.ReconciliationTTL())

	expired, err := s.storage.JobStorage().ListAwaitingReconciliation(ctx, cutoff)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Reconciliation sweep failed")
		return
	}

	for _, job := range expired {
		if err := job.MarkCancelled(); err != nil {
			continue
		}
		job.ErrorMessage = "reconciliation prompt expired without an answer"
		if err := s.storage.JobStorage().SaveJob(ctx, job); err != nil {
			s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to cancel expired job")
			continue
		}

		entry := &models.JobLogEntry{
			JobID:   job.ID,
			Level:   models.LogLevelWarning,
			Message: "Job cancelled: reconciliation prompt expired",
		}
		if err := s.storage.JobLogStorage().AppendLog(ctx, entry); err != nil {
			s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to log expiry cancellation")
		}

		s.logger.Warn().
			Str("job_id", job.ID).
			Str("created_at", job.CreatedAt.Format(time.RFC3339)).
			Msg("Cancelled job with expired reconciliation prompt")
	}
}

var _ interfaces.Orchestrator = (*Service)(nil)
