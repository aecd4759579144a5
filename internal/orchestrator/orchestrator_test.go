package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ternarybob/coquo/internal/common"
	"github.com/ternarybob/coquo/internal/interfaces"
	"github.com/ternarybob/coquo/internal/models"
)

func newTestService(t *testing.T) (*Service, *memoryStore, *fakeGeneration, *fakeArtifacts) {
	t.Helper()
	store := newMemoryStore()
	gen := newFakeGeneration()
	artifacts := newFakeArtifacts(true)
	service := NewService(testConfig(), store, gen, artifacts, common.GetLogger())
	t.Cleanup(service.Stop)
	return service, store, gen, artifacts
}

func waitJobStatus(t *testing.T, store *memoryStore, jobID string, status models.JobStatus) *models.Job {
	t.Helper()
	var job *models.Job
	require.Eventually(t, func() bool {
		found, err := store.GetJob(context.Background(), jobID)
		if err != nil {
			return false
		}
		job = found
		return found.Status == status
	}, 2*time.Second, 10*time.Millisecond, "job %s never reached status %s", jobID, status)
	return job
}

func TestStartJobRejectsBadRequests(t *testing.T) {
	service, store, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.StartJob(ctx, &interfaces.StartJobRequest{
		Type:      "bulk",
		FixFlags:  models.FixFlags{MainImage: true},
		StartedBy: "tester",
	})
	require.Error(t, err)

	_, err = service.StartJob(ctx, &interfaces.StartJobRequest{
		Type:      models.JobTypeMassGeneration,
		StartedBy: "tester",
	})
	require.ErrorIs(t, err, ErrNoFixFlagSelected)

	// Catalog is empty, nothing to target
	_, err = service.StartJob(ctx, &interfaces.StartJobRequest{
		Type:      models.JobTypeMassGeneration,
		FixFlags:  models.FixFlags{MainImage: true},
		StartedBy: "tester",
	})
	require.ErrorIs(t, err, ErrEmptyTargetSet)

	require.Empty(t, store.jobs)
}

func TestStartJobRunsToCompletion(t *testing.T) {
	service, store, gen, _ := newTestService(t)
	seedRecipe(store, 1, "Pho", "Vietnamese", false)
	seedRecipe(store, 2, "Banh Mi", "Vietnamese", false)

	result, err := service.StartJob(context.Background(), &interfaces.StartJobRequest{
		Type:      models.JobTypeMassGeneration,
		FixFlags:  models.FixFlags{MainImage: true},
		StartedBy: "tester",
	})
	require.NoError(t, err)
	require.False(t, result.AwaitingReconciliation)

	job := waitJobStatus(t, store, result.JobID, models.JobStatusCompleted)
	require.Equal(t, 2, job.TotalCount)
	require.Equal(t, 2, job.SuccessCount)
	require.Equal(t, 1, gen.callsFor(models.OperationMainImage, 1))
	require.Equal(t, 1, gen.callsFor(models.OperationMainImage, 2))
}

func TestStartJobDuplicateGate(t *testing.T) {
	service, store, _, _ := newTestService(t)
	seedRecipe(store, 1, "Chicken Tikka Masala", "Indian", false)
	ctx := context.Background()

	req := &interfaces.StartJobRequest{
		Type:      models.JobTypeSpecificGeneration,
		Target:    models.TargetFilter{RecipeName: "Chicken Tika Masala"},
		FixFlags:  models.FixFlags{MainImage: true},
		StartedBy: "tester",
	}
	_, err := service.StartJob(ctx, req)
	require.ErrorIs(t, err, ErrDuplicateRecipe)

	// Confirming creates the recipe and runs the job against it
	req.Target.ConfirmedNotDuplicate = true
	result, err := service.StartJob(ctx, req)
	require.NoError(t, err)

	waitJobStatus(t, store, result.JobID, models.JobStatusCompleted)

	created, err := store.GetRecipeByName(ctx, "Chicken Tika Masala")
	require.NoError(t, err)
	require.NotNil(t, created)
	require.Equal(t, int64(2), created.ID)
	require.NotEmpty(t, created.ImageURL)
}

func TestStartJobConcurrentSpecificCreations(t *testing.T) {
	service, store, _, _ := newTestService(t)
	ctx := context.Background()

	names := []string{"Pho", "Ramen", "Laksa", "Goulash", "Paella", "Tagine"}
	errs := make(chan error, len(names))
	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			_, err := service.StartJob(ctx, &interfaces.StartJobRequest{
				Type:      models.JobTypeSpecificGeneration,
				Target:    models.TargetFilter{RecipeName: name, ConfirmedNotDuplicate: true},
				FixFlags:  models.FixFlags{MainImage: true},
				StartedBy: "tester",
			})
			errs <- err
		}(name)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// Every start allocated its own catalog row
	recipes, err := store.ListRecipes(ctx, nil)
	require.NoError(t, err)
	require.Len(t, recipes, len(names))
	seen := make(map[int64]bool, len(recipes))
	for _, recipe := range recipes {
		require.False(t, seen[recipe.ID], "recipe ID %d allocated twice", recipe.ID)
		seen[recipe.ID] = true
	}
}

func TestStartJobHeldForReconciliation(t *testing.T) {
	service, store, gen, artifacts := newTestService(t)
	seedRecipe(store, 1, "Pho", "Vietnamese", false)
	artifacts.sets[1] = &models.ExistingArtifactSet{
		RecipeID:  1,
		MainImage: &models.FoundArtifact{URL: "https://store/recipes/1/main.png"},
	}
	ctx := context.Background()

	result, err := service.StartJob(ctx, &interfaces.StartJobRequest{
		Type:      models.JobTypeMassGeneration,
		FixFlags:  models.FixFlags{MainImage: true},
		StartedBy: "tester",
	})
	require.NoError(t, err)
	require.True(t, result.AwaitingReconciliation)
	require.Len(t, result.FoundArtifacts, 1)

	held, err := store.GetJob(ctx, result.JobID)
	require.NoError(t, err)
	require.Equal(t, models.JobStatusPending, held.Status)
	require.True(t, held.AwaitingReconciliation)

	err = service.ResolveReconciliation(ctx, result.JobID, "overwrite")
	require.ErrorIs(t, err, ErrInvalidJobState)

	require.NoError(t, service.ResolveReconciliation(ctx, result.JobID, models.ReconciliationLoadFromS3))

	waitJobStatus(t, store, result.JobID, models.JobStatusCompleted)
	require.Equal(t, 0, gen.totalCalls())

	recipe, err := store.GetRecipe(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "https://store/recipes/1/main.png", recipe.ImageURL)

	// The prompt is single-shot
	err = service.ResolveReconciliation(ctx, result.JobID, models.ReconciliationGenerate)
	require.ErrorIs(t, err, ErrInvalidJobState)
}

func TestValidationJobSkipsReconciliation(t *testing.T) {
	service, store, _, artifacts := newTestService(t)
	recipe := &models.Recipe{ID: 1, Name: "Pho"}
	require.NoError(t, store.SaveRecipe(context.Background(), recipe))
	artifacts.sets[1] = &models.ExistingArtifactSet{
		RecipeID:  1,
		MainImage: &models.FoundArtifact{URL: "https://store/recipes/1/main.png"},
	}

	result, err := service.StartJob(context.Background(), &interfaces.StartJobRequest{
		Type:      models.JobTypeValidation,
		FixFlags:  models.FixFlags{IngredientsText: true},
		StartedBy: "tester",
	})
	require.NoError(t, err)
	require.False(t, result.AwaitingReconciliation)

	waitJobStatus(t, store, result.JobID, models.JobStatusCompleted)
}

func TestCancelJobRequiresRunning(t *testing.T) {
	service, store, _, _ := newTestService(t)
	ctx := context.Background()

	job := models.NewJob("job_pending", models.JobTypeMassGeneration, models.TargetFilter{}, models.FixFlags{MainImage: true}, "tester")
	require.NoError(t, store.SaveJob(ctx, job))

	err := service.CancelJob(ctx, job.ID)
	require.ErrorIs(t, err, ErrJobNotRunning)

	err = service.CancelJob(ctx, "job_missing")
	require.Error(t, err)
}

func TestResumeJobContinuesFromCursor(t *testing.T) {
	service, store, gen, _ := newTestService(t)
	for id := int64(1); id <= 4; id++ {
		seedRecipe(store, id, "Recipe", "", false)
	}
	ctx := context.Background()

	original := models.NewJob("job_cancelled", models.JobTypeMassGeneration, models.TargetFilter{}, models.FixFlags{MainImage: true}, "tester")
	original.TotalCount = 4
	require.NoError(t, original.MarkRunning())
	original.RecordOutcome(1, models.RecipeOutcomeSuccess)
	original.RecordOutcome(2, models.RecipeOutcomeSuccess)
	require.NoError(t, original.MarkCancelled())
	require.NoError(t, store.SaveJob(ctx, original))

	resumedID, err := service.ResumeJob(ctx, original.ID)
	require.NoError(t, err)
	require.NotEqual(t, original.ID, resumedID)

	resumed := waitJobStatus(t, store, resumedID, models.JobStatusCompleted)
	require.Equal(t, original.ID, resumed.ResumedFromJobID)
	require.Equal(t, 2, resumed.TotalCount)
	require.Equal(t, 2, resumed.ProcessedCount)

	// Only the recipes past the cursor were processed
	require.Equal(t, 0, gen.callsFor(models.OperationMainImage, 1))
	require.Equal(t, 0, gen.callsFor(models.OperationMainImage, 2))
	require.Equal(t, 1, gen.callsFor(models.OperationMainImage, 3))
	require.Equal(t, 1, gen.callsFor(models.OperationMainImage, 4))

	// The original record is untouched
	kept, err := store.GetJob(ctx, original.ID)
	require.NoError(t, err)
	require.Equal(t, models.JobStatusCancelled, kept.Status)
}

func TestResumeJobRejectsIneligibleJobs(t *testing.T) {
	service, store, _, _ := newTestService(t)
	ctx := context.Background()

	// Cancelled before any recipe completed: no cursor to resume from
	job := models.NewJob("job_no_cursor", models.JobTypeMassGeneration, models.TargetFilter{}, models.FixFlags{MainImage: true}, "tester")
	require.NoError(t, job.MarkRunning())
	require.NoError(t, job.MarkCancelled())
	require.NoError(t, store.SaveJob(ctx, job))

	_, err := service.ResumeJob(ctx, job.ID)
	require.ErrorIs(t, err, ErrCannotResume)

	// Every remaining recipe already processed
	done := models.NewJob("job_done", models.JobTypeMassGeneration, models.TargetFilter{}, models.FixFlags{MainImage: true}, "tester")
	seedRecipe(store, 1, "Pho", "", false)
	done.TotalCount = 1
	require.NoError(t, done.MarkRunning())
	done.RecordOutcome(1, models.RecipeOutcomeSuccess)
	require.NoError(t, done.MarkCancelled())
	require.NoError(t, store.SaveJob(ctx, done))

	_, err = service.ResumeJob(ctx, done.ID)
	require.ErrorIs(t, err, ErrEmptyTargetSet)
}

func TestSweepCancelsExpiredReconciliations(t *testing.T) {
	service, store, _, _ := newTestService(t)
	ctx := context.Background()

	job := models.NewJob("job_expired", models.JobTypeMassGeneration, models.TargetFilter{}, models.FixFlags{MainImage: true}, "tester")
	job.AwaitingReconciliation = true
	job.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, store.SaveJob(ctx, job))

	fresh := models.NewJob("job_fresh", models.JobTypeMassGeneration, models.TargetFilter{}, models.FixFlags{MainImage: true}, "tester")
	fresh.AwaitingReconciliation = true
	require.NoError(t, store.SaveJob(ctx, fresh))

	service.sweepExpiredReconciliations()

	expired, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, models.JobStatusCancelled, expired.Status)
	require.NotEmpty(t, expired.ErrorMessage)

	kept, err := store.GetJob(ctx, fresh.ID)
	require.NoError(t, err)
	require.Equal(t, models.JobStatusPending, kept.Status)

	logs, err := store.GetLogsByJob(ctx, job.ID, 0)
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	require.Equal(t, models.LogLevelWarning, logs[0].Level)
}

func TestGetStatisticsAggregates(t *testing.T) {
	service, store, _, _ := newTestService(t)
	ctx := context.Background()

	seedRecipe(store, 1, "Pho", "", true)
	seedRecipe(store, 2, "Banh Mi", "", false)

	job := models.NewJob("job_done", models.JobTypeMassGeneration, models.TargetFilter{}, models.FixFlags{MainImage: true}, "tester")
	require.NoError(t, job.MarkRunning())
	job.RecordOutcome(1, models.RecipeOutcomeSuccess)
	job.RecordOutcome(2, models.RecipeOutcomeFailed)
	require.NoError(t, job.MarkCompleted())
	require.NoError(t, store.SaveJob(ctx, job))

	stats, err := service.GetStatistics(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, stats.TotalRecipes)
	require.Equal(t, 1, stats.MissingMainImage)
	require.Equal(t, 1, stats.TotalJobs)
	require.Equal(t, 1, stats.CompletedJobs)
	require.Equal(t, 1, stats.TotalRecipesSucceeded)
	require.Equal(t, 1, stats.TotalRecipesFailed)
}
