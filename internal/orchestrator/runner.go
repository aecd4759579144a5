package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/coquo/internal/common"
	"github.com/ternarybob/coquo/internal/interfaces"
	"github.com/ternarybob/coquo/internal/models"
	"golang.org/x/time/rate"
)

// jobRunner executes one job's sequential processing loop. A runner owns its
// job row exclusively while the job is running; the only external mutation it
// observes is the should_stop flag, merged from the stored row on every save
// and re-read once per recipe.
type jobRunner struct {
	config     *common.Config
	jobs       interfaces.JobStorage
	jobLogs    interfaces.JobLogStorage
	recipes    interfaces.RecipeStorage
	generation interfaces.GenerationService
	artifacts  interfaces.ArtifactStore
	logger     arbor.ILogger
}

func newJobRunner(config *common.Config, storage interfaces.StorageManager, generation interfaces.GenerationService, artifacts interfaces.ArtifactStore, logger arbor.ILogger) *jobRunner {
	return &jobRunner{
		config:     config,
		jobs:       storage.JobStorage(),
		jobLogs:    storage.JobLogStorage(),
		recipes:    storage.RecipeStorage(),
		generation: generation,
		artifacts:  artifacts,
		logger:     logger,
	}
}

// Run processes the resolved target set to completion. linkFromStore is true
// when the caller answered the reconciliation prompt with load_from_s3.
func (r *jobRunner) Run(ctx context.Context, job *models.Job, targets []*models.Recipe, linkFromStore bool) {
	jobLogger := r.logger.WithCorrelationId(job.ID)

	if err := job.MarkRunning(); err != nil {
		jobLogger.Error().Err(err).Msg("Failed to start job")
		return
	}
	if err := r.saveJob(ctx, job); err != nil {
		jobLogger.Error().Err(err).Msg("Failed to persist running job")
		return
	}

	r.appendLog(ctx, job, nil, models.LogLevelInfo, "", fmt.Sprintf("Job started: %d recipes targeted", job.TotalCount), map[string]interface{}{
		"type":            string(job.Type),
		"link_from_store": linkFromStore,
	})
	jobLogger.Info().
		Str("type", string(job.Type)).
		Int("total", job.TotalCount).
		Msg("Job started")

	// The limiter spaces recipes, not sub-calls; the generation backend's
	// throughput limit is the binding constraint.
	limiter := rate.NewLimiter(rate.Every(r.config.RecipeDelay()), 1)

	for i, recipe := range targets {
		if fresh, err := r.jobs.GetJob(ctx, job.ID); err == nil && fresh.ShouldStop {
			job.ShouldStop = true
		}
		if job.ShouldStop {
			r.appendLog(ctx, job, nil, models.LogLevelInfo, "", "stop signal received", nil)
			jobLogger.Warn().
				Int("processed", job.ProcessedCount).
				Int("remaining", len(targets)-i).
				Msg("Stop signal received - cancelling job at recipe boundary")
			r.finishCancelled(ctx, job, jobLogger)
			return
		}

		job.CurrentRecipeID = &recipe.ID
		job.CurrentRecipeName = recipe.Name
		if err := r.saveJob(ctx, job); err != nil {
			jobLogger.Warn().Err(err).Msg("Failed to persist current recipe marker")
		}

		var found *models.ExistingArtifactSet
		if linkFromStore && r.artifacts.Configured() {
			set, err := r.artifacts.FindArtifacts(ctx, recipe)
			if err != nil {
				jobLogger.Warn().Err(err).Int64("recipe_id", recipe.ID).Msg("Artifact lookup failed - falling back to generation")
			} else if !set.IsEmpty() {
				found = set
			}
		}

		outcome := r.processRecipe(ctx, job, recipe, found)

		// Counters and cursor advance in one write so a crash never records
		// one without the other. The save merges should_stop from storage,
		// so a cancel that landed mid-recipe is picked up here and honored
		// at the top of the next iteration.
		job.RecordOutcome(recipe.ID, outcome)
		job.CurrentRecipeID = nil
		job.CurrentRecipeName = ""
		if err := r.saveJob(ctx, job); err != nil {
			jobLogger.Error().Err(err).Msg("Failed to persist recipe outcome")
			r.failJob(ctx, job, jobLogger, fmt.Sprintf("storage failure recording recipe %d: %v", recipe.ID, err))
			return
		}

		jobLogger.Info().
			Int64("recipe_id", recipe.ID).
			Str("outcome", string(outcome)).
			Int("processed", job.ProcessedCount).
			Int("total", job.TotalCount).
			Msg("Recipe processed")

		if i < len(targets)-1 {
			if err := limiter.Wait(ctx); err != nil {
				r.failJob(ctx, job, jobLogger, fmt.Sprintf("interrupted while waiting between recipes: %v", err))
				return
			}
		}
	}

	if err := job.MarkCompleted(); err != nil {
		jobLogger.Error().Err(err).Msg("Failed to complete job")
		return
	}
	if err := r.saveJob(ctx, job); err != nil {
		jobLogger.Error().Err(err).Msg("Failed to persist completed job")
		return
	}

	r.appendLog(ctx, job, nil, models.LogLevelSuccess, "", "Job completed", map[string]interface{}{
		"processed": job.ProcessedCount,
		"succeeded": job.SuccessCount,
		"failed":    job.FailedCount,
		"skipped":   job.SkippedCount,
	})
	jobLogger.Info().
		Int("processed", job.ProcessedCount).
		Int("succeeded", job.SuccessCount).
		Int("failed", job.FailedCount).
		Int("skipped", job.SkippedCount).
		Msg("Job completed")
}

// saveJob writes the runner's view of the job over the stored row. The stop
// flag is merged inside the same atomic update, so a cancel written by
// another caller between the runner's reads is never overwritten and lost.
func (r *jobRunner) saveJob(ctx context.Context, job *models.Job) error {
	return r.jobs.UpdateJob(ctx, job.ID, func(stored *models.Job) error {
		stop := stored.ShouldStop || job.ShouldStop
		*stored = *job
		stored.ShouldStop = stop
		job.ShouldStop = stop
		return nil
	})
}

func (r *jobRunner) finishCancelled(ctx context.Context, job *models.Job, jobLogger arbor.ILogger) {
	if err := job.MarkCancelled(); err != nil {
		jobLogger.Error().Err(err).Msg("Failed to cancel job")
		return
	}
	if err := r.saveJob(ctx, job); err != nil {
		jobLogger.Error().Err(err).Msg("Failed to persist cancelled job")
	}
}

func (r *jobRunner) failJob(ctx context.Context, job *models.Job, jobLogger arbor.ILogger, message string) {
	r.appendLog(ctx, job, nil, models.LogLevelError, "", message, nil)
	if err := job.MarkFailed(message); err != nil {
		jobLogger.Error().Err(err).Msg("Failed to mark job failed")
		return
	}
	if err := r.saveJob(ctx, job); err != nil {
		jobLogger.Error().Err(err).Msg("Failed to persist failed job")
	}
}

// processRecipe applies every requested fix flag to one recipe in fixed order
// and returns the aggregate classification. Per-operation failures are
// swallowed into logs and counters; they never abort the other flags.
func (r *jobRunner) processRecipe(ctx context.Context, job *models.Job, recipe *models.Recipe, found *models.ExistingArtifactSet) models.RecipeOutcome {
	generated := 0
	linked := 0
	failed := 0

	for _, op := range job.FixFlags.Operations() {
		if recipe.FieldComplete(op) {
			r.appendLog(ctx, job, recipe, models.LogLevelInfo, op, "Field already complete, skipped", nil)
			continue
		}

		if found != nil {
			ok, err := r.linkArtifacts(ctx, job, recipe, op, found)
			if err != nil {
				failed++
				r.appendLog(ctx, job, recipe, models.LogLevelError, op, err.Error(), nil)
				continue
			}
			if ok {
				linked++
				continue
			}
		}

		generated++
		details, err := r.runOperation(ctx, recipe, op)
		if err != nil {
			failed++
			r.appendLog(ctx, job, recipe, models.LogLevelError, op, err.Error(), nil)
			continue
		}
		r.appendLog(ctx, job, recipe, models.LogLevelSuccess, op, "Generation completed", details)
	}

	r.refreshCompleteness(ctx, recipe)

	switch {
	case failed > 0:
		return models.RecipeOutcomeFailed
	case generated == 0 && linked == 0:
		return models.RecipeOutcomeSkipped
	default:
		return models.RecipeOutcomeSuccess
	}
}

// linkArtifacts links found store content for one operation directly into the
// recipe record without a generation call. Returns false when the store holds
// nothing usable for this operation.
func (r *jobRunner) linkArtifacts(ctx context.Context, job *models.Job, recipe *models.Recipe, op models.Operation, found *models.ExistingArtifactSet) (bool, error) {
	switch op {
	case models.OperationMainImage:
		if found.MainImage == nil {
			return false, nil
		}
		recipe.ImageURL = found.MainImage.URL
		if err := r.recipes.SaveRecipe(ctx, recipe); err != nil {
			return false, fmt.Errorf("failed to link stored artifact: %w", err)
		}
		r.appendLog(ctx, job, recipe, models.LogLevelSuccess, op, "Linked existing artifact from storage", map[string]interface{}{
			"url": found.MainImage.URL,
		})
		return true, nil

	case models.OperationIngredientsImage:
		if found.IngredientsImage == nil {
			return false, nil
		}
		recipe.IngredientsImageURL = found.IngredientsImage.URL
		if err := r.recipes.SaveRecipe(ctx, recipe); err != nil {
			return false, fmt.Errorf("failed to link stored artifact: %w", err)
		}
		r.appendLog(ctx, job, recipe, models.LogLevelSuccess, op, "Linked existing artifact from storage", map[string]interface{}{
			"url": found.IngredientsImage.URL,
		})
		return true, nil

	case models.OperationStepImages:
		linkedCount := 0
		linkedCount += linkStepImages(recipe, models.TrackBeginner, found.BeginnerStepImages)
		linkedCount += linkStepImages(recipe, models.TrackAdvanced, found.AdvancedStepImages)
		if linkedCount == 0 {
			return false, nil
		}
		if err := r.recipes.SaveRecipe(ctx, recipe); err != nil {
			return false, fmt.Errorf("failed to link stored artifacts: %w", err)
		}
		r.appendLog(ctx, job, recipe, models.LogLevelSuccess, op, "Linked existing step images from storage", map[string]interface{}{
			"linked": linkedCount,
		})
		return true, nil
	}

	// Text operations have no stored artifact representation
	return false, nil
}

// linkStepImages fills empty image slots from found artifacts, never
// overwriting an existing link
func linkStepImages(recipe *models.Recipe, track models.StepTrack, found []models.FoundArtifact) int {
	steps := recipe.StepsFor(track)
	if len(steps) == 0 || len(found) == 0 {
		return 0
	}

	images := append([]string(nil), recipe.StepImagesFor(track)...)
	for len(images) < len(steps) {
		images = append(images, "")
	}

	linked := 0
	for _, artifact := range found {
		if artifact.StepIndex < 0 || artifact.StepIndex >= len(steps) {
			continue
		}
		if images[artifact.StepIndex] != "" {
			continue
		}
		images[artifact.StepIndex] = artifact.URL
		linked++
	}

	if linked > 0 {
		setStepImages(recipe, track, images)
	}
	return linked
}

func setStepImages(recipe *models.Recipe, track models.StepTrack, images []string) {
	if track == models.TrackAdvanced {
		recipe.StepsAdvancedImages = images
	} else {
		recipe.StepsBeginnerImages = images
	}
}

// runOperation performs one generation call chain for one fix flag. The
// generation service carries the per-call timeout internally.
func (r *jobRunner) runOperation(ctx context.Context, recipe *models.Recipe, op models.Operation) (map[string]interface{}, error) {
	switch op {
	case models.OperationMainImage:
		return r.runMainImage(ctx, recipe)
	case models.OperationIngredientsImage:
		return r.runIngredientsImage(ctx, recipe)
	case models.OperationStepImages:
		return r.runStepImages(ctx, recipe)
	case models.OperationStepText:
		return r.runStepText(ctx, recipe)
	case models.OperationIngredientsText:
		return r.runIngredientsText(ctx, recipe)
	default:
		return nil, fmt.Errorf("unknown operation: %s", op)
	}
}

func (r *jobRunner) runMainImage(ctx context.Context, recipe *models.Recipe) (map[string]interface{}, error) {
	image, err := r.generation.GenerateMainImage(ctx, recipe)
	if err != nil {
		return nil, fmt.Errorf("main image generation failed: %w", err)
	}

	url, err := r.artifacts.UploadMainImage(ctx, recipe.ID, image.Data, image.MimeType)
	if err != nil {
		return nil, fmt.Errorf("main image upload failed: %w", err)
	}

	recipe.ImageURL = url
	if err := r.recipes.SaveRecipe(ctx, recipe); err != nil {
		return nil, fmt.Errorf("failed to persist main image link: %w", err)
	}

	return map[string]interface{}{"url": url, "prompt": image.Prompt}, nil
}

func (r *jobRunner) runIngredientsImage(ctx context.Context, recipe *models.Recipe) (map[string]interface{}, error) {
	image, err := r.generation.GenerateIngredientsImage(ctx, recipe)
	if err != nil {
		return nil, fmt.Errorf("ingredients image generation failed: %w", err)
	}

	url, err := r.artifacts.UploadIngredientsImage(ctx, recipe.ID, image.Data, image.MimeType)
	if err != nil {
		return nil, fmt.Errorf("ingredients image upload failed: %w", err)
	}

	recipe.IngredientsImageURL = url
	if err := r.recipes.SaveRecipe(ctx, recipe); err != nil {
		return nil, fmt.Errorf("failed to persist ingredients image link: %w", err)
	}

	return map[string]interface{}{"url": url, "prompt": image.Prompt}, nil
}

// runStepImages fills every missing step image across both tracks. Each image
// is persisted as soon as it is linked so a crash never discards a paid call.
func (r *jobRunner) runStepImages(ctx context.Context, recipe *models.Recipe) (map[string]interface{}, error) {
	var errs []string
	generatedCount := 0
	urls := make([]string, 0, 4)

	for _, track := range []models.StepTrack{models.TrackBeginner, models.TrackAdvanced} {
		steps := recipe.StepsFor(track)
		if len(steps) == 0 {
			continue
		}

		images := append([]string(nil), recipe.StepImagesFor(track)...)
		for len(images) < len(steps) {
			images = append(images, "")
		}

		for idx, stepText := range steps {
			if images[idx] != "" {
				continue
			}

			image, err := r.generation.GenerateStepImage(ctx, recipe, track, idx, stepText)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s step %d: %v", track, idx, err))
				continue
			}

			url, err := r.artifacts.UploadStepImage(ctx, recipe.ID, track, idx, image.Data, image.MimeType)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s step %d upload: %v", track, idx, err))
				continue
			}

			images[idx] = url
			setStepImages(recipe, track, images)
			if err := r.recipes.SaveRecipe(ctx, recipe); err != nil {
				errs = append(errs, fmt.Sprintf("%s step %d persist: %v", track, idx, err))
				continue
			}
			generatedCount++
			urls = append(urls, url)
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("step image generation failed: %s", strings.Join(errs, "; "))
	}
	if generatedCount == 0 {
		return nil, fmt.Errorf("no step text available to illustrate")
	}

	return map[string]interface{}{"generated": generatedCount, "urls": urls}, nil
}

// runStepText extends each incomplete track to its target step count,
// preserving steps that already exist
func (r *jobRunner) runStepText(ctx context.Context, recipe *models.Recipe) (map[string]interface{}, error) {
	var errs []string

	for _, track := range []models.StepTrack{models.TrackBeginner, models.TrackAdvanced} {
		desired := models.DesiredBeginnerSteps
		if track == models.TrackAdvanced {
			desired = models.DesiredAdvancedSteps
		}

		existing := recipe.StepsFor(track)
		if len(existing) >= desired {
			continue
		}

		steps, err := r.generation.GenerateSteps(ctx, recipe, track, existing, desired)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s track: %v", track, err))
			continue
		}

		merged := mergeSteps(existing, steps)
		if track == models.TrackAdvanced {
			recipe.StepsAdvanced = merged
		} else {
			recipe.StepsBeginner = merged
		}

		if err := r.recipes.SaveRecipe(ctx, recipe); err != nil {
			errs = append(errs, fmt.Sprintf("%s track persist: %v", track, err))
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("step text generation failed: %s", strings.Join(errs, "; "))
	}

	return map[string]interface{}{
		"beginner_steps": len(recipe.StepsBeginner),
		"advanced_steps": len(recipe.StepsAdvanced),
	}, nil
}

// mergeSteps keeps the already-written prefix and takes the remainder from
// the freshly generated full track
func mergeSteps(existing, generated []string) []string {
	if len(generated) <= len(existing) {
		return existing
	}
	merged := make([]string, 0, len(generated))
	merged = append(merged, existing...)
	merged = append(merged, generated[len(existing):]...)
	return merged
}

func (r *jobRunner) runIngredientsText(ctx context.Context, recipe *models.Recipe) (map[string]interface{}, error) {
	validation, err := r.generation.ValidateIngredients(ctx, recipe)
	if err != nil {
		return nil, fmt.Errorf("ingredient validation failed: %w", err)
	}

	corrected := 0
	if !validation.IsValid && len(validation.Corrected) > 0 {
		recipe.Ingredients = validation.Corrected
		if err := r.recipes.SaveRecipe(ctx, recipe); err != nil {
			return nil, fmt.Errorf("failed to persist corrected ingredients: %w", err)
		}
		corrected = len(validation.Corrected)
	}

	return map[string]interface{}{
		"is_valid":  validation.IsValid,
		"corrected": corrected,
	}, nil
}

// refreshCompleteness recomputes the recipe's is_complete flag after a
// processing pass
func (r *jobRunner) refreshCompleteness(ctx context.Context, recipe *models.Recipe) {
	complete := true
	for _, op := range models.AllOperations() {
		if !recipe.FieldComplete(op) {
			complete = false
			break
		}
	}
	if recipe.IsComplete == complete {
		return
	}
	recipe.IsComplete = complete
	if err := r.recipes.SaveRecipe(ctx, recipe); err != nil {
		r.logger.Warn().Err(err).Int64("recipe_id", recipe.ID).Msg("Failed to update recipe completeness")
	}
}

// appendLog writes one job log entry; log sink failures are reported to the
// service log but never fail the operation
func (r *jobRunner) appendLog(ctx context.Context, job *models.Job, recipe *models.Recipe, level models.LogLevel, op models.Operation, message string, details map[string]interface{}) {
	entry := &models.JobLogEntry{
		JobID:     job.ID,
		Level:     level,
		Operation: op,
		Message:   message,
		Details:   details,
	}
	if recipe != nil {
		id := recipe.ID
		entry.RecipeID = &id
		entry.RecipeName = recipe.Name
	}

	if err := r.jobLogs.AppendLog(ctx, entry); err != nil {
		r.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to append job log entry")
	}
}
