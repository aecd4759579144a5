package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/coquo/internal/interfaces"
	"github.com/ternarybob/coquo/internal/models"
)

// memoryStore is an in-memory StorageManager for orchestrator tests
type memoryStore struct {
	mu         sync.Mutex
	jobs       map[string]*models.Job
	logEntries []*models.JobLogEntry
	recipes    map[int64]*models.Recipe
	logSeq     int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		jobs:    make(map[string]*models.Job),
		recipes: make(map[int64]*models.Recipe),
	}
}

func (m *memoryStore) JobStorage() interfaces.JobStorage       { return m }
func (m *memoryStore) JobLogStorage() interfaces.JobLogStorage { return m }
func (m *memoryStore) RecipeStorage() interfaces.RecipeStorage { return m }
func (m *memoryStore) Close() error                            { return nil }

func copyJob(job *models.Job) *models.Job {
	dup := *job
	if job.LastProcessedRecipeID != nil {
		id := *job.LastProcessedRecipeID
		dup.LastProcessedRecipeID = &id
	}
	if job.CurrentRecipeID != nil {
		id := *job.CurrentRecipeID
		dup.CurrentRecipeID = &id
	}
	return &dup
}

func (m *memoryStore) SaveJob(ctx context.Context, job *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = copyJob(job)
	return nil
}

func (m *memoryStore) UpdateJob(ctx context.Context, jobID string, update func(*models.Job) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return fmt.Errorf("job not found: %s", jobID)
	}
	dup := copyJob(job)
	if err := update(dup); err != nil {
		return err
	}
	m.jobs[jobID] = dup
	return nil
}

func (m *memoryStore) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	return copyJob(job), nil
}

func (m *memoryStore) ListJobs(ctx context.Context, opts *interfaces.JobListOptions) ([]*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.Job
	for _, job := range m.jobs {
		if opts != nil {
			if opts.Status != "" && job.Status != opts.Status {
				continue
			}
			if opts.Type != "" && job.Type != opts.Type {
				continue
			}
		}
		result = append(result, copyJob(job))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m *memoryStore) GetActiveJob(ctx context.Context) (*models.Job, error) {
	jobs, _ := m.ListJobs(ctx, &interfaces.JobListOptions{Status: models.JobStatusRunning, Limit: 1})
	if len(jobs) == 0 {
		return nil, nil
	}
	return jobs[0], nil
}

func (m *memoryStore) ListAwaitingReconciliation(ctx context.Context, olderThan time.Time) ([]*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.Job
	for _, job := range m.jobs {
		if job.Status == models.JobStatusPending && job.AwaitingReconciliation && job.CreatedAt.Before(olderThan) {
			result = append(result, copyJob(job))
		}
	}
	return result, nil
}

func (m *memoryStore) CountByStatus(ctx context.Context) (map[models.JobStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[models.JobStatus]int)
	for _, job := range m.jobs {
		counts[job.Status]++
	}
	return counts, nil
}

func (m *memoryStore) AppendLog(ctx context.Context, entry *models.JobLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logSeq++
	dup := *entry
	if dup.ID == "" {
		dup.ID = fmt.Sprintf("log_%d", m.logSeq)
	}
	if dup.CreatedAt.IsZero() {
		dup.CreatedAt = time.Now()
	}
	m.logEntries = append(m.logEntries, &dup)
	return nil
}

func (m *memoryStore) GetLogsByJob(ctx context.Context, jobID string, limit int) ([]*models.JobLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.JobLogEntry
	for i := len(m.logEntries) - 1; i >= 0; i-- {
		if m.logEntries[i].JobID != jobID {
			continue
		}
		dup := *m.logEntries[i]
		result = append(result, &dup)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (m *memoryStore) CountLogsByJob(ctx context.Context, jobID string) (int, error) {
	logs, _ := m.GetLogsByJob(ctx, jobID, 0)
	return len(logs), nil
}

func (m *memoryStore) SaveRecipe(ctx context.Context, recipe *models.Recipe) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	dup := *recipe
	m.recipes[recipe.ID] = &dup
	return nil
}

func (m *memoryStore) GetRecipe(ctx context.Context, id int64) (*models.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recipe, ok := m.recipes[id]
	if !ok {
		return nil, fmt.Errorf("recipe not found: %d", id)
	}
	dup := *recipe
	return &dup, nil
}

func (m *memoryStore) GetRecipeByName(ctx context.Context, name string) (*models.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, recipe := range m.recipes {
		if strings.EqualFold(strings.TrimSpace(recipe.Name), strings.TrimSpace(name)) {
			dup := *recipe
			return &dup, nil
		}
	}
	return nil, nil
}

func (m *memoryStore) ListRecipes(ctx context.Context, opts *interfaces.RecipeListOptions) ([]*models.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.recipes))
	for id := range m.recipes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var result []*models.Recipe
	for _, id := range ids {
		recipe := m.recipes[id]
		if opts != nil {
			if opts.AfterID > 0 && recipe.ID <= opts.AfterID {
				continue
			}
			if opts.Region != "" && !strings.EqualFold(recipe.Region, opts.Region) {
				continue
			}
			if opts.IncompleteOnly && recipe.IsComplete {
				continue
			}
		}
		dup := *recipe
		result = append(result, &dup)
		if opts != nil && opts.Limit > 0 && len(result) >= opts.Limit {
			break
		}
	}
	return result, nil
}

func (m *memoryStore) CountRecipes(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recipes), nil
}

// fakeGeneration records every call and can be told to fail per operation or
// per step image index
type fakeGeneration struct {
	mu              sync.Mutex
	calls           []string
	failOps         map[models.Operation]bool
	failStepIndexes map[int]bool
	onGenerate      func(op models.Operation, recipeID int64)
}

func newFakeGeneration() *fakeGeneration {
	return &fakeGeneration{
		failOps:         make(map[models.Operation]bool),
		failStepIndexes: make(map[int]bool),
	}
}

func (g *fakeGeneration) record(op models.Operation, recipeID int64) error {
	g.mu.Lock()
	g.calls = append(g.calls, fmt.Sprintf("%s:%d", op, recipeID))
	fail := g.failOps[op]
	hook := g.onGenerate
	g.mu.Unlock()

	if hook != nil {
		hook(op, recipeID)
	}
	if fail {
		return fmt.Errorf("simulated %s failure", op)
	}
	return nil
}

func (g *fakeGeneration) callsFor(op models.Operation, recipeID int64) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	count := 0
	key := fmt.Sprintf("%s:%d", op, recipeID)
	for _, call := range g.calls {
		if call == key {
			count++
		}
	}
	return count
}

func (g *fakeGeneration) totalCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func (g *fakeGeneration) Configured() bool { return true }

func (g *fakeGeneration) GenerateMainImage(ctx context.Context, recipe *models.Recipe) (*interfaces.GeneratedImage, error) {
	if err := g.record(models.OperationMainImage, recipe.ID); err != nil {
		return nil, err
	}
	return &interfaces.GeneratedImage{Data: []byte("img"), MimeType: "image/png", Prompt: "p"}, nil
}

func (g *fakeGeneration) GenerateIngredientsImage(ctx context.Context, recipe *models.Recipe) (*interfaces.GeneratedImage, error) {
	if err := g.record(models.OperationIngredientsImage, recipe.ID); err != nil {
		return nil, err
	}
	return &interfaces.GeneratedImage{Data: []byte("img"), MimeType: "image/png", Prompt: "p"}, nil
}

func (g *fakeGeneration) GenerateStepImage(ctx context.Context, recipe *models.Recipe, track models.StepTrack, stepIndex int, stepText string) (*interfaces.GeneratedImage, error) {
	if err := g.record(models.OperationStepImages, recipe.ID); err != nil {
		return nil, err
	}
	g.mu.Lock()
	failIndex := g.failStepIndexes[stepIndex]
	g.mu.Unlock()
	if failIndex {
		return nil, fmt.Errorf("simulated step image failure at index %d", stepIndex)
	}
	return &interfaces.GeneratedImage{Data: []byte("img"), MimeType: "image/png", Prompt: "p"}, nil
}

func (g *fakeGeneration) GenerateSteps(ctx context.Context, recipe *models.Recipe, track models.StepTrack, existing []string, desired int) ([]string, error) {
	if err := g.record(models.OperationStepText, recipe.ID); err != nil {
		return nil, err
	}
	steps := make([]string, desired)
	for i := range steps {
		steps[i] = fmt.Sprintf("%s step %d", track, i+1)
	}
	return steps, nil
}

func (g *fakeGeneration) ValidateIngredients(ctx context.Context, recipe *models.Recipe) (*interfaces.IngredientValidation, error) {
	if err := g.record(models.OperationIngredientsText, recipe.ID); err != nil {
		return nil, err
	}
	if len(recipe.Ingredients) == 0 {
		return &interfaces.IngredientValidation{
			IsValid:   false,
			Corrected: []string{"2 eggs", "100g flour"},
		}, nil
	}
	return &interfaces.IngredientValidation{IsValid: true}, nil
}

// fakeArtifacts serves canned artifact sets and records uploads
type fakeArtifacts struct {
	mu         sync.Mutex
	configured bool
	sets       map[int64]*models.ExistingArtifactSet
	uploads    []string
}

func newFakeArtifacts(configured bool) *fakeArtifacts {
	return &fakeArtifacts{
		configured: configured,
		sets:       make(map[int64]*models.ExistingArtifactSet),
	}
}

func (a *fakeArtifacts) Configured() bool { return a.configured }

func (a *fakeArtifacts) FindArtifacts(ctx context.Context, recipe *models.Recipe) (*models.ExistingArtifactSet, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if set, ok := a.sets[recipe.ID]; ok {
		dup := *set
		return &dup, nil
	}
	return &models.ExistingArtifactSet{RecipeID: recipe.ID, RecipeName: recipe.Name}, nil
}

func (a *fakeArtifacts) upload(key string) (string, error) {
	if !a.configured {
		return "", fmt.Errorf("artifact store is not configured")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.uploads = append(a.uploads, key)
	return "https://store/" + key, nil
}

func (a *fakeArtifacts) UploadMainImage(ctx context.Context, recipeID int64, data []byte, mimeType string) (string, error) {
	return a.upload(fmt.Sprintf("recipes/%d/main.png", recipeID))
}

func (a *fakeArtifacts) UploadIngredientsImage(ctx context.Context, recipeID int64, data []byte, mimeType string) (string, error) {
	return a.upload(fmt.Sprintf("recipes/%d/ingredients.png", recipeID))
}

func (a *fakeArtifacts) UploadStepImage(ctx context.Context, recipeID int64, track models.StepTrack, stepIndex int, data []byte, mimeType string) (string, error) {
	return a.upload(fmt.Sprintf("recipes/%d/steps/%s/%d.png", recipeID, track, stepIndex))
}
