package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ternarybob/coquo/internal/interfaces"
	"github.com/ternarybob/coquo/internal/models"
)

// duplicateSimilarityThreshold is the normalized edit-distance similarity
// above which two recipe names are treated as near-duplicates.
const duplicateSimilarityThreshold = 0.85

// targetResolver turns a job's type and filter into the ordered recipe set it
// will process. Resolution is pure: it reads the catalog and never writes, so
// a resume can re-run it with the same filter and get a consistent answer.
type targetResolver struct {
	recipes          interfaces.RecipeStorage
	defaultMassLimit int
}

func newTargetResolver(recipes interfaces.RecipeStorage, defaultMassLimit int) *targetResolver {
	return &targetResolver{
		recipes:          recipes,
		defaultMassLimit: defaultMassLimit,
	}
}

// Resolve returns the target set in ascending recipe ID order. afterID is the
// exclusive resumption cursor; 0 for a fresh run.
func (r *targetResolver) Resolve(ctx context.Context, jobType models.JobType, target models.TargetFilter, flags models.FixFlags, afterID int64) ([]*models.Recipe, error) {
	switch jobType {
	case models.JobTypeMassGeneration:
		return r.resolveMass(ctx, target, flags, afterID)
	case models.JobTypeSpecificGeneration:
		return r.resolveSpecific(ctx, target, afterID)
	case models.JobTypeValidation:
		return r.resolveValidation(ctx, target, flags, afterID)
	default:
		return nil, fmt.Errorf("unsupported job type: %s", jobType)
	}
}

// resolveMass selects recipes matching the cuisine filter that are missing at
// least one field covered by the requested flags, capped at the limit
func (r *targetResolver) resolveMass(ctx context.Context, target models.TargetFilter, flags models.FixFlags, afterID int64) ([]*models.Recipe, error) {
	candidates, err := r.recipes.ListRecipes(ctx, &interfaces.RecipeListOptions{
		Region:  target.CuisineFilter,
		AfterID: afterID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve mass generation targets: %w", err)
	}

	limit := target.Limit
	if limit <= 0 {
		limit = r.defaultMassLimit
	}

	result := make([]*models.Recipe, 0, limit)
	for _, recipe := range candidates {
		if len(recipe.MissingOperations(flags)) == 0 {
			continue
		}
		result = append(result, recipe)
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

// resolveSpecific selects exactly one recipe by name. The duplicate gate and
// any catalog insertion happen before resolution; here an absent name is just
// an empty target set.
func (r *targetResolver) resolveSpecific(ctx context.Context, target models.TargetFilter, afterID int64) ([]*models.Recipe, error) {
	if strings.TrimSpace(target.RecipeName) == "" {
		return nil, nil
	}

	recipe, err := r.recipes.GetRecipeByName(ctx, target.RecipeName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve specific generation target: %w", err)
	}
	if recipe == nil || recipe.ID <= afterID {
		return nil, nil
	}
	return []*models.Recipe{recipe}, nil
}

// resolveValidation selects either the explicit ID list or every incomplete
// recipe, filtered to those missing a requested field
func (r *targetResolver) resolveValidation(ctx context.Context, target models.TargetFilter, flags models.FixFlags, afterID int64) ([]*models.Recipe, error) {
	var candidates []*models.Recipe

	if len(target.RecipeIDs) > 0 {
		ids := append([]int64(nil), target.RecipeIDs...)
		sortInt64s(ids)
		for _, id := range ids {
			if id <= afterID {
				continue
			}
			recipe, err := r.recipes.GetRecipe(ctx, id)
			if err != nil {
				// An unknown ID in the explicit list is a filter mistake,
				// not a job-level failure; skip it.
				continue
			}
			candidates = append(candidates, recipe)
		}
	} else {
		var err error
		candidates, err = r.recipes.ListRecipes(ctx, &interfaces.RecipeListOptions{
			AfterID:        afterID,
			IncompleteOnly: true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to resolve validation targets: %w", err)
		}
	}

	result := make([]*models.Recipe, 0, len(candidates))
	for _, recipe := range candidates {
		if len(recipe.MissingOperations(flags)) == 0 {
			continue
		}
		result = append(result, recipe)
	}
	return result, nil
}

// FindSimilarRecipe returns the catalog recipe whose name is the closest
// near-duplicate of the given name, or nil when nothing crosses the
// threshold. Exact matches are not duplicates; they are the target itself.
func (r *targetResolver) FindSimilarRecipe(ctx context.Context, name string) (*models.Recipe, float64, error) {
	candidates, err := r.recipes.ListRecipes(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to scan recipes for duplicate check: %w", err)
	}

	target := normalizeRecipeName(name)
	var best *models.Recipe
	var bestScore float64

	for _, recipe := range candidates {
		candidate := normalizeRecipeName(recipe.Name)
		if candidate == target {
			continue
		}
		score := nameSimilarity(target, candidate)
		if score >= duplicateSimilarityThreshold && score > bestScore {
			best = recipe
			bestScore = score
		}
	}
	return best, bestScore, nil
}

func normalizeRecipeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// nameSimilarity returns a 0..1 similarity based on edit distance
func nameSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(editDistance(a, b))/float64(longest)
}

// editDistance computes the Levenshtein distance with a two-row table
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

func sortInt64s(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
