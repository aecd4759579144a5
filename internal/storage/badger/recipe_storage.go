package badger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/coquo/internal/interfaces"
	"github.com/ternarybob/coquo/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// RecipeStorage implements the RecipeStorage interface for Badger
type RecipeStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewRecipeStorage creates a new RecipeStorage instance
func NewRecipeStorage(db *BadgerDB, logger arbor.ILogger) interfaces.RecipeStorage {
	return &RecipeStorage{
		db:     db,
		logger: logger,
	}
}

func (s *RecipeStorage) SaveRecipe(ctx context.Context, recipe *models.Recipe) error {
	if recipe.ID == 0 {
		return fmt.Errorf("recipe ID is required")
	}
	if recipe.CreatedAt.IsZero() {
		recipe.CreatedAt = time.Now()
	}
	recipe.UpdatedAt = time.Now()

	if err := s.db.Store().Upsert(recipe.ID, recipe); err != nil {
		return fmt.Errorf("failed to save recipe: %w", err)
	}
	return nil
}

func (s *RecipeStorage) GetRecipe(ctx context.Context, id int64) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := s.db.Store().Get(id, &recipe); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("recipe not found: %d", id)
		}
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	return &recipe, nil
}

// GetRecipeByName returns the recipe whose name matches case-insensitively,
// or nil when no recipe matches
func (s *RecipeStorage) GetRecipeByName(ctx context.Context, name string) (*models.Recipe, error) {
	var recipes []models.Recipe
	if err := s.db.Store().Find(&recipes, badgerhold.Where("ID").Ne(int64(0))); err != nil {
		return nil, fmt.Errorf("failed to scan recipes: %w", err)
	}

	target := strings.ToLower(strings.TrimSpace(name))
	for i := range recipes {
		if strings.ToLower(strings.TrimSpace(recipes[i].Name)) == target {
			return &recipes[i], nil
		}
	}
	return nil, nil
}

// ListRecipes returns recipes matching the options, always ordered by
// ascending ID (the resumption cursor depends on this ordering)
func (s *RecipeStorage) ListRecipes(ctx context.Context, opts *interfaces.RecipeListOptions) ([]*models.Recipe, error) {
	var recipes []models.Recipe
	if err := s.db.Store().Find(&recipes, badgerhold.Where("ID").Gt(int64(0)).SortBy("ID")); err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}

	sort.Slice(recipes, func(i, j int) bool { return recipes[i].ID < recipes[j].ID })

	result := make([]*models.Recipe, 0, len(recipes))
	for i := range recipes {
		r := &recipes[i]
		if opts != nil {
			if opts.AfterID > 0 && r.ID <= opts.AfterID {
				continue
			}
			if opts.Region != "" && !strings.EqualFold(r.Region, opts.Region) {
				continue
			}
			if opts.IncompleteOnly && r.IsComplete {
				continue
			}
		}
		result = append(result, r)
		if opts != nil && opts.Limit > 0 && len(result) >= opts.Limit {
			break
		}
	}
	return result, nil
}

func (s *RecipeStorage) CountRecipes(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.Recipe{}, badgerhold.Where("ID").Gt(int64(0)))
	if err != nil {
		return 0, fmt.Errorf("failed to count recipes: %w", err)
	}
	return int(count), nil
}
