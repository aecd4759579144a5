package generation

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/coquo/internal/common"
	"github.com/ternarybob/coquo/internal/interfaces"
	"github.com/ternarybob/coquo/internal/models"
)

// compositeService pairs the Gemini image backend with a selectable text
// backend. Image operations always run on Gemini regardless of the text
// provider.
type compositeService struct {
	images *GeminiService
	text   interfaces.TextGenerator
}

// NewGenerationService creates the generation backend from configuration.
// text_provider selects "gemini" (default) or "claude" for the text
// operations.
func NewGenerationService(config *common.GenerationConfig, logger arbor.ILogger) (interfaces.GenerationService, error) {
	gemini, err := NewGeminiService(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini service: %w", err)
	}

	switch config.TextProvider {
	case "", "gemini":
		return gemini, nil
	case "claude":
		claude, err := NewClaudeService(config, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create claude service: %w", err)
		}
		return &compositeService{images: gemini, text: claude}, nil
	default:
		return nil, fmt.Errorf("unsupported text provider: %s (supported: gemini, claude)", config.TextProvider)
	}
}

func (c *compositeService) Configured() bool {
	return c.images.Configured()
}

func (c *compositeService) GenerateMainImage(ctx context.Context, recipe *models.Recipe) (*interfaces.GeneratedImage, error) {
	return c.images.GenerateMainImage(ctx, recipe)
}

func (c *compositeService) GenerateIngredientsImage(ctx context.Context, recipe *models.Recipe) (*interfaces.GeneratedImage, error) {
	return c.images.GenerateIngredientsImage(ctx, recipe)
}

func (c *compositeService) GenerateStepImage(ctx context.Context, recipe *models.Recipe, track models.StepTrack, stepIndex int, stepText string) (*interfaces.GeneratedImage, error) {
	return c.images.GenerateStepImage(ctx, recipe, track, stepIndex, stepText)
}

func (c *compositeService) GenerateSteps(ctx context.Context, recipe *models.Recipe, track models.StepTrack, existing []string, desired int) ([]string, error) {
	return c.text.GenerateSteps(ctx, recipe, track, existing, desired)
}

func (c *compositeService) ValidateIngredients(ctx context.Context, recipe *models.Recipe) (*interfaces.IngredientValidation, error) {
	return c.text.ValidateIngredients(ctx, recipe)
}

var _ interfaces.GenerationService = (*compositeService)(nil)
