package interfaces

import (
	"context"

	"github.com/ternarybob/coquo/internal/models"
)

// GeneratedImage is the result of one image generation call
type GeneratedImage struct {
	Data     []byte
	MimeType string
	Prompt   string // exact prompt sent to the backend, recorded in job logs
}

// IngredientValidation is the result of an ingredients text check
type IngredientValidation struct {
	IsValid   bool
	Corrected []string
	Prompt    string
}

// ImageGenerator wraps the generative backend for one image unit of work.
// Calls succeed or fail as a whole, never partially, and carry their own
// timeout so a stuck call cannot starve the job-level stop check.
type ImageGenerator interface {
	GenerateMainImage(ctx context.Context, recipe *models.Recipe) (*GeneratedImage, error)
	GenerateIngredientsImage(ctx context.Context, recipe *models.Recipe) (*GeneratedImage, error)
	GenerateStepImage(ctx context.Context, recipe *models.Recipe, track models.StepTrack, stepIndex int, stepText string) (*GeneratedImage, error)
}

// TextGenerator wraps the generative backend for one text unit of work
type TextGenerator interface {
	GenerateSteps(ctx context.Context, recipe *models.Recipe, track models.StepTrack, existing []string, desired int) ([]string, error)
	ValidateIngredients(ctx context.Context, recipe *models.Recipe) (*IngredientValidation, error)
}

// GenerationService is the full generation capability used by the runner
type GenerationService interface {
	ImageGenerator
	TextGenerator
	Configured() bool
}
