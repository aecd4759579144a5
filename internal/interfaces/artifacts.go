package interfaces

import (
	"context"

	"github.com/ternarybob/coquo/internal/models"
)

// ArtifactStore queries and writes generated artifacts against durable
// object storage. Idempotent by design: re-checking or re-uploading an
// already-present object is wasted cost, not a correctness hazard.
type ArtifactStore interface {
	// FindArtifacts reports what the store already holds for a recipe
	FindArtifacts(ctx context.Context, recipe *models.Recipe) (*models.ExistingArtifactSet, error)

	UploadMainImage(ctx context.Context, recipeID int64, data []byte, mimeType string) (string, error)
	UploadIngredientsImage(ctx context.Context, recipeID int64, data []byte, mimeType string) (string, error)
	UploadStepImage(ctx context.Context, recipeID int64, track models.StepTrack, stepIndex int, data []byte, mimeType string) (string, error)

	Configured() bool
}
