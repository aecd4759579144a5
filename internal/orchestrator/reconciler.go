package orchestrator

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/coquo/internal/interfaces"
	"github.com/ternarybob/coquo/internal/models"
)

// reconciler runs the check-before-generate pass: it asks the artifact store
// what already exists for each targeted recipe so the caller can choose to
// reuse it instead of paying for regeneration.
type reconciler struct {
	store  interfaces.ArtifactStore
	logger arbor.ILogger
}

func newReconciler(store interfaces.ArtifactStore, logger arbor.ILogger) *reconciler {
	return &reconciler{
		store:  store,
		logger: logger,
	}
}

// Check returns the non-empty artifact sets for the target recipes and
// whether any of them holds content the recipe record does not reference yet.
// Only unlinked content warrants holding the job for a caller decision.
func (r *reconciler) Check(ctx context.Context, recipes []*models.Recipe) ([]*models.ExistingArtifactSet, bool, error) {
	if !r.store.Configured() {
		return nil, false, nil
	}

	var sets []*models.ExistingArtifactSet
	hasUnlinked := false

	for _, recipe := range recipes {
		set, err := r.store.FindArtifacts(ctx, recipe)
		if err != nil {
			return nil, false, fmt.Errorf("reconciliation check failed for recipe %d: %w", recipe.ID, err)
		}
		if set.IsEmpty() {
			continue
		}
		sets = append(sets, set)
		if set.HasUnlinked(recipe) {
			hasUnlinked = true
		}
	}

	if hasUnlinked {
		r.logger.Info().
			Int("recipes_with_artifacts", len(sets)).
			Msg("Found unlinked artifacts - awaiting reconciliation choice")
	}

	return sets, hasUnlinked, nil
}
