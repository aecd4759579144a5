package models

// FoundArtifact is one object discovered in the artifact store during the
// check-before-generate reconciliation pass.
type FoundArtifact struct {
	URL       string `json:"url"`
	StepIndex int    `json:"step_index"` // step image position; 0 for non-step artifacts
}

// ExistingArtifactSet is the per-recipe reconciliation result: everything the
// store already holds for a recipe. Computed fresh on every reconciliation
// check, never persisted.
type ExistingArtifactSet struct {
	RecipeID   int64  `json:"recipe_id"`
	RecipeName string `json:"recipe_name"`

	MainImage          *FoundArtifact  `json:"main_image,omitempty"`
	IngredientsImage   *FoundArtifact  `json:"ingredients_image,omitempty"`
	BeginnerStepImages []FoundArtifact `json:"beginner_step_images,omitempty"`
	AdvancedStepImages []FoundArtifact `json:"advanced_step_images,omitempty"`
}

// IsEmpty reports whether the store held nothing for this recipe
func (s *ExistingArtifactSet) IsEmpty() bool {
	return s.MainImage == nil && s.IngredientsImage == nil &&
		len(s.BeginnerStepImages) == 0 && len(s.AdvancedStepImages) == 0
}

// HasUnlinked reports whether the store holds at least one artifact the
// recipe record does not reference yet (content generated by a prior run
// that crashed before persisting the link).
func (s *ExistingArtifactSet) HasUnlinked(r *Recipe) bool {
	if s.MainImage != nil && r.ImageURL == "" {
		return true
	}
	if s.IngredientsImage != nil && r.IngredientsImageURL == "" {
		return true
	}
	if len(s.BeginnerStepImages) > len(r.StepsBeginnerImages) {
		return true
	}
	if len(s.AdvancedStepImages) > len(r.StepsAdvancedImages) {
		return true
	}
	return false
}

// ReconciliationChoice is the caller's answer to the check-before-generate
// prompt.
type ReconciliationChoice string

const (
	ReconciliationGenerate   ReconciliationChoice = "generate"
	ReconciliationLoadFromS3 ReconciliationChoice = "load_from_s3"
)

// IsValid returns true for a known choice
func (c ReconciliationChoice) IsValid() bool {
	return c == ReconciliationGenerate || c == ReconciliationLoadFromS3
}
