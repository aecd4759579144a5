package models

import (
	"time"
)

// Recipe is the catalog record whose content fields the orchestrator fills in.
// Recipe IDs are ordered integers; jobs always process recipes in ascending
// ID order so the resumption cursor is well defined.
type Recipe struct {
	ID          int64  `json:"id" badgerhold:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Region      string `json:"region"` // cuisine / region filter key

	Ingredients []string `json:"ingredients"`
	Steps       []string `json:"steps"` // source steps the generated tracks derive from

	// Generated text tracks. Beginner targets 10 steps, advanced 8.
	StepsBeginner []string `json:"steps_beginner"`
	StepsAdvanced []string `json:"steps_advanced"`

	// Generated image links. Step image slices are strictly index-matched
	// to the corresponding step text track.
	ImageURL            string   `json:"image_url"`
	IngredientsImageURL string   `json:"ingredients_image"`
	StepsBeginnerImages []string `json:"steps_beginner_images"`
	StepsAdvancedImages []string `json:"steps_advanced_images"`

	IsComplete bool      `json:"is_complete"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DesiredBeginnerSteps and DesiredAdvancedSteps are the target step counts
// for the generated text tracks.
const (
	DesiredBeginnerSteps = 10
	DesiredAdvancedSteps = 8
)

// StepTrack identifies one of the two generated step tracks
type StepTrack string

const (
	TrackBeginner StepTrack = "beginner"
	TrackAdvanced StepTrack = "advanced"
)

// StepsFor returns the step text for a track
func (r *Recipe) StepsFor(track StepTrack) []string {
	if track == TrackAdvanced {
		return r.StepsAdvanced
	}
	return r.StepsBeginner
}

// StepImagesFor returns the step image links for a track
func (r *Recipe) StepImagesFor(track StepTrack) []string {
	if track == TrackAdvanced {
		return r.StepsAdvancedImages
	}
	return r.StepsBeginnerImages
}

// FieldComplete reports whether the content field behind the given operation
// is already fully populated. A complete field is never overwritten.
func (r *Recipe) FieldComplete(op Operation) bool {
	switch op {
	case OperationMainImage:
		return r.ImageURL != ""
	case OperationIngredientsImage:
		return r.IngredientsImageURL != ""
	case OperationStepText:
		return len(r.StepsBeginner) >= DesiredBeginnerSteps &&
			len(r.StepsAdvanced) >= DesiredAdvancedSteps
	case OperationStepImages:
		// Step images are complete only when both tracks have text and a
		// strictly index-matched image per step.
		if len(r.StepsBeginner) == 0 && len(r.StepsAdvanced) == 0 {
			return false
		}
		return stepImagesFilled(r.StepsBeginnerImages, len(r.StepsBeginner)) &&
			stepImagesFilled(r.StepsAdvancedImages, len(r.StepsAdvanced))
	case OperationIngredientsText:
		return len(r.Ingredients) > 0
	}
	return false
}

// stepImagesFilled reports whether every step up to count carries a non-empty
// image link. A failed generation persists an empty placeholder slot, so
// slice length alone does not mean the field is done.
func stepImagesFilled(images []string, count int) bool {
	if len(images) < count {
		return false
	}
	for _, url := range images[:count] {
		if url == "" {
			return false
		}
	}
	return true
}

// MissingOperations returns the requested operations whose backing field is
// incomplete, in fixed processing order.
func (r *Recipe) MissingOperations(flags FixFlags) []Operation {
	missing := make([]Operation, 0, 5)
	for _, op := range flags.Operations() {
		if !r.FieldComplete(op) {
			missing = append(missing, op)
		}
	}
	return missing
}
