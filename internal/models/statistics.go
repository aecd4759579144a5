package models

// Statistics is the read-only aggregate projection served to monitoring
// clients. Derived on demand, never stored.
type Statistics struct {
	TotalRecipes      int `json:"total_recipes"`
	IncompleteRecipes int `json:"incomplete_recipes"`

	// Missing-field counts across the catalog, keyed by operation
	MissingMainImage        int `json:"missing_main_image"`
	MissingIngredientsImage int `json:"missing_ingredients_image"`
	MissingStepImages       int `json:"missing_step_images"`
	MissingStepText         int `json:"missing_step_text"`
	MissingIngredientsText  int `json:"missing_ingredients_text"`

	// Job aggregates
	TotalJobs     int `json:"total_jobs"`
	RunningJobs   int `json:"running_jobs"`
	CompletedJobs int `json:"completed_jobs"`
	FailedJobs    int `json:"failed_jobs"`
	CancelledJobs int `json:"cancelled_jobs"`

	TotalRecipesSucceeded int `json:"total_recipes_succeeded"`
	TotalRecipesFailed    int `json:"total_recipes_failed"`
}

// MissingCount returns the missing-field count for an operation
func (s *Statistics) MissingCount(op Operation) int {
	switch op {
	case OperationMainImage:
		return s.MissingMainImage
	case OperationIngredientsImage:
		return s.MissingIngredientsImage
	case OperationStepImages:
		return s.MissingStepImages
	case OperationStepText:
		return s.MissingStepText
	case OperationIngredientsText:
		return s.MissingIngredientsText
	}
	return 0
}
