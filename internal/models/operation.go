package models

// Operation identifies one of the five content fields a job can fix.
// The order of AllOperations is the fixed processing order within a recipe.
type Operation string

const (
	OperationMainImage        Operation = "main_image"
	OperationIngredientsImage Operation = "ingredients_image"
	OperationStepImages       Operation = "step_images"
	OperationStepText         Operation = "step_text"
	OperationIngredientsText  Operation = "ingredients_text"
)

// AllOperations returns every operation in fixed processing order
func AllOperations() []Operation {
	return []Operation{
		OperationMainImage,
		OperationIngredientsImage,
		OperationStepImages,
		OperationStepText,
		OperationIngredientsText,
	}
}

// IsValid returns true for a known operation
func (o Operation) IsValid() bool {
	switch o {
	case OperationMainImage, OperationIngredientsImage, OperationStepImages,
		OperationStepText, OperationIngredientsText:
		return true
	}
	return false
}

// FixFlags selects which content fields a job should attempt to generate.
// At least one flag must be true to start a job.
type FixFlags struct {
	MainImage        bool `json:"main_image" toml:"main_image"`
	IngredientsImage bool `json:"ingredients_image" toml:"ingredients_image"`
	StepImages       bool `json:"step_images" toml:"step_images"`
	StepText         bool `json:"step_text" toml:"step_text"`
	IngredientsText  bool `json:"ingredients_text" toml:"ingredients_text"`
}

// Any returns true if at least one flag is set
func (f FixFlags) Any() bool {
	return f.MainImage || f.IngredientsImage || f.StepImages || f.StepText || f.IngredientsText
}

// Has reports whether the flag for the given operation is set
func (f FixFlags) Has(op Operation) bool {
	switch op {
	case OperationMainImage:
		return f.MainImage
	case OperationIngredientsImage:
		return f.IngredientsImage
	case OperationStepImages:
		return f.StepImages
	case OperationStepText:
		return f.StepText
	case OperationIngredientsText:
		return f.IngredientsText
	}
	return false
}

// Operations returns the requested operations in fixed processing order
func (f FixFlags) Operations() []Operation {
	ops := make([]Operation, 0, 5)
	for _, op := range AllOperations() {
		if f.Has(op) {
			ops = append(ops, op)
		}
	}
	return ops
}

// OperationOutcome is the per-flag result recorded while processing a recipe
type OperationOutcome string

const (
	OutcomeSuccess OperationOutcome = "success"
	OutcomeFailed  OperationOutcome = "failed"
	OutcomeSkipped OperationOutcome = "skipped"
)
