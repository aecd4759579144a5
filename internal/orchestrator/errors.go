package orchestrator

import "errors"

// Client usage errors rejected synchronously at the command boundary. None of
// these leave a job record behind in an inconsistent state.
var (
	// ErrNoFixFlagSelected is returned when a start request has every fix
	// flag false.
	ErrNoFixFlagSelected = errors.New("at least one fix flag must be selected")

	// ErrEmptyTargetSet is returned when target resolution yields zero
	// recipes.
	ErrEmptyTargetSet = errors.New("target resolution yielded no recipes")

	// ErrInvalidJobState is returned when a reconciliation answer arrives
	// for a job that is not awaiting one, or carries an unknown choice.
	ErrInvalidJobState = errors.New("job is not in a valid state for this operation")

	// ErrJobNotRunning is returned when cancellation is requested for a job
	// that is not running.
	ErrJobNotRunning = errors.New("job is not running")

	// ErrCannotResume is returned when resume is requested for a job that
	// is not resumable.
	ErrCannotResume = errors.New("job cannot be resumed")

	// ErrDuplicateRecipe is returned when a specific-generation name
	// fuzzy-matches an existing recipe and the caller has not confirmed the
	// target is genuinely distinct.
	ErrDuplicateRecipe = errors.New("recipe name closely matches an existing recipe")
)
