package ngram

import "errors"

var (
	// ErrInvalidParameter is returned for an n below 1, a context of the
	// wrong length, or an n-gram whose length does not match the model.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrNoMatchingContext is returned when a context never occurred during
	// training, so there is nothing to sample from.
	ErrNoMatchingContext = errors.New("no matching context")
	// ErrModelSealed is returned by Train once the model has been sampled.
	ErrModelSealed = errors.New("model is sealed for training")
	// ErrStepLimit is returned when a sentence exceeds the step cap set with
	// WithMaxSteps.
	ErrStepLimit = errors.New("step limit reached")
)
