package core

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors - centralized error definitions
var (
	// Validation errors
	ErrInvalidInput   = errors.New("invalid input")
	ErrLengthMismatch = errors.New("length mismatch")

	// Operation errors
	ErrUnsupportedArea = errors.New("operation not supported for area")
	ErrUnknownArea     = errors.New("unknown knowledge area")

	// Data availability (soft - callers normally resolve these via fallbacks)
	ErrNoData = errors.New("no data available")
)

// Error constructors with context

// NewCorrectAnswersError reports a correct-answer count outside [0, total].
func NewCorrectAnswersError(got, total int) error {
	return fmt.Errorf("%w: correct answers must be between 0 and %d, got %d", ErrInvalidInput, total, got)
}

// NewEssayScoreError reports an essay score outside [0, 1000].
func NewEssayScoreError(got float64) error {
	return fmt.Errorf("%w: essay score must be between 0 and 1000, got %g", ErrInvalidInput, got)
}

// NewScoreRangeError reports a computed score outside the [0, 1000] scale.
func NewScoreRangeError(score float64) error {
	return fmt.Errorf("%w: score %g must be between 0 and 1000", ErrInvalidInput, score)
}

// NewConfidenceError reports a confidence level outside the open (0, 1) interval.
func NewConfidenceError(got float64) error {
	return fmt.Errorf("%w: confidence level must be between 0 and 1 exclusive, got %g", ErrInvalidInput, got)
}

// NewValidationError bundles a list of validation problems into one error.
func NewValidationError(problems []string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(problems, "; "))
}

// NewLengthMismatchError reports calibration lists of unequal length.
func NewLengthMismatchError(correct, scores int) error {
	return fmt.Errorf("%w: correct answers has %d entries, scores has %d", ErrLengthMismatch, correct, scores)
}

// NewUnsupportedAreaError reports an operation that has no model for the area.
func NewUnsupportedAreaError(area, operation string) error {
	return fmt.Errorf("%w: %s has no %s", ErrUnsupportedArea, area, operation)
}
