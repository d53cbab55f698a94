package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Configuration errors
	ErrInvalidThreshold = errors.New("threshold must be between 0 and 1")
	ErrUnknownMethod    = errors.New("unknown method")

	// Structural errors
	ErrColumnNotFound     = errors.New("column not found")
	ErrEmptyTable         = errors.New("table has no rows")
	ErrShapeMismatch      = errors.New("column lengths do not match")
	ErrDuplicateColumn    = errors.New("duplicate column name")
	ErrUnsupportedFormat  = errors.New("unsupported file format")
	ErrUnsupportedEncoder = errors.New("unsupported text encoding")

	// Statistical errors
	ErrInsufficientData = errors.New("insufficient data for analysis")
	ErrFitFailed        = errors.New("distribution fit failed")
	ErrFitTimeout       = fmt.Errorf("%w: timeout", ErrFitFailed)
	ErrSingularSystem   = errors.New("singular linear system")

	// Storage errors
	ErrRunNotFound = errors.New("run not found")
)

// Error constructors with context
func NewThresholdError(name string, value float64) error {
	return fmt.Errorf("%w: %s=%v", ErrInvalidThreshold, name, value)
}

func NewUnknownMethodError(kind, name string) error {
	return fmt.Errorf("%w: %s method %q", ErrUnknownMethod, kind, name)
}

func NewColumnNotFoundError(name string) error {
	return fmt.Errorf("%w: %s", ErrColumnNotFound, name)
}

// Error checking helpers
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidThreshold) ||
		errors.Is(err, ErrUnknownMethod)
}

func IsStructuralError(err error) bool {
	return errors.Is(err, ErrColumnNotFound) ||
		errors.Is(err, ErrShapeMismatch) ||
		errors.Is(err, ErrDuplicateColumn) ||
		errors.Is(err, ErrUnsupportedFormat)
}

func IsFitError(err error) bool {
	return errors.Is(err, ErrFitFailed) ||
		errors.Is(err, ErrInsufficientData)
}
