package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// RunID identifies one execution of the preprocessing pipeline
type RunID string

// NewRunID creates a new unique run identifier using UUID v7 for time-ordered generation
func NewRunID() RunID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return RunID(id.String())
}

// String returns the string representation
func (id RunID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id RunID) IsEmpty() bool {
	return id == ""
}

// ParseRunID parses a string into RunID
func ParseRunID(s string) (RunID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("run ID cannot be empty")
	}
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("invalid run ID %q: %w", s, err)
	}
	return RunID(s), nil
}
