package recipe

import (
	"errors"
	"fmt"
)

var (
	ErrMalformed           = errors.New("malformed recipe")
	ErrMissingField        = errors.New("missing required field")
	ErrInvalidField        = errors.New("invalid field")
	ErrInvalidArchitecture = errors.New("invalid architecture")
	ErrRead                = errors.New("failed to read recipe")
	ErrFetchFailed         = errors.New("failed to fetch recipe")
)

// Reports a required recipe field that is absent or empty.
type MissingFieldError struct {
	Field string // YAML name of the missing field.
}

// Returns a message naming the missing field.
func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s %q", ErrMissingField, e.Field)
}

// Matches [ErrMissingField].
func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}
