package domain

import (
	"errors"
	"fmt"
)

// ErrEmployeeLimitReached is returned when adding an employee would exceed
// the tenant plan's headcount limit.
var ErrEmployeeLimitReached = errors.New("employee limit reached for plan")

// ValidationError marks a missing or malformed required field. Handlers map
// it to a 400 with the field name.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing or invalid field: %s", e.Field)
}

func NewValidationError(field string) error {
	return &ValidationError{Field: field}
}
