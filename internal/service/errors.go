package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrExternalService is returned when a call to an external service,
	// such as the LLM provider, fails.
	ErrExternalService = errors.New("external service error")
)

// ValidationError reports a request field that failed validation. Handlers
// map it to a 400 response.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// WrapError adds context to an error while keeping the original in the chain.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}
