package usecases

import "fmt"

// ValidationError reports input that can never succeed as submitted.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a missing or inaccessible resource.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

func notFoundf(format string, args ...interface{}) error {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// LimitExceededError rejects an export whose range matches too many sessions.
type LimitExceededError struct {
	Limit int64
	Count int64
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("Export exceeds maximum record limit of %d", e.Limit)
}
