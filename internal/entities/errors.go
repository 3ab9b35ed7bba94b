package entities

import (
	"errors"
	"fmt"
)

// ErrTimeout is returned when a store request exceeds its deadline.
var ErrTimeout = errors.New("request timed out")

// ErrRateLimited is returned when a throttled action is requested too often.
var ErrRateLimited = errors.New("too many requests, try again later")

// ValidationError is raised before any network call when input is rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError reports a failed existence check ahead of a mutation or a lookup.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// APIError is a non-2xx answer from a remote service.
type APIError struct {
	Status  int
	Message string
	Details any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
