package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrRecipeNotFound     = errors.New("recipe not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrShortLinkNotFound  = errors.New("short link not found")
	ErrIngredientNotFound = errors.New("ingredient not found")
	ErrTagNotFound        = errors.New("tag not found")

	// ErrOperationFailed hides store failures from clients. The cause is
	// logged where it happens.
	ErrOperationFailed = errors.New("operation failed")

	ErrForbidden    = errors.New("you do not have permission to perform this action")
	ErrInvalidToken = errors.New("invalid token")

	// ErrUsernameTaken means a token names a username held by another id
	ErrUsernameTaken = errors.New("username already belongs to another account")
)

// ValidationError carries every problem found in a payload, keyed by field
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError returns a ValidationError with a single message
func NewValidationError(field, message string) *ValidationError {
	e := &ValidationError{}
	e.Add(field, message)
	return e
}

// Add appends a message for field
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

// HasErrors reports whether any message was collected
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// ConflictError reports a write that contradicts existing state, such as a
// duplicate favorite or removing something that is not there
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// IsValidation reports whether err is a *ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConflict reports whether err is a *ConflictError
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
