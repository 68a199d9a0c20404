package model

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrAlreadyResolved = errors.New("transfer already resolved")
)

var (
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)
	ErrChoreNotFound    = fmt.Errorf("chore %w", ErrNotFound)
	ErrInstanceNotFound = fmt.Errorf("chore instance %w", ErrNotFound)
	ErrTransferNotFound = fmt.Errorf("transfer request %w", ErrNotFound)
	ErrBudgetNotFound   = fmt.Errorf("budget %w", ErrNotFound)
)

// ValidationError describes malformed input rejected before any mutation.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid is shorthand for building a *ValidationError.
func Invalid(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}
