package business

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports a malformed request. Nothing was persisted.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validationf builds a ValidationError.
func Validationf(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// FreezeViolation rejects a write that changes a frozen platform.
type FreezeViolation struct {
	PeriodDate string
	Platforms  []string
}

func (e *FreezeViolation) Error() string {
	return fmt.Sprintf("platform %s already closed billing for this cutoff (period %s)",
		strings.Join(e.Platforms, ", "), e.PeriodDate)
}

// PersistenceError wraps a database failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

// ErrNotConfigured marks a model without an active calculator
// configuration. Calculations return a zero result instead.
var ErrNotConfigured = errors.New("model has no active calculator configuration")
