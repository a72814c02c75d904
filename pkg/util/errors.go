// Package util provides utility functions and common error types.
package util

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for engine and collaborator failures
var (
	ErrNotConnected      = errors.New("device not connected")
	ErrAlreadyExists     = errors.New("resource already exists")
	ErrNotFound          = errors.New("resource not found")
	ErrConnectionFailed  = errors.New("connection failed")
	ErrCommandFailed     = errors.New("command failed")
	ErrValidationBlocked = errors.New("validation blocked")
	ErrUserAborted       = errors.New("aborted by user")
	ErrRollbackFailed    = errors.New("rollback failed")
	ErrRollbackSkipped   = errors.New("rollback skipped")
	ErrNotReversible     = errors.New("command not reversible")
	ErrPlanSealed        = errors.New("plan sealed for execution")
	ErrValidationFailed  = errors.New("validation failed")
)

// DeviceError wraps an error with device context and an operation name.
type DeviceError struct {
	Device    string
	Operation string
	Err       error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Device, e.Operation, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// NewDeviceError creates a device-scoped error
func NewDeviceError(device, operation string, err error) *DeviceError {
	return &DeviceError{Device: device, Operation: operation, Err: err}
}

// ValidationError represents one or more validation failures
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "validation failed: " + e.Errors[0]
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// NewValidationError creates a validation error from messages
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Errors: messages}
}

// ValidationBuilder helps accumulate validation errors
type ValidationBuilder struct {
	errors []string
}

// Add adds an error message if condition is false
func (v *ValidationBuilder) Add(condition bool, message string) *ValidationBuilder {
	if !condition {
		v.errors = append(v.errors, message)
	}
	return v
}

// AddError adds an error message unconditionally
func (v *ValidationBuilder) AddError(message string) *ValidationBuilder {
	v.errors = append(v.errors, message)
	return v
}

// AddErrorf adds a formatted error message
func (v *ValidationBuilder) AddErrorf(format string, args ...interface{}) *ValidationBuilder {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
	return v
}

// HasErrors returns true if there are validation errors
func (v *ValidationBuilder) HasErrors() bool {
	return len(v.errors) > 0
}

// Build returns the validation error or nil if no errors
func (v *ValidationBuilder) Build() error {
	if len(v.errors) == 0 {
		return nil
	}
	return &ValidationError{Errors: v.errors}
}
