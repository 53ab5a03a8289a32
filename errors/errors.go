// Package errors provides error types and utilities for the miniworker library.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions
var (
	ErrEmptyWorkerName    = errors.New("worker name cannot be empty")
	ErrNilWorkerFactory   = errors.New("worker factory cannot be nil")
	ErrInvalidWorker      = errors.New("factory does not produce a valid worker")
	ErrWorkerTypeNotFound = errors.New("worker type not registered")
	ErrNotConnected       = errors.New("not connected")
)

// RegistrationError indicates a worker type reference could not be
// resolved to a valid worker.
type RegistrationError struct {
	TypeRef string // worker type reference being registered
	Err     error  // underlying error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("cannot register worker type %q: %v", e.TypeRef, e.Err)
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// UnknownWorkerError indicates a worker name was never registered
// with the manager.
type UnknownWorkerError struct {
	Name string
}

func (e *UnknownWorkerError) Error() string {
	return fmt.Sprintf("unknown worker: %s", e.Name)
}

// AlreadyRunningError indicates a start attempt on a worker that is
// already live.
type AlreadyRunningError struct {
	Name string
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("worker %s is already running", e.Name)
}

// NotRunningError indicates a stop attempt on a worker that is not live.
type NotRunningError struct {
	Name string
}

func (e *NotRunningError) Error() string {
	return fmt.Sprintf("worker %s is not running", e.Name)
}

// StartError wraps an OS-level failure to spawn a worker process.
type StartError struct {
	Name string
	Err  error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("failed to start worker %s: %v", e.Name, e.Err)
}

func (e *StartError) Unwrap() error {
	return e.Err
}

// ProcessNotFoundError indicates the liveness check was positive but
// no matching process was found in the process table (a race or a
// stale marker).
type ProcessNotFoundError struct {
	Name     string
	UniqueID string
}

func (e *ProcessNotFoundError) Error() string {
	return fmt.Sprintf("could not find process for worker %s (id %s)", e.Name, e.UniqueID)
}

// Helper functions for creating errors

// NewRegistrationError creates a new registration error
func NewRegistrationError(typeRef string, err error) error {
	return &RegistrationError{TypeRef: typeRef, Err: err}
}

// NewUnknownWorkerError creates a new unknown-worker error
func NewUnknownWorkerError(name string) error {
	return &UnknownWorkerError{Name: name}
}

// NewAlreadyRunningError creates a new already-running error
func NewAlreadyRunningError(name string) error {
	return &AlreadyRunningError{Name: name}
}

// NewNotRunningError creates a new not-running error
func NewNotRunningError(name string) error {
	return &NotRunningError{Name: name}
}

// NewStartError creates a new start error
func NewStartError(name string, err error) error {
	return &StartError{Name: name, Err: err}
}

// NewProcessNotFoundError creates a new process-not-found error
func NewProcessNotFoundError(name, uniqueID string) error {
	return &ProcessNotFoundError{Name: name, UniqueID: uniqueID}
}

// IsUnknownWorker checks if an error is an unknown-worker failure
func IsUnknownWorker(err error) bool {
	var e *UnknownWorkerError
	return errors.As(err, &e)
}

// IsAlreadyRunning checks if an error is an already-running failure
func IsAlreadyRunning(err error) bool {
	var e *AlreadyRunningError
	return errors.As(err, &e)
}

// IsNotRunning checks if an error is a not-running failure
func IsNotRunning(err error) bool {
	var e *NotRunningError
	return errors.As(err, &e)
}
