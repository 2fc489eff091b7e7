package models

import (
	"errors"
	"fmt"
)

// Registry operation errors. Every one of these is a terminal rejection of a
// single call: the registry commits no partial state before failing, so a
// caller that sees one of these observes the store exactly as it was.

// AlreadyInitializedError is returned when initialization is requested for
// an owner whose registry already exists.
type AlreadyInitializedError struct {
	Owner string
}

func (e *AlreadyInitializedError) Error() string {
	return fmt.Sprintf("registry already initialized for owner %q", e.Owner)
}

// NotInitializedError is returned when an operation requires a registry that
// was never initialized for the owner.
type NotInitializedError struct {
	Owner string
}

func (e *NotInitializedError) Error() string {
	return fmt.Sprintf("registry not initialized for owner %q", e.Owner)
}

// NotAuthorizedError is returned when the calling identity does not match
// the registry owner.
type NotAuthorizedError struct {
	Owner  string
	Caller string
}

func (e *NotAuthorizedError) Error() string {
	return fmt.Sprintf("caller %q is not the registry owner %q", e.Caller, e.Owner)
}

// LocationNotFoundError is returned when a lookup names a key with no stored
// measurement.
type LocationNotFoundError struct {
	Key LocationKey
}

func (e *LocationNotFoundError) Error() string {
	return fmt.Sprintf("no measurement stored for location %s", e.Key)
}

// StaleOrFutureDataError is returned when a write carries an observation
// timestamp ahead of the accepted wall-clock time. Note the check refuses
// future timestamps only: arbitrarily old or out-of-order values pass and
// overwrite in place, so the "stale" half of the name does not reflect any
// enforced behavior. The name is retained for compatibility with existing
// consumers of the error kind.
type StaleOrFutureDataError struct {
	ObservedAt uint64
	AcceptedAt uint64
}

func (e *StaleOrFutureDataError) Error() string {
	return fmt.Sprintf("observed_at %d is ahead of accepted time %d", e.ObservedAt, e.AcceptedAt)
}

// IsAlreadyInitialized reports whether err is an AlreadyInitializedError.
func IsAlreadyInitialized(err error) bool {
	var target *AlreadyInitializedError
	return errors.As(err, &target)
}

// IsNotInitialized reports whether err is a NotInitializedError.
func IsNotInitialized(err error) bool {
	var target *NotInitializedError
	return errors.As(err, &target)
}

// IsNotAuthorized reports whether err is a NotAuthorizedError.
func IsNotAuthorized(err error) bool {
	var target *NotAuthorizedError
	return errors.As(err, &target)
}

// IsLocationNotFound reports whether err is a LocationNotFoundError.
func IsLocationNotFound(err error) bool {
	var target *LocationNotFoundError
	return errors.As(err, &target)
}

// IsStaleOrFutureData reports whether err is a StaleOrFutureDataError.
func IsStaleOrFutureData(err error) bool {
	var target *StaleOrFutureDataError
	return errors.As(err, &target)
}

// ValidationError represents a malformed input rejected before it reaches
// the registry.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
