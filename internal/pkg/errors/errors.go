package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConflict signals a state conflict, e.g. a locked scene or a
	// version-mismatched save without force.
	ErrConflict = errors.New("conflict")
	// ErrBackendTransient marks a retryable upstream failure (5xx, timeout,
	// transport). The orchestrator retries these.
	ErrBackendTransient = errors.New("backend transient failure")
	// ErrBackendPermanent marks a non-retryable upstream failure (4xx).
	ErrBackendPermanent = errors.New("backend permanent failure")
	// ErrBusy signals a lock or semaphore that could not be acquired in time.
	ErrBusy = errors.New("resource busy")
)
