package service

import "errors"

var (
	// ErrValidation marks a missing or malformed input field. Never retried,
	// resolved at the point of input.
	ErrValidation = errors.New("validation failed")

	// ErrPrecondition marks an operation rejected by lifecycle policy, such
	// as deleting a claim that was never archived.
	ErrPrecondition = errors.New("precondition failed")

	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrConflict         = errors.New("conflict")
)
