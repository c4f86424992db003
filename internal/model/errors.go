package model

import "errors"

// Common errors used across the application
var (
	// Identity errors
	ErrNotAuthenticated = errors.New("no owner identity available")
	ErrNotDraftOwner    = errors.New("draft belongs to another owner")

	// Draft errors
	ErrDraftNotFound  = errors.New("draft not found")
	ErrDraftCompleted = errors.New("draft is already completed")
	ErrEmptyName      = errors.New("draft name must not be empty")
	ErrNoConflict     = errors.New("draft is not in conflict state")

	// Storage errors
	ErrCacheFailure = errors.New("local draft cache failure")

	// Sync errors
	ErrRemoteUnavailable = errors.New("remote draft store unavailable")
)
