// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import (
	"errors"
	"fmt"
)

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPermissionDenied indicates the actor may not touch the resource.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrUnauthorized indicates failed authentication.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrClaimExpired indicates the session claim is past its expiry or stale.
	ErrClaimExpired = errors.New("claim expired")

	// ErrClaimMalformed indicates the session claim failed parsing or signature checks.
	ErrClaimMalformed = errors.New("claim malformed")

	// ErrRateLimited indicates temporary sign-in lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., email taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrCollaboratorTimeout indicates a collaborator call failed or timed out.
	// Retryable; the store is never mutated when it is returned.
	ErrCollaboratorTimeout = errors.New("collaborator timeout")
)

// ValidationError reports a rejected field. Validation always runs before
// any mutation, so a ValidationError implies nothing was persisted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// Invalid builds a ValidationError.
func Invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
