// Package handlers defines the HTTP-layer error codes used across all API
// endpoints.
//
// This file centralizes the symbolic error code constants passed to the
// `fail()` helper. The codes give clients a stable, machine-readable error
// taxonomy alongside the human-readable messages.
//
// Conventions:
//   - Codes are lowercase snake_case.
//   - Generic codes (bad_request, unauthorized, not_found) mirror common HTTP
//     status semantics.
//   - Domain-specific codes (username_taken, invalid_credentials) are for
//     business outcomes a status alone cannot convey.
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeValidationFailed   = "validation_failed"
	ErrCodeUsernameTaken      = "username_taken"
	ErrCodeInvalidCredentials = "invalid_credentials"
	ErrCodeStoreUnavailable   = "store_unavailable"
	ErrCodeMethodNotAllowed   = "method_not_allowed"
)
