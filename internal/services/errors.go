// Package services implements the application logic of the support backend:
// identity and bearer sessions, chat session lifecycle, message history, and
// the retrieval-augmented response pipeline. This file centralizes the
// service-level error values so callers can match them with errors.Is and
// translate them into user-facing messages at the transport layer.
package services

import "errors"

// Validation errors. Reported to the caller, never retried.
var (
	// ErrInvalidUsername is returned when a username fails the 3–20 character
	// alphanumeric/hyphen/underscore rule.
	ErrInvalidUsername = errors.New("username must be 3-20 characters of letters, numbers, hyphens, or underscores")

	// ErrInvalidPassword is returned when a password is shorter than 6 or
	// longer than 100 characters.
	ErrInvalidPassword = errors.New("password must be 6-100 characters")
)

// Identity errors.
var (
	// ErrUsernameTaken indicates a registration attempt with a username that
	// already has an account.
	ErrUsernameTaken = errors.New("username already exists")

	// ErrUserNotFound indicates a login attempt for an unknown username.
	ErrUserNotFound = errors.New("username not found")

	// ErrBadCredentials indicates a login attempt with a wrong password.
	ErrBadCredentials = errors.New("incorrect password")
)

// Chat errors.
var (
	// ErrChatNotFound indicates that the requested chat session does not
	// exist or does not belong to the current user. Deletion paths treat the
	// condition as a no-op instead.
	ErrChatNotFound = errors.New("chat not found")

	// ErrEmptyMessage is returned when a message append carries no content.
	ErrEmptyMessage = errors.New("message is empty")
)
