// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrUnsupportedFormat is returned when an upload is not one of the
	// supported book formats (.pdf, .epub).
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrInvalidArgument is returned when request data is structurally
	// valid but semantically unusable (empty text, unknown status value).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")
)
