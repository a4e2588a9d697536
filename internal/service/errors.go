package service

import "errors"

// Common service errors - sentinel errors used across service implementations.
// These errors represent conditions that callers may want to check for with
// errors.Is().
var (
	// ErrRateLimitExceeded indicates the same text was auto-translated
	// again before the per-key minimum interval elapsed.
	// API layer should map this to HTTP 429 Too Many Requests.
	ErrRateLimitExceeded = errors.New("too many translation requests for the same text")

	// ErrCoverNotFound indicates the book exists but carries no cover.
	// API layer should map this to HTTP 404 Not Found.
	ErrCoverNotFound = errors.New("book has no cover")
)
