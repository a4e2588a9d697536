package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/klausbr/readium-api/internal/api/shared"
	"github.com/klausbr/readium-api/internal/domain"
	"github.com/klausbr/readium-api/internal/service"
	"github.com/klausbr/readium-api/internal/storage"
	"github.com/klausbr/readium-api/internal/store"
	"github.com/klausbr/readium-api/internal/translation"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, store.ErrBookNotFound),
		errors.Is(err, store.ErrTranslationNotFound),
		errors.Is(err, service.ErrCoverNotFound),
		errors.Is(err, storage.ErrBlobNotFound):
		return http.StatusNotFound

	// Bad request errors
	case errors.Is(err, domain.ErrUnsupportedFormat),
		errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Rate limiting
	case errors.Is(err, service.ErrRateLimitExceeded):
		return http.StatusTooManyRequests

	// Upstream provider failures
	case errors.Is(err, translation.ErrExternalService):
		return http.StatusBadGateway

	// Default: internal server error (includes storage.ErrStorage)
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, store.ErrBookNotFound):
		return "Book not found"

	case errors.Is(err, store.ErrTranslationNotFound):
		return "Translation not found"

	case errors.Is(err, service.ErrCoverNotFound):
		return "Cover not found"

	case errors.Is(err, storage.ErrBlobNotFound):
		return "Stored file not found"

	case errors.Is(err, domain.ErrUnsupportedFormat):
		return "Unsupported file format. Only .pdf and .epub are allowed"

	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID format"

	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request data"

	case errors.Is(err, service.ErrRateLimitExceeded):
		return "Too many translation requests for the same text"

	case errors.Is(err, translation.ErrExternalService):
		return "Translation provider is unavailable"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError maps err to a status code and safe message and writes the
// response, logging the full error. An empty overrideMessage keeps the
// mapped safe message.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, overrideMessage string) {
	status := MapErrorToStatusCode(err)
	message := overrideMessage
	if message == "" {
		message = GetSafeErrorMessage(err)
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	// Check if this is likely a validation error message
	if strings.Contains(errMsg, "Field validation") {
		// Example format: "Key: 'AutoTranslationRequest.Text' Error:Field validation for 'Text' failed on the 'required' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "oneof":
		return "invalid value"
	case "min", "gte":
		return "too small"
	case "max", "lte":
		return "too large"
	default:
		return "validation failed"
	}
}
