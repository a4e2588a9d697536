package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/klausbr/readium-api/internal/api/shared"
	"github.com/klausbr/readium-api/internal/domain"
	"github.com/klausbr/readium-api/internal/service"
)

// TranslationResponse represents the response data for a saved translation
type TranslationResponse struct {
	ID              string    `json:"id"`
	BookID          *string   `json:"book_id,omitempty"`
	OriginalText    string    `json:"original_text"`
	TranslatedText  string    `json:"translated_text"`
	ContextSentence string    `json:"context_sentence,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// AutoTranslationResponse represents a provider translation
type AutoTranslationResponse struct {
	TranslatedText   string `json:"translated_text"`
	DetectedLanguage string `json:"detected_language"`
}

// SaveTranslationRequest represents the request body for saving a
// vocabulary entry. A missing book_id saves a global entry.
type SaveTranslationRequest struct {
	BookID          *string `json:"book_id"`
	OriginalText    string  `json:"original_text"    validate:"required"`
	TranslatedText  string  `json:"translated_text"  validate:"required"`
	ContextSentence string  `json:"context_sentence"`
}

// AutoTranslationRequest represents the request body for auto-translation
type AutoTranslationRequest struct {
	Text           string `json:"text" validate:"required"`
	TargetLanguage string `json:"target_language"`
}

// TranslationHandler handles translation-related HTTP requests
type TranslationHandler struct {
	translationService service.TranslationService
	logger             *slog.Logger
}

// NewTranslationHandler creates a new TranslationHandler
func NewTranslationHandler(translationService service.TranslationService, logger *slog.Logger) *TranslationHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TranslationHandler")
	}

	return &TranslationHandler{
		translationService: translationService,
		logger:             logger.With(slog.String("component", "translation_handler")),
	}
}

// SaveTranslation handles POST /translations requests
func (h *TranslationHandler) SaveTranslation(w http.ResponseWriter, r *http.Request) {
	var req SaveTranslationRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	var bookID *uuid.UUID
	if req.BookID != nil && *req.BookID != "" {
		parsed, err := uuid.Parse(*req.BookID)
		if err != nil {
			HandleAPIError(w, r, domain.ErrInvalidID, "Invalid book_id format")
			return
		}
		bookID = &parsed
	}

	entry, err := h.translationService.SaveTranslation(
		r.Context(), bookID, req.OriginalText, req.TranslatedText, req.ContextSentence)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, translationToResponse(entry))
}

// AutoTranslate handles POST /translations/auto requests
func (h *TranslationHandler) AutoTranslate(w http.ResponseWriter, r *http.Request) {
	var req AutoTranslationRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	result, err := h.translationService.AutoTranslate(r.Context(), req.Text, req.TargetLanguage)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, AutoTranslationResponse{
		TranslatedText:   result.TranslatedText,
		DetectedLanguage: result.DetectedLanguage,
	})
}

// ListForBook handles GET /books/{id}/translations requests. The
// response merges book-scoped entries with global ones, scoped entries
// shadowing global entries for the same original text.
func (h *TranslationHandler) ListForBook(w http.ResponseWriter, r *http.Request) {
	bookID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	entries, err := h.translationService.ListForBook(r.Context(), bookID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, translationsToResponse(entries))
}

// ListGlobal handles GET /translations requests
func (h *TranslationHandler) ListGlobal(w http.ResponseWriter, r *http.Request) {
	entries, err := h.translationService.ListGlobal(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, translationsToResponse(entries))
}

func translationToResponse(entry *domain.Translation) TranslationResponse {
	response := TranslationResponse{
		ID:              entry.ID.String(),
		OriginalText:    entry.OriginalText,
		TranslatedText:  entry.TranslatedText,
		ContextSentence: entry.ContextSentence,
		CreatedAt:       entry.CreatedAt,
		UpdatedAt:       entry.UpdatedAt,
	}
	if entry.BookID != nil {
		id := entry.BookID.String()
		response.BookID = &id
	}
	return response
}

func translationsToResponse(entries []*domain.Translation) []TranslationResponse {
	responses := make([]TranslationResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, translationToResponse(entry))
	}
	return responses
}
