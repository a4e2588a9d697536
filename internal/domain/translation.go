package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Translation
var (
	ErrEmptyTranslationID  = errors.New("translation ID cannot be empty")
	ErrEmptyOriginalText   = errors.New("original text cannot be empty")
	ErrEmptyTranslatedText = errors.New("translated text cannot be empty")
)

// Translation is a saved vocabulary entry: a piece of original text and its
// translation, optionally scoped to a single book. A nil BookID marks a
// global entry visible from every book. OriginalText is stored normalized
// (trimmed, lowercased) so lookups are case-insensitive.
type Translation struct {
	ID              uuid.UUID  `json:"id"`
	BookID          *uuid.UUID `json:"book_id,omitempty"`
	OriginalText    string     `json:"original_text"`
	TranslatedText  string     `json:"translated_text"`
	ContextSentence string     `json:"context_sentence,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewTranslation creates a Translation, normalizing the original text.
// Returns an error if validation fails.
func NewTranslation(bookID *uuid.UUID, originalText, translatedText, contextSentence string) (*Translation, error) {
	now := time.Now().UTC()
	t := &Translation{
		ID:              uuid.New(),
		BookID:          bookID,
		OriginalText:    NormalizeTranslationText(originalText),
		TranslatedText:  strings.TrimSpace(translatedText),
		ContextSentence: contextSentence,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}

	return t, nil
}

// Validate checks if the Translation has valid data.
func (t *Translation) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTranslationID
	}
	if t.OriginalText == "" {
		return ErrEmptyOriginalText
	}
	if t.TranslatedText == "" {
		return ErrEmptyTranslatedText
	}
	return nil
}

// NormalizeTranslationText trims and lowercases text used as a translation
// lookup key. The same normalization feeds the auto-translation cache key.
func NormalizeTranslationText(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
