package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/klausbr/readium-api/internal/domain"
)

// TranslationStore defines the interface for saved vocabulary translations.
type TranslationStore interface {
	// Upsert creates a translation or, when an entry with the same scope
	// (book or global) and normalized original text already exists,
	// replaces its translated text and context sentence.
	Upsert(ctx context.Context, translation *domain.Translation) error

	// FindByBookID retrieves translations scoped to the given book.
	FindByBookID(ctx context.Context, bookID uuid.UUID) ([]*domain.Translation, error)

	// FindGlobal retrieves translations not scoped to any book.
	FindGlobal(ctx context.Context) ([]*domain.Translation, error)

	// DeleteByBookID removes all translations scoped to the given book.
	// Deleting a book cascades here so vocabulary does not outlive it.
	DeleteByBookID(ctx context.Context, bookID uuid.UUID) error

	// WithTx returns a new TranslationStore instance that uses the
	// provided transaction.
	WithTx(tx *sql.Tx) TranslationStore
}
