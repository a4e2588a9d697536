package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/klausbr/readium-api/internal/domain"
	"github.com/klausbr/readium-api/internal/platform/logger"
	"github.com/klausbr/readium-api/internal/store"
)

const translationColumns = `id, book_id, original_text, translated_text, context_sentence, created_at, updated_at`

// PostgresTranslationStore implements the store.TranslationStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTranslationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTranslationStore creates a new PostgreSQL implementation of
// the TranslationStore interface.
func NewPostgresTranslationStore(db store.DBTX, logger *slog.Logger) *PostgresTranslationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTranslationStore{
		db:     db,
		logger: logger.With(slog.String("component", "translation_store")),
	}
}

// Ensure PostgresTranslationStore implements store.TranslationStore interface
var _ store.TranslationStore = (*PostgresTranslationStore)(nil)

// WithTx implements store.TranslationStore.WithTx
func (s *PostgresTranslationStore) WithTx(tx *sql.Tx) store.TranslationStore {
	return &PostgresTranslationStore{
		db:     tx,
		logger: s.logger,
	}
}

// Upsert implements store.TranslationStore.Upsert
// Scope uniqueness is enforced by two partial unique indexes (book-scoped
// and global), so the conflict target is expressed through a uniqueness
// probe-and-update instead of ON CONFLICT.
func (s *PostgresTranslationStore) Upsert(ctx context.Context, translation *domain.Translation) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := translation.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	var (
		result sql.Result
		err    error
	)
	if translation.BookID == nil {
		result, err = s.db.ExecContext(ctx, `
			UPDATE translations
			SET translated_text = $1, context_sentence = $2, updated_at = $3
			WHERE book_id IS NULL AND original_text = $4
		`, translation.TranslatedText, nullString(translation.ContextSentence),
			translation.UpdatedAt, translation.OriginalText)
	} else {
		result, err = s.db.ExecContext(ctx, `
			UPDATE translations
			SET translated_text = $1, context_sentence = $2, updated_at = $3
			WHERE book_id = $4 AND original_text = $5
		`, translation.TranslatedText, nullString(translation.ContextSentence),
			translation.UpdatedAt, *translation.BookID, translation.OriginalText)
	}
	if err != nil {
		return MapError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return MapError(err)
	}
	if rows > 0 {
		log.Debug("existing translation updated",
			slog.String("original_text", translation.OriginalText))
		return nil
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO translations (`+translationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		translation.ID,
		translation.BookID,
		translation.OriginalText,
		translation.TranslatedText,
		nullString(translation.ContextSentence),
		translation.CreatedAt,
		translation.UpdatedAt,
	)
	if err != nil {
		return MapError(err)
	}

	log.Debug("translation created",
		slog.String("translation_id", translation.ID.String()))
	return nil
}

// FindByBookID implements store.TranslationStore.FindByBookID
func (s *PostgresTranslationStore) FindByBookID(ctx context.Context, bookID uuid.UUID) ([]*domain.Translation, error) {
	query := `SELECT ` + translationColumns + ` FROM translations WHERE book_id = $1 ORDER BY created_at DESC`
	return s.queryTranslations(ctx, query, bookID)
}

// FindGlobal implements store.TranslationStore.FindGlobal
func (s *PostgresTranslationStore) FindGlobal(ctx context.Context) ([]*domain.Translation, error) {
	query := `SELECT ` + translationColumns + ` FROM translations WHERE book_id IS NULL ORDER BY created_at DESC`
	return s.queryTranslations(ctx, query)
}

// DeleteByBookID implements store.TranslationStore.DeleteByBookID
func (s *PostgresTranslationStore) DeleteByBookID(ctx context.Context, bookID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM translations WHERE book_id = $1`, bookID)
	return MapError(err)
}

func (s *PostgresTranslationStore) queryTranslations(ctx context.Context, query string, args ...any) ([]*domain.Translation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var translations []*domain.Translation
	for rows.Next() {
		var (
			t       domain.Translation
			bookID  uuid.NullUUID
			context sql.NullString
		)
		err := rows.Scan(
			&t.ID,
			&bookID,
			&t.OriginalText,
			&t.TranslatedText,
			&context,
			&t.CreatedAt,
			&t.UpdatedAt,
		)
		if err != nil {
			return nil, MapError(err)
		}
		if bookID.Valid {
			id := bookID.UUID
			t.BookID = &id
		}
		t.ContextSentence = context.String
		translations = append(translations, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return translations, nil
}
