package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/klausbr/readium-api/internal/domain"
	"github.com/klausbr/readium-api/internal/metadata"
	"github.com/klausbr/readium-api/internal/store"
)

// MetadataTask extracts author, page count and cover art from a book's
// stored file and persists them. The persist is optimistically retried
// once: on a version conflict the book is reloaded and only the derived
// fields are reapplied, so a concurrent writer's changes survive.
type MetadataTask struct {
	id        uuid.UUID
	bookID    uuid.UUID
	bookStore store.BookStore
	extractor metadata.Extractor
	logger    *slog.Logger
}

// NewMetadataTask creates a task to extract metadata for the given book.
func NewMetadataTask(
	bookID uuid.UUID,
	bookStore store.BookStore,
	extractor metadata.Extractor,
	logger *slog.Logger,
) (*MetadataTask, error) {
	if bookStore == nil {
		return nil, errors.New("book store cannot be nil")
	}
	if extractor == nil {
		return nil, errors.New("extractor cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &MetadataTask{
		id:        uuid.New(),
		bookID:    bookID,
		bookStore: bookStore,
		extractor: extractor,
		logger:    logger.With(slog.String("component", "metadata_task")),
	}, nil
}

// ID implements Task.ID
func (t *MetadataTask) ID() uuid.UUID {
	return t.id
}

// Type implements Task.Type
func (t *MetadataTask) Type() string {
	return TaskTypeMetadata
}

// Execute implements Task.Execute
func (t *MetadataTask) Execute(ctx context.Context) error {
	log := t.logger.With(slog.String("book_id", t.bookID.String()))

	book, err := t.bookStore.GetByID(ctx, t.bookID)
	if err != nil {
		if errors.Is(err, store.ErrBookNotFound) {
			log.Info("book deleted before metadata extraction, skipping")
			return nil
		}
		return fmt.Errorf("failed to load book: %w", err)
	}

	info, err := t.extractor.Extract(ctx, book)
	if err != nil {
		return fmt.Errorf("failed to extract metadata: %w", err)
	}

	applyMetadata(book, info)
	if err := t.bookStore.Update(ctx, book); err == nil {
		log.Info("metadata extracted",
			slog.String("author", book.Author),
			slog.Int("pages", book.Pages),
			slog.Bool("has_cover", book.HasCover))
		return nil
	} else if !errors.Is(err, store.ErrVersionConflict) {
		return fmt.Errorf("failed to persist metadata: %w", err)
	}

	// Second and final attempt on a fresh load. Only the extracted
	// fields are reapplied so the concurrent writer's changes stand.
	log.Debug("version conflict persisting metadata, retrying on fresh load")

	book, err = t.bookStore.GetByID(ctx, t.bookID)
	if err != nil {
		if errors.Is(err, store.ErrBookNotFound) {
			log.Info("book deleted during metadata extraction, skipping")
			return nil
		}
		return fmt.Errorf("failed to reload book: %w", err)
	}

	applyMetadata(book, info)
	if err := t.bookStore.Update(ctx, book); err != nil {
		return fmt.Errorf("failed to persist metadata after retry: %w", err)
	}

	log.Info("metadata extracted after retry",
		slog.String("author", book.Author),
		slog.Int("pages", book.Pages),
		slog.Bool("has_cover", book.HasCover))
	return nil
}

// applyMetadata copies extracted fields onto the book, leaving fields the
// extraction produced nothing for untouched.
func applyMetadata(book *domain.Book, info *metadata.Info) {
	if info.Author != "" {
		book.Author = info.Author
	}
	if info.Pages > 0 {
		book.Pages = info.Pages
	}
	if info.HasCover {
		book.CoverPath = info.CoverPath
		book.HasCover = true
	}
}

// Ensure MetadataTask implements Task
var _ Task = (*MetadataTask)(nil)
