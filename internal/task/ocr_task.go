package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/klausbr/readium-api/internal/domain"
	"github.com/klausbr/readium-api/internal/ocr"
	"github.com/klausbr/readium-api/internal/store"
)

// OcrTask runs OCR processing for one book: it marks the book RUNNING,
// hands the stored file to the configured engine, and records the outcome
// as DONE (with a score and, when the engine produced one, a processed
// artifact) or FAILED. Each persist is optimistically retried once on a
// version conflict by reapplying the OCR fields onto a fresh load.
type OcrTask struct {
	id        uuid.UUID
	bookID    uuid.UUID
	bookStore store.BookStore
	engine    ocr.Engine
	logger    *slog.Logger
}

// NewOcrTask creates a task to OCR-process the given book.
func NewOcrTask(
	bookID uuid.UUID,
	bookStore store.BookStore,
	engine ocr.Engine,
	logger *slog.Logger,
) (*OcrTask, error) {
	if bookStore == nil {
		return nil, errors.New("book store cannot be nil")
	}
	if engine == nil {
		return nil, errors.New("engine cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &OcrTask{
		id:        uuid.New(),
		bookID:    bookID,
		bookStore: bookStore,
		engine:    engine,
		logger:    logger.With(slog.String("component", "ocr_task")),
	}, nil
}

// ID implements Task.ID
func (t *OcrTask) ID() uuid.UUID {
	return t.id
}

// Type implements Task.Type
func (t *OcrTask) Type() string {
	return TaskTypeOcr
}

// Execute implements Task.Execute
func (t *OcrTask) Execute(ctx context.Context) error {
	log := t.logger.With(slog.String("book_id", t.bookID.String()))

	book, err := t.persistTransition(ctx, log, func(b *domain.Book) {
		b.MarkOcrRunning()
	})
	if err != nil {
		if errors.Is(err, store.ErrBookNotFound) {
			log.Info("book deleted before OCR processing, skipping")
			return nil
		}
		return fmt.Errorf("failed to mark OCR running: %w", err)
	}

	result, err := t.engine.Process(ctx, book)
	if err != nil {
		log.Error("OCR processing failed", slog.String("error", err.Error()))

		if _, persistErr := t.persistTransition(ctx, log, func(b *domain.Book) {
			b.MarkOcrFailed()
		}); persistErr != nil && !errors.Is(persistErr, store.ErrBookNotFound) {
			return fmt.Errorf("failed to mark OCR failed: %w", persistErr)
		}
		return fmt.Errorf("OCR processing failed: %w", err)
	}

	if _, err := t.persistTransition(ctx, log, func(b *domain.Book) {
		b.MarkOcrDone(result.Score, result.DerivedPath)
	}); err != nil {
		if errors.Is(err, store.ErrBookNotFound) {
			log.Info("book deleted during OCR processing, skipping")
			return nil
		}
		return fmt.Errorf("failed to mark OCR done: %w", err)
	}

	log.Info("OCR processing completed",
		slog.Float64("score", result.Score),
		slog.Bool("processed_artifact", result.DerivedPath != ""))
	return nil
}

// persistTransition loads the book, applies the state change and persists
// it, retrying once on a version conflict with a fresh load. The returned
// book reflects the persisted state.
func (t *OcrTask) persistTransition(
	ctx context.Context,
	log *slog.Logger,
	apply func(*domain.Book),
) (*domain.Book, error) {
	for attempt := 0; attempt < 2; attempt++ {
		book, err := t.bookStore.GetByID(ctx, t.bookID)
		if err != nil {
			return nil, err
		}

		apply(book)
		err = t.bookStore.Update(ctx, book)
		if err == nil {
			return book, nil
		}
		if !errors.Is(err, store.ErrVersionConflict) || attempt == 1 {
			return nil, err
		}

		log.Debug("version conflict persisting OCR state, retrying on fresh load")
	}
	// Unreachable; the loop always returns.
	return nil, store.ErrVersionConflict
}

// Ensure OcrTask implements Task
var _ Task = (*OcrTask)(nil)
