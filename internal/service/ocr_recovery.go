package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/klausbr/readium-api/internal/domain"
	"github.com/klausbr/readium-api/internal/platform/logger"
	"github.com/klausbr/readium-api/internal/store"
)

// minRunningTimeout is the floor applied to the configured RUNNING
// timeout so a misconfigured value cannot fail healthy runs.
const minRunningTimeout = 60 * time.Second

// OcrRecovery detects books stuck in the RUNNING OCR state. A RUNNING
// book whose last OCR transition is older than the timeout belongs to a
// worker that died mid-run (crash, deploy); recovery marks it FAILED so a
// new request can go through. Recovery is lazy: it runs when OCR state is
// read or a new run is requested, never on a background schedule.
type OcrRecovery struct {
	books          store.BookStore
	runningTimeout time.Duration
	logger         *slog.Logger
}

// NewOcrRecovery creates a recovery helper with the given RUNNING timeout.
func NewOcrRecovery(books store.BookStore, runningTimeout time.Duration, logger *slog.Logger) *OcrRecovery {
	if logger == nil {
		logger = slog.Default()
	}
	if runningTimeout < minRunningTimeout {
		runningTimeout = minRunningTimeout
	}
	return &OcrRecovery{
		books:          books,
		runningTimeout: runningTimeout,
		logger:         logger.With(slog.String("component", "ocr_recovery")),
	}
}

// RecoverIfStale marks the book's OCR FAILED and persists it when the
// RUNNING state has gone stale. The book is mutated in place so callers
// see the recovered state.
func (r *OcrRecovery) RecoverIfStale(ctx context.Context, book *domain.Book) error {
	if !r.isStale(book) {
		return nil
	}

	log := logger.FromContextOrDefault(ctx, r.logger)
	log.Warn("OCR stuck in RUNNING state, marking failed to allow reprocessing",
		slog.String("book_id", book.ID.String()),
		slog.Time("ocr_updated_at", book.OcrUpdatedAt))

	book.MarkOcrFailed()
	return r.books.Update(ctx, book)
}

func (r *OcrRecovery) isStale(book *domain.Book) bool {
	if book.OcrStatus != domain.OcrStatusRunning {
		return false
	}
	// A RUNNING book without a transition timestamp predates the
	// timestamp column; treat it as stale.
	if book.OcrUpdatedAt.IsZero() {
		return true
	}
	return book.OcrUpdatedAt.Before(time.Now().UTC().Add(-r.runningTimeout))
}
