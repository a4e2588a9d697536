package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/klausbr/readium-api/internal/domain"
	"github.com/klausbr/readium-api/internal/events"
	"github.com/klausbr/readium-api/internal/platform/logger"
	"github.com/klausbr/readium-api/internal/storage"
	"github.com/klausbr/readium-api/internal/store"
)

// BookServiceError is a custom error type for book service errors.
type BookServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for BookServiceError.
func (e *BookServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("book service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("book service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *BookServiceError) Unwrap() error {
	return e.Err
}

// NewBookServiceError creates a new BookServiceError.
func NewBookServiceError(operation, message string, err error) *BookServiceError {
	return &BookServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// BookService provides book-related operations: ingestion with
// content-level deduplication, library queries, reading progress, OCR
// queuing and file access.
type BookService interface {
	// Upload ingests an uploaded file. Byte-identical re-uploads return
	// the already existing book instead of creating a second record.
	Upload(ctx context.Context, filename string, r io.Reader) (*domain.Book, error)

	// GetBook retrieves a book by its ID.
	GetBook(ctx context.Context, id uuid.UUID) (*domain.Book, error)

	// ListBooks retrieves books filtered by reading status ("" or "ALL"
	// means all) and a title/author substring query.
	ListBooks(ctx context.Context, status, query string, limit, offset int) ([]*domain.Book, error)

	// DeleteBook removes a book together with its stored files and its
	// scoped vocabulary.
	DeleteBook(ctx context.Context, id uuid.UUID) error

	// ChangeStatus sets the reading status explicitly.
	ChangeStatus(ctx context.Context, id uuid.UUID, status string) error

	// UpdateProgress moves the reading position and derives the reading
	// status from it.
	UpdateProgress(ctx context.Context, id uuid.UUID, page int) error

	// QueueOcr requests (re-)processing of the book's text layer. A book
	// already RUNNING is left alone so only one worker processes it.
	QueueOcr(ctx context.Context, id uuid.UUID) error

	// GetOcrStatus returns the book with its current OCR state, after
	// recovering a stale RUNNING state if needed.
	GetOcrStatus(ctx context.Context, id uuid.UUID) (*domain.Book, error)

	// GetFile opens the readable file for the book: the OCR-processed
	// artifact when one exists, the original upload otherwise.
	GetFile(ctx context.Context, id uuid.UUID) (io.ReadCloser, *domain.Book, error)

	// GetCover opens the book's extracted cover image.
	// Returns ErrCoverNotFound when the book carries none.
	GetCover(ctx context.Context, id uuid.UUID) (io.ReadCloser, error)
}

// bookServiceImpl implements the BookService interface
type bookServiceImpl struct {
	db           *sql.DB
	books        store.BookStore
	translations store.TranslationStore
	blobs        storage.BlobStore
	emitter      events.EventEmitter
	recovery     *OcrRecovery
	logger       *slog.Logger
}

// NewBookService creates a new BookService.
// It returns an error if any of the required dependencies are nil.
func NewBookService(
	db *sql.DB,
	books store.BookStore,
	translations store.TranslationStore,
	blobs storage.BlobStore,
	emitter events.EventEmitter,
	recovery *OcrRecovery,
	logger *slog.Logger,
) (BookService, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	if books == nil {
		return nil, errors.New("book store cannot be nil")
	}
	if translations == nil {
		return nil, errors.New("translation store cannot be nil")
	}
	if blobs == nil {
		return nil, errors.New("blob store cannot be nil")
	}
	if emitter == nil {
		return nil, errors.New("event emitter cannot be nil")
	}
	if recovery == nil {
		return nil, errors.New("ocr recovery cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &bookServiceImpl{
		db:           db,
		books:        books,
		translations: translations,
		blobs:        blobs,
		emitter:      emitter,
		recovery:     recovery,
		logger:       logger.With(slog.String("component", "book_service")),
	}, nil
}

// Upload implements BookService.Upload
//
// The file is streamed to storage first, computing the content digest in
// the same pass, and only then checked against existing records. Every
// branch that does not end with a new record owning the stored blob
// deletes it, so a lost race never leaks storage.
func (s *bookServiceImpl) Upload(ctx context.Context, filename string, r io.Reader) (*domain.Book, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	filename = strings.TrimSpace(filename)
	format, err := domain.FormatFromFilename(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: only .pdf and .epub are supported", domain.ErrUnsupportedFormat)
	}

	stored, err := s.blobs.SaveWithDigest(ctx, r, filename)
	if err != nil {
		return nil, NewBookServiceError("upload", "failed to store file", err)
	}

	// Fast path: the exact same bytes were uploaded before.
	if existing, err := s.books.FindByDigest(ctx, stored.Digest); err == nil {
		s.discardBlob(ctx, stored.Path)
		log.Info("duplicate upload detected, reusing existing book",
			slog.String("digest", stored.Digest),
			slog.String("book_id", existing.ID.String()))
		return existing, nil
	} else if !errors.Is(err, store.ErrBookNotFound) {
		s.discardBlob(ctx, stored.Path)
		return nil, NewBookServiceError("upload", "failed to check for duplicates", err)
	}

	book, err := domain.NewBook(domain.TitleFromFilename(filename), stored.Path, stored.Digest, format)
	if err != nil {
		s.discardBlob(ctx, stored.Path)
		return nil, NewBookServiceError("upload", "failed to create book", err)
	}

	if err := s.books.Create(ctx, book); err != nil {
		s.discardBlob(ctx, stored.Path)

		// A concurrent upload of the same bytes won the insert race;
		// resolve to the winner's record.
		if errors.Is(err, store.ErrDuplicateDigest) {
			winner, findErr := s.books.FindByDigest(ctx, stored.Digest)
			if findErr == nil {
				log.Info("concurrent duplicate upload, reusing winning book",
					slog.String("digest", stored.Digest),
					slog.String("book_id", winner.ID.String()))
				return winner, nil
			}
		}
		return nil, NewBookServiceError("upload", "failed to save book", err)
	}

	s.emit(ctx, events.EventBookCreated, book.ID)

	log.Info("book uploaded",
		slog.String("book_id", book.ID.String()),
		slog.String("title", book.Title),
		slog.Int64("size_bytes", stored.Size))
	return book, nil
}

// GetBook implements BookService.GetBook
func (s *bookServiceImpl) GetBook(ctx context.Context, id uuid.UUID) (*domain.Book, error) {
	return s.books.GetByID(ctx, id)
}

// ListBooks implements BookService.ListBooks
func (s *bookServiceImpl) ListBooks(
	ctx context.Context,
	status, query string,
	limit, offset int,
) ([]*domain.Book, error) {
	var filter domain.BookStatus
	normalized := strings.ToUpper(strings.TrimSpace(status))
	if normalized != "" && normalized != "ALL" {
		filter = domain.BookStatus(normalized)
	}

	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	books, err := s.books.List(ctx, filter, query, limit, offset)
	if err != nil {
		return nil, NewBookServiceError("list", "failed to list books", err)
	}
	return books, nil
}

// DeleteBook implements BookService.DeleteBook
//
// The record and its scoped vocabulary go in one transaction; the stored
// blobs are removed after commit, so a failed delete never leaves a
// record pointing at missing files.
func (s *bookServiceImpl) DeleteBook(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		return err
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.translations.WithTx(tx).DeleteByBookID(ctx, id); err != nil {
			return NewBookServiceError("delete", "failed to delete translations", err)
		}
		if err := s.books.WithTx(tx).Delete(ctx, id); err != nil {
			return NewBookServiceError("delete", "failed to delete book", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.discardBlob(ctx, book.FilePath)
	if book.CoverPath != "" {
		s.discardBlob(ctx, book.CoverPath)
	}
	if book.OcrFilePath != "" && book.OcrFilePath != book.FilePath {
		s.discardBlob(ctx, book.OcrFilePath)
	}

	s.emit(ctx, events.EventBookDeleted, id)

	log.Info("book deleted", slog.String("book_id", id.String()))
	return nil
}

// ChangeStatus implements BookService.ChangeStatus
func (s *bookServiceImpl) ChangeStatus(ctx context.Context, id uuid.UUID, status string) error {
	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := book.ChangeStatus(domain.BookStatus(strings.ToUpper(strings.TrimSpace(status)))); err != nil {
		return fmt.Errorf("%w: invalid status %q", domain.ErrInvalidArgument, status)
	}

	if err := s.books.Update(ctx, book); err != nil {
		return NewBookServiceError("change_status", "failed to save book", err)
	}
	return nil
}

// UpdateProgress implements BookService.UpdateProgress
func (s *bookServiceImpl) UpdateProgress(ctx context.Context, id uuid.UUID, page int) error {
	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		return err
	}

	changed := book.UpdateReadingProgress(page)
	if err := s.books.Update(ctx, book); err != nil {
		return NewBookServiceError("update_progress", "failed to save book", err)
	}

	// Only a real change is worth announcing.
	if changed {
		s.emitProgress(ctx, book)
	}
	return nil
}

// QueueOcr implements BookService.QueueOcr
func (s *bookServiceImpl) QueueOcr(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.recovery.RecoverIfStale(ctx, book); err != nil {
		return NewBookServiceError("queue_ocr", "failed to recover stale OCR state", err)
	}

	// A live run is already in flight; requesting again must not spawn
	// a second worker for the same book.
	if book.OcrStatus == domain.OcrStatusRunning {
		log.Debug("OCR already running, ignoring request",
			slog.String("book_id", id.String()))
		return nil
	}

	book.MarkOcrQueued()
	if err := s.books.Update(ctx, book); err != nil {
		return NewBookServiceError("queue_ocr", "failed to save book", err)
	}

	s.emit(ctx, events.EventOcrRequested, id)
	return nil
}

// GetOcrStatus implements BookService.GetOcrStatus
func (s *bookServiceImpl) GetOcrStatus(ctx context.Context, id uuid.UUID) (*domain.Book, error) {
	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.recovery.RecoverIfStale(ctx, book); err != nil {
		return nil, NewBookServiceError("ocr_status", "failed to recover stale OCR state", err)
	}
	return book, nil
}

// GetFile implements BookService.GetFile
func (s *bookServiceImpl) GetFile(ctx context.Context, id uuid.UUID) (io.ReadCloser, *domain.Book, error) {
	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	rc, err := s.blobs.Open(ctx, book.ReadablePath())
	if err != nil {
		return nil, nil, NewBookServiceError("get_file", "failed to open stored file", err)
	}
	return rc, book, nil
}

// GetCover implements BookService.GetCover
func (s *bookServiceImpl) GetCover(ctx context.Context, id uuid.UUID) (io.ReadCloser, error) {
	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !book.HasCover || book.CoverPath == "" {
		return nil, ErrCoverNotFound
	}

	rc, err := s.blobs.Open(ctx, book.CoverPath)
	if err != nil {
		return nil, NewBookServiceError("get_cover", "failed to open cover", err)
	}
	return rc, nil
}

// discardBlob removes a blob during compensating cleanup. Failures are
// logged but never override the primary outcome.
func (s *bookServiceImpl) discardBlob(ctx context.Context, path string) {
	if err := s.blobs.Delete(ctx, path); err != nil {
		s.logger.Warn("failed to delete stored blob",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
}

// emit publishes a book-scoped event. Emission failures are logged; the
// committed state change stands regardless.
func (s *bookServiceImpl) emit(ctx context.Context, eventType string, bookID uuid.UUID) {
	event, err := events.NewBookEvent(eventType, bookID)
	if err != nil {
		s.logger.Error("failed to create event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
		return
	}
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		s.logger.Error("failed to emit event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
	}
}

func (s *bookServiceImpl) emitProgress(ctx context.Context, book *domain.Book) {
	event, err := events.NewEvent(events.EventProgressUpdated, events.ProgressPayload{
		BookID:    book.ID,
		Page:      book.LastReadPage,
		Status:    string(book.Status),
		UpdatedAt: book.UpdatedAt,
	})
	if err != nil {
		s.logger.Error("failed to create event",
			slog.String("event_type", events.EventProgressUpdated),
			slog.String("error", err.Error()))
		return
	}
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		s.logger.Error("failed to emit event",
			slog.String("event_type", events.EventProgressUpdated),
			slog.String("error", err.Error()))
	}
}

// Ensure bookServiceImpl implements BookService
var _ BookService = (*bookServiceImpl)(nil)
