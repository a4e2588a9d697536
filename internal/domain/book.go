package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BookFormat identifies the file format of an uploaded book.
type BookFormat string

// Supported book formats
const (
	BookFormatPDF  BookFormat = "PDF"
	BookFormatEPUB BookFormat = "EPUB"
)

// BookStatus represents the reading state of a book.
type BookStatus string

// Possible reading status values
const (
	BookStatusToRead  BookStatus = "TO_READ"
	BookStatusReading BookStatus = "READING"
	BookStatusRead    BookStatus = "READ"
)

// OcrStatus represents the OCR processing state of a book.
// Transitions follow PENDING -> RUNNING -> {DONE, FAILED}; both terminal
// states are re-enterable through a fresh PENDING request.
type OcrStatus string

// Possible OCR status values
const (
	OcrStatusPending OcrStatus = "PENDING"
	OcrStatusRunning OcrStatus = "RUNNING"
	OcrStatusDone    OcrStatus = "DONE"
	OcrStatusFailed  OcrStatus = "FAILED"
)

// Common validation errors for Book
var (
	ErrEmptyBookID       = errors.New("book ID cannot be empty")
	ErrEmptyBookTitle    = errors.New("book title cannot be empty")
	ErrEmptyBookDigest   = errors.New("book content digest cannot be empty")
	ErrInvalidBookFormat = errors.New("invalid book format")
	ErrInvalidBookStatus = errors.New("invalid book status")
	ErrInvalidOcrStatus  = errors.New("invalid OCR status")
)

// Book represents a single uploaded document in the library together with
// its processing state. The ContentDigest is unique across all books: two
// byte-identical uploads always resolve to the same record. Version is the
// optimistic-concurrency counter; every successful store update increments
// it, and a write carrying a stale Version fails with a conflict.
type Book struct {
	ID            uuid.UUID  `json:"id"`
	Title         string     `json:"title"`
	Author        string     `json:"author,omitempty"`
	Pages         int        `json:"pages,omitempty"`
	LastReadPage  int        `json:"last_read_page"`
	CoverPath     string     `json:"-"`
	HasCover      bool       `json:"has_cover"`
	FilePath      string     `json:"-"`
	OcrFilePath   string     `json:"-"`
	ContentDigest string     `json:"-"`
	Format        BookFormat `json:"format"`
	Status        BookStatus `json:"status"`
	OcrStatus     OcrStatus  `json:"ocr_status"`
	OcrScore      *float64   `json:"ocr_score,omitempty"`
	OcrUpdatedAt  time.Time  `json:"ocr_updated_at"`
	Version       int64      `json:"-"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// NewBook creates a new Book for a freshly stored upload. The title is
// derived from the original filename by the caller, the format from its
// extension. The book starts TO_READ with OCR state PENDING and version 0.
// Returns an error if validation fails.
func NewBook(title, filePath, contentDigest string, format BookFormat) (*Book, error) {
	now := time.Now().UTC()
	book := &Book{
		ID:            uuid.New(),
		Title:         title,
		FilePath:      filePath,
		ContentDigest: contentDigest,
		Format:        format,
		Status:        BookStatusToRead,
		OcrStatus:     OcrStatusPending,
		OcrUpdatedAt:  now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := book.Validate(); err != nil {
		return nil, err
	}

	return book, nil
}

// Validate checks if the Book has valid data.
func (b *Book) Validate() error {
	if b.ID == uuid.Nil {
		return ErrEmptyBookID
	}
	if strings.TrimSpace(b.Title) == "" {
		return ErrEmptyBookTitle
	}
	if b.ContentDigest == "" {
		return ErrEmptyBookDigest
	}
	if b.Format != BookFormatPDF && b.Format != BookFormatEPUB {
		return ErrInvalidBookFormat
	}
	if !isValidBookStatus(b.Status) {
		return ErrInvalidBookStatus
	}
	if !IsValidOcrStatus(b.OcrStatus) {
		return ErrInvalidOcrStatus
	}
	return nil
}

// MarkOcrQueued puts the book back into PENDING for a (re-)run of OCR.
func (b *Book) MarkOcrQueued() {
	b.OcrStatus = OcrStatusPending
	b.OcrUpdatedAt = time.Now().UTC()
	b.touch()
}

// MarkOcrRunning records that a worker has picked the book up.
func (b *Book) MarkOcrRunning() {
	b.OcrStatus = OcrStatusRunning
	b.OcrUpdatedAt = time.Now().UTC()
	b.touch()
}

// MarkOcrDone records a successful OCR run. An empty processedFilePath
// leaves any previously derived file untouched.
func (b *Book) MarkOcrDone(score float64, processedFilePath string) {
	b.OcrStatus = OcrStatusDone
	b.OcrScore = &score
	if strings.TrimSpace(processedFilePath) != "" {
		b.OcrFilePath = processedFilePath
	}
	b.OcrUpdatedAt = time.Now().UTC()
	b.touch()
}

// MarkOcrFailed records a failed or abandoned OCR run.
func (b *Book) MarkOcrFailed() {
	b.OcrStatus = OcrStatusFailed
	b.OcrUpdatedAt = time.Now().UTC()
	b.touch()
}

// UpdateReadingProgress moves the reading position and derives the reading
// status from it: any positive page implies READING, and reaching the last
// known page implies READ. Negative pages clamp to zero. Returns true when
// either the page or the status actually changed.
func (b *Book) UpdateReadingProgress(page int) bool {
	if page < 0 {
		page = 0
	}

	previousPage := b.LastReadPage
	previousStatus := b.Status

	b.LastReadPage = page
	switch {
	case b.Pages > 0 && page >= b.Pages:
		b.Status = BookStatusRead
	case page > 0 && b.Status != BookStatusRead:
		b.Status = BookStatusReading
	}

	changed := previousPage != b.LastReadPage || previousStatus != b.Status
	if changed {
		b.touch()
	}
	return changed
}

// ChangeStatus sets the reading status explicitly.
// Returns an error if the new status is invalid.
func (b *Book) ChangeStatus(status BookStatus) error {
	if !isValidBookStatus(status) {
		return ErrInvalidBookStatus
	}
	b.Status = status
	b.touch()
	return nil
}

// ReadablePath returns the path that should be served to readers: the
// OCR-derived file when processing finished and produced one, otherwise the
// original upload.
func (b *Book) ReadablePath() string {
	if b.OcrStatus == OcrStatusDone && strings.TrimSpace(b.OcrFilePath) != "" {
		return b.OcrFilePath
	}
	return b.FilePath
}

func (b *Book) touch() {
	b.UpdatedAt = time.Now().UTC()
}

// IsValidOcrStatus checks if the given status is a valid OcrStatus.
func IsValidOcrStatus(status OcrStatus) bool {
	switch status {
	case OcrStatusPending, OcrStatusRunning, OcrStatusDone, OcrStatusFailed:
		return true
	default:
		return false
	}
}

func isValidBookStatus(status BookStatus) bool {
	switch status {
	case BookStatusToRead, BookStatusReading, BookStatusRead:
		return true
	default:
		return false
	}
}

// FormatFromFilename derives the book format from a filename extension.
// Returns an error wrapping ErrUnsupportedFormat for anything that is not
// .pdf or .epub (case-insensitive).
func FormatFromFilename(filename string) (BookFormat, error) {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return "", ErrUnsupportedFormat
	}

	switch strings.ToLower(filename[idx+1:]) {
	case "pdf":
		return BookFormatPDF, nil
	case "epub":
		return BookFormatEPUB, nil
	default:
		return "", ErrUnsupportedFormat
	}
}
