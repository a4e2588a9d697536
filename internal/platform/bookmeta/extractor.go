// Package bookmeta implements the metadata extraction port for PDF and
// EPUB documents.
package bookmeta

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/klausbr/readium-api/internal/domain"
	"github.com/klausbr/readium-api/internal/metadata"
	"github.com/klausbr/readium-api/internal/storage"
)

// DocumentExtractor derives author, page count and cover art from stored
// documents. Blobs are staged into a temporary local file first because
// the PDF libraries need random access.
type DocumentExtractor struct {
	blobs  storage.BlobStore
	logger *slog.Logger
}

// NewDocumentExtractor creates an extractor backed by the given blob store.
func NewDocumentExtractor(blobs storage.BlobStore, logger *slog.Logger) *DocumentExtractor {
	if blobs == nil {
		panic("blob store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentExtractor{
		blobs:  blobs,
		logger: logger.With(slog.String("component", "document_extractor")),
	}
}

// Ensure DocumentExtractor implements metadata.Extractor
var _ metadata.Extractor = (*DocumentExtractor)(nil)

// Extract implements metadata.Extractor.Extract
func (e *DocumentExtractor) Extract(ctx context.Context, book *domain.Book) (*metadata.Info, error) {
	localPath, cleanup, err := e.stage(ctx, book)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	switch book.Format {
	case domain.BookFormatPDF:
		return e.extractPDF(ctx, localPath)
	case domain.BookFormatEPUB:
		return e.extractEPUB(ctx, localPath)
	default:
		return nil, fmt.Errorf("unsupported format %q", book.Format)
	}
}

// stage copies the book's stored file into a temporary local file and
// returns its path together with a cleanup function.
func (e *DocumentExtractor) stage(ctx context.Context, book *domain.Book) (string, func(), error) {
	blob, err := e.blobs.Open(ctx, book.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			return "", nil, fmt.Errorf("stored file missing for book %s: %w", book.ID, err)
		}
		return "", nil, fmt.Errorf("failed to open stored file: %w", err)
	}
	defer func() { _ = blob.Close() }()

	tmp, err := os.CreateTemp("", "readium-meta-*."+strings.ToLower(string(book.Format)))
	if err != nil {
		return "", nil, fmt.Errorf("failed to create staging file: %w", err)
	}

	if _, err := io.Copy(tmp, blob); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("failed to stage stored file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("failed to stage stored file: %w", err)
	}

	path := tmp.Name()
	return path, func() { _ = os.Remove(path) }, nil
}
