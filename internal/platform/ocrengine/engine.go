// Package ocrengine implements the OCR processing port. It estimates how
// much of a document already carries a text layer and, when configured,
// shells out to ocrmypdf to produce a processed artifact with a
// recognized text layer.
package ocrengine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/klausbr/readium-api/internal/config"
	"github.com/klausbr/readium-api/internal/domain"
	"github.com/klausbr/readium-api/internal/ocr"
	"github.com/klausbr/readium-api/internal/storage"
)

// Engine mode values
const (
	ModeHeuristic = "HEURISTIC"
	ModeOcrmypdf  = "OCRMYPDF"
)

// DocumentEngine implements ocr.Engine for PDF and EPUB documents. EPUBs
// are born-digital text and score 100 without processing; PDFs are
// sampled page by page, optionally after an ocrmypdf pass.
type DocumentEngine struct {
	blobs  storage.BlobStore
	cfg    config.OCRConfig
	logger *slog.Logger

	// pageText and pageCount parse a local PDF file. Swappable so the
	// sampling logic can be tested without PDF fixtures.
	pageText  func(localPath string, page int) (string, error)
	pageCount func(localPath string) (int, error)
}

// NewDocumentEngine creates an engine from the OCR configuration.
func NewDocumentEngine(blobs storage.BlobStore, cfg config.OCRConfig, logger *slog.Logger) *DocumentEngine {
	if blobs == nil {
		panic("blob store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentEngine{
		blobs:     blobs,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "ocr_engine")),
		pageText:  extractPageText,
		pageCount: pdfPageCount,
	}
}

// Ensure DocumentEngine implements ocr.Engine
var _ ocr.Engine = (*DocumentEngine)(nil)

// Process implements ocr.Engine.Process
func (e *DocumentEngine) Process(ctx context.Context, book *domain.Book) (*ocr.Result, error) {
	if book.Format == domain.BookFormatEPUB {
		// EPUB text is already machine-readable.
		return &ocr.Result{Score: 100}, nil
	}
	if book.Format != domain.BookFormatPDF {
		return &ocr.Result{Score: 0}, nil
	}

	localPath, cleanup, err := e.stage(ctx, book)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	scorePath := localPath
	derivedPath := ""

	if e.cfg.Engine == ModeOcrmypdf {
		processedLocal, err := e.runOcrmypdf(ctx, localPath)
		if err != nil {
			// Soft failure: the original stays readable and is scored
			// as-is.
			e.logger.Warn("ocrmypdf produced no output, keeping original",
				slog.String("book_id", book.ID.String()),
				slog.String("error", err.Error()))
		} else {
			defer func() { _ = os.Remove(processedLocal) }()

			data, readErr := os.ReadFile(processedLocal)
			if readErr != nil {
				return nil, fmt.Errorf("failed to read processed artifact: %w", readErr)
			}
			stored, saveErr := e.blobs.SaveDerived(ctx, data, ".pdf")
			if saveErr != nil {
				return nil, fmt.Errorf("failed to store processed artifact: %w", saveErr)
			}
			derivedPath = stored
			scorePath = processedLocal
		}
	}

	score, err := e.scorePDF(scorePath)
	if err != nil {
		return nil, fmt.Errorf("failed to score document: %w", err)
	}

	return &ocr.Result{Score: score, DerivedPath: derivedPath}, nil
}

// stage copies the book's stored file into a temporary local PDF.
func (e *DocumentEngine) stage(ctx context.Context, book *domain.Book) (string, func(), error) {
	blob, err := e.blobs.Open(ctx, book.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			return "", nil, fmt.Errorf("stored file missing for book %s: %w", book.ID, err)
		}
		return "", nil, fmt.Errorf("failed to open stored file: %w", err)
	}
	defer func() { _ = blob.Close() }()

	tmp, err := os.CreateTemp("", "readium-ocr-*.pdf")
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

func (e *DocumentEngine) ocrmypdfTimeout() time.Duration {
	return time.Duration(e.cfg.OcrmypdfTimeoutSecs) * time.Second
}
