// Package ocr defines the port for OCR processing of stored documents.
// Implementations live under internal/platform.
package ocr

import (
	"context"

	"github.com/klausbr/readium-api/internal/domain"
)

// Result describes the outcome of processing one document.
type Result struct {
	// Score is the estimated share of readable text in the document,
	// in percent, rounded to two decimals.
	Score float64

	// DerivedPath is the storage path of the processed artifact with a
	// recognized text layer. It is empty when no artifact was produced,
	// which is a soft failure: the original file stays readable and the
	// score still stands.
	DerivedPath string
}

// Engine scores and optionally rewrites a document's text layer.
type Engine interface {
	// Process analyzes the book's stored file. It returns an error only
	// when the file itself cannot be read or analyzed; an external tool
	// failing to produce a processed artifact is reported through an
	// empty DerivedPath instead.
	Process(ctx context.Context, book *domain.Book) (*Result, error)
}
