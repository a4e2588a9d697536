// Package metadata defines the port for deriving bibliographic metadata
// from stored documents. Implementations live under internal/platform.
package metadata

import (
	"context"

	"github.com/klausbr/readium-api/internal/domain"
)

// Info holds the metadata derived from a document's content. Zero values
// mean the field could not be determined; callers only overwrite book
// fields for which extraction produced something.
type Info struct {
	// Author as recorded in the document, empty when absent.
	Author string

	// Pages is the total page count, zero when it could not be read.
	Pages int

	// CoverPath is the storage path of the extracted cover image,
	// empty when the document has no usable cover.
	CoverPath string

	// HasCover reports whether CoverPath points at an extracted cover.
	HasCover bool
}

// Extractor derives metadata from the stored content of a book.
type Extractor interface {
	// Extract reads the book's stored file and returns whatever
	// metadata could be derived from it. A document that yields no
	// metadata at all is not an error; Extract returns an empty Info.
	Extract(ctx context.Context, book *domain.Book) (*Info, error)
}
