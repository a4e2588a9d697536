// Package storage defines the blob storage port used by the document
// pipeline. Implementations persist uploaded books and derived artifacts
// (covers, OCR output) and are addressed by opaque path strings owned by
// the implementation.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrStorage is the sentinel wrapped by all blob storage failures. It maps
// to an internal fault for the current operation; callers are responsible
// for compensating cleanup of any records they created before the failure.
var ErrStorage = errors.New("storage fault")

// ErrBlobNotFound is returned when the requested blob does not exist.
var ErrBlobNotFound = errors.New("blob not found")

// StoredFile describes a blob persisted via SaveWithDigest.
type StoredFile struct {
	// Path is the implementation-owned address of the stored blob.
	Path string
	// Digest is the lowercase hex SHA-256 of the stored bytes, computed
	// in the same pass that wrote them.
	Digest string
	// Size is the number of bytes written.
	Size int64
}

// BlobStore is the port for physical blob persistence.
type BlobStore interface {
	// SaveWithDigest streams r to storage under a fresh name derived from
	// the original filename's extension, computing the content digest
	// while writing (single pass). On any mid-write failure the partial
	// blob is removed before the error propagates.
	SaveWithDigest(ctx context.Context, r io.Reader, filename string) (StoredFile, error)

	// SaveDerived persists a derived artifact (cover image, OCR output)
	// with the given extension and returns its path.
	SaveDerived(ctx context.Context, data []byte, extension string) (string, error)

	// Open returns a reader for the blob at path.
	// Returns ErrBlobNotFound if no blob exists there.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes the blob at path. Deleting a missing blob is not an
	// error; delete is used for compensating cleanup and must be
	// idempotent.
	Delete(ctx context.Context, path string) error
}
