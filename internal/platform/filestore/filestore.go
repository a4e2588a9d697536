// Package filestore implements the storage.BlobStore port on the local
// filesystem. Uploads land in the root directory under a random name that
// keeps the original extension; derived artifacts go to the derived/
// subdirectory.
package filestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/klausbr/readium-api/internal/storage"
)

const derivedDirName = "derived"

// FileStore is a filesystem-backed blob store rooted at a single directory.
type FileStore struct {
	root    string
	derived string
	logger  *slog.Logger
}

// New creates a FileStore rooted at root, creating the directory layout if
// needed.
func New(root string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	derived := filepath.Join(root, derivedDirName)
	for _, dir := range []string{root, derived} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: failed to initialize storage directory %s: %v",
				storage.ErrStorage, dir, err)
		}
	}

	return &FileStore{
		root:    root,
		derived: derived,
		logger:  logger.With("component", "filestore"),
	}, nil
}

// Ensure FileStore implements storage.BlobStore
var _ storage.BlobStore = (*FileStore)(nil)

// SaveWithDigest implements storage.BlobStore.SaveWithDigest. The SHA-256
// digest is computed by an io.MultiWriter while the bytes stream to the
// destination file, so the upload is read exactly once. A partially
// written file is removed before any error is returned.
func (s *FileStore) SaveWithDigest(ctx context.Context, r io.Reader, filename string) (storage.StoredFile, error) {
	name := uuid.NewString() + extensionOf(filename)
	dest := filepath.Join(s.root, name)

	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return storage.StoredFile{}, fmt.Errorf("%w: failed to create %s: %v", storage.ErrStorage, dest, err)
	}

	hasher := sha256.New()
	size, err := io.Copy(io.MultiWriter(f, hasher), r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		if rmErr := os.Remove(dest); rmErr != nil {
			s.logger.Warn("failed to remove partial file after write error",
				"path", dest, "error", rmErr)
		}
		return storage.StoredFile{}, fmt.Errorf("%w: failed to write %s: %v", storage.ErrStorage, dest, err)
	}

	return storage.StoredFile{
		Path:   dest,
		Digest: hex.EncodeToString(hasher.Sum(nil)),
		Size:   size,
	}, nil
}

// SaveDerived implements storage.BlobStore.SaveDerived.
func (s *FileStore) SaveDerived(ctx context.Context, data []byte, extension string) (string, error) {
	name := uuid.NewString() + "." + strings.TrimPrefix(extension, ".")
	dest := filepath.Join(s.derived, name)

	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", fmt.Errorf("%w: failed to write derived file %s: %v", storage.ErrStorage, dest, err)
	}
	return dest, nil
}

// Open implements storage.BlobStore.Open.
func (s *FileStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", storage.ErrBlobNotFound, path)
		}
		return nil, fmt.Errorf("%w: failed to open %s: %v", storage.ErrStorage, path, err)
	}
	return f, nil
}

// Delete implements storage.BlobStore.Delete.
func (s *FileStore) Delete(ctx context.Context, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: failed to delete %s: %v", storage.ErrStorage, path, err)
	}
	return nil
}

func extensionOf(filename string) string {
	ext := filepath.Ext(filename)
	if ext == "" {
		return ""
	}
	return strings.ToLower(ext)
}
