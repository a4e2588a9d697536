// Package s3store implements the storage.BlobStore port on an S3-compatible
// object store via the MinIO client. Blob paths are object keys inside a
// single bucket.
package s3store

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/klausbr/readium-api/internal/config"
	"github.com/klausbr/readium-api/internal/storage"
)

const derivedPrefix = "derived/"

// Store wraps MinIO/S3 interactions for book blobs and derived artifacts.
type Store struct {
	client *minio.Client
	bucket string
	region string
	logger *slog.Logger
}

// New creates a MinIO-backed store from the storage configuration.
func New(cfg config.StorageConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to initialize object store client: %v", storage.ErrStorage, err)
	}

	return &Store{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
		logger: logger.With("component", "s3store"),
	}, nil
}

// Ensure Store implements storage.BlobStore
var _ storage.BlobStore = (*Store)(nil)

// EnsureBucket makes sure the configured bucket exists before use.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("%w: failed to check bucket %s: %v", storage.ErrStorage, s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("%w: failed to create bucket %s: %v", storage.ErrStorage, s.bucket, err)
		}
	}
	return nil
}

// SaveWithDigest implements storage.BlobStore.SaveWithDigest. The digest is
// computed by a TeeReader feeding the hash while PutObject streams the
// body, so the upload is read exactly once. A partially stored object is
// removed before the error propagates.
func (s *Store) SaveWithDigest(ctx context.Context, r io.Reader, filename string) (storage.StoredFile, error) {
	key := uuid.NewString() + extensionOf(filename)

	hasher := sha256.New()
	info, err := s.client.PutObject(ctx, s.bucket, key, io.TeeReader(r, hasher), -1,
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		if rmErr := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); rmErr != nil {
			s.logger.Warn("failed to remove partial object after upload error",
				"object", key, "error", rmErr)
		}
		return storage.StoredFile{}, fmt.Errorf("%w: failed to store object %s: %v", storage.ErrStorage, key, err)
	}

	return storage.StoredFile{
		Path:   key,
		Digest: hex.EncodeToString(hasher.Sum(nil)),
		Size:   info.Size,
	}, nil
}

// SaveDerived implements storage.BlobStore.SaveDerived.
func (s *Store) SaveDerived(ctx context.Context, data []byte, extension string) (string, error) {
	key := derivedPrefix + uuid.NewString() + "." + strings.TrimPrefix(extension, ".")

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("%w: failed to store derived object %s: %v", storage.ErrStorage, key, err)
	}
	return key, nil
}

// Open implements storage.BlobStore.Open. MinIO defers the actual request
// until the first read, so a missing object surfaces on Read; Stat is
// checked up front to keep ErrBlobNotFound semantics.
func (s *Store) Open(ctx context.Context, objectPath string) (io.ReadCloser, error) {
	_, err := s.client.StatObject(ctx, s.bucket, objectPath, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", storage.ErrBlobNotFound, objectPath)
		}
		return nil, fmt.Errorf("%w: failed to stat object %s: %v", storage.ErrStorage, objectPath, err)
	}

	obj, err := s.client.GetObject(ctx, s.bucket, objectPath, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get object %s: %v", storage.ErrStorage, objectPath, err)
	}
	return obj, nil
}

// Delete implements storage.BlobStore.Delete.
func (s *Store) Delete(ctx context.Context, objectPath string) error {
	if strings.TrimSpace(objectPath) == "" {
		return nil
	}
	if err := s.client.RemoveObject(ctx, s.bucket, objectPath, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%w: failed to delete object %s: %v", storage.ErrStorage, objectPath, err)
	}
	return nil
}

func extensionOf(filename string) string {
	ext := path.Ext(filename)
	if ext == "" {
		return ""
	}
	return strings.ToLower(ext)
}
