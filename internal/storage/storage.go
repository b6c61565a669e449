// Package storage holds document bytes outside the database. Documents reference
// their content by key (entity.Document.ContentRef).
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/joseph-ayodele/contract-extractor/internal/common"
)

// ErrObjectNotFound is returned by Get when the key does not exist.
var ErrObjectNotFound = fmt.Errorf("object not found: %w", common.ErrNotFound)

// BlobStore reads and writes document content by key.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// New builds the store selected by cfg.Backend.
func New(ctx context.Context, cfg common.StorageConfig, logger *slog.Logger) (BlobStore, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocalStore(cfg.Dir, logger)
	case "minio":
		s, err := NewMinioStore(MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		}, logger)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, errors.Join(common.ErrInvalidInput, fmt.Errorf("unknown storage backend %q", cfg.Backend))
	}
}
