package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/arigen-tech/docsearch/config"
	"github.com/arigen-tech/docsearch/pkg/logger"
	"github.com/arigen-tech/docsearch/pkg/storage/minio"
	"github.com/arigen-tech/docsearch/pkg/storage/s3"
)

// Backend names an object store implementation.
type Backend string

const (
	BackendS3    Backend = "s3"
	BackendMinio Backend = "minio"
)

// Storage holds uploaded document bytes between ingest submission and
// extraction on the worker.
type Storage interface {
	Store(ctx context.Context, reader io.Reader, key string) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	CleanupBefore(ctx context.Context, threshold time.Time) error
}

// NewStorage builds the backend named in the storage config.
func NewStorage(backend Backend, log logger.Logger) (Storage, error) {
	switch backend {
	case BackendS3:
		return s3.GetClient(log)
	case BackendMinio:
		return minio.GetClient(log)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", backend)
	}
}

// GetStorage builds the backend selected by the environment.
func GetStorage(log logger.Logger) (Storage, error) {
	return NewStorage(Backend(config.GetStorageConfig().Backend), log)
}
