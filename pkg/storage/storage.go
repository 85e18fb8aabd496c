package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/zenetia/zap/pkg/config"
)

// ErrNotFound is returned when a stored object does not exist.
var ErrNotFound = errors.New("object not found")

// Store keeps converted files. Keys are conversion-scoped relative paths
// like "<conversion-id>/<filename>".
type Store interface {
	// Save writes the object and returns the number of bytes stored.
	Save(ctx context.Context, key string, r io.Reader) (int64, error)
	// Open returns a reader for the object. The caller closes it.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Remove deletes the object. Removing a missing object is not an error.
	Remove(ctx context.Context, key string) error
}

// NewStore builds the storage backend selected by the configuration.
func NewStore(cfg *config.Config) (Store, error) {
	switch cfg.Storage.Type {
	case "local":
		return NewLocalStore(cfg.Storage.LocalDir)
	case "s3":
		return NewS3Store(cfg.Storage.S3Bucket, cfg.Storage.S3Prefix)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
}

// cleanKey validates a storage key. Keys are always built from generated
// UUIDs plus sanitized filenames, so anything that walks upward or is
// absolute indicates a bug or tampering.
func cleanKey(key string) (string, error) {
	if key == "" {
		return "", errors.New("empty storage key")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "..") || strings.Contains(key, "\\") {
		return "", fmt.Errorf("invalid storage key: %s", key)
	}
	return key, nil
}
