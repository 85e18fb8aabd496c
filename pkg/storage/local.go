package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// localStore keeps converted files on the local filesystem under a single
// root directory. This mirrors how the service originally ran: outputs on
// disk, served back by the download endpoint.
type localStore struct {
	root string
}

// NewLocalStore creates the directory if needed and returns a local store.
func NewLocalStore(root string) (Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", root, err)
	}
	return &localStore{root: root}, nil
}

func (s *localStore) Save(_ context.Context, key string, r io.Reader) (int64, error) {
	key, err := cleanKey(key)
	if err != nil {
		return 0, err
	}

	path := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create directory for %s: %w", key, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", key, err)
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		// Do not leave a truncated object behind
		if rmErr := os.Remove(path); rmErr != nil {
			slog.Error("Failed to remove partial object", slog.String("key", key), slog.String("error", rmErr.Error()))
		}
		return 0, fmt.Errorf("failed to write %s: %w", key, err)
	}

	slog.Debug("Stored object", slog.String("key", key), slog.Int64("size", n))
	return n, nil
}

func (s *localStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open %s: %w", key, err)
	}
	return f, nil
}

func (s *localStore) Remove(_ context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(s.root, filepath.FromSlash(key))); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}
