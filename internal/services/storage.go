package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/velabs/studioforge-backend/internal/logger"
)

type StorageResult struct {
	Path string
	Size int64
}

// StorageProvider persists uploaded artifacts. Save must be idempotent-safe
// for a given destination key: writing the same key twice overwrites.
type StorageProvider interface {
	Save(ctx context.Context, destination, filename string, file io.Reader) (*StorageResult, error)
}

// LocalStorageProvider writes artifacts under a root upload directory,
// mirroring the layout <root>/<studioId>/<assetId>/v<N>/<filename>.
type LocalStorageProvider struct {
	root string
	log  *logger.Logger
}

func NewLocalStorageProvider(root string, baseLog *logger.Logger) *LocalStorageProvider {
	return &LocalStorageProvider{
		root: root,
		log:  baseLog.With("service", "LocalStorageProvider"),
	}
}

func (s *LocalStorageProvider) Save(ctx context.Context, destination, filename string, file io.Reader) (*StorageResult, error) {
	dir := filepath.Join(s.root, filepath.FromSlash(destination))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %q: %w", dir, err)
	}
	path := filepath.Join(dir, filepath.Base(filename))
	out, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file %q: %w", path, err)
	}
	size, err := io.Copy(out, file)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("failed to write file %q: %w", path, err)
	}
	return &StorageResult{Path: path, Size: size}, nil
}
