package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/requirehit/package/internal/config"
)

// FileSystemStorage persists artifacts to a local file. Writes go through a
// temporary file in the same directory and are renamed into place so readers
// never observe a partial artifact.
type FileSystemStorage struct {
	path string
}

func newFileSystemStorage(cfg *config.FileSystemStorage) *FileSystemStorage {
	return &FileSystemStorage{path: cfg.Path}
}

func (f *FileSystemStorage) Upload(ctx context.Context, r io.Reader, revision string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".artifact-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), f.path)
}

func (f *FileSystemStorage) Download(ctx context.Context) (io.ReadCloser, error) {
	return os.Open(f.path)
}
