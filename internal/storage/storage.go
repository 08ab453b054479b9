// Package storage uploads and downloads package artifacts to and from
// object storage. Amazon S3, Google Cloud Storage, Azure Blob Storage and
// the local filesystem are supported.
package storage

import (
	"context"
	"errors"
	"io"

	"github.com/requirehit/package/internal/config"
)

var ErrNotConfigured = errors.New("object storage not configured")

// ObjectStorage is the interface implemented by all storage backends.
type ObjectStorage interface {
	// Upload stores the artifact read from r. A non-empty revision is
	// attached as object metadata where the backend supports it.
	Upload(ctx context.Context, r io.Reader, revision string) error

	// Download returns a reader for the stored artifact. The caller is
	// responsible for closing it.
	Download(ctx context.Context) (io.ReadCloser, error)
}

// New constructs the backend selected by the configuration. Exactly one
// backend may be set.
func New(ctx context.Context, cfg config.ObjectStorage) (ObjectStorage, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch {
	case cfg.AmazonS3 != nil:
		return newAmazonS3(ctx, cfg.AmazonS3)
	case cfg.GCPCloudStorage != nil:
		return newGCPCloudStorage(ctx, cfg.GCPCloudStorage)
	case cfg.AzureBlobStorage != nil:
		return newAzureBlobStorage(cfg.AzureBlobStorage)
	case cfg.FileSystemStorage != nil:
		return newFileSystemStorage(cfg.FileSystemStorage), nil
	}

	return nil, ErrNotConfigured
}
