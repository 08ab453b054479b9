package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/requirehit/package/internal/config"
)

// GCPCloudStorage stores artifacts in a Google Cloud Storage bucket.
type GCPCloudStorage struct {
	client *gcs.Client
	bucket string
	object string
}

func newGCPCloudStorage(ctx context.Context, cfg *config.GCPCloudStorage) (*GCPCloudStorage, error) {
	client, err := gcs.NewClient(ctx, option.WithScopes(gcs.ScopeReadWrite))
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}

	return &GCPCloudStorage{client: client, bucket: cfg.Bucket, object: cfg.Object}, nil
}

func (g *GCPCloudStorage) Upload(ctx context.Context, r io.Reader, revision string) error {
	bs, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	digest := sha256.Sum256(bs)
	w := g.client.Bucket(g.bucket).Object(g.object).NewWriter(ctx)
	w.Metadata = map[string]string{
		"sha256": hex.EncodeToString(digest[:]),
	}
	if revision != "" {
		w.Metadata["revision"] = revision
	}

	if _, err := w.Write(bs); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func (g *GCPCloudStorage) Download(ctx context.Context) (io.ReadCloser, error) {
	return g.client.Bucket(g.bucket).Object(g.object).NewReader(ctx)
}
