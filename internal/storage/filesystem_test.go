package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/requirehit/package/internal/config"
)

func TestFileSystemStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out", "artifact.tar.gz")

	store, err := New(ctx, config.ObjectStorage{
		FileSystemStorage: &config.FileSystemStorage{Path: path},
	})
	require.NoError(t, err)

	payload := []byte("artifact bytes")
	require.NoError(t, store.Upload(ctx, bytes.NewReader(payload), "abc"))

	rc, err := store.Download(ctx)
	require.NoError(t, err)
	defer rc.Close()

	bs, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, payload, bs)

	// No temporary files left behind after the rename.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(context.Background(), config.ObjectStorage{
		AmazonS3: &config.AmazonS3{Bucket: "b"},
	})
	require.Error(t, err)
}
