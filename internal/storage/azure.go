package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/requirehit/package/internal/config"
)

// AzureBlobStorage stores artifacts as a blob in an Azure storage container.
type AzureBlobStorage struct {
	client    *azblob.Client
	container string
	path      string
}

func newAzureBlobStorage(cfg *config.AzureBlobStorage) (*AzureBlobStorage, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("create azure credential: %w", err)
	}

	client, err := azblob.NewClient(cfg.AccountURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create azure blob client: %w", err)
	}

	return &AzureBlobStorage{client: client, container: cfg.Container, path: cfg.Path}, nil
}

func (a *AzureBlobStorage) Upload(ctx context.Context, r io.Reader, revision string) error {
	bs, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	digest := sha256.Sum256(bs)
	metadata := map[string]*string{
		"sha256": to.Ptr(hex.EncodeToString(digest[:])),
	}
	if revision != "" {
		metadata["revision"] = to.Ptr(revision)
	}

	_, err = a.client.UploadBuffer(ctx, a.container, a.path, bs, &azblob.UploadBufferOptions{
		Metadata: metadata,
	})
	return err
}

func (a *AzureBlobStorage) Download(ctx context.Context) (io.ReadCloser, error) {
	resp, err := a.client.DownloadStream(ctx, a.container, a.path, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
