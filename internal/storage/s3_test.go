package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"

	"github.com/requirehit/package/internal/config"
)

func newFakeS3(t *testing.T) (*gofakes3.GoFakeS3, *s3mem.Backend, string) {
	t.Helper()

	// Mock AWS credentials avoid IMDS lookups in the SDK credential chain.
	t.Setenv("AWS_ACCESS_KEY_ID", "mock-access-key")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "mock-secret-key")
	t.Setenv("AWS_REGION", "us-east-1")

	backend := s3mem.New()
	if err := backend.CreateBucket("artifacts"); err != nil {
		t.Fatal(err)
	}
	fake := gofakes3.New(backend)
	ts := httptest.NewServer(fake.Server())
	t.Cleanup(ts.Close)

	return fake, backend, ts.URL
}

func TestAmazonS3RoundTrip(t *testing.T) {
	_, backend, url := newFakeS3(t)
	ctx := context.Background()

	store, err := New(ctx, config.ObjectStorage{
		AmazonS3: &config.AmazonS3{
			Bucket: "artifacts",
			Key:    "demo/1.0.0",
			URL:    url,
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	payload := []byte("artifact bytes")
	if err := store.Upload(ctx, bytes.NewReader(payload), ""); err != nil {
		t.Fatalf("upload: %v", err)
	}

	object, err := backend.GetObject("artifacts", "demo/1.0.0", nil)
	if err != nil {
		t.Fatal(err)
	}
	contents, err := io.ReadAll(object.Contents)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(contents, payload) {
		t.Fatalf("stored object differs: %q", contents)
	}

	rc, err := store.Download(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()

	bs, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(bs, payload) {
		t.Fatalf("downloaded object differs: %q", bs)
	}
}

func TestAmazonS3RevisionMetadata(t *testing.T) {
	_, _, url := newFakeS3(t)
	ctx := context.Background()

	store, err := New(ctx, config.ObjectStorage{
		AmazonS3: &config.AmazonS3{
			Bucket: "artifacts",
			Key:    "demo/with-revision",
			URL:    url,
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	s3Store, ok := store.(*AmazonS3)
	if !ok {
		t.Fatalf("expected *AmazonS3, got %T", store)
	}

	payload := []byte("artifact bytes with revision")
	revision := "0f3a"
	if err := store.Upload(ctx, bytes.NewReader(payload), revision); err != nil {
		t.Fatalf("upload: %v", err)
	}

	out, err := s3Store.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s3Store.bucket),
		Key:    aws.String(s3Store.key),
	})
	if err != nil {
		t.Fatal(err)
	}

	digest := sha256.Sum256(payload)
	if exp := hex.EncodeToString(digest[:]); out.Metadata["sha256"] != exp {
		t.Errorf("expected sha256 metadata %q, got %q", exp, out.Metadata["sha256"])
	}
	if out.Metadata["revision"] != revision {
		t.Errorf("expected revision metadata %q, got %q", revision, out.Metadata["revision"])
	}
}

func TestAmazonS3NoRevisionMetadata(t *testing.T) {
	_, _, url := newFakeS3(t)
	ctx := context.Background()

	store, err := New(ctx, config.ObjectStorage{
		AmazonS3: &config.AmazonS3{
			Bucket: "artifacts",
			Key:    "demo/without-revision",
			URL:    url,
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Upload(ctx, bytes.NewReader([]byte("x")), ""); err != nil {
		t.Fatalf("upload: %v", err)
	}

	s3Store := store.(*AmazonS3)
	out, err := s3Store.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s3Store.bucket),
		Key:    aws.String(s3Store.key),
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := out.Metadata["revision"]; ok {
		t.Errorf("expected no revision metadata, got %q", out.Metadata["revision"])
	}
}
