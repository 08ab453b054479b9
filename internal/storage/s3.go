package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/requirehit/package/internal/config"
)

// AmazonS3 stores artifacts in an S3 bucket under a fixed key.
type AmazonS3 struct {
	client *s3.Client
	bucket string
	key    string
}

func newAmazonS3(ctx context.Context, cfg *config.AmazonS3) (*AmazonS3, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.URL != "" {
			o.BaseEndpoint = aws.String(cfg.URL)
			o.UsePathStyle = true
		}
	})

	return &AmazonS3{client: client, bucket: cfg.Bucket, key: cfg.Key}, nil
}

func (a *AmazonS3) Upload(ctx context.Context, r io.Reader, revision string) error {
	bs, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	digest := sha256.Sum256(bs)
	metadata := map[string]string{
		"sha256": hex.EncodeToString(digest[:]),
	}
	if revision != "" {
		metadata["revision"] = revision
	}

	uploader := manager.NewUploader(a.client)
	_, err = uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(a.bucket),
		Key:      aws.String(a.key),
		Body:     bytes.NewReader(bs),
		Metadata: metadata,
	})
	return err
}

func (a *AmazonS3) Download(ctx context.Context) (io.ReadCloser, error) {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key),
	})
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}
