// Package storage fetches uploaded documents from S3-compatible object
// storage such as Cloudflare R2.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"resumerag/internal/config"
	"resumerag/internal/errors"
	"resumerag/internal/ingest"
	"resumerag/internal/types"
)

// Fetcher returns the raw bytes stored under key.
type Fetcher interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// ObjectAPI is the subset of *s3.Client the fetcher uses.
type ObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Fetcher reads objects from one bucket.
type S3Fetcher struct {
	client  ObjectAPI
	bucket  string
	maxSize int64
}

// NewS3Fetcher builds an S3 client from cfg. Static keys win over the
// default credential chain; Endpoint points the client at R2 or MinIO.
func NewS3Fetcher(ctx context.Context, cfg config.StorageConfig, maxSize int64) (*S3Fetcher, error) {
	if cfg.Bucket == "" {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "storage bucket is required", nil)
	}

	region := cfg.Region
	if region == "" {
		region = "auto"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	if cfg.MaxAttempts > 0 {
		opts = append(opts, awsconfig.WithRetryMaxAttempts(cfg.MaxAttempts))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "failed to load storage configuration", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3FetcherWithClient(client, cfg.Bucket, maxSize), nil
}

// NewS3FetcherWithClient wraps an existing client. maxSize <= 0 disables
// the size check.
func NewS3FetcherWithClient(client ObjectAPI, bucket string, maxSize int64) *S3Fetcher {
	return &S3Fetcher{client: client, bucket: bucket, maxSize: maxSize}
}

// Fetch downloads key. Objects over the size limit are rejected.
func (f *S3Fetcher) Fetch(ctx context.Context, key string) ([]byte, error) {
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeStorageFailed, "failed to get object", err).
			WithContext("key", key)
	}
	defer out.Body.Close()

	var body io.Reader = out.Body
	if f.maxSize > 0 {
		body = io.LimitReader(out.Body, f.maxSize+1)
	}

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, body); err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeStorageFailed, "failed to read object body", err).
			WithContext("key", key)
	}
	if f.maxSize > 0 && int64(buf.Len()) > f.maxSize {
		return nil, errors.NewValidationError(errors.ErrCodeFileTooLarge,
			fmt.Sprintf("object exceeds %d bytes", f.maxSize), nil).WithContext("key", key)
	}
	return buf.Bytes(), nil
}

// Location renders the document source for key.
func (f *S3Fetcher) Location(key string) string {
	return fmt.Sprintf("s3://%s/%s", f.bucket, key)
}

// LoadDocument fetches key and extracts its text according to mime.
func (f *S3Fetcher) LoadDocument(ctx context.Context, key, mime string) (types.Document, error) {
	data, err := f.Fetch(ctx, key)
	if err != nil {
		return types.Document{}, err
	}
	doc, err := ingest.FromBytes(mime, data, key)
	if err != nil {
		return types.Document{}, err
	}
	doc.Source = f.Location(key)
	return doc, nil
}
