// Package blobstore implements the coordinator's private and public blob
// store handles, backed by S3-compatible object storage through the
// aws-sdk-go-v2/service/s3 client with static credentials, storing
// arbitrary []byte payloads and reading them back.
package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/zkrollup/prover-coordinator/log"
)

// Config describes one S3-compatible bucket: the coordinator wires two
// independent instances of it, one for the private store and one for the
// public store.
type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	// PathStyle forces path-style addressing, required by most non-AWS S3
	// implementations (DigitalOcean Spaces, MinIO, ...).
	PathStyle bool
}

// BlobStore is the minimal read/write handle archival needs; Store (S3)
// and Fake (in-process, tests) both implement it.
type BlobStore interface {
	Put(ctx context.Context, key string, payload []byte) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
}

// Store is a handle to one bucket, safe to share across goroutines — the
// underlying s3.Client is itself safe for concurrent use, so Store needs no
// additional locking.
type Store struct {
	client *s3.Client
	bucket string
}

// New builds a Store from cfg, using a static-credentials provider built
// from cfg.AccessKey and cfg.SecretKey.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("blobstore: bucket is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("blobstore: access key and secret key are required")
	}

	sdkConfig, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "",
		)),
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("blobstore: load AWS SDK config: %w", err)
	}

	client := s3.NewFromConfig(sdkConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	return &Store{client: client, bucket: cfg.Bucket}, nil
}

// Put uploads payload under key and returns the blob's URL, the value the
// spec calls blob_url. Archival uses the returned URL as the database
// column value, never the raw key.
func (s *Store) Put(ctx context.Context, key string, payload []byte) (string, error) {
	log.Debugw("uploading blob", "bucket", s.bucket, "key", key, "bytes", len(payload))
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(payload),
	})
	if err != nil {
		return "", fmt.Errorf("blobstore: put %s/%s: %w", s.bucket, key, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

// Get fetches the payload previously stored under key, for any
// out-of-process verifier that wants to re-check an archived proof.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("blobstore: get %s/%s: %w", s.bucket, key, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("blobstore: read %s/%s: %w", s.bucket, key, err)
	}
	return data, nil
}
