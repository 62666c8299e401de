package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"fleetdocs/internal/config"
)

// objectStore implements FileStore against an S3-compatible backend
// (MinIO, AWS S3). Storage paths are object keys within one bucket.
// Safe for concurrent use by multiple goroutines.
type objectStore struct {
	client *minio.Client
	bucket string
	prefix string
	log    *slog.Logger
}

// NewObjectStore creates an S3-compatible file store backed by MinIO.
// It validates connectivity and ensures the bucket exists (creates it if
// missing).
func NewObjectStore(cfg config.MinIOConfig, log *slog.Logger) (FileStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("minio credentials are required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}

	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}

	os := &objectStore{client: cli, bucket: cfg.Bucket, prefix: cfg.Prefix, log: log}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return os, nil
}

var _ FileStore = (*objectStore)(nil)

func (o *objectStore) Save(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (string, error) {
	key := path.Join(o.prefix, filename)
	_, err := o.client.PutObject(ctx, o.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return key, nil
}

func (o *objectStore) Exists(ctx context.Context, key string) bool {
	_, err := o.client.StatObject(ctx, o.bucket, key, minio.StatObjectOptions{})
	return err == nil
}

func (o *objectStore) Remove(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := o.client.RemoveObject(ctx, o.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		o.log.Warn("could not remove object", "key", key, "error", err)
	}
}

func (o *objectStore) RemoveStrict(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := o.client.RemoveObject(ctx, o.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}
