package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStorage implements Storage using a MinIO (or any S3-compatible)
// backend. The bucket stays private; all reads go through presigned URLs.
type MinioStorage struct {
	client *minio.Client
	bucket string
}

// NewMinioStorage creates a MinIO client for the given endpoint. Call
// EnsureBucket before first use.
func NewMinioStorage(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioStorage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &MinioStorage{client: client, bucket: bucket}, nil
}

// EnsureBucket creates the bucket if absent. Concurrent first-call races
// from multiple instances are fine: an already-created bucket is success.
func (s *MinioStorage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket existence: %w", err)
	}
	if exists {
		return nil
	}

	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		switch minio.ToErrorResponse(err).Code {
		case "BucketAlreadyOwnedByYou", "BucketAlreadyExists":
			return nil
		}
		return fmt.Errorf("create bucket %q: %w", s.bucket, err)
	}
	log.Printf("storage: created bucket %q", s.bucket)
	return nil
}

// Upload streams reader to MinIO under key, attaching tags as object tags
// so the catalog can in principle be reconstructed from the store alone.
// The written byte count is verified against the declared size.
func (s *MinioStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string, tags map[string]string) error {
	info, err := s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
		UserTags:    tags,
	})
	if err != nil {
		return putError(key, err)
	}
	if info.Size != size {
		return fmt.Errorf("put object %q: %w: declared %d, wrote %d", key, ErrSizeMismatch, size, info.Size)
	}
	return nil
}

// putError classifies a failed put: the client reads exactly the declared
// byte count from the source, so a short reader surfaces as an unexpected
// EOF and means the declared size was wrong, not that the backend is down.
func putError(key string, err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return fmt.Errorf("put object %q: %w", key, ErrSizeMismatch)
	}
	return fmt.Errorf("put object %q: %w", key, err)
}

// PresignedURL issues a read-only URL for key, valid for ttl.
func (s *MinioStorage) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, nil)
	if err != nil {
		return "", fmt.Errorf("presign object %q: %w", key, err)
	}
	return u.String(), nil
}

// Remove deletes the object at key. S3 deletes are no-ops for absent keys,
// which makes retried deletes safe.
func (s *MinioStorage) Remove(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("remove object %q: %w", key, err)
	}
	return nil
}

// List returns a lazily-pulled iterator over objects under prefix.
func (s *MinioStorage) List(ctx context.Context, prefix string) ObjectIterator {
	ch := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})
	return &minioIterator{ch: ch}
}

// minioIterator adapts the backend's channel-fed listing into a pull-based
// iterator with error propagation at the point of failure.
type minioIterator struct {
	ch  <-chan minio.ObjectInfo
	err error
}

func (it *minioIterator) Next() (ObjectDescriptor, bool) {
	if it.err != nil {
		return ObjectDescriptor{}, false
	}
	info, ok := <-it.ch
	if !ok {
		return ObjectDescriptor{}, false
	}
	if info.Err != nil {
		it.err = info.Err
		return ObjectDescriptor{}, false
	}
	return ObjectDescriptor{
		Key:          info.Key,
		Size:         info.Size,
		ETag:         info.ETag,
		LastModified: info.LastModified,
	}, true
}

func (it *minioIterator) Err() error {
	return it.err
}
