package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStorage implements Storage using a MinIO (or any S3-compatible) backend.
// Buckets are chosen per call and must already exist with a public-read policy.
type MinioStorage struct {
	client     *minio.Client
	publicBase string
}

// NewMinioStorage creates a MinIO client. No network call is made until the
// first operation.
func NewMinioStorage(endpoint, accessKey, secretKey, publicBase string, useSSL bool) (*MinioStorage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &MinioStorage{
		client:     client,
		publicBase: strings.TrimRight(publicBase, "/"),
	}, nil
}

// Put streams reader to MinIO under bucket/key. size must be the exact byte
// count (pass -1 only if the size is genuinely unknown, MinIO will buffer it).
// S3 PUT replaces existing objects, so this is an upsert.
func (s *MinioStorage) Put(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return &StoreError{Op: "put", Bucket: bucket, Key: key, Err: err}
	}
	return nil
}

// Delete removes the object at bucket/key.
func (s *MinioStorage) Delete(ctx context.Context, bucket, key string) error {
	if err := s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return &StoreError{Op: "delete", Bucket: bucket, Key: key, Err: err}
	}
	return nil
}

// PublicURL returns the browser-accessible URL for the given object.
// For local MinIO: "http://localhost:9000/user-images/avatars/<uuid>".
func (s *MinioStorage) PublicURL(bucket, key string) (string, error) {
	return publicURL(s.publicBase, bucket, key)
}
