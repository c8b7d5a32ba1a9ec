// Package storage defines the interface for object storage operations.
// Swap implementations by changing the concrete type injected at startup;
// the MinIO and S3 implementations work with any S3-compatible provider.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7/pkg/s3utils"
)

// Storage writes objects into named buckets and resolves their public URLs.
type Storage interface {
	// Put uploads data under key in bucket, overwriting any existing object.
	Put(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) error
	// Delete removes the object identified by bucket and key.
	Delete(ctx context.Context, bucket, key string) error
	// PublicURL returns the browser-accessible URL for bucket and key.
	PublicURL(bucket, key string) (string, error)
}

// StoreError wraps a failed storage operation.
type StoreError struct {
	Op     string // "put", "delete" or "url"
	Bucket string
	Key    string
	Err    error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("storage %s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// publicURL joins base, bucket and an escaped key after validating the
// names against S3 rules.
func publicURL(base, bucket, key string) (string, error) {
	if err := s3utils.CheckValidBucketName(bucket); err != nil {
		return "", &StoreError{Op: "url", Bucket: bucket, Key: key, Err: err}
	}
	if err := s3utils.CheckValidObjectName(key); err != nil {
		return "", &StoreError{Op: "url", Bucket: bucket, Key: key, Err: err}
	}
	if base == "" {
		return "", &StoreError{Op: "url", Bucket: bucket, Key: key, Err: fmt.Errorf("public base URL not configured")}
	}

	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(base, "/") + "/" + bucket + "/" + strings.Join(segments, "/"), nil
}
