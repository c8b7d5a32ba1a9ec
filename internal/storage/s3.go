package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Seams for tests.
var (
	loadDefaultAWSConfig  = awsconfig.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) s3API {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// s3API is the subset of *s3.Client used here.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Storage implements Storage with the AWS SDK against any S3 endpoint.
type S3Storage struct {
	client     s3API
	publicBase string
}

// S3Options configures NewS3Storage.
type S3Options struct {
	Endpoint   string // host[:port] or full URL
	Region     string
	AccessKey  string
	SecretKey  string
	PublicBase string
	UseSSL     bool
}

// NewS3Storage builds an S3 client with static credentials and path-style
// addressing against opts.Endpoint.
func NewS3Storage(ctx context.Context, opts S3Options) (*S3Storage, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := baseEndpoint(opts.Endpoint, opts.UseSSL)
	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &S3Storage{
		client:     client,
		publicBase: strings.TrimRight(opts.PublicBase, "/"),
	}, nil
}

// Put uploads reader under bucket/key, replacing any existing object.
func (s *S3Storage) Put(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) error {
	in := &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        reader,
		ContentType: aws.String(contentType),
	}
	if size >= 0 {
		in.ContentLength = aws.Int64(size)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return &StoreError{Op: "put", Bucket: bucket, Key: key, Err: err}
	}
	return nil
}

// Delete removes bucket/key.
func (s *S3Storage) Delete(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return &StoreError{Op: "delete", Bucket: bucket, Key: key, Err: err}
	}
	return nil
}

// PublicURL returns the browser-accessible URL for the given object.
func (s *S3Storage) PublicURL(bucket, key string) (string, error) {
	return publicURL(s.publicBase, bucket, key)
}

func baseEndpoint(endpoint string, useSSL bool) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if useSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}
