package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	puts    []*s3.PutObjectInput
	deletes []*s3.DeleteObjectInput
	body    string
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, _ := io.ReadAll(in.Body)
	f.body = string(b)
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deletes = append(f.deletes, in)
	return &s3.DeleteObjectOutput{}, nil
}

func stubS3(t *testing.T, fake *fakeS3) *s3.Options {
	t.Helper()
	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	var captured s3.Options
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "eu-central-1", lo.Region)
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) s3API {
		for _, fn := range optFns {
			fn(&captured)
		}
		return fake
	}
	return &captured
}

func TestNewS3Storage_ConfiguresEndpoint(t *testing.T) {
	fake := &fakeS3{}
	opts := stubS3(t, fake)

	_, err := NewS3Storage(context.Background(), S3Options{
		Endpoint: "storage.local:9000",
		Region:   "eu-central-1",
		UseSSL:   true,
	})
	require.NoError(t, err)

	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "https://storage.local:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)
}

func TestNewS3Storage_ConfigError(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = origLoad })
	loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("boom")
	}

	_, err := NewS3Storage(context.Background(), S3Options{Region: "eu-central-1"})
	assert.ErrorContains(t, err, "load aws config")
}

func TestS3Storage_PutAndDelete(t *testing.T) {
	fake := &fakeS3{}
	stubS3(t, fake)
	s, err := NewS3Storage(context.Background(), S3Options{Endpoint: "http://minio:9000", Region: "eu-central-1"})
	require.NoError(t, err)

	require.NoError(t, s.Put(context.Background(), "user-images", "avatars/1", strings.NewReader("jpeg"), 4, "image/jpeg"))
	require.Len(t, fake.puts, 1)
	assert.Equal(t, "user-images", aws.ToString(fake.puts[0].Bucket))
	assert.Equal(t, "avatars/1", aws.ToString(fake.puts[0].Key))
	assert.Equal(t, "image/jpeg", aws.ToString(fake.puts[0].ContentType))
	assert.Equal(t, int64(4), aws.ToInt64(fake.puts[0].ContentLength))
	assert.Equal(t, "jpeg", fake.body)

	require.NoError(t, s.Delete(context.Background(), "user-images", "avatars/1"))
	require.Len(t, fake.deletes, 1)
}

func TestS3Storage_PutFailureIsStoreError(t *testing.T) {
	fake := &fakeS3{err: errors.New("access denied")}
	stubS3(t, fake)
	s, err := NewS3Storage(context.Background(), S3Options{Endpoint: "minio:9000", Region: "eu-central-1"})
	require.NoError(t, err)

	err = s.Put(context.Background(), "user-images", "avatars/1", strings.NewReader("x"), 1, "image/png")

	var se *StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "put", se.Op)
}

func TestBaseEndpoint(t *testing.T) {
	assert.Equal(t, "http://minio:9000", baseEndpoint("minio:9000", false))
	assert.Equal(t, "https://minio:9000", baseEndpoint("minio:9000", true))
	assert.Equal(t, "http://explicit:9000", baseEndpoint("http://explicit:9000", true))
}
