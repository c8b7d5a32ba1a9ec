package storage

import (
	"context"
	"fmt"

	"github.com/heicbridge/service/internal/config"
)

// New builds the Storage selected by cfg.StorageDriver.
func New(ctx context.Context, cfg *config.Config) (Storage, error) {
	switch cfg.StorageDriver {
	case "minio", "":
		return NewMinioStorage(
			cfg.StorageEndpoint,
			cfg.StorageAccessKey,
			cfg.StorageSecretKey,
			cfg.StoragePublicBase,
			cfg.StorageUseSSL,
		)
	case "s3":
		return NewS3Storage(ctx, S3Options{
			Endpoint:   cfg.StorageEndpoint,
			Region:     cfg.StorageRegion,
			AccessKey:  cfg.StorageAccessKey,
			SecretKey:  cfg.StorageSecretKey,
			PublicBase: cfg.StoragePublicBase,
			UseSSL:     cfg.StorageUseSSL,
		})
	case "memory":
		return NewMemoryStorage(cfg.StoragePublicBase), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
