// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const megabyte = 1 << 20

// Config holds all runtime configuration for the service.
type Config struct {
	Port     string
	AppEnv   string
	LogLevel string

	// Upload limits and scratch space
	UploadDir     string
	MaxFiles      int
	MaxFileSizeMB int
	MaxBodySizeMB int
	JPEGQuality   int

	// Object storage (S3-compatible: MinIO locally, any S3 provider in production)
	StorageDriver     string // "minio", "s3" or "memory"
	StorageEndpoint   string
	StorageAccessKey  string
	StorageSecretKey  string
	StorageRegion     string
	StorageUseSSL     bool
	StoragePublicBase string // browser-accessible base URL, e.g. "http://localhost:9000"
}

// Load reads configuration from a .env file (if present) and environment variables.
func Load(log logrus.FieldLogger) *Config {
	if err := godotenv.Load(); err != nil {
		log.Info("no .env file found, reading from environment")
	}

	return &Config{
		Port:     getEnv("PORT", "3000"),
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		UploadDir:     getEnv("UPLOAD_DIR", "uploads"),
		MaxFiles:      getEnvInt(log, "MAX_FILES", 5),
		MaxFileSizeMB: getEnvInt(log, "MAX_FILE_SIZE_MB", 20),
		MaxBodySizeMB: getEnvInt(log, "MAX_BODY_MB", 50),
		JPEGQuality:   getEnvInt(log, "JPEG_QUALITY", 50),

		StorageDriver:     getEnv("STORAGE_DRIVER", "minio"),
		StorageEndpoint:   getEnv("STORAGE_ENDPOINT", "localhost:9000"),
		StorageAccessKey:  getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
		StorageSecretKey:  getEnv("STORAGE_SECRET_KEY", "minioadmin"),
		StorageRegion:     getEnv("STORAGE_REGION", "us-east-1"),
		StorageUseSSL:     getEnv("STORAGE_USE_SSL", "false") == "true",
		StoragePublicBase: getEnv("STORAGE_PUBLIC_BASE", "http://localhost:9000"),
	}
}

// Validate reports configuration values the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.MaxFiles <= 0 {
		errs = append(errs, fmt.Errorf("MAX_FILES must be positive, got %d", c.MaxFiles))
	}
	if c.MaxFileSizeMB <= 0 {
		errs = append(errs, fmt.Errorf("MAX_FILE_SIZE_MB must be positive, got %d", c.MaxFileSizeMB))
	}
	if c.MaxBodySizeMB <= 0 {
		errs = append(errs, fmt.Errorf("MAX_BODY_MB must be positive, got %d", c.MaxBodySizeMB))
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("JPEG_QUALITY must be within 1-100, got %d", c.JPEGQuality))
	}
	if c.UploadDir == "" {
		errs = append(errs, errors.New("UPLOAD_DIR must not be empty"))
	}
	return errors.Join(errs...)
}

// IsProduction returns true when the app is running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// MaxFileSize returns the per-file ceiling in bytes.
func (c *Config) MaxFileSize() int64 {
	return int64(c.MaxFileSizeMB) * megabyte
}

// MaxBodySize returns the request body ceiling in bytes.
func (c *Config) MaxBodySize() int64 {
	return int64(c.MaxBodySizeMB) * megabyte
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(log logrus.FieldLogger, key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.WithField("key", key).WithField("value", v).Warn("invalid integer, using default")
		return fallback
	}
	return n
}
