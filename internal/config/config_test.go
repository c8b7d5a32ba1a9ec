package config

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"PORT", "APP_ENV", "LOG_LEVEL", "UPLOAD_DIR", "MAX_FILES", "MAX_FILE_SIZE_MB",
	"MAX_BODY_MB", "JPEG_QUALITY", "STORAGE_DRIVER", "STORAGE_ENDPOINT",
	"STORAGE_ACCESS_KEY", "STORAGE_SECRET_KEY", "STORAGE_REGION",
	"STORAGE_USE_SSL", "STORAGE_PUBLIC_BASE",
}

// isolate runs the test in an empty directory (no .env) with every
// configuration variable unset.
func isolate(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	for _, k := range envKeys {
		t.Setenv(k, "") // restores the original value on cleanup
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)
	log, _ := test.NewNullLogger()

	cfg := Load(log)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "uploads", cfg.UploadDir)
	assert.Equal(t, 5, cfg.MaxFiles)
	assert.Equal(t, int64(20<<20), cfg.MaxFileSize())
	assert.Equal(t, int64(50<<20), cfg.MaxBodySize())
	assert.Equal(t, 50, cfg.JPEGQuality)
	assert.Equal(t, "minio", cfg.StorageDriver)
	assert.False(t, cfg.StorageUseSSL)
	assert.False(t, cfg.IsProduction())
	require.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "8080")
	t.Setenv("APP_ENV", "production")
	t.Setenv("MAX_FILE_SIZE_MB", "8")
	t.Setenv("JPEG_QUALITY", "100")
	t.Setenv("STORAGE_DRIVER", "s3")
	t.Setenv("STORAGE_USE_SSL", "true")
	t.Setenv("STORAGE_PUBLIC_BASE", "https://cdn.example.com")
	log, _ := test.NewNullLogger()

	cfg := Load(log)

	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, int64(8<<20), cfg.MaxFileSize())
	assert.Equal(t, 100, cfg.JPEGQuality)
	assert.Equal(t, "s3", cfg.StorageDriver)
	assert.True(t, cfg.StorageUseSSL)
	assert.Equal(t, "https://cdn.example.com", cfg.StoragePublicBase)
}

func TestLoad_InvalidIntegerFallsBack(t *testing.T) {
	isolate(t)
	t.Setenv("MAX_FILES", "five")
	log, hook := test.NewNullLogger()

	cfg := Load(log)

	assert.Equal(t, 5, cfg.MaxFiles)
	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Data["key"] == "MAX_FILES" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestValidate(t *testing.T) {
	cfg := &Config{UploadDir: "uploads", MaxFiles: 0, MaxFileSizeMB: 20, MaxBodySizeMB: 50, JPEGQuality: 101}

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_FILES")
	assert.Contains(t, err.Error(), "JPEG_QUALITY")
	assert.NotContains(t, err.Error(), "MAX_BODY_MB")
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile(".env", []byte("PORT=4000\nUPLOAD_DIR=/tmp/heic\n"), 0o600))
	log, _ := test.NewNullLogger()

	cfg := Load(log)

	assert.Equal(t, "4000", cfg.Port)
	assert.Equal(t, "/tmp/heic", cfg.UploadDir)
}
