package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/modules?sslmode=disable")
	t.Setenv("SESSION_SECRET", testSecret)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, DriverSQLX, cfg.StorageDriver)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, "modules", cfg.ModulesDir)
	assert.Equal(t, "uploads", cfg.UploadsDir)
	assert.Equal(t, 5, cfg.UploadConcurrency)
	assert.False(t, cfg.ArchiveStoreEnabled())
	assert.False(t, cfg.QueueEnabled())
	assert.Equal(t, "module_cleanup_queue", cfg.RabbitMQ.RabbitMQQueueName)
}

func TestLoadConfig_MissingSecret(t *testing.T) {
	t.Chdir(t.TempDir())
	unsetEnv(t, "SESSION_SECRET")
	t.Setenv("DATABASE_URL", "postgres://localhost/modules")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfig_ReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	unsetEnv(t, "DATABASE_URL", "SESSION_SECRET", "STORAGE_DRIVER")
	writeFile(t, ".env", "DATABASE_URL=postgres://localhost/fromenvfile\nSESSION_SECRET="+testSecret+"\nSTORAGE_DRIVER=gorm\n")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/fromenvfile", cfg.DatabaseURL)
	assert.Equal(t, DriverGorm, cfg.StorageDriver)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			SessionSecret:     testSecret,
			SessionTTL:        time.Hour,
			StorageDriver:     DriverSQLX,
			MaxUploadBytes:    1,
			MaxExtractBytes:   1,
			MaxEntryBytes:     1,
			MaxArchiveEntries: 1,
			UploadConcurrency: 1,
			ModulesDir:        "modules",
			UploadsDir:        "uploads",
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "ok", mutate: func(*Config) {}},
		{name: "short secret", mutate: func(c *Config) { c.SessionSecret = "ton-secret-ultra-secure" }, wantErr: "SESSION_SECRET"},
		{name: "bad driver", mutate: func(c *Config) { c.StorageDriver = "sqlite" }, wantErr: "STORAGE_DRIVER"},
		{name: "zero limit", mutate: func(c *Config) { c.MaxEntryBytes = 0 }, wantErr: "limits"},
		{name: "zero concurrency", mutate: func(c *Config) { c.UploadConcurrency = 0 }, wantErr: "UPLOAD_CONCURRENCY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// unsetEnv снимает переменные на время теста; t.Setenv вернёт исходные значения.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func writeFile(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(".", name), []byte(content), 0o600))
}
