package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/LRZ-BADW/avina/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "avina.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("reads the file and keeps defaults", func(t *testing.T) {
		path := writeConfig(t, `
database:
  url: postgres://avina@localhost/avina
auth:
  jwt_secret: 0123456789abcdef
server:
  port: 9000
`)
		cfg, err := config.Load(path)
		require.NoError(t, err)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, "postgres://avina@localhost/avina", cfg.Database.URL)
		assert.Equal(t, 5*time.Second, cfg.Quota.CacheTTL)
		assert.Equal(t, time.Minute, cfg.Quota.PruneInterval)
		assert.Equal(t, 8, cfg.Usage.Concurrency)
		assert.Equal(t, "info", cfg.Log.Level)
	})

	t.Run("environment overrides the file", func(t *testing.T) {
		path := writeConfig(t, `
database:
  url: postgres://file
auth:
  jwt_secret: 0123456789abcdef
`)
		t.Setenv("AVINA_DATABASE_URL", "postgres://env")
		t.Setenv("AVINA_QUOTA_CACHE_TTL", "10s")

		cfg, err := config.Load(path)
		require.NoError(t, err)
		assert.Equal(t, "postgres://env", cfg.Database.URL)
		assert.Equal(t, 10*time.Second, cfg.Quota.CacheTTL)
	})

	t.Run("works without a file", func(t *testing.T) {
		t.Setenv("AVINA_DATABASE_URL", "postgres://env")
		t.Setenv("AVINA_AUTH_JWT_SECRET", "0123456789abcdef")

		cfg, err := config.Load("")
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Server.Port)
	})

	t.Run("rejects missing secrets", func(t *testing.T) {
		path := writeConfig(t, `
database:
  url: postgres://file
`)
		_, err := config.Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "JWTSecret")
	})

	t.Run("rejects unknown log levels", func(t *testing.T) {
		path := writeConfig(t, `
database:
  url: postgres://file
auth:
  jwt_secret: 0123456789abcdef
log:
  level: loud
`)
		_, err := config.Load(path)
		assert.Error(t, err)
	})

	t.Run("fails on a missing file", func(t *testing.T) {
		_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})
}
