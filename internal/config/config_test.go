package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"callback/internal/config"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	require.Equal(t, "development", cfg.Environment)
	require.Equal(t, "service-f0.0.0", cfg.APIVersion)
	require.False(t, cfg.Adapter.FilesInBody)
	require.Equal(t, int64(1<<20), cfg.Adapter.MaxBodyBytes)
	require.Equal(t, []string{"en"}, cfg.Adapter.Languages)
	require.Equal(t, ":8080", cfg.HTTP.Addr)
	require.Equal(t, "/metrics", cfg.HTTP.MetricsPath)
	require.Equal(t, 10*time.Second, cfg.GracefulShutdownTimeout)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
environment: production
apiVersion: service-v2.1.0
adapter:
  filesInBody: true
  languages: [en, fr]
http:
  addr: ":9090"
  rateLimit: 50
`), 0o600))

	t.Setenv("HTTP_CORS_ORIGIN", "https://app.example.com")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	require.Equal(t, "production", cfg.Environment)
	require.Equal(t, "service-v2.1.0", cfg.APIVersion)
	require.True(t, cfg.Adapter.FilesInBody)
	require.Equal(t, []string{"en", "fr"}, cfg.Adapter.Languages)
	require.Equal(t, ":9090", cfg.HTTP.Addr)
	require.InDelta(t, 50.0, cfg.HTTP.RateLimit, 0)
	require.Equal(t, "https://app.example.com", cfg.HTTP.CORSOrigin)
}

func TestLoad_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("http: [not, a, map"), 0o600))

	_, err := config.Load(path)
	require.Error(t, err)
}
