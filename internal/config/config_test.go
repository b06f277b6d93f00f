package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 9090
  host: "0.0.0.0"

vincere:
  base_url: "https://acme.vincere.io"
  token_url: "https://id.vincere.io/oauth2/token"
  client_id: "test-client"
  client_secret: "test-secret"
  timeout_seconds: 45

activecampaign:
  base_url: "https://acme.api-us1.com"
  api_token: "test-token"

redis:
  enabled: true
  addr: "redis:6379"

importer:
  chunk_size: 100
  pause_ms: 50
  max_pages: 10
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	assert.Equal(t, "https://acme.vincere.io", cfg.Vincere.BaseURL)
	assert.Equal(t, "test-client", cfg.Vincere.ClientID)
	assert.Equal(t, 45, cfg.Vincere.TimeoutSeconds)

	assert.Equal(t, "https://acme.api-us1.com", cfg.ActiveCampaign.BaseURL)
	assert.Equal(t, "test-token", cfg.ActiveCampaign.APIToken)
	// Default applied when unset
	assert.Equal(t, 60, cfg.ActiveCampaign.TimeoutSeconds)

	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)

	assert.Equal(t, 100, cfg.Importer.ChunkSize)
	assert.Equal(t, 50, cfg.Importer.PauseMs)
	assert.Equal(t, 10, cfg.Importer.MaxPages)
	assert.Equal(t, 350*1024, cfg.Importer.MaxPayloadBytes)
}

func TestLoadDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	err := os.WriteFile(configPath, []byte("server: {}\n"), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 250, cfg.Importer.ChunkSize)
	assert.Equal(t, 250, cfg.Importer.PauseMs)
	assert.Equal(t, 400, cfg.Importer.MaxPages)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
vincere:
  client_secret: "from-yaml"
activecampaign:
  api_token: "from-yaml"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	t.Setenv("VINCERE_CLIENT_SECRET", "from-env")
	t.Setenv("ACTIVECAMPAIGN_API_TOKEN", "from-env")
	t.Setenv("REDIS_ADDR", "envhost:6380")
	t.Setenv("PORT", "9999")

	cfg, err := LoadFromEnv(configPath)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Vincere.ClientSecret)
	assert.Equal(t, "from-env", cfg.ActiveCampaign.APIToken)
	assert.Equal(t, "envhost:6380", cfg.Redis.Addr)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 9999, cfg.Server.Port)
}
