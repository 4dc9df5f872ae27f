package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, int64(5*1024*1024), cfg.Wizard.MaxPhotoBytes)
	assert.Equal(t, 24*time.Hour, cfg.Wizard.IdleTTL)
	assert.Equal(t, "local", cfg.Storage.Provider)
	assert.Equal(t, "America/New_York", cfg.PickupLocation().String())
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: "9090"
backend:
  base_url: https://api.example.com/api
  timeout: 15s
wizard:
  max_duplicate: 5
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	t.Setenv("BLUBERRY_BACKEND_BASE_URL", "https://env.example.com/api")
	t.Setenv("BLUBERRY_AI_GEMINI_API_KEY", "k-123")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "https://env.example.com/api", cfg.Backend.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 5, cfg.Wizard.MaxDuplicate)
	assert.Equal(t, "k-123", cfg.AI.GeminiAPIKey)
}

func TestLoad_MissingFileFallsBack(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Wizard.PickupTimezone = "Mars/Olympus"
	assert.Error(t, cfg.Validate())

	cfg.Wizard.PickupTimezone = "UTC"
	cfg.Session.Secret = ""
	assert.Error(t, cfg.Validate())
}
