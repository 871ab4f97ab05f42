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
	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "android", cfg.Session.DeviceMetadataPrefix)
	assert.Equal(t, 40*time.Second, cfg.Session.RPCTimeout)
	assert.Equal(t, 8*time.Second, cfg.Session.FillerDelay)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_YAMLThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlBody := `
backend:
  base_url: https://api.example.com
  company_id: co-1
session:
  rpc_timeout: 20s
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o644))

	t.Setenv("AITAS_SESSION_RPC_TIMEOUT", "15s")
	t.Setenv("AITAS_BACKEND_COMPANY_ID", "co-2")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.Backend.BaseURL)
	// env wins over file
	assert.Equal(t, 15*time.Second, cfg.Session.RPCTimeout)
	assert.Equal(t, "co-2", cfg.Backend.CompanyID)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/nonexistent/config.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, 40*time.Second, cfg.Backend.Timeout)
}

func TestValidate_RPCTimeoutRange(t *testing.T) {
	cfg := Default()
	cfg.Session.RPCTimeout = 5 * time.Second
	assert.Error(t, cfg.Validate())

	cfg.Session.RPCTimeout = 10 * time.Second
	assert.NoError(t, cfg.Validate())

	cfg.Session.RPCTimeout = 41 * time.Second
	assert.Error(t, cfg.Validate())
}

func TestValidate_LogLevel(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "verbose"
	assert.Error(t, cfg.Validate())
}
