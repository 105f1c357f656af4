package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Valid(t *testing.T) {
	path := writeConfigFile(t, `
server:
  host: 127.0.0.1
  port: 9000
  write_timeout: 5s
  ping_interval: 10s
  pong_wait: 30s
whot:
  pacing_delay: 500ms
  default_players: 3
logging:
  level: debug
  format: console
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr())
	assert.Equal(t, 3, cfg.Whot.DefaultPlayers)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfigFile(t, `
logging:
  level: info
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8800, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Whot.DefaultPlayers)
	assert.True(t, cfg.Server.RateLimit.Enabled)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoad_InvalidLevel(t *testing.T) {
	path := writeConfigFile(t, `
logging:
  level: verbose
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level")
}

func TestValidate_CollectsAllViolations(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 0
	cfg.Whot.DefaultPlayers = 1
	cfg.Logging.Format = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
	assert.Contains(t, err.Error(), "whot.default_players")
	assert.Contains(t, err.Error(), "logging.format")
}

func TestValidate_PongWaitMustExceedPingInterval(t *testing.T) {
	cfg := Default()
	cfg.Server.PongWait = cfg.Server.PingInterval

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pong_wait")
}

func TestValidate_RateLimitDisabledSkipsChecks(t *testing.T) {
	cfg := Default()
	cfg.Server.RateLimit = RateLimitConfig{Enabled: false}

	assert.NoError(t, cfg.Validate())
}

func TestDefault_IsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}
