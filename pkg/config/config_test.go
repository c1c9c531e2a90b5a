package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

const baseYAML = `
env: base
api:
  base_url: http://backend:8000
  timeout: 5s
realtime:
  backoff: exponential
  max_delay: 1m
redis:
  addr: redis:6379
jwt:
  secret: ${JWT_SECRET}
server:
  port: "8090"
`

func TestLoadLayersEnvFileAndSecrets(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", baseYAML)
	writeFile(t, dir, "staging.yaml", "env: staging\napi:\n  mock: true\nredis:\n  enabled: true\n")
	writeFile(t, dir, "secrets.env", "# local only\nJWT_SECRET=\"from-secrets\"\n")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load("staging", dir)
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Env)
	assert.Equal(t, "http://backend:8000", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.True(t, cfg.API.Mock)
	assert.Equal(t, "exponential", cfg.Realtime.Backoff)
	assert.Equal(t, time.Minute, cfg.Realtime.MaxDelay)
	assert.Equal(t, 2*time.Second, cfg.Realtime.ReconnectDelay, "defaults survive when yaml omits a field")
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "from-secrets", cfg.JWT.Secret)
}

func TestLoadFallsBackToProcessEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", baseYAML)
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := Load("missing-env", dir)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.False(t, cfg.API.Mock)
}

func TestEnvOverridesWin(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", baseYAML)
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("API_URL", "http://override:9000")
	t.Setenv("API_MOCK", "true")
	t.Setenv("WS_BASE_URL", "ws://override:9000")
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("MQ_URL", "amqp://mq/")
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("", dir)
	require.NoError(t, err)
	assert.Equal(t, "http://override:9000", cfg.API.BaseURL)
	assert.True(t, cfg.API.Mock)
	assert.True(t, cfg.Realtime.Enabled)
	assert.Equal(t, "ws://override:9000", cfg.Realtime.WSBaseURL)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
	assert.True(t, cfg.MQ.Enabled)
	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRequiresSecret(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", baseYAML)
	t.Setenv("JWT_SECRET", "")

	_, err := Load("", dir)
	assert.ErrorIs(t, err, ErrMissingJWTSecret)
}

func TestLoadMissingBase(t *testing.T) {
	_, err := Load("local", t.TempDir())
	assert.Error(t, err)
}

func TestMergeMaps(t *testing.T) {
	dst := map[string]interface{}{"a": 1, "nested": map[string]interface{}{"x": 1, "y": 2}}
	src := map[string]interface{}{"b": 2, "nested": map[string]interface{}{"y": 3}}

	got := mergeMaps(dst, src)
	assert.Equal(t, map[string]interface{}{
		"a":      1,
		"b":      2,
		"nested": map[string]interface{}{"x": 1, "y": 3},
	}, got)
	assert.Equal(t, 2, dst["nested"].(map[string]interface{})["y"], "dst is not mutated")
}
