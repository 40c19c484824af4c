package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
http:
  addr: ":9999"
dispatch:
  response_timeout_seconds: 15
  max_passes: 3
  rank_candidates: true
directory:
  backend: memory
notifier:
  kind: webpush
  webpush:
    gateway_url: https://push.example.com/send
    api_key: server-key
session:
  kind: hmac
  secret: test-secret
audit:
  backend: none
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.HTTP.Addr)
	assert.Equal(t, 15, cfg.Dispatch.ResponseTimeoutSeconds)
	assert.Equal(t, 3, cfg.Dispatch.MaxPasses)
	assert.True(t, cfg.Dispatch.RankCandidates)
	assert.Equal(t, "memory", cfg.Directory.Backend)
	assert.Equal(t, "webpush", cfg.Notifier.Kind)
	assert.Equal(t, "https://push.example.com/send", cfg.Notifier.WebPush.GatewayURL)
	assert.Equal(t, "test-secret", cfg.Session.Secret)
	assert.Equal(t, "none", cfg.Audit.Backend)
}

func TestLoad_JSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{
  "dispatch": {"response_timeout_seconds": 20},
  "session": {"kind": "hmac", "secret": "s"}
}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Dispatch.ResponseTimeoutSeconds)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
session:
  secret: s
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 30, cfg.Dispatch.ResponseTimeoutSeconds)
	assert.Equal(t, 5, cfg.Dispatch.SendTimeoutSeconds)
	assert.Equal(t, 2, cfg.Dispatch.MaxPasses)
	assert.Equal(t, "sqlite", cfg.Directory.Backend)
	assert.Equal(t, "responders.db", cfg.Directory.Path)
	assert.Equal(t, "webpush", cfg.Notifier.Kind)
	assert.Equal(t, "hmac", cfg.Session.Kind)
	assert.Equal(t, 3600, cfg.Session.TTLSeconds)
	assert.Equal(t, ":9090", cfg.Metrics.PrometheusPort)
	assert.Equal(t, "jsonl", cfg.Audit.Backend)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
http:
  addr: ":8080"
session:
  secret: s
`)
	t.Setenv("ONCALL_HTTP__ADDR", ":7070")
	t.Setenv("ONCALL_DISPATCH__MAX_PASSES", "4")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.HTTP.Addr)
	assert.Equal(t, 4, cfg.Dispatch.MaxPasses)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("unsupported extension", func(t *testing.T) {
		path := writeConfig(t, "config.toml", "x = 1")
		_, err := Load(path)
		assert.Error(t, err)
	})
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
	t.Run("missing session secret", func(t *testing.T) {
		path := writeConfig(t, "config.yaml", "http:\n  addr: \":8080\"\n")
		_, err := Load(path)
		assert.ErrorContains(t, err, "secret")
	})
	t.Run("invalid timeout", func(t *testing.T) {
		path := writeConfig(t, "config.yaml", `
dispatch:
  response_timeout_seconds: -1
session:
  secret: s
`)
		_, err := Load(path)
		assert.ErrorContains(t, err, "response_timeout_seconds")
	})
	t.Run("unknown directory backend", func(t *testing.T) {
		path := writeConfig(t, "config.yaml", `
directory:
  backend: redis
session:
  secret: s
`)
		_, err := Load(path)
		assert.ErrorContains(t, err, "directory backend")
	})
}
