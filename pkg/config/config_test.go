package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docker/model-switcher/pkg/environment"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	openclaw := writeFile(t, dir, "openclaw.json", `{"gateway":{"port":19000,"auth":{"token":"from-file"}}}`)
	path := writeFile(t, dir, "config.yaml", `
openclaw_config: `+openclaw+`
history_path: `+filepath.Join(dir, "history.json")+`
gateway:
  timeout: 3s
openrouter:
  check: true
  cache_ttl: 10m
permissions:
  allow_users: [alice]
  allow_roles: [ops]
server:
  listen: 127.0.0.1:9999
`)

	cfg, err := Load(t.Context(), path, environment.MapProvider{})
	require.NoError(t, err)

	assert.Equal(t, openclaw, cfg.OpenClawConfig)
	assert.Equal(t, 3*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, "http://127.0.0.1:19000/rpc", cfg.Gateway.URL)
	assert.Equal(t, "from-file", cfg.Gateway.Token)
	assert.True(t, cfg.OpenRouter.Check)
	assert.Equal(t, 10*time.Minute, cfg.OpenRouter.CacheTTL)
	assert.Equal(t, []string{"alice"}, cfg.Permissions.AllowUsers)
	assert.Equal(t, []string{"ops"}, cfg.Permissions.AllowRoles)
	assert.Equal(t, "127.0.0.1:9999", cfg.Server.Listen)
	assert.Equal(t, "main", cfg.MainAgent)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	openclaw := writeFile(t, dir, "openclaw.json", `{"gateway":{"auth":{"token":"from-file"}}}`)
	path := writeFile(t, dir, "config.yaml", "gateway:\n  url: http://file-host/rpc\n")

	cfg, err := Load(t.Context(), path, environment.MapProvider{
		EnvGatewayURL:     "http://env-host:1/rpc",
		EnvGatewayToken:   "env-token",
		EnvOpenRouterKey:  "sk-or-env",
		EnvOpenClawConfig: openclaw,
	})
	require.NoError(t, err)

	assert.Equal(t, "http://env-host:1/rpc", cfg.Gateway.URL)
	assert.Equal(t, "env-token", cfg.Gateway.Token)
	assert.Equal(t, "sk-or-env", cfg.OpenRouter.APIKey)
	assert.Equal(t, openclaw, cfg.OpenClawConfig)
	assert.Contains(t, cfg.Secrets(), "env-token")
}

func TestLoadEnvFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	envFile := writeFile(t, dir, ".env", "OPENROUTER_API_KEY=sk-or-from-env-file\n")
	path := writeFile(t, dir, "config.yaml", "openclaw_config: "+filepath.Join(dir, "missing.json")+"\nenv_file: "+envFile+"\n")

	cfg, err := Load(t.Context(), path, environment.MapProvider{})
	require.NoError(t, err)
	assert.Equal(t, "sk-or-from-env-file", cfg.OpenRouter.APIKey)
	assert.Equal(t, "http://127.0.0.1:18789/rpc", cfg.Gateway.URL)
	assert.Empty(t, cfg.Gateway.Token)

	// The process environment wins over the env file.
	cfg, err = Load(t.Context(), path, environment.MapProvider{EnvOpenRouterKey: "sk-or-process"})
	require.NoError(t, err)
	assert.Equal(t, "sk-or-process", cfg.OpenRouter.APIKey)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := Load(t.Context(), filepath.Join(dir, "missing.yaml"), nil)
	require.Error(t, err)

	_, err = Load(t.Context(), writeFile(t, dir, "bad.yaml", "gateway: [unclosed"), nil)
	require.Error(t, err)

	_, err = Load(t.Context(), writeFile(t, dir, "timeout.yaml", "gateway:\n  timeout: -1s\n"), nil)
	require.ErrorContains(t, err, "gateway.timeout must be positive")

	_, err = Load(t.Context(), writeFile(t, dir, "url.yaml", "gateway:\n  url: ftp://nope\n"), nil)
	require.ErrorContains(t, err, "gateway.url")
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.Equal(t, "openclaw.json", filepath.Base(cfg.OpenClawConfig))
	assert.Equal(t, DefaultGatewayTimeout, cfg.Gateway.Timeout)
	assert.Equal(t, DefaultListenAddr, cfg.Server.Listen)
	assert.Empty(t, cfg.Permissions.AllowUsers)
}
