package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 17227, cfg.Gateway.Port)
	assert.Equal(t, "127.0.0.1", cfg.Gateway.Bind)
	assert.Equal(t, 120, cfg.LLM.TimeoutSeconds)
	assert.Equal(t, 3, cfg.Retrieval.DocTopK)
	assert.Equal(t, 2, cfg.Retrieval.ExampleTopK)
	assert.Equal(t, "code", cfg.Session.DefaultMode)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_ParsesProviders(t *testing.T) {
	path := writeConfig(t, `
llm:
  default: gpt-4o
  providers:
    gpt-4o:
      api: openai
      endpoint: https://api.openai.com/v1
      apiKey: sk-test
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", cfg.LLM.Default)
	assert.Equal(t, "debug", cfg.Logging.Level)
	require.Contains(t, cfg.LLM.Providers, "gpt-4o")
	assert.Equal(t, "openai", cfg.LLM.Providers["gpt-4o"].API)
	assert.Equal(t, "sk-test", cfg.LLM.Providers["gpt-4o"].APIKey)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "llm: [unclosed")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_ExpandsAPIKeyEnvVars(t *testing.T) {
	t.Setenv("TEST_INTELLIGEO_KEY", "sk-from-env")
	path := writeConfig(t, `
llm:
  providers:
    gpt-4o:
      apiKey: ${TEST_INTELLIGEO_KEY}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", cfg.LLM.Providers["gpt-4o"].APIKey)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("INTELLIGEO_GATEWAY_PORT", "8099")
	t.Setenv("INTELLIGEO_LOG_LEVEL", "WARN")
	t.Setenv("INTELLIGEO_DEFAULT_MODEL", "command-r")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8099, cfg.Gateway.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "command-r", cfg.LLM.Default)
}

func TestResolvePaths_HomeOverride(t *testing.T) {
	base := t.TempDir()
	t.Setenv("INTELLIGEO_HOME", base)

	paths, err := ResolvePaths()
	require.NoError(t, err)

	assert.Equal(t, base, paths.Base)
	assert.Equal(t, filepath.Join(base, "config.yaml"), paths.Config)
	assert.Equal(t, filepath.Join(base, "data", "intelligeo.db"), paths.Database)

	require.NoError(t, paths.EnsureDirs())
	for _, d := range []string{paths.Data, paths.Artifacts, paths.Logs} {
		info, err := os.Stat(d)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestRawPathAccess(t *testing.T) {
	raw := map[string]any{}

	path, err := ParseConfigPath("gateway.auth.token")
	require.NoError(t, err)

	SetValueAtPath(raw, path, "secret")
	v, ok := GetValueAtPath(raw, path)
	require.True(t, ok)
	assert.Equal(t, "secret", v)

	assert.True(t, UnsetValueAtPath(raw, path))
	_, ok = GetValueAtPath(raw, path)
	assert.False(t, ok)
	assert.False(t, UnsetValueAtPath(raw, path))
}

func TestParseConfigPath_Invalid(t *testing.T) {
	_, err := ParseConfigPath("")
	assert.Error(t, err)
	_, err = ParseConfigPath("gateway..port")
	assert.Error(t, err)
}
