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
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfigFile(t, `
name: applovin-extract
type: applovin
performance:
  batch_size: 500
security:
  credentials:
    api_key: abc123
    stream: reports
`)

	var cfg BaseConfig
	require.NoError(t, Load(path, &cfg))

	assert.Equal(t, "applovin-extract", cfg.Name)
	assert.Equal(t, "applovin", cfg.Type)
	assert.Equal(t, 500, cfg.Performance.BatchSize)
	assert.Equal(t, "abc123", cfg.Security.Credentials["api_key"])
	assert.Equal(t, "reports", cfg.Security.Credentials["stream"])
}

func TestLoad_EnvSubstitution(t *testing.T) {
	t.Setenv("NOVA_TEST_API_KEY", "from-env")

	path := writeConfigFile(t, `
type: applovin
security:
  credentials:
    api_key: ${NOVA_TEST_API_KEY}
`)

	var cfg BaseConfig
	require.NoError(t, Load(path, &cfg))
	assert.Equal(t, "from-env", cfg.Security.Credentials["api_key"])
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("NOVA_TEST_EXPAND", "resolved")

	assert.Equal(t, "key: resolved", expandEnv("key: ${NOVA_TEST_EXPAND}"))
	assert.Equal(t, "a: resolved b: resolved", expandEnv("a: ${NOVA_TEST_EXPAND} b: ${NOVA_TEST_EXPAND}"))
	assert.Equal(t, "key: ", expandEnv("key: ${NOVA_TEST_UNSET_VARIABLE}"))
	assert.Equal(t, "key: ${broken", expandEnv("key: ${broken"))
	assert.Equal(t, "plain text", expandEnv("plain text"))
}

func TestLoad_MissingFile(t *testing.T) {
	var cfg BaseConfig
	err := Load("/nonexistent/config.yaml", &cfg)
	require.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfigFile(t, "{ not yaml: [")
	var cfg BaseConfig
	require.Error(t, Load(path, &cfg))
}

func TestSaveAndReload(t *testing.T) {
	cfg := NewBaseConfig("test", "applovin")
	cfg.Security.Credentials["api_key"] = "k"

	path := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, Save(path, cfg))

	var loaded BaseConfig
	require.NoError(t, Load(path, &loaded))
	assert.Equal(t, cfg.Name, loaded.Name)
	assert.Equal(t, cfg.Performance.BatchSize, loaded.Performance.BatchSize)
	assert.Equal(t, "k", loaded.Security.Credentials["api_key"])
}

func TestNewBaseConfigDefaults(t *testing.T) {
	cfg := NewBaseConfig("applovin", "applovin")

	assert.Equal(t, 1000, cfg.Performance.BatchSize)
	assert.Equal(t, 3, cfg.Reliability.RetryAttempts)
	assert.True(t, cfg.Reliability.CircuitBreaker)
	assert.NotNil(t, cfg.Security.Credentials)
}
