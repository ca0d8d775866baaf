package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
  "azure": {
    "storage": {"connection_string": "DefaultEndpointsProtocol=https;AccountName=acct;AccountKey=a2V5;EndpointSuffix=core.windows.net"},
    "servicebus": {"queue": "uploads"}
  },
  "http": {"port": 9090, "rate_limit_rps": 2.5},
  "retry": {"max_attempts": 4}
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigFromFile_NestedKeys(t *testing.T) {
	path := writeFile(t, "config.json", sampleJSON)

	cfg, err := LoadConfigFromFile(path)
	require.NoError(t, err)

	assert.Contains(t, cfg.StorageConnectionString, "AccountName=acct")
	assert.Equal(t, "uploads", cfg.EventsQueue)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
	assert.Equal(t, 4, cfg.RetryMaxAttempts)
	assert.Equal(t, DefaultSentimentURL, cfg.SentimentURL)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFromFile_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "config.json", sampleJSON)
	t.Setenv("AZURE_STORAGE_CONNECTION_STRING", "UseDevelopmentStorage=true")
	t.Setenv("HTTP_PORT", "7070")

	cfg, err := LoadConfigFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "UseDevelopmentStorage=true", cfg.StorageConnectionString)
	assert.Equal(t, 7070, cfg.HTTPPort)
}

func TestLoadConfigFromFile_YAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
azure:
  storage:
    account_name: acct
    use_managed_identity: true
log:
  level: debug
`)

	cfg, err := LoadConfigFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "acct", cfg.StorageAccountName)
	assert.True(t, cfg.StorageUseManagedIdentity)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.HasStorageCredentials())
}

func TestLoadConfig_InvalidInteger(t *testing.T) {
	t.Setenv("HTTP_PORT", "eighty")

	_, err := LoadConfigFromEnv()
	assert.ErrorContains(t, err, "HTTP_PORT")
}

func TestValidate_RequiresCredentials(t *testing.T) {
	cfg := &Config{RetryMaxAttempts: 1}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "azure.storage.connection_string")
}

func TestFileConfigSource_Get(t *testing.T) {
	src, err := parseFileConfig("c.json", []byte(sampleJSON))
	require.NoError(t, err)

	val, ok := src.Get("http.port")
	assert.True(t, ok)
	assert.Equal(t, "9090", val)

	_, ok = src.Get("azure.storage")
	assert.False(t, ok, "objects are not scalar values")

	_, ok = src.Get("azure.missing.key")
	assert.False(t, ok)

	_, err = parseFileConfig("c.toml", nil)
	assert.Error(t, err)
}

func TestLoad_OptionalFileAndDotEnv(t *testing.T) {
	envFile := writeFile(t, ".env", "AZURE_STORAGE_ACCOUNT_NAME=fromdotenv\n")
	t.Cleanup(func() { os.Unsetenv("AZURE_STORAGE_ACCOUNT_NAME") })

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"), false, envFile, "does-not-exist.env")
	require.NoError(t, err)
	assert.Equal(t, "fromdotenv", cfg.StorageAccountName)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"), true)
	assert.Error(t, err)
}
