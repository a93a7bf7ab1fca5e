package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, 5, config.Assembler.Concurrency)
	assert.Equal(t, 500, config.Assembler.SummaryLength)
	assert.Equal(t, 30*time.Second, config.Fetcher.RequestTimeout)
	assert.Equal(t, 30*time.Minute, config.Auth.TokenLifetime)
	assert.Equal(t, LLMProviderOpenAI, config.LLM.DefaultProvider)
	assert.Equal(t, 5*time.Minute, config.LLMTimeout())
	assert.Equal(t, 24*time.Hour, config.RetentionMaxIdle())
}

func TestLoadFromFiles_Override(t *testing.T) {
	dir := t.TempDir()

	base := filepath.Join(dir, "base.toml")
	require.NoError(t, os.WriteFile(base, []byte(`
[server]
port = 9000

[assembler]
concurrency = 3
`), 0644))

	local := filepath.Join(dir, "local.toml")
	require.NoError(t, os.WriteFile(local, []byte(`
[server]
port = 9100
`), 0644))

	config, err := LoadFromFiles(base, local)
	require.NoError(t, err)

	// Later file wins, unrelated values from earlier file survive
	assert.Equal(t, 9100, config.Server.Port)
	assert.Equal(t, 3, config.Assembler.Concurrency)
	// Untouched defaults remain
	assert.Equal(t, "localhost", config.Server.Host)
}

func TestLoadFromFiles_MissingFile(t *testing.T) {
	_, err := LoadFromFiles("/nonexistent/refero.toml")
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("REFERO_SERVER_PORT", "7777")
	t.Setenv("REFERO_LOG_LEVEL", "debug")
	t.Setenv("REFERO_LOG_OUTPUT", "stdout, file")
	t.Setenv("REFERO_AUTH_SECRET_KEY", "test-secret")
	t.Setenv("REFERO_LLM_DEFAULT_PROVIDER", "gemini")

	config, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, 7777, config.Server.Port)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, []string{"stdout", "file"}, config.Logging.Output)
	assert.Equal(t, "test-secret", config.Auth.SecretKey)
	assert.Equal(t, LLMProviderGemini, config.LLM.DefaultProvider)
}

func TestEnvOverrides_InvalidPortIgnored(t *testing.T) {
	t.Setenv("REFERO_SERVER_PORT", "not-a-port")

	config, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, 8080, config.Server.Port)
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()

	ApplyFlagOverrides(config, 9999, "0.0.0.0")
	assert.Equal(t, 9999, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)

	// Zero values leave config untouched
	ApplyFlagOverrides(config, 0, "")
	assert.Equal(t, 9999, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)
}

func TestIsProduction(t *testing.T) {
	config := NewDefaultConfig()
	assert.False(t, config.IsProduction())

	config.Environment = "production"
	assert.True(t, config.IsProduction())

	config.Environment = "Prod"
	assert.True(t, config.IsProduction())
}
