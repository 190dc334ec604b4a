package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// No config.yaml in the temp dir
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Empty(t, cfg.Rules.CatalogPath)
	assert.Zero(t, cfg.Rules.CurrentYear)
	assert.Equal(t, "https://api.perplexity.ai", cfg.Perplexity.BaseURL)
	assert.Equal(t, "sonar", cfg.Perplexity.Model)
	assert.Equal(t, "month", cfg.Perplexity.SearchRecency)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.Model)
	assert.Equal(t, int64(2048), cfg.Anthropic.MaxTokens)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "vetting.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 4, cfg.Batch.MaxConcurrent)
	assert.InDelta(t, 1.0, cfg.Batch.RequestsPerSecond, 0.001)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/vetting
log:
  level: debug
  format: console
rules:
  current_year: 2024
batch:
  max_concurrent: 8
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/vetting", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 2024, cfg.Rules.CurrentYear)
	assert.Equal(t, 8, cfg.Batch.MaxConcurrent)
	// Defaults still apply for unset values
	assert.Equal(t, "sonar", cfg.Perplexity.Model)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("VETTING_STORE_DRIVER", "postgres")
	t.Setenv("VETTING_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("VETTING_PERPLEXITY_KEY", "pplx-test")
	t.Setenv("VETTING_RULES_CURRENT_YEAR", "2030")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "pplx-test", cfg.Perplexity.Key)
	assert.Equal(t, 2030, cfg.Rules.CurrentYear)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: [unterminated"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Perplexity.Model = "sonar"
	cfg.Perplexity.SearchRecency = "month"
	cfg.Anthropic.MaxTokens = 2048
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "vetting.db"
	cfg.Batch.MaxConcurrent = 4
	cfg.Batch.RequestsPerSecond = 1
	return cfg
}

func TestValidateResearch(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("research")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "perplexity.key is required")

	cfg.Perplexity.Key = "pplx-key"
	assert.NoError(t, cfg.Validate("research"))

	cfg.Perplexity.SearchRecency = "decade"
	err = cfg.Validate("research")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search_recency")
}

func TestValidateResearch_BatchBounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Perplexity.Key = "pplx-key"

	cfg.Batch.MaxConcurrent = 0
	err := cfg.Validate("research")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_concurrent must be between 1 and 32")

	cfg.Batch.MaxConcurrent = 33
	assert.Error(t, cfg.Validate("research"))

	cfg.Batch.MaxConcurrent = 32
	cfg.Batch.RequestsPerSecond = 0
	err = cfg.Validate("research")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requests_per_second")
}

func TestValidateSummary(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("summary")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")

	cfg.Anthropic.Key = "sk-ant-key"
	assert.NoError(t, cfg.Validate("summary"))

	cfg.Anthropic.MaxTokens = 0
	assert.Error(t, cfg.Validate("summary"))
}

func TestValidateStore(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("store"))

	cfg.Store.Driver = "mysql"
	cfg.Store.DatabaseURL = ""
	err := cfg.Validate("store")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be sqlite or postgres")
	assert.Contains(t, err.Error(), "store.database_url is required")
}

func TestValidateEvaluate(t *testing.T) {
	cfg := &Config{}
	assert.NoError(t, cfg.Validate("evaluate"))

	cfg.Rules.CurrentYear = -1
	assert.Error(t, cfg.Validate("evaluate"))
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
