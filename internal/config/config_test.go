package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "ENV", "PORT", "TOKEN", "LOG_LEVEL", "SLACK_BOT_TOKEN", "SLACK_API_URL",
		"EVENT_DEDUP_TTL", "EXTRACTOR_PROVIDER", "EXTRACTOR_MAX_SIDE", "OPENAI_API_KEY",
		"OPENAI_BASE_URL", "OPENAI_MODEL_IMAGE", "GCP_PROJECT_ID", "VERTEX_AI_REGION",
		"GEMINI_MODEL", "SPREADSHEET_ID", "SHEET_RANGE", "GOOGLE_CREDENTIALS",
		"LEDGER_CSV_PATH", "RABBITMQ_URL", "RABBITMQ_QUEUE", "S3_ENDPOINT", "S3_REGION",
		"S3_BUCKET", "S3_ACCESS_KEY", "S3_SECRET_KEY", "S3_PATH_STYLE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel, "development defaults to debug logging")
	assert.Equal(t, ProviderGemini, cfg.Extractor.Provider)
	assert.Equal(t, "gemini-2.5-flash-lite", cfg.Gemini.Model)
	assert.Equal(t, "https://slack.com/api", cfg.Slack.APIURL)
	assert.Equal(t, "output.csv", cfg.Ledger.CSVPath)
	assert.False(t, cfg.Archive.Enabled())
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENV", "production")
	t.Setenv("EXTRACTOR_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("SLACK_API_URL", "http://localhost:9999/api/")
	t.Setenv("SPREADSHEET_ID", "sheet-1")
	t.Setenv("GOOGLE_CREDENTIALS", "{}")
	t.Setenv("EVENT_DEDUP_TTL", "30s")
	t.Setenv("S3_PATH_STYLE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ProviderOpenAI, cfg.Extractor.Provider)
	assert.Equal(t, "http://localhost:9999/api", cfg.Slack.APIURL)
	assert.Equal(t, 30*time.Second, cfg.Slack.DedupTTL)
	assert.Empty(t, cfg.Ledger.CSVPath, "csv fallback only applies without other ledgers")
	assert.True(t, cfg.Archive.PathStyle)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
port = "4000"

[gemini]
project_id = "card-project"
model = "gemini-2.5-flash"

[archive]
bucket = "cards"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "5000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port, "environment wins over file")
	assert.Equal(t, "card-project", cfg.Gemini.ProjectID)
	assert.Equal(t, "gemini-2.5-flash", cfg.Gemini.Model)
	assert.Equal(t, "us-central1", cfg.Gemini.Region, "defaults survive partial files")
	assert.True(t, cfg.Archive.Enabled())
}

func TestValidate(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GCP_PROJECT_ID")

	cfg.Gemini.ProjectID = "p"
	cfg.Archive.Bucket = "cards"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S3_ACCESS_KEY")

	cfg.Extractor.Provider = "tesseract"
	assert.ErrorContains(t, cfg.Validate(), "unknown EXTRACTOR_PROVIDER")
}
