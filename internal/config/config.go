package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Config struct {
	Environment string          `toml:"env"`
	Port        string          `toml:"port"`
	Token       string          `toml:"token"`
	LogLevel    string          `toml:"log_level"`
	Slack       SlackConfig     `toml:"slack"`
	Extractor   ExtractorConfig `toml:"extractor"`
	OpenAI      OpenAIConfig    `toml:"openai"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Ledger      LedgerConfig    `toml:"ledger"`
	Archive     ArchiveConfig   `toml:"archive"`
}

type SlackConfig struct {
	BotToken string        `toml:"bot_token"`
	APIURL   string        `toml:"api_url"`
	DedupTTL time.Duration `toml:"dedup_ttl"`
}

type ExtractorConfig struct {
	Provider string `toml:"provider"`
	MaxSide  int    `toml:"max_side"`
}

type OpenAIConfig struct {
	APIKey     string `toml:"api_key"`
	BaseURL    string `toml:"base_url"`
	ModelImage string `toml:"model_image"`
}

type GeminiConfig struct {
	ProjectID string `toml:"project_id"`
	Region    string `toml:"region"`
	Model     string `toml:"model"`
}

type LedgerConfig struct {
	SpreadsheetID     string `toml:"spreadsheet_id"`
	SheetRange        string `toml:"sheet_range"`
	GoogleCredentials string `toml:"google_credentials"`
	CSVPath           string `toml:"csv_path"`
	RabbitURL         string `toml:"rabbitmq_url"`
	RabbitQueue       string `toml:"rabbitmq_queue"`
}

type ArchiveConfig struct {
	Endpoint  string `toml:"endpoint"`
	Region    string `toml:"region"`
	Bucket    string `toml:"bucket"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	PathStyle bool   `toml:"path_style"`
}

// Enabled indica se o arquivamento de imagens foi configurado.
func (a ArchiveConfig) Enabled() bool {
	return a.Bucket != ""
}

func defaults() *Config {
	return &Config{
		Environment: "development",
		Port:        "3000",
		LogLevel:    "info",
		Slack: SlackConfig{
			APIURL:   "https://slack.com/api",
			DedupTTL: 10 * time.Minute,
		},
		Extractor: ExtractorConfig{
			Provider: ProviderGemini,
			MaxSide:  2048,
		},
		OpenAI: OpenAIConfig{
			ModelImage: "gpt-4o-mini",
		},
		Gemini: GeminiConfig{
			Region: "us-central1",
			Model:  "gemini-2.5-flash-lite",
		},
		Ledger: LedgerConfig{
			SheetRange:  "Sheet1!A1",
			RabbitQueue: "meishi_cards",
		},
		Archive: ArchiveConfig{
			Region: "auto",
		},
	}
}

// Load monta a configuração: padrões, depois o arquivo TOML opcional (CONFIG_FILE),
// e por último as variáveis de ambiente.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
		}
	}

	cfg.Environment = getEnv("ENV", cfg.Environment)
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Token = getEnv("TOKEN", cfg.Token)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	if cfg.Environment == "development" && os.Getenv("LOG_LEVEL") == "" {
		cfg.LogLevel = "debug"
	}

	cfg.Slack.BotToken = getEnv("SLACK_BOT_TOKEN", cfg.Slack.BotToken)
	cfg.Slack.APIURL = strings.TrimRight(getEnv("SLACK_API_URL", cfg.Slack.APIURL), "/")
	cfg.Slack.DedupTTL = getDuration("EVENT_DEDUP_TTL", cfg.Slack.DedupTTL)

	cfg.Extractor.Provider = strings.ToLower(getEnv("EXTRACTOR_PROVIDER", cfg.Extractor.Provider))
	cfg.Extractor.MaxSide = getInt("EXTRACTOR_MAX_SIDE", cfg.Extractor.MaxSide)

	cfg.OpenAI.APIKey = getEnv("OPENAI_API_KEY", cfg.OpenAI.APIKey)
	cfg.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", cfg.OpenAI.BaseURL)
	cfg.OpenAI.ModelImage = getEnv("OPENAI_MODEL_IMAGE", cfg.OpenAI.ModelImage)

	cfg.Gemini.ProjectID = getEnv("GCP_PROJECT_ID", cfg.Gemini.ProjectID)
	cfg.Gemini.Region = getEnv("VERTEX_AI_REGION", cfg.Gemini.Region)
	cfg.Gemini.Model = getEnv("GEMINI_MODEL", cfg.Gemini.Model)

	cfg.Ledger.SpreadsheetID = getEnv("SPREADSHEET_ID", cfg.Ledger.SpreadsheetID)
	cfg.Ledger.SheetRange = getEnv("SHEET_RANGE", cfg.Ledger.SheetRange)
	cfg.Ledger.GoogleCredentials = getEnv("GOOGLE_CREDENTIALS", cfg.Ledger.GoogleCredentials)
	cfg.Ledger.CSVPath = getEnv("LEDGER_CSV_PATH", cfg.Ledger.CSVPath)
	cfg.Ledger.RabbitURL = getEnv("RABBITMQ_URL", cfg.Ledger.RabbitURL)
	cfg.Ledger.RabbitQueue = getEnv("RABBITMQ_QUEUE", cfg.Ledger.RabbitQueue)

	cfg.Archive.Endpoint = getEnv("S3_ENDPOINT", cfg.Archive.Endpoint)
	cfg.Archive.Region = getEnv("S3_REGION", cfg.Archive.Region)
	cfg.Archive.Bucket = getEnv("S3_BUCKET", cfg.Archive.Bucket)
	cfg.Archive.AccessKey = getEnv("S3_ACCESS_KEY", cfg.Archive.AccessKey)
	cfg.Archive.SecretKey = getEnv("S3_SECRET_KEY", cfg.Archive.SecretKey)
	cfg.Archive.PathStyle = getBool("S3_PATH_STYLE", cfg.Archive.PathStyle)

	// Sem nenhum destino configurado, grava em CSV local
	if cfg.Ledger.SpreadsheetID == "" && cfg.Ledger.CSVPath == "" && cfg.Ledger.RabbitURL == "" {
		cfg.Ledger.CSVPath = "output.csv"
	}

	return cfg, nil
}

// Validate verifica as configurações obrigatórias para o servidor.
func (c *Config) Validate() error {
	var errs []error

	switch c.Extractor.Provider {
	case ProviderGemini:
		if c.Gemini.ProjectID == "" {
			errs = append(errs, errors.New("GCP_PROJECT_ID must be set for the gemini extractor"))
		}
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY must be set for the openai extractor"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown EXTRACTOR_PROVIDER %q", c.Extractor.Provider))
	}

	if c.Ledger.SpreadsheetID != "" && c.Ledger.GoogleCredentials == "" {
		errs = append(errs, errors.New("GOOGLE_CREDENTIALS must be set when SPREADSHEET_ID is set"))
	}
	if c.Archive.Enabled() && (c.Archive.AccessKey == "" || c.Archive.SecretKey == "") {
		errs = append(errs, errors.New("S3_ACCESS_KEY and S3_SECRET_KEY must be set when S3_BUCKET is set"))
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}
