// Package config loads configuration from an optional YAML file plus
// environment variables. Environment always wins over the file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider identifies an LLM or embedding backend.
type Provider string

const (
	ProviderOllama    Provider = "ollama"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderBedrock   Provider = "bedrock"
)

// Config holds all configuration values.
type Config struct {
	// HTTP server
	ServerPort string `yaml:"server_port"`

	// SurrealDB connection
	SurrealDBURL       string `yaml:"surrealdb_url"`
	SurrealDBNamespace string `yaml:"surrealdb_namespace"`
	SurrealDBDatabase  string `yaml:"surrealdb_database"`
	SurrealDBUser      string `yaml:"surrealdb_user"`
	SurrealDBPass      string `yaml:"surrealdb_pass"`
	SurrealDBAuthLevel string `yaml:"surrealdb_auth_level"`

	// Embedding
	EmbedProvider  Provider `yaml:"embed_provider"`
	EmbedModel     string   `yaml:"embed_model"`
	EmbedDimension int      `yaml:"embed_dimension"`

	// Text generation
	LLMProvider     Provider `yaml:"llm_provider"`
	LLMModel        string   `yaml:"llm_model"`
	Temperature     float64  `yaml:"temperature"`
	MaxAnswerTokens int      `yaml:"max_answer_tokens"`

	// Provider credentials / endpoints
	OllamaHost      string `yaml:"ollama_host"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	BedrockRegion   string `yaml:"bedrock_region"`

	// Retrieval tuning. The plain search endpoint and the ask pipeline are
	// tuned independently: search favors precision, ask favors recall since
	// the generator filters again through its grounding instructions.
	SearchThreshold  float64 `yaml:"search_threshold"`
	SearchPanelLimit int     `yaml:"search_panel_limit"`
	SearchSBSLimit   int     `yaml:"search_sbs_limit"`
	AskThreshold     float64 `yaml:"ask_threshold"`
	AskPanelLimit    int     `yaml:"ask_panel_limit"`
	AskSBSLimit      int     `yaml:"ask_sbs_limit"`

	// Rate limiting (per-identifier sliding windows)
	RateAskMax    int           `yaml:"rate_ask_max"`
	RateSearchMax int           `yaml:"rate_search_max"`
	RateAPIMax    int           `yaml:"rate_api_max"`
	RateWindow    time.Duration `yaml:"rate_window"`
	SweepInterval time.Duration `yaml:"sweep_interval"`

	// Logging
	LogFile  string     `yaml:"log_file"`
	LogLevel slog.Level `yaml:"-"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		ServerPort: "8480",

		SurrealDBURL:       "ws://localhost:8000/rpc",
		SurrealDBNamespace: "grandline",
		SurrealDBDatabase:  "manga",
		SurrealDBUser:      "root",
		SurrealDBPass:      "root",
		SurrealDBAuthLevel: "root",

		EmbedProvider:  ProviderOllama,
		EmbedModel:     "all-minilm:l6-v2",
		EmbedDimension: 384,

		LLMProvider:     ProviderOllama,
		LLMModel:        "llama3.1",
		Temperature:     0.3,
		MaxAnswerTokens: 1000,

		OllamaHost:    "http://localhost:11434",
		BedrockRegion: "us-east-1",

		SearchThreshold:  0.70,
		SearchPanelLimit: 20,
		SearchSBSLimit:   5,
		AskThreshold:     0.65,
		AskPanelLimit:    10,
		AskSBSLimit:      5,

		RateAskMax:    10,
		RateSearchMax: 60,
		RateAPIMax:    100,
		RateWindow:    time.Minute,
		SweepInterval: 5 * time.Minute,

		LogFile:  "/tmp/oracle.log",
		LogLevel: slog.LevelInfo,
	}
}

// Load reads configuration: defaults, then the YAML file named by
// ORACLE_CONFIG (if set and readable), then environment overrides.
func Load() Config {
	cfg := Defaults()

	if path := os.Getenv("ORACLE_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			slog.Warn("failed to load config file, using defaults", "path", path, "error", err)
		}
	}

	cfg.applyEnv()
	return cfg
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	setString(&c.ServerPort, "ORACLE_SERVER_PORT")

	setString(&c.SurrealDBURL, "SURREALDB_URL")
	setString(&c.SurrealDBNamespace, "SURREALDB_NAMESPACE")
	setString(&c.SurrealDBDatabase, "SURREALDB_DATABASE")
	setString(&c.SurrealDBUser, "SURREALDB_USER")
	setString(&c.SurrealDBPass, "SURREALDB_PASS")
	setString(&c.SurrealDBAuthLevel, "SURREALDB_AUTH_LEVEL")

	setProvider(&c.EmbedProvider, "ORACLE_EMBED_PROVIDER")
	setString(&c.EmbedModel, "ORACLE_EMBED_MODEL")
	setInt(&c.EmbedDimension, "ORACLE_EMBED_DIMENSION")

	setProvider(&c.LLMProvider, "ORACLE_LLM_PROVIDER")
	setString(&c.LLMModel, "ORACLE_LLM_MODEL")
	setFloat(&c.Temperature, "ORACLE_TEMPERATURE")
	setInt(&c.MaxAnswerTokens, "ORACLE_MAX_ANSWER_TOKENS")

	setString(&c.OllamaHost, "OLLAMA_HOST")
	setString(&c.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&c.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	setString(&c.BedrockRegion, "AWS_REGION")

	setFloat(&c.SearchThreshold, "ORACLE_SEARCH_THRESHOLD")
	setInt(&c.SearchPanelLimit, "ORACLE_SEARCH_PANEL_LIMIT")
	setInt(&c.SearchSBSLimit, "ORACLE_SEARCH_SBS_LIMIT")
	setFloat(&c.AskThreshold, "ORACLE_ASK_THRESHOLD")
	setInt(&c.AskPanelLimit, "ORACLE_ASK_PANEL_LIMIT")
	setInt(&c.AskSBSLimit, "ORACLE_ASK_SBS_LIMIT")

	setInt(&c.RateAskMax, "ORACLE_RATE_ASK_MAX")
	setInt(&c.RateSearchMax, "ORACLE_RATE_SEARCH_MAX")
	setInt(&c.RateAPIMax, "ORACLE_RATE_API_MAX")
	setDuration(&c.RateWindow, "ORACLE_RATE_WINDOW")
	setDuration(&c.SweepInterval, "ORACLE_SWEEP_INTERVAL")

	setString(&c.LogFile, "ORACLE_LOG_FILE")
	if v := os.Getenv("ORACLE_LOG_LEVEL"); v != "" {
		c.LogLevel = parseLogLevel(v)
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setProvider(dst *Provider, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = Provider(strings.ToLower(v))
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
