package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.SearchThreshold != 0.70 {
		t.Errorf("SearchThreshold = %v, want 0.70", cfg.SearchThreshold)
	}
	if cfg.AskThreshold != 0.65 {
		t.Errorf("AskThreshold = %v, want 0.65", cfg.AskThreshold)
	}
	if cfg.AskPanelLimit != 10 || cfg.AskSBSLimit != 5 {
		t.Errorf("ask limits = %d/%d, want 10/5", cfg.AskPanelLimit, cfg.AskSBSLimit)
	}
	if cfg.RateAskMax != 10 || cfg.RateSearchMax != 60 {
		t.Errorf("rate limits = %d/%d, want 10/60", cfg.RateAskMax, cfg.RateSearchMax)
	}
	if cfg.RateWindow != time.Minute {
		t.Errorf("RateWindow = %v, want 1m", cfg.RateWindow)
	}
	if cfg.Temperature != 0.3 {
		t.Errorf("Temperature = %v, want 0.3", cfg.Temperature)
	}
	if cfg.MaxAnswerTokens != 1000 {
		t.Errorf("MaxAnswerTokens = %d, want 1000", cfg.MaxAnswerTokens)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ORACLE_ASK_THRESHOLD", "0.5")
	t.Setenv("ORACLE_ASK_PANEL_LIMIT", "3")
	t.Setenv("ORACLE_RATE_WINDOW", "30s")
	t.Setenv("ORACLE_LOG_LEVEL", "debug")
	t.Setenv("ORACLE_EMBED_PROVIDER", "OpenAI")

	cfg := Load()

	if cfg.AskThreshold != 0.5 {
		t.Errorf("AskThreshold = %v, want 0.5", cfg.AskThreshold)
	}
	if cfg.AskPanelLimit != 3 {
		t.Errorf("AskPanelLimit = %d, want 3", cfg.AskPanelLimit)
	}
	if cfg.RateWindow != 30*time.Second {
		t.Errorf("RateWindow = %v, want 30s", cfg.RateWindow)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
	if cfg.EmbedProvider != ProviderOpenAI {
		t.Errorf("EmbedProvider = %q, want openai", cfg.EmbedProvider)
	}
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oracle.yaml")
	data := []byte("ask_threshold: 0.9\nsearch_panel_limit: 7\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("ORACLE_CONFIG", path)
	t.Setenv("ORACLE_ASK_THRESHOLD", "0.45")

	cfg := Load()

	if cfg.AskThreshold != 0.45 {
		t.Errorf("AskThreshold = %v, want env value 0.45", cfg.AskThreshold)
	}
	if cfg.SearchPanelLimit != 7 {
		t.Errorf("SearchPanelLimit = %d, want file value 7", cfg.SearchPanelLimit)
	}
}

func TestLoad_BadFileFallsBack(t *testing.T) {
	t.Setenv("ORACLE_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg := Load()

	if cfg.SearchThreshold != 0.70 {
		t.Errorf("SearchThreshold = %v, want default 0.70", cfg.SearchThreshold)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"Warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"garbage", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
