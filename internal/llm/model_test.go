package llm

import (
	"context"
	"testing"

	"github.com/grandline/oracle/internal/config"
)

func TestNewModel_UnsupportedProvider(t *testing.T) {
	cfg := config.Defaults()
	cfg.LLMProvider = "mainframe"

	if _, err := NewModel(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

func TestNewModel_MissingCredentials(t *testing.T) {
	tests := []struct {
		name     string
		provider config.Provider
	}{
		{"openai without key", config.ProviderOpenAI},
		{"anthropic without key", config.ProviderAnthropic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Defaults()
			cfg.LLMProvider = tt.provider
			cfg.OpenAIAPIKey = ""
			cfg.AnthropicAPIKey = ""

			if _, err := NewModel(context.Background(), cfg, nil); err == nil {
				t.Fatal("expected error without API key")
			}
		})
	}
}

func TestNewEmbedder_UnsupportedProvider(t *testing.T) {
	cfg := config.Defaults()
	cfg.EmbedProvider = "abacus"

	if _, err := NewEmbedder(cfg, nil); err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

func TestTokenUsage(t *testing.T) {
	tests := []struct {
		name    string
		info    map[string]any
		wantIn  int64
		wantOut int64
	}{
		{"nil info", nil, 0, 0},
		{"ints", map[string]any{"PromptTokens": 120, "CompletionTokens": 45}, 120, 45},
		{"floats", map[string]any{"PromptTokens": 120.0, "CompletionTokens": 45.0}, 120, 45},
		{"missing keys", map[string]any{"other": 1}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, out := tokenUsage(tt.info)
			if in != tt.wantIn || out != tt.wantOut {
				t.Errorf("tokenUsage() = %d/%d, want %d/%d", in, out, tt.wantIn, tt.wantOut)
			}
		})
	}
}
