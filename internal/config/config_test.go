package config

import (
	"log/slog"
	"testing"
	"time"
)

var configKeys = []string{
	"HTTP_ADDR", "DATABASE_URL", "REDIS_URL", "LOG_LEVEL", "LLM_PROVIDER", "LLM_API_KEY",
	"CHAT_MODEL", "CLASSIFIER_MODEL", "GOOGLE_API_KEY", "EMBEDDING_MODEL", "XAI_API_KEY",
	"OPENAI_API_KEY", "OPENROUTER_API_KEY", "CLASSIFIER_TIMEOUT", "REPLY_TIMEOUT",
	"REPORT_CACHE_TTL", "CONTEXT_WINDOW", "TOP_K", "SIMILARITY_THRESHOLD", "RECALL_ENABLED",
	"CRISIS_HOTLINE", "CRISIS_TEXT_NUMBER", "CRISIS_CHAT_URL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestParseDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/serenia")
	t.Setenv("XAI_API_KEY", "xai-secret")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.LLMProvider != "grok" || cfg.ChatModel != "grok-4-fast" {
		t.Fatalf("unexpected defaults: %#v", cfg)
	}
	if cfg.ClassifierModel != cfg.ChatModel {
		t.Fatalf("expected classifier model to default to chat model, got %s", cfg.ClassifierModel)
	}
	if cfg.LLMAPIKey != "xai-secret" {
		t.Fatalf("expected grok key fallback, got %q", cfg.LLMAPIKey)
	}
	if cfg.ClassifierTimeout != 8*time.Second || cfg.ReplyTimeout != 30*time.Second || cfg.ReportCacheTTL != 5*time.Minute {
		t.Fatalf("unexpected timeouts: %#v", cfg)
	}
	if cfg.ContextWindow != 5 || cfg.TopK != 3 || cfg.SimilarityThreshold != 0.75 || !cfg.RecallEnabled {
		t.Fatalf("unexpected tuning defaults: %#v", cfg)
	}
	if cfg.CrisisHotline != "988" || cfg.CrisisTextNumber != "741741" {
		t.Fatalf("unexpected crisis defaults: %#v", cfg)
	}
}

func TestParseOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/serenia")
	t.Setenv("LLM_PROVIDER", "Gemini")
	t.Setenv("GOOGLE_API_KEY", "g-key")
	t.Setenv("CLASSIFIER_TIMEOUT", "2s")
	t.Setenv("CONTEXT_WINDOW", "9")
	t.Setenv("RECALL_ENABLED", "false")
	t.Setenv("TOP_K", "not-a-number")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.LLMProvider != "gemini" || cfg.LLMAPIKey != "g-key" {
		t.Fatalf("expected gemini with google key, got %s %q", cfg.LLMProvider, cfg.LLMAPIKey)
	}
	if cfg.ClassifierTimeout != 2*time.Second || cfg.ContextWindow != 9 || cfg.RecallEnabled {
		t.Fatalf("unexpected overrides: %#v", cfg)
	}
	if cfg.TopK != 3 {
		t.Fatalf("expected invalid TOP_K to fall back to 3, got %d", cfg.TopK)
	}
}

func TestParseValidation(t *testing.T) {
	clearEnv(t)
	if _, err := Parse(); err == nil {
		t.Fatalf("expected error without DATABASE_URL")
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/serenia")
	t.Setenv("LLM_PROVIDER", "anthropic")
	if _, err := Parse(); err == nil {
		t.Fatalf("expected error for unsupported provider")
	}

	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("CONTEXT_WINDOW", "0")
	if _, err := Parse(); err == nil {
		t.Fatalf("expected error for zero context window")
	}
}

func TestSlogLevel(t *testing.T) {
	if (Config{LogLevel: "debug"}).SlogLevel() != slog.LevelDebug {
		t.Fatalf("expected debug")
	}
	if (Config{LogLevel: "bogus"}).SlogLevel() != slog.LevelInfo {
		t.Fatalf("expected info for unknown level")
	}
}

func TestMask(t *testing.T) {
	cases := map[string]string{
		"":                 "(unset)",
		"abc":              "****",
		"xai-1234567890ab": "********90ab",
	}
	for in, want := range cases {
		if got := Mask(in); got != want {
			t.Fatalf("Mask(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestSettingsMarksSecrets(t *testing.T) {
	secrets := map[string]bool{}
	for _, s := range (Config{}).Settings() {
		if s.Secret {
			secrets[s.Name] = true
		}
	}
	for _, name := range []string{"DATABASE_URL", "REDIS_URL", "LLM_API_KEY", "GOOGLE_API_KEY"} {
		if !secrets[name] {
			t.Fatalf("expected %s to be secret", name)
		}
	}
}
