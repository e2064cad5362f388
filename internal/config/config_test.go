package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/promptmarket/gallery/internal/autogen"
	"github.com/promptmarket/gallery/internal/generation"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("GALLERY_CONFIG_DIR", dir)
	for _, key := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "API_KEY", "OPENAI_API_KEY"} {
		t.Setenv(key, "")
	}
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Listen != ":8080" {
		t.Errorf("Expected listen :8080, got %s", cfg.Server.Listen)
	}
	if want := filepath.Join(dir, "data"); cfg.Storage.DataDir != want {
		t.Errorf("Expected data dir %s, got %s", want, cfg.Storage.DataDir)
	}
	if cfg.Generation.Provider != generation.ProviderGemini {
		t.Errorf("Expected gemini provider, got %s", cfg.Generation.Provider)
	}
	if cfg.Autogen.Policy != autogen.DefaultPolicy() {
		t.Errorf("Expected default policy, got %+v", cfg.Autogen.Policy)
	}
	if len(cfg.Autogen.Classifier.Codes) != 1 || cfg.Autogen.Classifier.Codes[0] != 429 {
		t.Errorf("Expected default classifier codes, got %v", cfg.Autogen.Classifier.Codes)
	}
	if cfg.Catalog.SeedCount != 500 {
		t.Errorf("Expected seed count 500, got %d", cfg.Catalog.SeedCount)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := isolate(t)
	content := `
server:
  listen: "127.0.0.1:9000"
generation:
  provider: openai
autogen:
  success_cooldown: 90s
  rate_limit_sleep: 10m
log:
  level: debug
  format: json
`
	if err := os.WriteFile(filepath.Join(dir, "gallery.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("GALLERY_SERVER_LISTEN", ":7000")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Listen != ":7000" {
		t.Errorf("Expected env override :7000, got %s", cfg.Server.Listen)
	}
	if cfg.Autogen.SuccessCooldown != 90*time.Second {
		t.Errorf("Expected 90s cooldown, got %s", cfg.Autogen.SuccessCooldown)
	}
	if cfg.Autogen.RateLimitSleep != 10*time.Minute {
		t.Errorf("Expected 10m rate limit sleep, got %s", cfg.Autogen.RateLimitSleep)
	}
	if cfg.Autogen.SoftRetry != 10*time.Second {
		t.Errorf("Expected default soft retry, got %s", cfg.Autogen.SoftRetry)
	}

	backend := cfg.Generation.Backend()
	if backend.Provider != generation.ProviderOpenAI || backend.APIKey != "sk-test" {
		t.Errorf("Expected openai backend with key, got %+v", backend)
	}
	if cfg.Log.SlogLevel().String() != "DEBUG" {
		t.Errorf("Expected debug level, got %s", cfg.Log.SlogLevel())
	}
}

func TestLoad_GeminiKeyFallbacks(t *testing.T) {
	isolate(t)
	t.Setenv("GOOGLE_API_KEY", "google-key")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := cfg.Generation.Backend().APIKey; got != "google-key" {
		t.Errorf("Expected GOOGLE_API_KEY to be used, got %q", got)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"provider": "generation:\n  provider: dalle\n",
		"policy":   "autogen:\n  rate_limit_sleep: 1s\n",
		"format":   "log:\n  format: xml\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			dir := isolate(t)
			path := filepath.Join(dir, "custom.yaml")
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	dir := isolate(t)
	if _, err := Load(filepath.Join(dir, "nope.yaml")); err == nil {
		t.Error("Expected error for missing explicit config file")
	}
}

func TestSlogLevel_Default(t *testing.T) {
	if got := (LogConfig{Level: "loud"}).SlogLevel().String(); got != "INFO" {
		t.Errorf("Expected INFO for unknown level, got %s", got)
	}
}
