package generation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/promptmarket/gallery/internal/gemini"
	"github.com/promptmarket/gallery/internal/openai"
	"github.com/promptmarket/gallery/internal/providers"
)

const (
	ProviderGemini       = "gemini"
	ProviderGeminiLegacy = "gemini-legacy"
	ProviderOpenAI       = "openai"
)

// BackendConfig selects and configures the image model
type BackendConfig struct {
	Provider      string
	APIKey        string
	BaseURL       string // openai only
	PrimaryModel  string
	FallbackModel string
}

// DefaultModels returns the primary and fallback models for provider
func DefaultModels(provider string) (string, string) {
	switch provider {
	case ProviderOpenAI:
		return openai.DefaultModel, openai.FallbackModel
	default:
		return gemini.ProModel, gemini.FlashModel
	}
}

// NewModel builds the backend for cfg. It returns a nil model and no error
// when no API key is configured.
func NewModel(ctx context.Context, cfg BackendConfig) (providers.ImageModel, error) {
	if cfg.APIKey == "" {
		slog.Warn("No API key configured, generation disabled", "provider", cfg.Provider)
		return nil, nil
	}

	switch cfg.Provider {
	case ProviderGemini, "":
		m, err := gemini.New(ctx, cfg.APIKey)
		if err != nil {
			return nil, err
		}
		return m, nil
	case ProviderGeminiLegacy:
		m, err := gemini.NewLegacy(ctx, cfg.APIKey)
		if err != nil {
			return nil, err
		}
		return m, nil
	case ProviderOpenAI:
		m, err := openai.New(cfg.APIKey, cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}

// NewClientFromConfig builds the backend and wraps it in a Client using the
// configured or default models.
func NewClientFromConfig(ctx context.Context, cfg BackendConfig) (*Client, error) {
	model, err := NewModel(ctx, cfg)
	if err != nil {
		return nil, err
	}

	primary, fallback := DefaultModels(cfg.Provider)
	if cfg.PrimaryModel != "" {
		primary = cfg.PrimaryModel
	}
	if cfg.FallbackModel != "" {
		fallback = cfg.FallbackModel
	}

	return NewClient(model, primary, fallback), nil
}
