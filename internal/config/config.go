// Package config handles application configuration management.
// It supports YAML files and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/promptmarket/gallery/internal/autogen"
	"github.com/promptmarket/gallery/internal/catalog"
	"github.com/promptmarket/gallery/internal/generation"
)

// EnvPrefix prefixes every environment override, e.g. GALLERY_SERVER_LISTEN
const EnvPrefix = "GALLERY"

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Storage    StorageConfig    `mapstructure:"storage" yaml:"storage"`
	Generation GenerationConfig `mapstructure:"generation" yaml:"generation"`
	Autogen    AutogenConfig    `mapstructure:"autogen" yaml:"autogen"`
	Catalog    CatalogConfig    `mapstructure:"catalog" yaml:"catalog"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
}

type ServerConfig struct {
	Listen string `mapstructure:"listen" yaml:"listen"`
}

// StorageConfig holds storage settings
type StorageConfig struct {
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
}

// GenerationConfig selects the image backend
type GenerationConfig struct {
	Provider      string `mapstructure:"provider" yaml:"provider"`
	GeminiAPIKey  string `mapstructure:"gemini_api_key" yaml:"gemini_api_key"`
	OpenAIAPIKey  string `mapstructure:"openai_api_key" yaml:"openai_api_key"`
	BaseURL       string `mapstructure:"base_url" yaml:"base_url"`
	PrimaryModel  string `mapstructure:"primary_model" yaml:"primary_model"`
	FallbackModel string `mapstructure:"fallback_model" yaml:"fallback_model"`
}

// Backend returns the backend settings with the key matching the provider
func (g GenerationConfig) Backend() generation.BackendConfig {
	key := g.GeminiAPIKey
	if g.Provider == generation.ProviderOpenAI {
		key = g.OpenAIAPIKey
	}
	return generation.BackendConfig{
		Provider:      g.Provider,
		APIKey:        key,
		BaseURL:       g.BaseURL,
		PrimaryModel:  g.PrimaryModel,
		FallbackModel: g.FallbackModel,
	}
}

// AutogenConfig holds the sweep's timing and rate-limit detection
type AutogenConfig struct {
	autogen.Policy `mapstructure:",squash" yaml:",inline"`
	Classifier     autogen.Classifier `mapstructure:"classifier" yaml:"classifier"`
}

// CatalogConfig picks the catalog source. An empty Source means the
// built-in seeded catalog.
type CatalogConfig struct {
	Source    string `mapstructure:"source" yaml:"source"`
	SeedCount int    `mapstructure:"seed_count" yaml:"seed_count"`
	Seed      uint64 `mapstructure:"seed" yaml:"seed"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// SlogLevel maps the configured level name, defaulting to info
func (l LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Load reads configuration from file and environment variables. An empty
// path searches gallery.yaml in the config directory and the working
// directory.
func Load(path string) (*Config, error) {
	v := viper.New()

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to determine config directory: %w", err)
	}
	setDefaults(v, configDir)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("gallery")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		slog.Debug("Loaded config file", "path", v.ConfigFileUsed())
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("generation.gemini_api_key", "GALLERY_GENERATION_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY", "API_KEY")
	_ = v.BindEnv("generation.openai_api_key", "GALLERY_GENERATION_OPENAI_API_KEY", "OPENAI_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	policy := autogen.DefaultPolicy()
	classifier := autogen.DefaultClassifier()

	v.SetDefault("server.listen", ":8080")
	v.SetDefault("storage.data_dir", filepath.Join(configDir, "data"))

	v.SetDefault("generation.provider", generation.ProviderGemini)
	v.SetDefault("generation.gemini_api_key", "")
	v.SetDefault("generation.openai_api_key", "")
	v.SetDefault("generation.base_url", "")
	v.SetDefault("generation.primary_model", "")
	v.SetDefault("generation.fallback_model", "")

	v.SetDefault("autogen.success_cooldown", policy.SuccessCooldown)
	v.SetDefault("autogen.soft_retry", policy.SoftRetry)
	v.SetDefault("autogen.generic_retry", policy.GenericRetry)
	v.SetDefault("autogen.rate_limit_sleep", policy.RateLimitSleep)
	v.SetDefault("autogen.tick", policy.Tick)
	v.SetDefault("autogen.classifier.codes", classifier.Codes)
	v.SetDefault("autogen.classifier.statuses", classifier.Statuses)
	v.SetDefault("autogen.classifier.substrings", classifier.Substrings)

	v.SetDefault("catalog.source", "")
	v.SetDefault("catalog.seed_count", catalog.DefaultSeedCount)
	v.SetDefault("catalog.seed", 1)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Validate checks values viper cannot type-check
func (c *Config) Validate() error {
	var errs []error

	switch c.Generation.Provider {
	case generation.ProviderGemini, generation.ProviderGeminiLegacy, generation.ProviderOpenAI:
	default:
		errs = append(errs, fmt.Errorf("unsupported generation.provider %q", c.Generation.Provider))
	}
	if c.Storage.DataDir == "" {
		errs = append(errs, errors.New("storage.data_dir must be set"))
	}
	if c.Catalog.SeedCount < 0 {
		errs = append(errs, fmt.Errorf("catalog.seed_count must not be negative, got %d", c.Catalog.SeedCount))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unsupported log.format %q", c.Log.Format))
	}
	if err := c.Autogen.Policy.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("invalid autogen policy: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory path
func getConfigDir() (string, error) {
	if configDir := os.Getenv("GALLERY_CONFIG_DIR"); configDir != "" {
		return configDir, nil
	}

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "gallery"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "gallery"), nil
}

// GetConfigDir returns the configuration directory (exported for other packages)
func GetConfigDir() (string, error) {
	return getConfigDir()
}
