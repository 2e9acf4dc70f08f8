package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	ProviderWebhook = "webhook"
	ProviderOpenAI  = "openai"
)

// Config holds the application configuration
type Config struct {
	Env           string        `mapstructure:"env"`
	AssistantName string        `mapstructure:"assistant_name"`
	Webhook       WebhookConfig `mapstructure:"webhook"`
	LLM           LLMConfig     `mapstructure:"llm"`
	Storage       StorageConfig `mapstructure:"storage"`
	Log           LogConfig     `mapstructure:"log"`
}

// WebhookConfig describes the workflow-automation endpoint doing inference.
type WebhookConfig struct {
	// URL, when set, overrides the resolved endpoint entirely.
	URL           string        `mapstructure:"url"`
	ID            string        `mapstructure:"id"`
	DevProxyURL   string        `mapstructure:"dev_proxy_url"`
	ProductionURL string        `mapstructure:"production_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// LLMConfig holds the LLM configuration
type LLMConfig struct {
	Provider string `mapstructure:"provider"`
	BaseURL  string `mapstructure:"base_url"`
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
}

// StorageConfig holds the persistence configuration
type StorageConfig struct {
	Path string `mapstructure:"path"`
	Key  string `mapstructure:"key"`
}

// LogConfig holds the logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// Load loads the configuration from CONFIG_PATH, or from a config.yaml found
// in the working directory or the user config directory.
func Load() (*Config, error) {
	return LoadFile(os.Getenv("CONFIG_PATH"))
}

// LoadFile loads the configuration from path. An empty path searches the
// default locations, where a missing file is not an error.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("NEURA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "neura"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", EnvProduction)
	v.SetDefault("assistant_name", "Neura")

	v.SetDefault("webhook.url", "")
	v.SetDefault("webhook.id", "ae2800f0-5726-4468-8199-3f97088617a3")
	v.SetDefault("webhook.dev_proxy_url", "http://localhost:5173")
	v.SetDefault("webhook.production_url", "https://n8n-neuracodeai.up.railway.app")
	v.SetDefault("webhook.timeout", 2*time.Minute)

	v.SetDefault("llm.provider", ProviderWebhook)
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gpt-4o-mini")

	v.SetDefault("storage.path", defaultStoragePath())
	v.SetDefault("storage.key", "persist:root")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

func defaultStoragePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "neura.db"
	}
	return filepath.Join(dir, "neura", "neura.db")
}

// Validate checks that the loaded values are usable.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderWebhook, ProviderOpenAI:
	default:
		return fmt.Errorf("unsupported llm provider %q", c.LLM.Provider)
	}
	if c.Storage.Path == "" {
		return errors.New("storage.path cannot be empty")
	}
	if c.Storage.Key == "" {
		return errors.New("storage.key cannot be empty")
	}
	if c.Webhook.Timeout <= 0 {
		return errors.New("webhook.timeout must be > 0")
	}
	return nil
}

// IsDevelopment reports whether the client runs against the local dev proxy.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, EnvDevelopment)
}

// WebhookURL resolves the inference endpoint: explicit override, else the
// local proxy path in development, else the production URL.
func (c *Config) WebhookURL() string {
	if c.Webhook.URL != "" {
		return c.Webhook.URL
	}
	if c.IsDevelopment() {
		return strings.TrimRight(c.Webhook.DevProxyURL, "/") + "/api/webhook/" + c.Webhook.ID
	}
	return strings.TrimRight(c.Webhook.ProductionURL, "/") + "/webhook/" + c.Webhook.ID
}
