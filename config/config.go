// Package config resolves runtime configuration from environment variables,
// optional .env files and YAML documents with ${VAR} expansion.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider identifiers accepted in Config.Provider.
const (
	ProviderOpenAI    = "openai"
	ProviderAzure     = "azure"
	ProviderAnthropic = "anthropic"
)

// OpenAIConfig holds settings for the public OpenAI endpoint.
type OpenAIConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// AzureConfig holds settings for an Azure OpenAI resource.
type AzureConfig struct {
	Endpoint   string `yaml:"endpoint"`
	APIKey     string `yaml:"api_key"`
	APIVersion string `yaml:"api_version"`
	// Deployment is the default deployment name used for model calls.
	Deployment string `yaml:"deployment"`
	// GPT4Deployment optionally names a stronger deployment for callers that
	// want to route selected runs to it.
	GPT4Deployment string `yaml:"gpt4_deployment"`
}

// AnthropicConfig holds settings for the Anthropic API.
type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// RedisConfig holds connection settings for the Redis cache backend.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Duration is a time.Duration that decodes YAML strings like "1s", "5m" or
// "1h30m", or plain integers as nanoseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		var ns int64
		if err := value.Decode(&ns); err != nil {
			return fmt.Errorf("duration must be a string (e.g. \"1s\") or integer nanoseconds")
		}
		*d = Duration(ns)
		return nil
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the time.Duration value.
func (d Duration) Duration() time.Duration { return time.Duration(d) }

// RetryConfig tunes the retry middleware.
type RetryConfig struct {
	// MaxRetries is the number of extra attempts after the first failure.
	MaxRetries int `yaml:"max_retries"`
	// Backoff is the base wait between attempts, e.g. "1s". The wait grows
	// linearly with the attempt number.
	Backoff Duration `yaml:"backoff"`
}

// RateLimitConfig tunes the rate limit middleware.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// CacheConfig tunes the cache middleware.
type CacheConfig struct {
	// TTL bounds how long cached responses are served, e.g. "15m".
	TTL Duration `yaml:"ttl"`
}

// MiddlewareConfig groups the tunables of the built-in middlewares.
type MiddlewareConfig struct {
	Retry     RetryConfig     `yaml:"retry"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Cache     CacheConfig     `yaml:"cache"`
}

// Config is the top-level runtime configuration.
type Config struct {
	Provider  string          `yaml:"provider"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Azure     AzureConfig     `yaml:"azure"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	Redis     RedisConfig     `yaml:"redis"`
	// Middleware tunes the built-in middlewares. Zero values mean the
	// middleware defaults.
	Middleware MiddlewareConfig `yaml:"middleware"`
	// MaxModelCalls caps model invocations per run. Zero means the runner default.
	MaxModelCalls int `yaml:"max_model_calls"`
}

// FromEnv builds a Config from environment variables, loading .env.local and
// .env first. The provider defaults to azure when an Azure endpoint is set,
// otherwise openai.
func FromEnv() (*Config, error) {
	if err := LoadEnvFiles(); err != nil {
		return nil, err
	}

	cfg := &Config{
		Provider: os.Getenv("AGENTHOOKS_PROVIDER"),
		OpenAI: OpenAIConfig{
			APIKey: os.Getenv("OPENAI_API_KEY"),
			Model:  os.Getenv("OPENAI_MODEL"),
		},
		Azure: AzureConfig{
			Endpoint:       os.Getenv("AZURE_OPENAI_ENDPOINT"),
			APIKey:         os.Getenv("AZURE_OPENAI_API_KEY"),
			APIVersion:     os.Getenv("AZURE_OPENAI_API_VERSION"),
			Deployment:     os.Getenv("AZURE_OPENAI_DEPLOYMENT_NAME"),
			GPT4Deployment: os.Getenv("AZURE_OPENAI_GPT4_DEPLOYMENT_NAME"),
		},
		Anthropic: AnthropicConfig{
			APIKey: os.Getenv("ANTHROPIC_API_KEY"),
			Model:  os.Getenv("ANTHROPIC_MODEL"),
		},
		Redis: RedisConfig{
			Address:  os.Getenv("REDIS_ADDRESS"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
	}

	if cfg.Provider == "" {
		if cfg.Azure.Endpoint != "" {
			cfg.Provider = ProviderAzure
		} else {
			cfg.Provider = ProviderOpenAI
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads a YAML config file, expanding ${VAR} references against the
// environment before decoding.
func Load(path string) (*Config, error) {
	if err := LoadEnvFiles(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	expanded, err := yaml.Marshal(ExpandEnvVarsInData(raw))
	if err != nil {
		return nil, fmt.Errorf("expand config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	if cfg.Provider == "" {
		cfg.Provider = ProviderOpenAI
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected provider has the settings it needs and
// returns actionable messages when it does not.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("openai provider selected but OPENAI_API_KEY is not set")
		}
	case ProviderAzure:
		if c.Azure.Endpoint == "" {
			return fmt.Errorf("azure provider selected but AZURE_OPENAI_ENDPOINT is not set (e.g. https://my-resource.openai.azure.com)")
		}
		if c.Azure.Deployment == "" {
			return fmt.Errorf("azure provider selected but AZURE_OPENAI_DEPLOYMENT_NAME is not set")
		}
		// An empty API key is fine: the Azure client falls back to Entra ID.
	case ProviderAnthropic:
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("anthropic provider selected but ANTHROPIC_API_KEY is not set")
		}
	default:
		return fmt.Errorf("unknown provider %q (expected %s, %s or %s)", c.Provider, ProviderOpenAI, ProviderAzure, ProviderAnthropic)
	}
	return nil
}
