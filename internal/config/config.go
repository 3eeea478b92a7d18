package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. QUIZ_REDIS_ADDR.
const EnvPrefix = "QUIZ"

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Generator providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Config struct {
	Server struct {
		Port        string   `yaml:"port"`
		BaseURL     string   `yaml:"base_url" split_words:"true"`
		CORSOrigins []string `yaml:"cors_origins" split_words:"true"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Store struct {
		// Driver is memory, redis or postgres; empty picks from what is configured.
		Driver string `yaml:"driver"`
	} `yaml:"store"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Project struct {
		CacheTTL string `yaml:"cache_ttl" split_words:"true"`
	} `yaml:"project"`
	Visit struct {
		TTL string `yaml:"ttl"`
	} `yaml:"visit"`
	Generator struct {
		Provider      string `yaml:"provider"`
		Model         string `yaml:"model"`
		QuestionCount int    `yaml:"question_count" split_words:"true"`
		// The tags make the bare variable names work as fallbacks.
		APIKey       string `yaml:"api_key" envconfig:"API_KEY"`
		GeminiAPIKey string `yaml:"gemini_api_key" envconfig:"GEMINI_API_KEY"`
		OpenAIAPIKey string `yaml:"openai_api_key" envconfig:"OPENAI_API_KEY"`
	} `yaml:"generator"`
}

// Load reads YAML config from path, then applies .env and QUIZ_* environment
// overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("process env config: %w", err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Store.Driver {
	case "", DriverMemory, DriverRedis, DriverPostgres:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	switch c.Generator.Provider {
	case "", ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown generator provider %q", c.Generator.Provider)
	}
	return nil
}

// StoreDriver resolves an empty driver to postgres, then redis, then memory,
// whichever is configured first.
func (c Config) StoreDriver() string {
	if c.Store.Driver != "" {
		return c.Store.Driver
	}
	switch {
	case c.Postgres.URL != "":
		return DriverPostgres
	case c.Redis.Addr != "":
		return DriverRedis
	default:
		return DriverMemory
	}
}

// GeneratorProvider defaults to gemini.
func (c Config) GeneratorProvider() string {
	if c.Generator.Provider == "" {
		return ProviderGemini
	}
	return c.Generator.Provider
}

// GeneratorKey returns the provider-specific key, falling back to the shared one.
func (c Config) GeneratorKey() string {
	switch c.GeneratorProvider() {
	case ProviderOpenAI:
		if c.Generator.OpenAIAPIKey != "" {
			return c.Generator.OpenAIAPIKey
		}
	default:
		if c.Generator.GeminiAPIKey != "" {
			return c.Generator.GeminiAPIKey
		}
	}
	return c.Generator.APIKey
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
