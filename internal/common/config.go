package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Server      ServerConfig     `toml:"server"`
	Storage     StorageConfig    `toml:"storage"`
	Logging     LoggingConfig    `toml:"logging"`
	Generation  GenerationConfig `toml:"generation"`
	Artifacts   ArtifactsConfig  `toml:"artifacts"`
	Jobs        JobsConfig       `toml:"jobs"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Type   string       `toml:"type"` // only "badger" is supported
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
}

// GenerationConfig configures the content-generation backend
type GenerationConfig struct {
	TextProvider    string `toml:"text_provider"`     // "gemini" (default) or "claude"
	GoogleAPIKey    string `toml:"google_api_key"`    // API key for Gemini image/text models
	AnthropicAPIKey string `toml:"anthropic_api_key"` // API key for Claude text models
	ImageModel      string `toml:"image_model"`       // Gemini image model name
	TextModel       string `toml:"text_model"`        // Text model name for the selected provider
	Timeout         string `toml:"timeout"`           // Per-call timeout, e.g. "120s"
	RecipeDelay     string `toml:"recipe_delay"`      // Fixed delay between recipes, e.g. "1s"
}

// ArtifactsConfig configures the object store holding generated images
type ArtifactsConfig struct {
	Endpoint      string `toml:"endpoint"`
	Bucket        string `toml:"bucket"`
	AccessKey     string `toml:"access_key"`
	SecretKey     string `toml:"secret_key"`
	UseSSL        bool   `toml:"use_ssl"`
	PublicBaseURL string `toml:"public_base_url"` // Base URL for public artifact links
}

// JobsConfig configures orchestrator behavior
type JobsConfig struct {
	ReconciliationTTL   string `toml:"reconciliation_ttl"`   // How long a job may wait for a reconciliation answer
	ReconciliationSweep string `toml:"reconciliation_sweep"` // Cron schedule for the expiry sweeper
	DefaultMassLimit    int    `toml:"default_mass_limit"`   // Default recipe cap for mass generation
	LogQueryLimit       int    `toml:"log_query_limit"`      // Default limit for job log queries
}

// NewDefaultConfig returns a Config populated with defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Type: "badger",
			Badger: BadgerConfig{
				Path: "./data/coquo",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
		Generation: GenerationConfig{
			TextProvider: "gemini",
			ImageModel:   "gemini-2.5-flash-image",
			TextModel:    "gemini-2.5-flash",
			Timeout:      "120s",
			RecipeDelay:  "1s",
		},
		Artifacts: ArtifactsConfig{
			Bucket: "recipe-artifacts",
		},
		Jobs: JobsConfig{
			ReconciliationTTL:   "30m",
			ReconciliationSweep: "*/5 * * * *",
			DefaultMassLimit:    50,
			LogQueryLimit:       100,
		},
	}
}

// LoadFromFiles loads configuration from defaults, then the given TOML files
// in order (later files override earlier ones), then environment variables.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies COQUO_* environment variables on top of file config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("COQUO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("COQUO_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("COQUO_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if badgerPath := os.Getenv("COQUO_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	if level := os.Getenv("COQUO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if key := os.Getenv("COQUO_GOOGLE_API_KEY"); key != "" {
		config.Generation.GoogleAPIKey = key
	}
	if key := os.Getenv("COQUO_ANTHROPIC_API_KEY"); key != "" {
		config.Generation.AnthropicAPIKey = key
	}
	if provider := os.Getenv("COQUO_TEXT_PROVIDER"); provider != "" {
		config.Generation.TextProvider = provider
	}
	if delay := os.Getenv("COQUO_RECIPE_DELAY"); delay != "" {
		config.Generation.RecipeDelay = delay
	}

	if endpoint := os.Getenv("COQUO_ARTIFACTS_ENDPOINT"); endpoint != "" {
		config.Artifacts.Endpoint = endpoint
	}
	if bucket := os.Getenv("COQUO_ARTIFACTS_BUCKET"); bucket != "" {
		config.Artifacts.Bucket = bucket
	}
	if accessKey := os.Getenv("COQUO_ARTIFACTS_ACCESS_KEY"); accessKey != "" {
		config.Artifacts.AccessKey = accessKey
	}
	if secretKey := os.Getenv("COQUO_ARTIFACTS_SECRET_KEY"); secretKey != "" {
		config.Artifacts.SecretKey = secretKey
	}
}

// ApplyFlagOverrides applies command-line flag values (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// GenerationTimeout returns the parsed per-call generation timeout
func (c *Config) GenerationTimeout() time.Duration {
	d, err := time.ParseDuration(c.Generation.Timeout)
	if err != nil || d <= 0 {
		return 120 * time.Second
	}
	return d
}

// RecipeDelay returns the parsed fixed inter-recipe delay
func (c *Config) RecipeDelay() time.Duration {
	d, err := time.ParseDuration(c.Generation.RecipeDelay)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}

// ReconciliationTTL returns how long a pending job may wait for a
// reconciliation answer before the sweeper cancels it
func (c *Config) ReconciliationTTL() time.Duration {
	d, err := time.ParseDuration(c.Jobs.ReconciliationTTL)
	if err != nil || d <= 0 {
		return 30 * time.Minute
	}
	return d
}
