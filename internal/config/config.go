package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration values
const (
	DefaultMaxBodySize int64 = 2 * 1024 * 1024 // 2MB
	DefaultConfigPath        = "config.yaml"
)

// SourceConfig holds configuration for the source provider.
type SourceConfig struct {
	APIURL       string        `yaml:"api_url"`    // GitHub API base URL
	Token        string        `yaml:"-"`          // From Env (GITHUB_TOKEN)
	Extensions   []string      `yaml:"extensions"` // Source file extensions to include (default: .go)
	MaxArtifacts int           `yaml:"max_artifacts"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

// ReviewConfig holds configuration for review execution.
type ReviewConfig struct {
	ArtifactConcurrency int64         `yaml:"artifact_concurrency"` // Max artifacts reviewed concurrently (default: 4)
	AgentTimeout        time.Duration `yaml:"agent_timeout"`        // Per-agent execution timeout (default: 30s)
	LintCommand         string        `yaml:"lint_command"`         // External linter binary for the quality agent ("" = heuristics only)
	MaxToolMessageLen   int           `yaml:"max_tool_message_len"` // Max message length from external tool output (default: 500)
	Workers             int           `yaml:"workers"`              // Background workers for async reviews (default: 2)
	QueueSize           int           `yaml:"queue_size"`           // Async job queue size (default: 16)
}

// AnnotatorConfig holds configuration for the advisory language-model
// annotator. The annotator is cosmetic enrichment only; it is never
// required for a review to complete.
type AnnotatorConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Backend        string        `yaml:"backend"` // openai, langchain (default: openai)
	Model          string        `yaml:"model"`
	Endpoint       string        `yaml:"endpoint"`
	APIKey         string        `yaml:"-"` // From Env (LLM_API_KEY)
	MaxSuggestions int           `yaml:"max_suggestions"` // Max issues enriched per agent result (default: 3)
	Timeout        time.Duration `yaml:"timeout"`
}

// StorageConfig holds configuration for review persistence.
type StorageConfig struct {
	Driver  string        `yaml:"driver"`  // sqlite
	DSN     string        `yaml:"dsn"`     // Connection string
	Timeout time.Duration `yaml:"timeout"` // Timeout for storage operations (default: 5s)
}

// AnalyticsConfig holds configuration for the analytics fold.
type AnalyticsConfig struct {
	RecentWindow time.Duration `yaml:"recent_window"` // Trailing window for recent review count (default: 168h)
}

// Config holds the configuration for the review orchestration service.
type Config struct {
	Log struct {
		Level    string `yaml:"level"`  // DEBUG, INFO, WARN, ERROR
		Format   string `yaml:"format"` // text, json
		Output   string `yaml:"output"` // stdout, stderr, /path/to/file
		Rotation struct {
			MaxSize    int  `yaml:"max_size"`    // Megabytes
			MaxBackups int  `yaml:"max_backups"` // Number of old files to keep
			MaxAge     int  `yaml:"max_age"`     // Days to keep
			Compress   bool `yaml:"compress"`
		} `yaml:"rotation"`
	} `yaml:"log"`

	Server struct {
		Port         int           `yaml:"port"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		MaxBodySize  int64         `yaml:"max_body_size"`
	} `yaml:"server"`

	Source    SourceConfig    `yaml:"source"`
	Review    ReviewConfig    `yaml:"review"`
	Annotator AnnotatorConfig `yaml:"annotator"`
	Storage   StorageConfig   `yaml:"storage"`
	Analytics AnalyticsConfig `yaml:"analytics"`
}

// GetLogLevel returns the slog.Level based on Log.Level string
func (c *Config) GetLogLevel() slog.Level {
	switch strings.ToUpper(c.Log.Level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoadConfig loads configuration from YAML file and supplements with environment variables
func LoadConfig() *Config {
	cfg := &Config{}

	// Set some defaults before loading
	cfg.Log.Level = "INFO"
	cfg.Log.Format = "text"
	cfg.Log.Output = "stdout"
	cfg.Server.Port = 8080
	cfg.Server.ReadTimeout = 10 * time.Second
	cfg.Server.WriteTimeout = 120 * time.Second
	cfg.Server.MaxBodySize = DefaultMaxBodySize

	cfg.Source.APIURL = "https://api.github.com"
	cfg.Source.Extensions = []string{".go"}
	cfg.Source.MaxArtifacts = 50
	cfg.Source.FetchTimeout = 60 * time.Second

	cfg.Review.ArtifactConcurrency = 4
	cfg.Review.AgentTimeout = 30 * time.Second
	cfg.Review.MaxToolMessageLen = 500
	cfg.Review.Workers = 2
	cfg.Review.QueueSize = 16

	cfg.Annotator.Backend = "openai"
	cfg.Annotator.Model = "gpt-4o-mini"
	cfg.Annotator.Endpoint = "https://api.openai.com/v1"
	cfg.Annotator.MaxSuggestions = 3
	cfg.Annotator.Timeout = 20 * time.Second

	cfg.Storage.Driver = "sqlite"
	cfg.Storage.DSN = "file:reviews.db"
	cfg.Storage.Timeout = 5 * time.Second

	cfg.Analytics.RecentWindow = 7 * 24 * time.Hour

	// Log Rotation defaults
	cfg.Log.Rotation.MaxSize = 100
	cfg.Log.Rotation.MaxBackups = 10
	cfg.Log.Rotation.MaxAge = 7
	cfg.Log.Rotation.Compress = true

	// Try to load from YAML
	configPath := getEnv("CONFIG_PATH", DefaultConfigPath)
	data, err := os.ReadFile(configPath)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			slog.Error("unmarshal config failed", "error", err, "path", configPath)
			os.Exit(1)
		}
		slog.Info("config loaded", "path", configPath)
	} else {
		if !os.IsNotExist(err) {
			slog.Error("read config failed", "error", err, "path", configPath)
			os.Exit(1)
		}
		slog.Info("config not found, using defaults", "path", configPath)
	}

	// Always supplement/override with environment variables for secrets and critical items
	cfg.Source.Token = getEnv("GITHUB_TOKEN", cfg.Source.Token)
	cfg.Annotator.APIKey = getEnv("LLM_API_KEY", cfg.Annotator.APIKey)

	if envPort := getEnvInt("PORT", 0); envPort != 0 {
		cfg.Server.Port = envPort
	}
	if envLogLevel := os.Getenv("LOG_LEVEL"); envLogLevel != "" {
		cfg.Log.Level = envLogLevel
	}
	if envLogFormat := os.Getenv("LOG_FORMAT"); envLogFormat != "" {
		cfg.Log.Format = envLogFormat
	}
	if envLogOutput := getEnv("LOG_OUTPUT", ""); envLogOutput != "" {
		cfg.Log.Output = envLogOutput
	}
	if envDSN := getEnv("STORAGE_DSN", ""); envDSN != "" {
		cfg.Storage.DSN = envDSN
	}

	return cfg
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid server port: %d", c.Server.Port))
	}

	if c.Source.MaxArtifacts < 1 {
		errs = append(errs, fmt.Sprintf("source.max_artifacts must be positive: %d", c.Source.MaxArtifacts))
	}

	if c.Review.ArtifactConcurrency < 1 {
		errs = append(errs, fmt.Sprintf("review.artifact_concurrency must be positive: %d", c.Review.ArtifactConcurrency))
	}

	if c.Review.AgentTimeout <= 0 {
		errs = append(errs, "review.agent_timeout must be positive")
	}

	if c.Annotator.Enabled && c.Annotator.APIKey == "" {
		errs = append(errs, "LLM_API_KEY is required when annotator is enabled")
	}

	switch c.Annotator.Backend {
	case "", "openai", "langchain":
	default:
		errs = append(errs, fmt.Sprintf("unknown annotator backend: %s", c.Annotator.Backend))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config invalid: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Helper functions for reading environment variables

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
