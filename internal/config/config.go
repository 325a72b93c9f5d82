// Package config provides configuration management for the paper ingest service.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the paper ingest service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// SourceIndex contains bibliographic index client settings.
	SourceIndex SourceIndexConfig `mapstructure:"source_index"`
	// KnowledgeStore contains knowledge store client settings.
	KnowledgeStore KnowledgeStoreConfig `mapstructure:"knowledge_store"`
	// Download contains PDF downloader settings.
	Download DownloadConfig `mapstructure:"download"`
	// Ingest contains ingestion run defaults.
	Ingest IngestConfig `mapstructure:"ingest"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response. Ingestion
	// runs block until every candidate reaches a terminal status, so this
	// must cover the full run.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for the metrics endpoint.
	Path string `mapstructure:"path"`
}

// SourceIndexConfig holds bibliographic index client settings.
type SourceIndexConfig struct {
	// BaseURL is the index API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Email is the contact address sent with requests for the polite pool.
	// Silently omitted from requests when empty.
	Email string `mapstructure:"email"`
	// APIKey is the index credential, loaded exclusively from
	// PAPERINGEST_SOURCE_INDEX_API_KEY. Optional.
	APIKey string `mapstructure:"-"`
	// Timeout is the per-request timeout.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// BurstSize is the rate limiter burst size.
	BurstSize int `mapstructure:"burst_size"`
	// MaxResults caps the per-request page size.
	MaxResults int `mapstructure:"max_results"`
}

// KnowledgeStoreConfig holds knowledge store client settings.
type KnowledgeStoreConfig struct {
	// BaseURL is the knowledge store base address. Required.
	BaseURL string `mapstructure:"base_url"`
	// APIKey is the bearer credential, loaded exclusively from
	// PAPERINGEST_KNOWLEDGE_STORE_API_KEY. Required.
	APIKey string `mapstructure:"-"`
	// Timeout is the per-request timeout.
	Timeout time.Duration `mapstructure:"timeout"`
	// PollInterval is the processing-status poll cadence.
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// DownloadConfig holds PDF downloader settings.
type DownloadConfig struct {
	// Timeout is the per-download timeout.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxSizeBytes caps downloaded files (default: 80 MiB).
	MaxSizeBytes int64 `mapstructure:"max_size_bytes"`
	// UserAgent is the User-Agent header sent with downloads.
	UserAgent string `mapstructure:"user_agent"`
}

// IngestConfig holds ingestion run defaults.
type IngestConfig struct {
	// KnowledgeBaseName is the default target knowledge base.
	KnowledgeBaseName string `mapstructure:"knowledge_base_name"`
	// KnowledgeBaseDescription is the description used on first creation.
	KnowledgeBaseDescription string `mapstructure:"knowledge_base_description"`
	// MaxPapers is the default cap on candidates per ingestion run.
	MaxPapers int `mapstructure:"max_papers"`
	// FileProcessTimeout is the default budget for server-side processing
	// per uploaded file.
	FileProcessTimeout time.Duration `mapstructure:"file_process_timeout"`
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("PAPERINGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/paper-ingest-service")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, env vars and defaults apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Secrets use mapstructure:"-" and come only from the environment.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
func loadSecrets(cfg *Config) {
	cfg.KnowledgeStore.APIKey = os.Getenv("PAPERINGEST_KNOWLEDGE_STORE_API_KEY")
	cfg.SourceIndex.APIKey = os.Getenv("PAPERINGEST_SOURCE_INDEX_API_KEY")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30m")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Source index defaults
	v.SetDefault("source_index.base_url", "https://api.openalex.org")
	v.SetDefault("source_index.email", "")
	v.SetDefault("source_index.timeout", "30s")
	v.SetDefault("source_index.rate_limit", 10.0)
	v.SetDefault("source_index.burst_size", 10)
	v.SetDefault("source_index.max_results", 50)

	// Knowledge store defaults; base_url has no default and must be supplied.
	v.SetDefault("knowledge_store.base_url", "")
	v.SetDefault("knowledge_store.timeout", "60s")
	v.SetDefault("knowledge_store.poll_interval", "2s")

	// Download defaults
	v.SetDefault("download.timeout", "60s")
	v.SetDefault("download.max_size_bytes", 80*1024*1024)
	v.SetDefault("download.user_agent", "")

	// Ingest defaults
	v.SetDefault("ingest.knowledge_base_name", "Literature Review")
	v.SetDefault("ingest.knowledge_base_description", "Automatically collected scholarly papers")
	v.SetDefault("ingest.max_papers", 10)
	v.SetDefault("ingest.file_process_timeout", "900s")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if strings.TrimSpace(c.KnowledgeStore.BaseURL) == "" {
		return fmt.Errorf("knowledge_store.base_url is required (set PAPERINGEST_KNOWLEDGE_STORE_BASE_URL)")
	}
	if c.KnowledgeStore.APIKey == "" {
		return fmt.Errorf("knowledge store API key is required (set PAPERINGEST_KNOWLEDGE_STORE_API_KEY)")
	}

	if c.SourceIndex.RateLimit <= 0 {
		return fmt.Errorf("source_index.rate_limit must be positive")
	}
	if c.SourceIndex.MaxResults <= 0 {
		return fmt.Errorf("source_index.max_results must be positive")
	}

	if c.Download.MaxSizeBytes <= 0 {
		return fmt.Errorf("download.max_size_bytes must be positive")
	}

	if c.Ingest.MaxPapers < 1 || c.Ingest.MaxPapers > 30 {
		return fmt.Errorf("ingest.max_papers must be between 1 and 30")
	}
	if c.Ingest.FileProcessTimeout < 30*time.Second || c.Ingest.FileProcessTimeout > time.Hour {
		return fmt.Errorf("ingest.file_process_timeout must be between 30s and 1h")
	}
	if strings.TrimSpace(c.Ingest.KnowledgeBaseName) == "" {
		return fmt.Errorf("ingest.knowledge_base_name is required")
	}

	return nil
}
