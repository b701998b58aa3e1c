// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backends for files.backend.
const (
	BackendLocal = "local"
	BackendS3    = "s3"
)

// Config is the root configuration structure.
type Config struct {
	Server  ServerConfig      `yaml:"server"`
	Auth    AuthConfig        `yaml:"auth"`
	Catalog CatalogConfig     `yaml:"catalog"`
	Files   FilesConfig       `yaml:"files"`
	Recipes map[string]string `yaml:"recipes"` // recipe name -> markdown path under files.root
	Logging LoggingConfig     `yaml:"logging"`
	Metrics MetricsConfig     `yaml:"metrics"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	Compress        *bool         `yaml:"compress,omitempty"` // gzip responses (default: true)
	CompressMinSize int           `yaml:"compress_min_size"`
}

// CompressEnabled reports whether responses are gzipped.
func (s ServerConfig) CompressEnabled() bool {
	return s.Compress == nil || *s.Compress
}

// AuthConfig configures authentication.
// An empty token rejects every distribution request.
type AuthConfig struct {
	Token string `yaml:"token"`
}

// CatalogConfig locates the registry document.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// FilesConfig configures where manifest files are read from.
type FilesConfig struct {
	Backend        string   `yaml:"backend"` // "local" or "s3"
	Root           string   `yaml:"root"`
	MaxConcurrency int      `yaml:"max_concurrency"` // 0 = one reader per file
	S3             S3Config `yaml:"s3,omitempty"`
}

// S3Config configures the object store backend.
type S3Config struct {
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region,omitempty"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
	UseSSL          bool   `yaml:"use_ssl"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Enable /metrics endpoint
	Path    string `yaml:"path"`    // Custom path (default: /metrics)
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	return Parse(data)
}

// Parse builds a configuration from YAML bytes, then applies environment
// overrides and defaults.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(&cfg)

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
// This is useful for container deployments where no config file is needed.
//
// Environment variables:
//
//	REGISTRY_AUTH_TOKEN              - Shared distribution secret
//	REGISTRY_CATALOG_PATH            - Registry document (default: registry.json)
//	REGISTRY_FILES_BACKEND           - local or s3 (default: local)
//	REGISTRY_FILES_ROOT              - Root directory for local files (default: .)
//	REGISTRY_FILES_MAX_CONCURRENCY   - Concurrent reads per request (default: 0, unbounded)
//	REGISTRY_S3_ENDPOINT             - Object store endpoint
//	REGISTRY_S3_BUCKET               - Object store bucket
//	REGISTRY_SERVER_HOST             - Server host (default: 0.0.0.0)
//	REGISTRY_SERVER_PORT             - Server port (default: 8080)
//	REGISTRY_LOG_LEVEL               - Log level: debug, info, warn, error (default: info)
//	REGISTRY_LOG_FORMAT              - Log format: json or console (default: json)
//	REGISTRY_METRICS_ENABLED         - Enable /metrics endpoint
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback tries to load from file, falls back to environment variables.
func LoadWithFallback(path string) (*Config, error) {
	// Try loading from file first
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	// Check if we have enough env vars to run
	if HasEnvConfig() {
		return LoadFromEnv()
	}

	// No config available
	return nil, fmt.Errorf("no configuration found: provide config file or set REGISTRY_AUTH_TOKEN")
}

// HasEnvConfig returns true if essential environment variables are set.
func HasEnvConfig() bool {
	return os.Getenv("REGISTRY_AUTH_TOKEN") != "" || os.Getenv("REGISTRY_CATALOG_PATH") != ""
}

// applyEnvOverrides applies REGISTRY_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	// Server configuration
	if v := os.Getenv("REGISTRY_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("REGISTRY_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("REGISTRY_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("REGISTRY_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}
	if v := os.Getenv("REGISTRY_SERVER_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.RequestTimeout = d
		}
	}
	if v := os.Getenv("REGISTRY_SERVER_COMPRESS"); v != "" {
		b := parseBool(v)
		cfg.Server.Compress = &b
	}

	// Auth configuration
	if v := os.Getenv("REGISTRY_AUTH_TOKEN"); v != "" {
		cfg.Auth.Token = v
	}

	// Catalog configuration
	if v := os.Getenv("REGISTRY_CATALOG_PATH"); v != "" {
		cfg.Catalog.Path = v
	}

	// Files configuration
	if v := os.Getenv("REGISTRY_FILES_BACKEND"); v != "" {
		cfg.Files.Backend = v
	}
	if v := os.Getenv("REGISTRY_FILES_ROOT"); v != "" {
		cfg.Files.Root = v
	}
	if v := os.Getenv("REGISTRY_FILES_MAX_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Files.MaxConcurrency = n
		}
	}
	if v := os.Getenv("REGISTRY_S3_ENDPOINT"); v != "" {
		cfg.Files.S3.Endpoint = v
	}
	if v := os.Getenv("REGISTRY_S3_REGION"); v != "" {
		cfg.Files.S3.Region = v
	}
	if v := os.Getenv("REGISTRY_S3_BUCKET"); v != "" {
		cfg.Files.S3.Bucket = v
	}
	if v := os.Getenv("REGISTRY_S3_PREFIX"); v != "" {
		cfg.Files.S3.Prefix = v
	}
	if v := os.Getenv("REGISTRY_S3_ACCESS_KEY_ID"); v != "" {
		cfg.Files.S3.AccessKeyID = v
	}
	if v := os.Getenv("REGISTRY_S3_SECRET_ACCESS_KEY"); v != "" {
		cfg.Files.S3.SecretAccessKey = v
	}
	if v := os.Getenv("REGISTRY_S3_USE_SSL"); v != "" {
		cfg.Files.S3.UseSSL = parseBool(v)
	}

	// Logging configuration
	if v := os.Getenv("REGISTRY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("REGISTRY_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics configuration
	if v := os.Getenv("REGISTRY_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("REGISTRY_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 30 * time.Second
	}
	if cfg.Server.CompressMinSize == 0 {
		cfg.Server.CompressMinSize = 1024
	}

	if cfg.Catalog.Path == "" {
		cfg.Catalog.Path = "registry.json"
	}

	if cfg.Files.Backend == "" {
		cfg.Files.Backend = BackendLocal
	}
	if cfg.Files.Root == "" {
		cfg.Files.Root = "."
	}
	if cfg.Files.S3.Region == "" {
		cfg.Files.S3.Region = "us-east-1"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}

	switch cfg.Files.Backend {
	case BackendLocal:
	case BackendS3:
		if cfg.Files.S3.Endpoint == "" {
			return fmt.Errorf("files.s3.endpoint is required when files.backend is 's3'")
		}
		if cfg.Files.S3.Bucket == "" {
			return fmt.Errorf("files.s3.bucket is required when files.backend is 's3'")
		}
	default:
		return fmt.Errorf("files.backend must be 'local' or 's3', got %q", cfg.Files.Backend)
	}

	if cfg.Files.MaxConcurrency < 0 {
		return fmt.Errorf("files.max_concurrency must not be negative, got %d", cfg.Files.MaxConcurrency)
	}

	for name, p := range cfg.Recipes {
		if name == "" {
			return fmt.Errorf("recipes: empty recipe name")
		}
		if p == "" || path.IsAbs(p) || strings.HasPrefix(path.Clean(p), "..") {
			return fmt.Errorf("recipes.%s: path %q must be relative to files.root", name, p)
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/', got %q", cfg.Metrics.Path)
	}

	return nil
}
