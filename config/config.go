// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Fields  FieldsConfig  `yaml:"fields"`
	Admin   AdminConfig   `yaml:"admin"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig selects the key-value backend the schema is persisted in.
type StorageConfig struct {
	Driver string `yaml:"driver"` // "sqlite", "bolt" or "memory"
	DSN    string `yaml:"dsn"`    // File path; ignored by "memory"
}

// FieldsConfig configures the field registry.
type FieldsConfig struct {
	// SystemFieldPolicy is "forbid" (reject edits of system fields) or
	// "audit" (allow presentational edits and record them).
	SystemFieldPolicy string `yaml:"system_field_policy"`

	// SchemaFile optionally replaces the built-in system schema with a
	// YAML file of {module: [field, ...]}.
	SchemaFile string `yaml:"schema_file"`
}

// AdminConfig protects the mutating API routes.
type AdminConfig struct {
	// APIKeyHash is the bcrypt hash of the admin key. Empty disables the check.
	APIKeyHash string `yaml:"api_key_hash"`
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

	data = expandEnv(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv substitutes ${VAR} references. Bare $ is left alone so bcrypt
// hashes survive.
func expandEnv(data []byte) []byte {
	return envRef.ReplaceAllFunc(data, func(m []byte) []byte {
		return []byte(os.Getenv(string(envRef.FindSubmatch(m)[1])))
	})
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	MAINTFORMS_SERVER_HOST                 - Server host (default: 0.0.0.0)
//	MAINTFORMS_SERVER_PORT                 - Server port (default: 8080)
//	MAINTFORMS_STORAGE_DRIVER              - sqlite, bolt or memory (default: sqlite)
//	MAINTFORMS_STORAGE_DSN                 - Database path (default: maintforms.db)
//	MAINTFORMS_FIELDS_SYSTEM_FIELD_POLICY  - forbid or audit (default: forbid)
//	MAINTFORMS_FIELDS_SCHEMA_FILE          - Optional system schema YAML
//	MAINTFORMS_ADMIN_API_KEY_HASH          - bcrypt hash of the admin key
//	MAINTFORMS_LOG_LEVEL                   - debug, info, warn, error (default: info)
//	MAINTFORMS_LOG_FORMAT                  - json or console (default: json)
//	MAINTFORMS_METRICS_ENABLED             - Enable /metrics endpoint
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback loads path when it exists and falls back to environment
// variables otherwise.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// applyEnvOverrides applies MAINTFORMS_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MAINTFORMS_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("MAINTFORMS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("MAINTFORMS_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("MAINTFORMS_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	if v := os.Getenv("MAINTFORMS_STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("MAINTFORMS_STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}

	if v := os.Getenv("MAINTFORMS_FIELDS_SYSTEM_FIELD_POLICY"); v != "" {
		cfg.Fields.SystemFieldPolicy = v
	}
	if v := os.Getenv("MAINTFORMS_FIELDS_SCHEMA_FILE"); v != "" {
		cfg.Fields.SchemaFile = v
	}

	if v := os.Getenv("MAINTFORMS_ADMIN_API_KEY_HASH"); v != "" {
		cfg.Admin.APIKeyHash = v
	}

	if v := os.Getenv("MAINTFORMS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MAINTFORMS_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("MAINTFORMS_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("MAINTFORMS_METRICS_PATH"); v != "" {
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

	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.DSN == "" {
		switch cfg.Storage.Driver {
		case "sqlite":
			cfg.Storage.DSN = "maintforms.db"
		case "bolt":
			cfg.Storage.DSN = "maintforms.bolt"
		}
	}

	cfg.Fields.SystemFieldPolicy = strings.ToLower(strings.TrimSpace(cfg.Fields.SystemFieldPolicy))
	if cfg.Fields.SystemFieldPolicy == "" {
		cfg.Fields.SystemFieldPolicy = "forbid"
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
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", cfg.Server.Port)
	}

	validDrivers := map[string]bool{"sqlite": true, "bolt": true, "memory": true}
	if !validDrivers[cfg.Storage.Driver] {
		return fmt.Errorf("storage.driver must be one of: sqlite, bolt, memory, got %q", cfg.Storage.Driver)
	}

	validPolicies := map[string]bool{"forbid": true, "audit": true}
	if !validPolicies[cfg.Fields.SystemFieldPolicy] {
		return fmt.Errorf("fields.system_field_policy must be 'forbid' or 'audit', got %q", cfg.Fields.SystemFieldPolicy)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error, got %q", cfg.Logging.Level)
	}

	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/', got %q", cfg.Metrics.Path)
	}

	if h := cfg.Admin.APIKeyHash; h != "" && !strings.HasPrefix(h, "$2") {
		return fmt.Errorf("admin.api_key_hash must be a bcrypt hash")
	}

	return nil
}
