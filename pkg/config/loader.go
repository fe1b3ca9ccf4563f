package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, SIMPLA_CONFIG env, ./config.yaml, /etc/simpla/config.yaml)
//  3. SIMPLA_* environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. SIMPLA_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/simpla/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("SIMPLA_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"config.yaml",
		"/etc/simpla/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps SIMPLA_* environment variables onto config fields.
// Unlike string values, numeric and duration values that fail to parse are
// reported instead of silently ignored.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("SIMPLA_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SIMPLA_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("SIMPLA_STORAGE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("SIMPLA_DATABASE_URL"); v != "" {
		cfg.Storage.Postgres.DSN = Secret(v)
	}
	if v := os.Getenv("SIMPLA_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = Secret(v)
	}
	if v := os.Getenv("SIMPLA_JWT_SECRET_FILE"); v != "" {
		cfg.Auth.JWTSecretFile = v
	}
	if v := os.Getenv("SIMPLA_TOKEN_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SIMPLA_TOKEN_TTL: %w", err)
		}
		cfg.Auth.TokenTTL = ttl
	}
	if v := os.Getenv("SIMPLA_ISSUER"); v != "" {
		cfg.Auth.Issuer = v
	}
	if v := os.Getenv("SIMPLA_LOGIN_ATTEMPTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SIMPLA_LOGIN_ATTEMPTS_PER_MINUTE: %w", err)
		}
		cfg.Auth.LoginAttemptsPerMinute = n
	}
	if v := os.Getenv("SIMPLA_ADMIN_EMAIL"); v != "" {
		cfg.Auth.Admin.Email = v
	}
	if v := os.Getenv("SIMPLA_ADMIN_PASSWORD"); v != "" {
		cfg.Auth.Admin.Password = Secret(v)
	}
	if v := os.Getenv("SIMPLA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("SIMPLA_DEBUG"); v != "" {
		cfg.Logging.Debug = v
	}
	if v := os.Getenv("SIMPLA_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := os.Getenv("SIMPLA_METRICS_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SIMPLA_METRICS_ENABLED: %w", err)
		}
		cfg.Observability.Metrics.Enabled = enabled
	}
	return nil
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	// auth.jwt_secret_file -> auth.jwt_secret
	if cfg.Auth.JWTSecretFile != "" && cfg.Auth.JWTSecret == "" {
		val, err := readSecretFile(cfg.Auth.JWTSecretFile)
		if err != nil {
			return fmt.Errorf("auth.jwt_secret_file: %w", err)
		}
		cfg.Auth.JWTSecret = Secret(val)
	}

	// auth.admin.password_file -> auth.admin.password
	if cfg.Auth.Admin.PasswordFile != "" && cfg.Auth.Admin.Password == "" {
		val, err := readSecretFile(cfg.Auth.Admin.PasswordFile)
		if err != nil {
			return fmt.Errorf("auth.admin.password_file: %w", err)
		}
		cfg.Auth.Admin.Password = Secret(val)
	}

	// storage.postgres.dsn_file -> storage.postgres.dsn
	if cfg.Storage.Postgres.DSNFile != "" && cfg.Storage.Postgres.DSN == "" {
		val, err := readSecretFile(cfg.Storage.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("storage.postgres.dsn_file: %w", err)
		}
		cfg.Storage.Postgres.DSN = Secret(val)
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
