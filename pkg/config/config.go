// Package config provides unified configuration for the simpla backend.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (SIMPLA_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/simpla/backend/pkg/debug"
)

// Config holds all configuration for the simpla backend.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       StorageConfig       `yaml:"storage"`
	Auth          AuthConfig          `yaml:"auth"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // default: 8080
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // default: 30s
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 30s
	MaxBodySize     int64         `yaml:"max_body_size"`    // default: 10MB
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Type     string         `yaml:"type"` // "memory" or "postgres", default: "memory"
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            Secret `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 25
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: true
}

// AuthConfig holds token and login settings.
type AuthConfig struct {
	JWTSecret     Secret        `yaml:"jwt_secret"`      // required, at least 32 bytes
	JWTSecretFile string        `yaml:"jwt_secret_file"` // _file variant for jwt_secret
	TokenTTL      time.Duration `yaml:"token_ttl"`       // default: 24h
	Issuer        string        `yaml:"issuer"`          // default: "simpla"

	// LoginAttemptsPerMinute caps login attempts per email. Zero disables
	// the limiter. Default: 10.
	LoginAttemptsPerMinute int `yaml:"login_attempts_per_minute"`

	BcryptCost int `yaml:"bcrypt_cost"` // 0 selects the bcrypt default

	// Admin, when Email is set, is created at startup with the ADMIN role
	// unless the account already exists.
	Admin AdminConfig `yaml:"admin"`
}

// AdminConfig describes the bootstrap administrator account.
type AdminConfig struct {
	Email        string `yaml:"email"`
	Password     Secret `yaml:"password"`
	PasswordFile string `yaml:"password_file"` // _file variant for password
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "trace", "debug", "info", "warn", "error", default: "info"
	Format string `yaml:"format"` // "json" or "text", default: "json"

	// Debug lists the debug categories to enable, comma separated
	// ("auth,storage,config" or "all"). Debug lines also need level debug.
	Debug string `yaml:"debug"`
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Secret is a configuration string that never prints its value.
type Secret string

const redacted = "[REDACTED]"

// Value returns the underlying string.
func (s Secret) Value() string { return string(s) }

// String implements fmt.Stringer.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

// GoString implements fmt.GoStringer.
func (s Secret) GoString() string { return s.String() }

// Format keeps %v, %+v, %q and friends from reaching the raw value.
func (s Secret) Format(f fmt.State, _ rune) {
	_, _ = f.Write([]byte(s.String()))
}

// LogValue implements slog.LogValuer.
func (s Secret) LogValue() slog.Value { return slog.StringValue(s.String()) }

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodySize:     10 << 20,
		},
		Storage: StorageConfig{
			Type: "memory",
			Postgres: PostgresConfig{
				MaxConns:       25,
				MigrateOnStart: true,
			},
		},
		Auth: AuthConfig{
			TokenTTL:               24 * time.Hour,
			Issuer:                 "simpla",
			LoginAttemptsPerMinute: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}

// SlogLevel maps Logging.Level onto a slog level.
func (c LoggingConfig) SlogLevel() slog.Level {
	return debug.ParseLevel(c.Level)
}
