package config

import (
	"errors"
	"fmt"
	"strings"
)

// minSecretLength mirrors the token package floor so a weak secret fails at
// load time with a field path instead of at service construction.
const minSecretLength = 32

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("server timeouts must not be negative"))
	}
	if c.Server.MaxBodySize <= 0 {
		errs = append(errs, fmt.Errorf("server.max_body_size must be > 0, got %d", c.Server.MaxBodySize))
	}

	switch c.Storage.Type {
	case "memory", "postgres":
	default:
		errs = append(errs, fmt.Errorf("storage.type must be \"memory\" or \"postgres\", got %q", c.Storage.Type))
	}
	if c.Storage.Type == "postgres" && c.Storage.Postgres.DSN == "" && c.Storage.Postgres.DSNFile == "" {
		errs = append(errs, fmt.Errorf("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.type is \"postgres\""))
	}

	// The secret value is never included in the message.
	switch n := len(c.Auth.JWTSecret); {
	case n == 0:
		errs = append(errs, fmt.Errorf("auth.jwt_secret or auth.jwt_secret_file is required"))
	case n < minSecretLength:
		errs = append(errs, fmt.Errorf("auth.jwt_secret must be at least %d bytes, got %d", minSecretLength, n))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("auth.token_ttl must be > 0, got %v", c.Auth.TokenTTL))
	}
	if c.Auth.LoginAttemptsPerMinute < 0 {
		errs = append(errs, fmt.Errorf("auth.login_attempts_per_minute must not be negative, got %d", c.Auth.LoginAttemptsPerMinute))
	}
	if c.Auth.BcryptCost != 0 && (c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31) {
		errs = append(errs, fmt.Errorf("auth.bcrypt_cost must be 0 or between 4 and 31, got %d", c.Auth.BcryptCost))
	}
	if c.Auth.Admin.Email != "" && c.Auth.Admin.Password == "" {
		errs = append(errs, fmt.Errorf("auth.admin.password or auth.admin.password_file is required when auth.admin.email is set"))
	}

	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level must be one of trace, debug, info, warn, error, got %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be \"json\" or \"text\", got %q", c.Logging.Format))
	}

	if c.Observability.Metrics.Enabled && !strings.HasPrefix(c.Observability.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("observability.metrics.path must start with \"/\", got %q", c.Observability.Metrics.Path))
	}

	return errors.Join(errs...)
}
