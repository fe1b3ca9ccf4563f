// Command server runs the simpla backend.
//
// Configuration is read from a YAML file (see pkg/config) with SIMPLA_*
// environment overrides. The most common variables:
//
//	SIMPLA_CONFIG        - Path to the config file
//	SIMPLA_JWT_SECRET    - Token signing secret, at least 32 bytes (required)
//	SIMPLA_PORT          - Listen port (default: 8080)
//	SIMPLA_STORAGE       - Storage type: "memory" or "postgres" (default: "memory")
//	SIMPLA_DATABASE_URL  - PostgreSQL DSN when SIMPLA_STORAGE=postgres
//	SIMPLA_ADMIN_EMAIL   - Bootstrap administrator account (optional)
//	SIMPLA_DEBUG         - Debug categories: auth, storage, config, all
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/simpla/backend/pkg/account"
	"github.com/simpla/backend/pkg/auth"
	"github.com/simpla/backend/pkg/auth/token"
	"github.com/simpla/backend/pkg/config"
	"github.com/simpla/backend/pkg/debug"
	"github.com/simpla/backend/pkg/password"
	"github.com/simpla/backend/pkg/storage/memory"
	"github.com/simpla/backend/pkg/storage/postgres"
	"github.com/simpla/backend/pkg/transport"
	transporthttp "github.com/simpla/backend/pkg/transport/http"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := newLogger(os.Stderr, cfg.Logging)
	slog.SetDefault(logger)
	debug.Configure(cfg.Logging.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Secret fields render redacted, so the full struct is safe to log.
	debug.Log(ctx, logger, debug.Config, "effective configuration",
		"config", fmt.Sprintf("%+v", *cfg),
		"debug_categories", debug.Categories(),
	)

	store, err := newStore(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	secret, err := token.NewSecret([]byte(cfg.Auth.JWTSecret.Value()))
	if err != nil {
		return fmt.Errorf("loading signing secret: %w", err)
	}
	tokens, err := token.New(token.Config{
		Secret: secret,
		TTL:    cfg.Auth.TokenTTL,
		Issuer: cfg.Auth.Issuer,
	})
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	hasher, err := password.NewHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return fmt.Errorf("creating password hasher: %w", err)
	}

	accounts := account.New(account.Config{
		Users:     store,
		Passwords: hasher,
		Tokens:    tokens,
		Limiter:   auth.NewInProcessLimiter(cfg.Auth.LoginAttemptsPerMinute),
		Logger:    logger,
	})

	if cfg.Auth.Admin.Email != "" {
		if _, err := accounts.EnsureAdmin(ctx, cfg.Auth.Admin.Email, cfg.Auth.Admin.Password.Value()); err != nil {
			return err
		}
	}

	adapterCfg := transporthttp.DefaultConfig()
	adapterCfg.MaxBodySize = cfg.Server.MaxBodySize
	adapterCfg.Logger = logger
	adapterCfg.MetricsPath = ""
	if cfg.Observability.Metrics.Enabled {
		adapterCfg.MetricsPath = cfg.Observability.Metrics.Path
	}
	adapter := transporthttp.NewAdapter(store, accounts, token.NewAuthenticator(tokens), adapterCfg)

	srv := transporthttp.NewServer(adapter,
		transporthttp.WithAddr(":"+strconv.Itoa(cfg.Server.Port)),
		transporthttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithLogger(logger),
	)

	logger.Info("simpla backend configured",
		"storage", cfg.Storage.Type,
		"token_ttl", tokens.TTL(),
		"issuer", cfg.Auth.Issuer,
		"metrics", adapterCfg.MetricsPath,
	)
	return srv.Run(ctx)
}

// newStore builds the configured persistence backend.
func newStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (transport.Store, error) {
	switch cfg.Type {
	case "postgres":
		store, err := postgres.New(ctx, postgres.Config{
			DSN:            cfg.Postgres.DSN.Value(),
			MaxConns:       cfg.Postgres.MaxConns,
			MigrateOnStart: cfg.Postgres.MigrateOnStart,
			Logger:         logger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating postgres store: %w", err)
		}
		logger.Info("storage enabled", "type", "postgres", "max_conns", cfg.Postgres.MaxConns)
		return store, nil
	default:
		logger.Warn("storage enabled", "type", "memory", "note", "data is lost on restart")
		return memory.New(), nil
	}
}

func newLogger(w io.Writer, cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
