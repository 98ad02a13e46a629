// Command server runs the opgave task-tracking API.
//
// Configuration is loaded from a YAML file plus environment overrides;
// see pkg/config for the discovery order. The only mandatory setting is
// the token signing secret:
//
//	OPGAVE_TOKEN_SECRET       - bearer token signing secret (min 32 bytes)
//	OPGAVE_PORT               - listen port (default: 8080)
//	OPGAVE_STORAGE            - storage type: "memory" or "postgres" (default: "memory")
//	OPGAVE_POSTGRES_DSN       - PostgreSQL connection string
//	OPGAVE_CONFIG             - path to a YAML config file
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mkirkeby/opgave/pkg/auth"
	"github.com/mkirkeby/opgave/pkg/auth/token"
	"github.com/mkirkeby/opgave/pkg/config"
	"github.com/mkirkeby/opgave/pkg/identity"
	"github.com/mkirkeby/opgave/pkg/password"
	"github.com/mkirkeby/opgave/pkg/storage/memory"
	"github.com/mkirkeby/opgave/pkg/storage/postgres"
	"github.com/mkirkeby/opgave/pkg/task"
	transporthttp "github.com/mkirkeby/opgave/pkg/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Select storage backend.
	var (
		identityStore identity.Store
		taskStore     task.Store
		health        transporthttp.HealthChecker
	)
	switch cfg.Storage.Type {
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		store, err := postgres.New(ctx, postgres.Config{
			DSN:            cfg.Storage.Postgres.DSN,
			MaxConns:       cfg.Storage.Postgres.MaxConns,
			MigrateOnStart: cfg.Storage.Postgres.MigrateOnStart,
		})
		cancel()
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer store.Close()
		identityStore, taskStore, health = store, store, store
		logger.Info("storage enabled", "type", "postgres", "max_conns", cfg.Storage.Postgres.MaxConns)
	default:
		store := memory.New()
		identityStore, taskStore, health = store, store, store
		logger.Info("storage enabled", "type", "memory")
	}

	// Password hashing and identity service.
	hasher, err := password.NewBcrypt(password.Config{Cost: cfg.Auth.BcryptCost})
	if err != nil {
		return fmt.Errorf("creating password hasher: %w", err)
	}

	identitySvc, err := identity.NewService(identityStore, hasher, identity.Config{
		AllowRoleOnRegister: cfg.Auth.AllowRoleOnRegister,
	})
	if err != nil {
		return fmt.Errorf("creating identity service: %w", err)
	}

	// Token service and authentication chain.
	tokenSvc, err := token.NewService(token.Config{
		Secret: []byte(cfg.Auth.TokenSecret),
		TTL:    cfg.Auth.TokenTTL,
	})
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	chain := &auth.AuthChain{
		Authenticators: []auth.Authenticator{
			token.NewAuthenticator(tokenSvc, identityStore),
		},
		DefaultDecision: auth.No,
	}

	var limiter auth.RateLimiter
	if cfg.RateLimit.Enabled {
		roles := make(map[identity.Role]auth.RoleConfig, len(cfg.RateLimit.Roles))
		for role, rpm := range cfg.RateLimit.Roles {
			roles[identity.Role(role)] = auth.RoleConfig{RequestsPerMinute: rpm}
		}
		limiter = auth.NewInProcessLimiter(roles, cfg.RateLimit.DefaultRPM)
		logger.Info("rate limiting enabled", "default_rpm", cfg.RateLimit.DefaultRPM)
	}

	// HTTP adapter and server.
	adapter := transporthttp.NewAdapter(identitySvc, taskStore, tokenSvc, health, transporthttp.Config{
		MaxBodySize: cfg.Server.MaxBodySize,
	})

	opts := []transporthttp.ServerOption{
		transporthttp.WithAddr(fmt.Sprintf(":%d", cfg.Server.Port)),
		transporthttp.WithReadTimeout(cfg.Server.ReadTimeout),
		transporthttp.WithWriteTimeout(cfg.Server.WriteTimeout),
		transporthttp.WithLogger(logger),
	}
	if cfg.Observability.Metrics.Enabled {
		opts = append(opts, transporthttp.WithMetricsHandler(cfg.Observability.Metrics.Path, promhttp.Handler()))
	}

	srv := transporthttp.NewServer(adapter, chain, limiter, opts...)

	logger.Info("opgave starting",
		"port", cfg.Server.Port,
		"storage", cfg.Storage.Type,
		"token_ttl", cfg.Auth.TokenTTL.String(),
	)
	return srv.ListenAndServe()
}
