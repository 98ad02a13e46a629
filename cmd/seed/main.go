// Command seed bootstraps an administrator account. The first admin cannot
// be created through the API when caller-supplied roles are disabled, so
// deployments run this once against the configured store.
//
//	seed -email admin@example.com -name "Site Admin"
//
// The password is read from OPGAVE_SEED_PASSWORD to keep it out of the
// process list.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mkirkeby/opgave/pkg/config"
	"github.com/mkirkeby/opgave/pkg/identity"
	"github.com/mkirkeby/opgave/pkg/password"
	"github.com/mkirkeby/opgave/pkg/storage/postgres"
)

func main() {
	if err := run(); err != nil {
		slog.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	name := flag.String("name", "Administrator", "display name for the admin account")
	email := flag.String("email", "", "email address for the admin account (required)")
	flag.Parse()

	if *email == "" {
		return fmt.Errorf("-email is required")
	}

	plaintext := os.Getenv("OPGAVE_SEED_PASSWORD")
	if plaintext == "" {
		return fmt.Errorf("OPGAVE_SEED_PASSWORD is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	if cfg.Storage.Type != "postgres" {
		return fmt.Errorf("seeding requires postgres storage, got %q", cfg.Storage.Type)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := postgres.New(ctx, postgres.Config{
		DSN:            cfg.Storage.Postgres.DSN,
		MaxConns:       cfg.Storage.Postgres.MaxConns,
		MigrateOnStart: cfg.Storage.Postgres.MigrateOnStart,
	})
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer store.Close()

	hasher, err := password.NewBcrypt(password.Config{Cost: cfg.Auth.BcryptCost})
	if err != nil {
		return fmt.Errorf("creating password hasher: %w", err)
	}

	// Caller-supplied roles are always honored here; seeding runs with
	// direct store access, not through the API.
	svc, err := identity.NewService(store, hasher, identity.Config{AllowRoleOnRegister: true})
	if err != nil {
		return fmt.Errorf("creating identity service: %w", err)
	}

	p, err := svc.Register(ctx, *name, *email, plaintext, identity.RoleAdmin)
	if err != nil {
		if errors.Is(err, identity.ErrDuplicateEmail) {
			return fmt.Errorf("an account with email %q already exists", *email)
		}
		return fmt.Errorf("creating admin account: %w", err)
	}

	slog.Info("admin account created", "id", p.ID, "email", p.Email)
	return nil
}
