package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	// server.port must be positive.
	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	// storage.type must be a known value.
	switch c.Storage.Type {
	case "memory", "postgres":
		// valid
	default:
		errs = append(errs, fmt.Errorf("storage.type must be \"memory\" or \"postgres\", got %q", c.Storage.Type))
	}

	// If storage.type is "postgres", DSN or DSNFile must be set.
	if c.Storage.Type == "postgres" {
		if c.Storage.Postgres.DSN == "" && c.Storage.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.type is \"postgres\""))
		}
	}

	// auth.token_secret is required (directly or via file reference).
	if c.Auth.TokenSecret == "" && c.Auth.TokenSecretFile == "" {
		errs = append(errs, fmt.Errorf("auth.token_secret or auth.token_secret_file is required"))
	}

	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("auth.token_ttl must be > 0, got %s", c.Auth.TokenTTL))
	}

	if c.Auth.BcryptCost < 0 || c.Auth.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("auth.bcrypt_cost must be between 0 and 31, got %d", c.Auth.BcryptCost))
	}

	// ratelimit.roles keys must be known roles.
	for role := range c.RateLimit.Roles {
		if role != "user" && role != "admin" {
			errs = append(errs, fmt.Errorf("ratelimit.roles key must be \"user\" or \"admin\", got %q", role))
		}
	}

	return errors.Join(errs...)
}
