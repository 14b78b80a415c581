package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variable names.
const (
	envPrefix     = "RECRUITDASH_"
	envConfigPath = "RECRUITDASH_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if RECRUITDASH_CONFIG is set
//  3. env (prefix RECRUITDASH_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envConfigPath); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// RECRUITDASH_WRITE_QUEUE_SIZE -> write_queue_size; RECRUITDASH_TEAM is comma separated.
	envProvider := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(envPrefix))
		if key == "team" {
			return key, splitList(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if k.Exists("team") {
		// slices decode in place; drop the default team so a shorter list replaces it
		cfg.Team = nil
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and backend-specific settings.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.AppID) == "":
		return fmt.Errorf("%w: app_id must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.APIKey) == "":
		return fmt.Errorf("%w: set api_key or %sAPI_KEY", ErrMissingCredentials, envPrefix)
	}

	switch c.StoreBackend {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite_path must not be empty", ErrInvalidConfig)
		}
	case BackendPostgres:
		if c.PostgresURL == "" {
			return fmt.Errorf("%w: postgres_url must not be empty", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_backend %q", ErrInvalidConfig, c.StoreBackend)
	}

	if len(c.Team) == 0 {
		return fmt.Errorf("%w: team must list at least one member", ErrInvalidConfig)
	}
	seen := make(map[string]struct{}, len(c.Team))
	for _, name := range c.Team {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: team member names must not be empty", ErrInvalidConfig)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: duplicate team member %q", ErrInvalidConfig, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
