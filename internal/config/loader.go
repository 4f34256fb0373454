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

const (
	envPrefix  = "CASTFORM_"
	envFileKey = "CASTFORM_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if CASTFORM_CONFIG is set
//  3. env (prefix CASTFORM_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envFileKey); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: file %s: %w", ErrLoadConfig, path, err)
		}
	}

	// CASTFORM_QUEUE_SIZE -> queue_size; underscores are kept to match the koanf tags.
	// CASTFORM_SKILLS is a comma separated list.
	envProvider := env.ProviderWithValue(envPrefix, ".", envValue)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envValue(key, value string) (string, interface{}) {
	key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(envPrefix))
	if key == "skills" {
		return key, strings.Split(value, ",")
	}
	return key, value
}

// Validate checks the values that have no usable fallback.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.CookieName) == "":
		return fmt.Errorf("%w: cookie_name must not be empty", ErrInvalidConfig)
	case c.MetricsRefreshInterval <= 0:
		return fmt.Errorf("%w: metrics_refresh_interval must be positive", ErrInvalidConfig)
	case len(c.Skills) == 0:
		return fmt.Errorf("%w: skills must not be empty", ErrInvalidConfig)
	}
	seen := make(map[string]struct{}, len(c.Skills))
	for i, s := range c.Skills {
		s = strings.TrimSpace(s)
		if s == "" {
			return fmt.Errorf("%w: skills[%d] is blank", ErrInvalidConfig, i)
		}
		if _, dup := seen[s]; dup {
			return fmt.Errorf("%w: duplicate skill %q", ErrInvalidConfig, s)
		}
		seen[s] = struct{}{}
		c.Skills[i] = s
	}
	return nil
}
