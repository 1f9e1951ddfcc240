package shmarena

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvPoolSize   = "SHMARENA_POOL_SIZE"
	EnvNamePrefix = "SHMARENA_NAME_PREFIX"
	EnvBacking    = "SHMARENA_BACKING"
	EnvHugePages  = "SHMARENA_HUGE_PAGES"
	EnvAlignment  = "SHMARENA_ALIGNMENT"
	EnvPrefault   = "SHMARENA_PREFAULT"
	EnvDisable    = "SHMARENA_DISABLE"
)

// ConfigFromEnv overrides fields of base with the SHMARENA_* environment
// variables that are set and non-empty. Sizes accept humanized values such as "64GiB".
func ConfigFromEnv(base Config) (Config, error) {
	cfg := base

	if v, ok := lookupEnv(EnvPoolSize); ok {
		n, err := humanize.ParseBytes(v)
		if err != nil {
			return base, fmt.Errorf("%w: %s=%q: %w", ErrInvalidConfig, EnvPoolSize, v, err)
		}
		cfg.PoolSize = n
	}

	if v, ok := lookupEnv(EnvNamePrefix); ok {
		cfg.NamePrefix = v
	}

	if v, ok := lookupEnv(EnvBacking); ok {
		b, err := ParseBacking(v)
		if err != nil {
			return base, err
		}
		cfg.Backing = b
	}

	if v, ok := lookupEnv(EnvAlignment); ok {
		n, err := humanize.ParseBytes(v)
		if err != nil {
			return base, fmt.Errorf("%w: %s=%q: %w", ErrInvalidConfig, EnvAlignment, v, err)
		}
		cfg.Alignment = n
	}

	var err error
	if cfg.UseHugePages, err = envBool(EnvHugePages, cfg.UseHugePages); err != nil {
		return base, err
	}
	if cfg.Prefault, err = envBool(EnvPrefault, cfg.Prefault); err != nil {
		return base, err
	}
	if cfg.DisableArena, err = envBool(EnvDisable, cfg.DisableArena); err != nil {
		return base, err
	}

	return cfg, nil
}

// ParseBacking parses "anonymous" or "shared".
func ParseBacking(s string) (Backing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "anonymous", "anon":
		return BackingAnonymous, nil
	case "shared", "shm":
		return BackingShared, nil
	default:
		return BackingAnonymous, fmt.Errorf("%w: unknown backing %q", ErrInvalidConfig, s)
	}
}

func lookupEnv(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func envBool(key string, def bool) (bool, error) {
	v, ok := lookupEnv(key)
	if !ok {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%w: %s=%q: %w", ErrInvalidConfig, key, v, err)
	}
	return b, nil
}
