package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// LookupFunc resolves an environment variable.
type LookupFunc func(key string) (string, bool)

// Load reads the YAML file at path, applies defaults and environment
// overrides, resolves both roots and validates the result.
func Load(path string) (*Config, error) {
	return LoadWithLookup(path, os.LookupEnv)
}

// LoadWithLookup is Load with an explicit environment source.
// Environment variables use the same names as the YAML keys and always win.
func LoadWithLookup(path string, lookup LookupFunc) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator supplied path
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read configuration file %q: %w", ErrInvalidConfig, path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse configuration file %q: %w", ErrInvalidConfig, path, err)
	}

	ApplyDefaults(&cfg)

	if err := applyEnvOverrides(&cfg, lookup); err != nil {
		return nil, err
	}

	if err := resolvePaths(&cfg); err != nil {
		return nil, err
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyDefaults fills optional settings left empty.
func ApplyDefaults(cfg *Config) {
	if cfg.LogPath == "" {
		cfg.LogPath = DefaultLogPath
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}
}

func applyEnvOverrides(cfg *Config, lookup LookupFunc) error {
	if lookup == nil {
		return nil
	}

	if val, ok := lookup("BACKUP_PATH"); ok && val != "" {
		cfg.BackupPath = val
	}
	if val, ok := lookup("SAN_DRIVE"); ok && val != "" {
		cfg.SANDrive = val
	}
	if val, ok := lookup("EXCLUDE_PATH"); ok {
		cfg.ExcludePath = ParseExcludeList(val)
	}
	if val, ok := lookup("LOG_PATH"); ok && val != "" {
		cfg.LogPath = val
	}
	if val, ok := lookup("SCHEDULE"); ok {
		cfg.Schedule = val
	}
	if val, ok := lookup("LISTEN_ADDR"); ok && val != "" {
		cfg.ListenAddr = val
	}
	if val, ok := lookup("DEBUG"); ok && val != "" {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("%w: DEBUG=%q: %w", ErrInvalidConfig, val, err)
		}
		cfg.Debug = b
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"BACKUP_USAGE_PERCENT", &cfg.BackupUsagePercent},
		{"SAN_USAGE_PERCENT", &cfg.SANUsagePercent},
		{"MONTHS_TO_KEEP", &cfg.MonthsToKeep},
	}
	for _, item := range ints {
		val, ok := lookup(item.key)
		if !ok || val == "" {
			continue
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, item.key, val)
		}
		*item.dst = n
	}

	return nil
}

// resolvePaths makes both roots absolute and follows symlinks when the
// target exists. A missing root is left for the volume probe to report.
func resolvePaths(cfg *Config) error {
	for _, p := range []*string{&cfg.BackupPath, &cfg.SANDrive} {
		if *p == "" {
			continue
		}
		abs, err := filepath.Abs(*p)
		if err != nil {
			return fmt.Errorf("%w: cannot resolve %q: %w", ErrInvalidConfig, *p, err)
		}
		if real, err := filepath.EvalSymlinks(abs); err == nil {
			abs = real
		}
		*p = abs
	}
	return nil
}

// Validate checks that the configuration is usable.
func Validate(cfg *Config) error {
	if cfg.BackupPath == "" {
		return fmt.Errorf("%w: BACKUP_PATH is required", ErrInvalidConfig)
	}
	if cfg.SANDrive == "" {
		return fmt.Errorf("%w: SAN_DRIVE is required", ErrInvalidConfig)
	}
	if filepath.Clean(cfg.BackupPath) == filepath.Clean(cfg.SANDrive) {
		return fmt.Errorf("%w: BACKUP_PATH and SAN_DRIVE must differ", ErrInvalidConfig)
	}
	if isWithin(cfg.BackupPath, cfg.SANDrive) {
		return fmt.Errorf("%w: BACKUP_PATH must not be inside SAN_DRIVE", ErrInvalidConfig)
	}
	if cfg.BackupUsagePercent < 0 || cfg.BackupUsagePercent > maxPercent {
		return fmt.Errorf("%w: BACKUP_USAGE_PERCENT must be within 0-100, got %d", ErrInvalidConfig, cfg.BackupUsagePercent)
	}
	if cfg.SANUsagePercent < 0 || cfg.SANUsagePercent > maxPercent {
		return fmt.Errorf("%w: SAN_USAGE_PERCENT must be within 0-100, got %d", ErrInvalidConfig, cfg.SANUsagePercent)
	}
	if cfg.MonthsToKeep <= 0 {
		return fmt.Errorf("%w: MONTHS_TO_KEEP must be positive, got %d", ErrInvalidConfig, cfg.MonthsToKeep)
	}
	if cfg.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
			return fmt.Errorf("%w: invalid SCHEDULE %q: %w", ErrInvalidConfig, cfg.Schedule, err)
		}
	}
	return nil
}

// isWithin reports whether path lies below root.
func isWithin(path, root string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
