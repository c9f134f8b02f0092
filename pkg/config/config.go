package config

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "/etc/sanitier/config.yaml"
	DefaultLogPath    = "./logs"
	DefaultListenAddr = ":9105"

	maxPercent = 100
)

// ErrInvalidConfig is wrapped by every load and validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the process configuration. It is loaded once and never mutated.
type Config struct {
	BackupPath         string      `yaml:"BACKUP_PATH"`
	SANDrive           string      `yaml:"SAN_DRIVE"`
	ExcludePath        ExcludeList `yaml:"EXCLUDE_PATH"`
	BackupUsagePercent int         `yaml:"BACKUP_USAGE_PERCENT"`
	SANUsagePercent    int         `yaml:"SAN_USAGE_PERCENT"`
	MonthsToKeep       int         `yaml:"MONTHS_TO_KEEP"`

	Debug      bool   `yaml:"DEBUG"`
	LogPath    string `yaml:"LOG_PATH"`
	Schedule   string `yaml:"SCHEDULE"`
	ListenAddr string `yaml:"LISTEN_ADDR"`
}

// Thresholds is the read-only policy view handed to the tiering components.
type Thresholds struct {
	BackupUsagePercent int
	SANUsagePercent    int
	MonthsToKeep       int
	ExcludedDirNames   []string
}

// Thresholds returns a copy of the policy settings.
func (c *Config) Thresholds() Thresholds {
	return Thresholds{
		BackupUsagePercent: c.BackupUsagePercent,
		SANUsagePercent:    c.SANUsagePercent,
		MonthsToKeep:       c.MonthsToKeep,
		ExcludedDirNames:   append([]string(nil), c.ExcludePath...),
	}
}

// ExcludeList holds lowercase directory names. In YAML it may be written as a
// comma-separated string or as a sequence.
type ExcludeList []string

// ParseExcludeList splits a comma-separated list, trimming and lowercasing items.
func ParseExcludeList(raw string) ExcludeList {
	var out ExcludeList
	for _, item := range strings.Split(raw, ",") {
		item = strings.ToLower(strings.TrimSpace(item))
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *ExcludeList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*l = ParseExcludeList(node.Value)
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*l = ParseExcludeList(strings.Join(items, ","))
		return nil
	default:
		return fmt.Errorf("EXCLUDE_PATH must be a string or a list, line %d", node.Line)
	}
}
