package volume

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"sanitier/pkg/models"
)

// ErrEmptyVolume is reported when a filesystem claims a zero size.
var ErrEmptyVolume = errors.New("volume reports zero total size")

// VolumeUnavailableError is returned when a root cannot be measured.
// It is fatal for the current run.
type VolumeUnavailableError struct {
	Root string
	Err  error
}

func (e VolumeUnavailableError) Error() string {
	if e.Err == nil {
		return "volume unavailable: " + e.Root
	}
	return "volume unavailable: " + e.Root + ": " + e.Err.Error()
}

func (e VolumeUnavailableError) Unwrap() error {
	return e.Err
}

// Statter reads raw space figures for the filesystem holding root.
type Statter interface {
	Stat(root string) (models.VolumeUsage, error)
}

// StatterFunc adapts a function to Statter.
type StatterFunc func(root string) (models.VolumeUsage, error)

// Stat calls f(root).
func (f StatterFunc) Stat(root string) (models.VolumeUsage, error) {
	return f(root)
}

// Metrics measures volume usage for configured roots.
type Metrics struct {
	statter Statter
	logger  zerolog.Logger
}

// New creates Metrics backed by statfs.
func New(logger zerolog.Logger) *Metrics {
	return NewWithStatter(StatfsStatter{}, logger)
}

// NewWithStatter creates Metrics with a custom statter.
func NewWithStatter(statter Statter, logger zerolog.Logger) *Metrics {
	return &Metrics{
		statter: statter,
		logger:  logger.With().Str("component", "volume").Logger(),
	}
}

// RootOf derives the root identifier for a configured path: the volume
// name when the path carries one (C:\ on Windows), the path itself otherwise.
func RootOf(path string) string {
	if vol := filepath.VolumeName(path); vol != "" {
		return vol + string(filepath.Separator)
	}
	return path
}

// Measure returns usage for the filesystem holding path.
func (m *Metrics) Measure(path string) (*models.VolumeUsage, error) {
	root := RootOf(path)

	if _, err := os.Stat(root); err != nil {
		m.logger.Error().Err(err).Str("root", root).Msg("Volume root is not accessible")
		return nil, VolumeUnavailableError{Root: root, Err: err}
	}

	usage, err := m.statter.Stat(root)
	if err != nil {
		m.logger.Error().Err(err).Str("root", root).Msg("Failed to get stats for volume")
		return nil, VolumeUnavailableError{Root: root, Err: err}
	}
	if usage.TotalBytes == 0 {
		return nil, VolumeUnavailableError{Root: root, Err: ErrEmptyVolume}
	}
	usage.Root = root

	m.logger.Debug().
		Str("root", root).
		Uint64("used", usage.UsedBytes).
		Uint64("free", usage.FreeBytes).
		Uint64("total", usage.TotalBytes).
		Msg("Volume stats")

	return &usage, nil
}
