package migrator

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"sanitier/pkg/exclude"
	"sanitier/pkg/models"
	"sanitier/pkg/walker"
)

const (
	dirPerm       = 0750
	bytesPerGiB   = 1 << 30
	secondsPerMin = 60
)

// ErrDestinationExists is returned by a move that would replace a file.
var ErrDestinationExists = errors.New("destination already exists")

// Migrator relocates files from a source tree into a mirrored tree under a
// destination root. Existing destination files are never replaced.
type Migrator struct {
	filter *exclude.Filter
	logger zerolog.Logger
	now    func() time.Time
}

// New creates a Migrator that skips directories rejected by filter.
func New(filter *exclude.Filter, logger zerolog.Logger) *Migrator {
	return &Migrator{
		filter: filter,
		logger: logger.With().Str("component", "migrator").Logger(),
		now:    time.Now,
	}
}

// DestinationPath maps sourceFile under destRoot. The source's volume name
// and leading separators are dropped, so /backup/a/x.bak lands at
// <destRoot>/backup/a/x.bak.
func DestinationPath(destRoot, sourceFile string) string {
	rel := strings.TrimPrefix(sourceFile, filepath.VolumeName(sourceFile))
	rel = strings.TrimLeft(rel, `/\`)
	return filepath.Join(destRoot, rel)
}

// Migrate moves every file below sourceRoot to its mirrored path under
// destRoot. Failures are logged per file and never stop the walk.
func (m *Migrator) Migrate(sourceRoot, destRoot string) models.TransferOutcome {
	start := m.now()
	var outcome models.TransferOutcome

	m.logger.Info().Str("source", sourceRoot).Str("destination", destRoot).Msg("Starting migration")

	// The destination may live inside the source tree; never walk into it.
	w := walker.New(m.filter, m.logger, destRoot)
	w.Walk(sourceRoot, func(path string, entry fs.DirEntry) {
		m.migrateFile(path, DestinationPath(destRoot, path), &outcome)
	})

	outcome.Elapsed = m.now().Sub(start)
	m.logger.Info().
		Uint64("files", outcome.FilesAffected).
		Str("size_gib", formatGiB(outcome.TotalBytes)).
		Str("size", humanize.IBytes(outcome.TotalBytes)).
		Uint64("duplicates", outcome.Duplicates).
		Uint64("failures", outcome.Failures).
		Str("minutes", formatMinutes(outcome.Elapsed)).
		Msgf("%d files, %s GiB moved, in %s minutes",
			outcome.FilesAffected, formatGiB(outcome.TotalBytes), formatMinutes(outcome.Elapsed))

	return outcome
}

func (m *Migrator) migrateFile(source, dest string, outcome *models.TransferOutcome) {
	destDir := filepath.Dir(dest)
	if err := os.MkdirAll(destDir, dirPerm); err != nil {
		outcome.Failures++
		if errors.Is(err, fs.ErrPermission) {
			m.logger.Error().Err(err).Str("dest_dir", destDir).Msg("Unable to create destination directory, permission denied")
		} else {
			m.logger.Error().Err(err).Str("dest_dir", destDir).Msg("Unable to create destination directory")
		}
		return
	}

	if _, err := os.Lstat(dest); err == nil {
		m.removeDuplicate(source, dest, outcome)
		return
	} else if !errors.Is(err, fs.ErrNotExist) {
		outcome.Failures++
		m.logger.Error().Err(err).Str("destination", dest).Msg("Unable to check destination, skipping file")
		return
	}

	srcInfo, err := os.Lstat(source)
	if err != nil {
		outcome.Failures++
		m.logger.Error().Err(err).Str("source", source).Msg("Unable to stat source file, skipping")
		return
	}

	if err := moveFile(source, dest, srcInfo); err != nil {
		if errors.Is(err, ErrDestinationExists) {
			m.removeDuplicate(source, dest, outcome)
			return
		}
		outcome.Failures++
		var special SpecialFileError
		if errors.As(err, &special) {
			m.logger.Error().Err(err).Str("source", source).Str("type", special.Mode.Type().String()).Msg("Special file cannot be moved across filesystems, skipping")
		} else if errors.Is(err, fs.ErrPermission) {
			m.logger.Error().Err(err).Str("source", source).Msg("Unable to move file, permission denied")
		} else {
			m.logger.Error().Err(err).Str("source", source).Str("destination", dest).Msg("Unexpected error while moving file")
		}
		return
	}

	size := uint64(srcInfo.Size()) //nolint:gosec // file sizes are non-negative
	if destInfo, err := os.Lstat(dest); err == nil {
		size = uint64(destInfo.Size()) //nolint:gosec // file sizes are non-negative
	} else {
		m.logger.Warn().Err(err).Str("destination", dest).Msg("Unable to stat moved file, using source size")
	}

	outcome.FilesAffected++
	outcome.TotalBytes += size
	m.logger.Info().Str("file", filepath.Base(source)).Str("dest_dir", destDir).Msg("Move")
}

// removeDuplicate deletes the source copy of a file already present at dest.
func (m *Migrator) removeDuplicate(source, dest string, outcome *models.TransferOutcome) {
	m.logger.Warn().Str("source", source).Str("destination", dest).Msg("File duplication found")

	if err := os.Remove(source); err != nil {
		outcome.Failures++
		if errors.Is(err, fs.ErrPermission) {
			m.logger.Error().Err(err).Str("source", source).Msg("Unable to delete source file, permission denied")
		} else {
			m.logger.Error().Err(err).Str("source", source).Msg("Unable to delete source file")
		}
		return
	}

	outcome.Duplicates++
	m.logger.Info().Str("source", source).Msg("Duplicated file has been deleted")
}

func formatGiB(n uint64) string {
	return humanize.FtoaWithDigits(float64(n)/bytesPerGiB, 2)
}

func formatMinutes(d time.Duration) string {
	return humanize.FtoaWithDigits(d.Seconds()/secondsPerMin, 2)
}
