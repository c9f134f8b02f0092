package cleaner

import (
	"errors"
	"io/fs"
	"os"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"sanitier/pkg/exclude"
	"sanitier/pkg/models"
	"sanitier/pkg/retention"
	"sanitier/pkg/walker"
)

const (
	bytesPerGiB   = 1 << 30
	secondsPerMin = 60
)

// Reasons attached to failed deletions.
const (
	ReasonPermission  = "permission denied"
	ReasonNotFound    = "file not found"
	ReasonIsDirectory = "is a directory"
	ReasonOSError     = "os error"
)

// Cleaner deletes files that fall outside the retention window.
type Cleaner struct {
	filter       *exclude.Filter
	monthsToKeep int
	logger       zerolog.Logger
	now          func() time.Time
	skip         []string
}

// Option customises a Cleaner.
type Option func(*Cleaner)

// WithClock sets the source of "today".
func WithClock(now func() time.Time) Option {
	return func(c *Cleaner) {
		c.now = now
	}
}

// WithSkip keeps the walk out of the given directories, e.g. a backup root
// mounted below the archive.
func WithSkip(paths ...string) Option {
	return func(c *Cleaner) {
		c.skip = append(c.skip, paths...)
	}
}

// New creates a Cleaner keeping monthsToKeep months of files.
func New(filter *exclude.Filter, monthsToKeep int, logger zerolog.Logger, opts ...Option) *Cleaner {
	c := &Cleaner{
		filter:       filter,
		monthsToKeep: monthsToKeep,
		logger:       logger.With().Str("component", "cleaner").Logger(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Clean walks targetRoot and deletes expired files. Per-file failures are
// logged and skipped.
func (c *Cleaner) Clean(targetRoot string) models.CleanOutcome {
	start := c.now()
	var outcome models.CleanOutcome

	c.logger.Info().
		Str("target", targetRoot).
		Int("months_to_keep", c.monthsToKeep).
		Time("cutoff", retention.Cutoff(start, c.monthsToKeep)).
		Msg("Starting retention clean")

	w := walker.New(c.filter, c.logger, c.skip...)
	w.Walk(targetRoot, func(path string, _ fs.DirEntry) {
		c.cleanFile(path, start, &outcome)
	})

	outcome.Elapsed = c.now().Sub(start)
	c.logger.Info().
		Uint64("files", outcome.FilesAffected).
		Str("size_gib", humanize.FtoaWithDigits(float64(outcome.TotalBytes)/bytesPerGiB, 2)).
		Str("size", humanize.IBytes(outcome.TotalBytes)).
		Uint64("skipped", outcome.Skipped).
		Uint64("failures", outcome.Failures).
		Str("minutes", humanize.FtoaWithDigits(outcome.Elapsed.Seconds()/secondsPerMin, 2)).
		Msgf("%d files, %s deleted", outcome.FilesAffected, humanize.IBytes(outcome.TotalBytes))

	return outcome
}

func (c *Cleaner) cleanFile(path string, today time.Time, outcome *models.CleanOutcome) {
	info, err := os.Lstat(path)
	if err != nil {
		outcome.Skipped++
		c.logger.Warn().Err(err).Str("file", path).Msg("Unable to read modification date, skipping")
		return
	}
	if info.IsDir() {
		outcome.Skipped++
		c.logger.Warn().Str("file", path).Msg("Expected a file but found a directory, skipping")
		return
	}

	if !retention.IsExpired(info.ModTime(), today, c.monthsToKeep) {
		c.logger.Debug().Str("file", path).Time("modified", info.ModTime()).Msg("Within retention, keeping")
		return
	}

	// Size must be read before the file is gone.
	size := uint64(info.Size()) //nolint:gosec // file sizes are non-negative
	if err := os.Remove(path); err != nil {
		outcome.Failures++
		c.logger.Error().Err(err).Str("file", path).Str("reason", RemoveFailureReason(err)).Msg("Unable to delete file")
		return
	}

	outcome.FilesAffected++
	outcome.TotalBytes += size
	c.logger.Info().Str("file", path).Time("modified", info.ModTime()).Msg("Deleted expired file")
}

// RemoveFailureReason classifies a deletion error.
func RemoveFailureReason(err error) string {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return ReasonPermission
	case errors.Is(err, fs.ErrNotExist):
		return ReasonNotFound
	case errors.Is(err, syscall.EISDIR):
		return ReasonIsDirectory
	default:
		return ReasonOSError
	}
}
