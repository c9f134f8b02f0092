package orchestrator

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sanitier/pkg/cleaner"
	"sanitier/pkg/config"
	"sanitier/pkg/exclude"
	"sanitier/pkg/migrator"
	"sanitier/pkg/models"
	"sanitier/pkg/volume"
)

// VolumeMeter measures the filesystem holding a path.
type VolumeMeter interface {
	Measure(path string) (*models.VolumeUsage, error)
}

// FileMigrator moves a tree to the archive.
type FileMigrator interface {
	Migrate(sourceRoot, destRoot string) models.TransferOutcome
}

// FileCleaner applies retention to a tree.
type FileCleaner interface {
	Clean(targetRoot string) models.CleanOutcome
}

// Recorder receives run results, e.g. for metrics export.
type Recorder interface {
	ObserveVolumes(backup, archive models.VolumeUsage)
	ObserveRun(report *models.RunReport)
}

type nopRecorder struct{}

func (nopRecorder) ObserveVolumes(models.VolumeUsage, models.VolumeUsage) {}
func (nopRecorder) ObserveRun(*models.RunReport)                          {}

// Orchestrator runs one tiering pass: measure, decide, act.
type Orchestrator struct {
	backupPath string
	sanPath    string
	thresholds config.Thresholds

	volumes  VolumeMeter
	migrator FileMigrator
	cleaner  FileCleaner
	recorder Recorder

	logger zerolog.Logger
	now    func() time.Time
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithVolumeMeter replaces the statfs-backed meter.
func WithVolumeMeter(v VolumeMeter) Option {
	return func(o *Orchestrator) { o.volumes = v }
}

// WithMigrator replaces the default migrator.
func WithMigrator(m FileMigrator) Option {
	return func(o *Orchestrator) { o.migrator = m }
}

// WithCleaner replaces the default cleaner.
func WithCleaner(c FileCleaner) Option {
	return func(o *Orchestrator) { o.cleaner = c }
}

// WithRecorder registers a run observer.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithClock sets the time source used for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New wires an Orchestrator from the loaded configuration.
func New(cfg *config.Config, logger zerolog.Logger, opts ...Option) *Orchestrator {
	th := cfg.Thresholds()
	filter := exclude.New(th.ExcludedDirNames)

	o := &Orchestrator{
		backupPath: cfg.BackupPath,
		sanPath:    cfg.SANDrive,
		thresholds: th,
		volumes:    volume.New(logger),
		migrator:   migrator.New(filter, logger),
		cleaner:    cleaner.New(filter, th.MonthsToKeep, logger, cleaner.WithSkip(cfg.BackupPath)),
		recorder:   nopRecorder{},
		logger:     logger.With().Str("component", "orchestrator").Logger(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Thresholds returns the policy in use.
func (o *Orchestrator) Thresholds() config.Thresholds {
	return o.thresholds
}

// Volumes measures both roots without acting on them.
func (o *Orchestrator) Volumes() (backup, archive *models.VolumeUsage, err error) {
	backup, err = o.volumes.Measure(o.backupPath)
	if err != nil {
		return nil, nil, err
	}
	archive, err = o.volumes.Measure(o.sanPath)
	if err != nil {
		return nil, nil, err
	}
	return backup, archive, nil
}

// Run performs exactly one tiering action, or none. A volume that cannot be
// measured aborts the run before anything is touched. ctx is only consulted
// between actions; a walk in progress always completes.
func (o *Orchestrator) Run(ctx context.Context) (*models.RunReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &models.RunReport{
		ID:        uuid.NewString(),
		StartedAt: o.now(),
	}
	logger := o.logger.With().Str("run_id", report.ID).Logger()
	logger.Debug().Time("started_at", report.StartedAt).Msg("Sanitier run starting")

	logger.Info().Msg("Calculating disk summary...")
	backup, archive, err := o.Volumes()
	if err != nil {
		logger.Error().Err(err).Msg("Unable to assess volumes, aborting run")
		return nil, err
	}
	report.Backup, report.Archive = *backup, *archive
	o.recorder.ObserveVolumes(*backup, *archive)

	logger.Info().
		Str("root", backup.Root).
		Int("used_percent", backup.UsedPercent()).
		Msgf("%s Backup drive usage: %s/%s - %d%%",
			backup.Root, humanize.IBytes(backup.UsedBytes), humanize.IBytes(backup.TotalBytes), backup.UsedPercent())
	logger.Info().
		Str("root", archive.Root).
		Int("free_percent", archive.FreePercent()).
		Int("used_percent", archive.UsedPercent()).
		Msgf("%s SAN drive free: %s/%s - %d%%",
			archive.Root, humanize.IBytes(archive.FreeBytes), humanize.IBytes(archive.TotalBytes), archive.FreePercent())

	cond := Evaluate(*backup, *archive, o.thresholds)
	report.Action = cond.Action()
	logger.Info().
		Bool("backup_over_threshold", cond.BackupOverThreshold).
		Bool("archive_has_room", cond.ArchiveHasRoom).
		Bool("archive_over_threshold", cond.ArchiveOverThreshold).
		Str("action", string(report.Action)).
		Msg("Action selected")

	switch report.Action {
	case models.ActionMigrate:
		o.migrate(report)
	case models.ActionClean:
		o.clean(report)
	case models.ActionCleanThenMigrate:
		o.clean(report)
		if err := ctx.Err(); err != nil {
			report.Canceled = true
			logger.Warn().Err(err).Msg("Run canceled after clean, migration skipped")
			break
		}
		o.migrate(report)
	default:
		logger.Info().Msg("Backup in right condition...")
	}

	report.FinishedAt = o.now()
	o.recorder.ObserveRun(report)
	logger.Debug().Time("finished_at", report.FinishedAt).Msg("Sanitier run ending")

	return report, nil
}

func (o *Orchestrator) migrate(report *models.RunReport) {
	outcome := o.migrator.Migrate(o.backupPath, o.sanPath)
	report.Transfer = &outcome
}

func (o *Orchestrator) clean(report *models.RunReport) {
	outcome := o.cleaner.Clean(o.sanPath)
	report.Clean = &outcome
}
