package main

import (
	"context"
	_ "embed"
	"errors"
	"flag"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"sanitier/pkg/config"
	"sanitier/pkg/log"
	"sanitier/pkg/metrics"
	"sanitier/pkg/orchestrator"
	"sanitier/pkg/scheduler"
	"sanitier/pkg/server"
	"sanitier/pkg/volume"
)

const (
	syncTimeout = 30
)

//go:embed VERSION
var Version string

func main() {
	// Initialize logger first
	_ = log.Logger

	configPath := flag.String("config", config.DefaultConfigPath, "Configuration file path")
	debug := flag.Bool("debug", false, "Enable debug logging")
	once := flag.Bool("once", false, "Run a single pass even when SCHEDULE is set")
	addr := flag.String("addr", "", "Status server listen address (overrides LISTEN_ADDR)")
	flag.Parse()

	if *debug {
		log.SetDebugMode()
	}
	log.Debug().Str("config", *configPath).Msg("Loading configuration")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("Failed to load configuration")
	}
	if *debug {
		cfg.Debug = true
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}

	logger, err := log.Setup(log.Options{Debug: cfg.Debug, Dir: cfg.LogPath})
	if err != nil {
		log.Fatal().Err(err).Str("log_path", cfg.LogPath).Msg("Failed to set up logging")
	}

	version := strings.TrimSpace(Version)
	log.Info().
		Str("version", version).
		Str("backup_path", cfg.BackupPath).
		Str("san_drive", cfg.SANDrive).
		Int("backup_usage_percent", cfg.BackupUsagePercent).
		Int("san_usage_percent", cfg.SANUsagePercent).
		Int("months_to_keep", cfg.MonthsToKeep).
		Strs("exclude", cfg.ExcludePath).
		Msg("Sanitier starting")
	if *once && cfg.Schedule != "" {
		log.Warn().Str("schedule", cfg.Schedule).Msg("-once given, ignoring SCHEDULE")
	}
	collector := metrics.NewCollector(metrics.DefaultNamespace, prometheus.NewRegistry())
	orch := orchestrator.New(cfg, logger, orchestrator.WithRecorder(collector))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	code := 0
	if cfg.Schedule == "" || *once {
		code = runOnce(ctx, orch, logger)
	} else if err := runDaemon(ctx, cfg, orch, collector, version, logger); err != nil {
		log.Error().Err(err).Msg("Daemon stopped with error")
		code = 1
	} else {
		flushFilesystems(logger)
	}

	stop()
	log.Close()
	os.Exit(code)
}

// runOnce performs a single pass and returns the process exit code.
func runOnce(ctx context.Context, orch *orchestrator.Orchestrator, logger zerolog.Logger) int {
	report, err := orch.Run(ctx)
	if err != nil {
		var unavailable volume.VolumeUnavailableError
		if errors.As(err, &unavailable) {
			logger.Error().Err(err).Str("root", unavailable.Root).Msg("Volume unavailable")
		} else {
			logger.Error().Err(err).Msg("Run failed")
		}
		return 1
	}
	if report.Canceled {
		logger.Warn().Str("run_id", report.ID).Msg("Run interrupted")
	}
	flushFilesystems(logger)
	return 0
}

func runDaemon(ctx context.Context, cfg *config.Config, orch *orchestrator.Orchestrator,
	collector *metrics.Collector, version string, logger zerolog.Logger) error {
	sched := scheduler.New(orch, cfg.Schedule, logger)
	srv := server.NewStatusServer(orch, sched, collector.Handler(), version, logger)

	if err := sched.Start(ctx); err != nil {
		return err
	}
	logger.Info().
		Str("schedule", cfg.Schedule).
		Time("next_run", *sched.NextRun()).
		Str("version", version).
		Msg("Sanitier daemon started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx, cfg.ListenAddr)
	})
	g.Go(func() error {
		<-gctx.Done()
		sched.Stop()
		return nil
	})

	return g.Wait()
}

// flushFilesystems asks the kernel to write dirty buffers after files were moved.
func flushFilesystems(logger zerolog.Logger) {
	logger.Info().Msg("Executing sync command...")
	syncCtx, syncCancel := context.WithTimeout(context.Background(), syncTimeout*time.Second)
	defer syncCancel()

	cmd := exec.CommandContext(syncCtx, "sync")
	if err := cmd.Run(); err != nil {
		logger.Warn().Err(err).Msg("Sync command failed")
		return
	}
	logger.Info().Msg("Filesystem buffers flushed successfully")
}
