package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"sanitier/pkg/config"
	"sanitier/pkg/models"
)

const (
	shutdownTimeout = 10
)

// VolumeSource measures the monitored volumes on demand.
type VolumeSource interface {
	Volumes() (backup, archive *models.VolumeUsage, err error)
	Thresholds() config.Thresholds
}

// ReportSource exposes the outcome of the latest run.
type ReportSource interface {
	LastReport() (*models.RunReport, error)
}

// StatusServer serves health, volume usage, the last run report and
// Prometheus metrics over HTTP.
type StatusServer struct {
	echo    *echo.Echo
	volumes VolumeSource
	reports ReportSource
	metrics http.Handler
	version string
	logger  zerolog.Logger
}

// NewStatusServer creates a status server. metrics may be nil, in which
// case /metrics is not registered.
func NewStatusServer(volumes VolumeSource, reports ReportSource, metrics http.Handler, version string, logger zerolog.Logger) *StatusServer {
	srv := &StatusServer{
		echo:    echo.New(),
		volumes: volumes,
		reports: reports,
		metrics: metrics,
		version: version,
		logger:  logger.With().Str("component", "server").Logger(),
	}
	srv.setupRoutes()
	return srv
}

// Handler returns the underlying HTTP handler.
func (srv *StatusServer) Handler() http.Handler {
	return srv.echo
}

// Start serves on addr until ctx is canceled, then shuts down gracefully.
func (srv *StatusServer) Start(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)

	go func() {
		srv.logger.Info().
			Str("addr", addr).
			Str("version", srv.version).
			Msg("Starting status server")

		if err := srv.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			srv.logger.Error().Err(err).Msg("Server startup failed")
			return err
		}
		return nil
	case <-ctx.Done():
	}

	return srv.Shutdown()
}

// Shutdown stops the server, waiting for in-flight requests.
func (srv *StatusServer) Shutdown() error {
	srv.logger.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout*time.Second)
	defer cancel()

	if err := srv.echo.Shutdown(ctx); err != nil {
		srv.logger.Error().Err(err).Msg("Server shutdown failed")
		return err
	}

	srv.logger.Info().Msg("Server gracefully stopped")
	return nil
}

func (srv *StatusServer) setupRoutes() {
	srv.echo.HideBanner = true
	srv.echo.HidePort = true
	srv.echo.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} ${status} ${method} ${uri} (${latency_human})\n",
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/healthz" || c.Path() == "/metrics"
		},
	}))
	srv.echo.Use(middleware.Recover())

	srv.echo.GET("/healthz", srv.getHealth)
	srv.echo.GET("/volumes", srv.getVolumes)
	srv.echo.GET("/status", srv.getStatus)
	if srv.metrics != nil {
		srv.echo.GET("/metrics", echo.WrapHandler(srv.metrics))
	}
}
