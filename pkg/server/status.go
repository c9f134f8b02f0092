package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"sanitier/pkg/models"
	"sanitier/pkg/scheduler"
	"sanitier/pkg/volume"
)

// HealthResponse is returned by GET /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Report *models.RunReport `json:"report,omitempty"`
	Error  string            `json:"error,omitempty"`
}

func (srv *StatusServer) getHealth(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: srv.version})
}

// getVolumes handles the GET /volumes endpoint.
func (srv *StatusServer) getVolumes(ctx echo.Context) error {
	backup, archive, err := srv.volumes.Volumes()
	if err != nil {
		srv.logger.Error().Err(err).Msg("Failed to measure volumes")

		var unavailable volume.VolumeUnavailableError
		if errors.As(err, &unavailable) {
			return ctx.JSON(http.StatusServiceUnavailable, map[string]string{
				"error": "Volume unavailable",
				"root":  unavailable.Root,
			})
		}
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to measure volumes",
		})
	}

	th := srv.volumes.Thresholds()
	return ctx.JSON(http.StatusOK, models.VolumesResponse{
		Backup:  models.NewVolumeStatus(*backup, th.BackupUsagePercent),
		Archive: models.NewVolumeStatus(*archive, th.SANUsagePercent),
	})
}

// getStatus handles the GET /status endpoint.
func (srv *StatusServer) getStatus(ctx echo.Context) error {
	report, err := srv.reports.LastReport()
	if errors.Is(err, scheduler.ErrNoRunYet) || (report == nil && err == nil) {
		return ctx.JSON(http.StatusNotFound, map[string]string{"error": "No run has completed yet"})
	}

	resp := StatusResponse{Report: report}
	if err != nil {
		resp.Error = err.Error()
	}
	return ctx.JSON(http.StatusOK, resp)
}
