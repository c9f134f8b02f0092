package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sanitier/pkg/models"
)

const (
	DefaultNamespace = "sanitier"

	volumeBackup  = "backup"
	volumeArchive = "archive"
)

// Collector exports tiering runs as Prometheus metrics. It satisfies the
// orchestrator's Recorder interface.
type Collector struct {
	registry *prometheus.Registry

	volumeBytes       *prometheus.GaugeVec
	volumeUsedPercent *prometheus.GaugeVec

	runsTotal        *prometheus.CounterVec
	runDuration      prometheus.Histogram
	lastRunTimestamp prometheus.Gauge

	filesMoved       prometheus.Counter
	bytesMoved       prometheus.Counter
	duplicates       prometheus.Counter
	transferFailures prometheus.Counter

	filesDeleted  prometheus.Counter
	bytesDeleted  prometheus.Counter
	cleanSkipped  prometheus.Counter
	cleanFailures prometheus.Counter
}

// NewCollector registers all metrics on registry, or on a fresh registry
// when nil.
func NewCollector(namespace string, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}

	c := &Collector{
		registry: registry,
		volumeBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "volume_bytes",
			Help:      "Volume space by kind (total, used, free) at the last run.",
		}, []string{"volume", "kind"}),
		volumeUsedPercent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "volume_used_percent",
			Help:      "Rounded used percentage of each volume at the last run.",
		}, []string{"volume"}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed runs by selected action.",
		}, []string{"action"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of completed runs.",
			Buckets:   []float64{1, 10, 60, 300, 900, 1800, 3600, 7200, 14400},
		}),
		lastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		filesMoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "migrate",
			Name:      "files_total",
			Help:      "Files moved to the archive.",
		}),
		bytesMoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "migrate",
			Name:      "bytes_total",
			Help:      "Bytes moved to the archive.",
		}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "migrate",
			Name:      "duplicates_total",
			Help:      "Source files removed because the archive already held them.",
		}),
		transferFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "migrate",
			Name:      "failures_total",
			Help:      "Files left in place after a migration error.",
		}),
		filesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "clean",
			Name:      "files_total",
			Help:      "Expired archive files deleted.",
		}),
		bytesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "clean",
			Name:      "bytes_total",
			Help:      "Bytes freed by retention.",
		}),
		cleanSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "clean",
			Name:      "skipped_total",
			Help:      "Archive entries skipped because their metadata could not be used.",
		}),
		cleanFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "clean",
			Name:      "failures_total",
			Help:      "Expired files that could not be deleted.",
		}),
	}

	registry.MustRegister(
		c.volumeBytes, c.volumeUsedPercent,
		c.runsTotal, c.runDuration, c.lastRunTimestamp,
		c.filesMoved, c.bytesMoved, c.duplicates, c.transferFailures,
		c.filesDeleted, c.bytesDeleted, c.cleanSkipped, c.cleanFailures,
	)

	return c
}

// Registry returns the registry the collector writes to.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveVolumes records the usage samples of a run.
func (c *Collector) ObserveVolumes(backup, archive models.VolumeUsage) {
	c.observeVolume(volumeBackup, backup)
	c.observeVolume(volumeArchive, archive)
}

func (c *Collector) observeVolume(name string, usage models.VolumeUsage) {
	c.volumeBytes.WithLabelValues(name, "total").Set(float64(usage.TotalBytes))
	c.volumeBytes.WithLabelValues(name, "used").Set(float64(usage.UsedBytes))
	c.volumeBytes.WithLabelValues(name, "free").Set(float64(usage.FreeBytes))
	c.volumeUsedPercent.WithLabelValues(name).Set(float64(usage.UsedPercent()))
}

// ObserveRun records a finished run.
func (c *Collector) ObserveRun(report *models.RunReport) {
	if report == nil {
		return
	}

	c.runsTotal.WithLabelValues(string(report.Action)).Inc()
	c.runDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
	c.lastRunTimestamp.Set(float64(report.FinishedAt.Unix()))

	if t := report.Transfer; t != nil {
		c.filesMoved.Add(float64(t.FilesAffected))
		c.bytesMoved.Add(float64(t.TotalBytes))
		c.duplicates.Add(float64(t.Duplicates))
		c.transferFailures.Add(float64(t.Failures))
	}
	if cl := report.Clean; cl != nil {
		c.filesDeleted.Add(float64(cl.FilesAffected))
		c.bytesDeleted.Add(float64(cl.TotalBytes))
		c.cleanSkipped.Add(float64(cl.Skipped))
		c.cleanFailures.Add(float64(cl.Failures))
	}
}

// Handler returns the Prometheus exposition handler for the registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
