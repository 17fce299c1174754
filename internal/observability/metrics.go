package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ResolveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cratefiles_resolve_seconds",
		Help:    "Time spent resolving one target's file set.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	ResolvedFiles = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cratefiles_resolved_files",
		Help: "Number of files in the most recent resolution, per target kind.",
	}, []string{"kind"})

	TargetsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cratefiles_targets_total",
		Help: "Number of targets in the current catalog.",
	})

	ResolveErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cratefiles_resolve_errors_total",
		Help: "Total number of failed resolutions, by error code.",
	}, []string{"code"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cratefiles_watcher_events_total",
		Help: "Total number of file system change batches received by the watcher.",
	})
)
