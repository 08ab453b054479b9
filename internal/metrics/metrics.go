package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PackageBuildFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rhp_package_build_failed",
			Help: "Number of times a package has failed to build",
		},
		[]string{"package", "error_type"},
	)

	PackageBuildCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rhp_package_build_count",
			Help: "Total number of times a package has been built",
		},
	)

	PackageBuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rhp_package_build_duration_seconds",
			Help:    "Package build duration in seconds",
			Buckets: []float64{0.1, 0.2, 0.5, 1, 1.5, 2, 5, 10, 30, 60},
		},
		[]string{"package"},
	)

	LastPackageBuildStart = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rhp_last_package_build_start_timestamp",
			Help: "Unix timestamp of when the last package build started",
		},
		[]string{"package"},
	)

	LastPackageBuildEnd = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rhp_last_package_build_end_timestamp",
			Help: "Unix timestamp of when the last package build ended",
		},
		[]string{"package"},
	)

	DiscoveredFiles = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rhp_discovered_files",
			Help: "Number of files included by the last content discovery",
		},
		[]string{"package"},
	)
)

// PackageBuildSucceeded records a completed build and its duration.
func PackageBuildSucceeded(name string, startTime time.Time) {
	now := time.Now()
	PackageBuildCount.Inc()
	PackageBuildDuration.WithLabelValues(name).Observe(now.Sub(startTime).Seconds())
	LastPackageBuildStart.WithLabelValues(name).Set(float64(startTime.Unix()))
	LastPackageBuildEnd.WithLabelValues(name).Set(float64(now.Unix()))
}

// PackageBuildFailure records a failed build with the failure class.
func PackageBuildFailure(name, errorType string) {
	PackageBuildFailed.WithLabelValues(name, errorType).Inc()
}
