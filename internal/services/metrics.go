package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// MetricsRegistry holds the catalog collectors exposed on /metrics.
var MetricsRegistry = prometheus.NewRegistry()

var (
	downloadsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "catalog",
		Name:      "downloads_total",
		Help:      "Total number of application file downloads served.",
	})

	assetBytesStored = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "catalog",
		Name:      "asset_bytes_stored_total",
		Help:      "Bytes written to asset storage.",
	}, []string{"kind"})

	assetCleanupFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "catalog",
		Name:      "asset_cleanup_failures_total",
		Help:      "Asset removals that failed and were handed to the cleanup queue.",
	})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "catalog",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests handled.",
	}, []string{"method", "route", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "catalog",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP requests.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"method", "route"})
)

func init() {
	MetricsRegistry.MustRegister(
		downloadsTotal,
		assetBytesStored,
		assetCleanupFailures,
		HTTPRequests,
		HTTPDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// RegisterDBMetrics exposes connection pool gauges for db. Safe to call once per process.
func RegisterDBMetrics(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	gauge := func(name, help string, value func() float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "catalog",
			Subsystem: "db",
			Name:      name,
			Help:      help,
		}, value)
	}

	for _, c := range []prometheus.Collector{
		gauge("open_connections", "Number of open DB connections.", func() float64 { return float64(sqlDB.Stats().OpenConnections) }),
		gauge("in_use_connections", "Number of in-use DB connections.", func() float64 { return float64(sqlDB.Stats().InUse) }),
		gauge("idle_connections", "Number of idle DB connections.", func() float64 { return float64(sqlDB.Stats().Idle) }),
	} {
		if err := MetricsRegistry.Register(c); err != nil {
			return err
		}
	}
	return nil
}
