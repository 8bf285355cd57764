// Package metrics exposes the cleaner's Prometheus collectors.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "msc"

// Registry holds every collector served on the metrics endpoint.
var Registry = prometheus.NewRegistry()

var (
	httpRequests = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests served, by route, method and status.",
	}, []string{"route", "method", "status"})

	httpDuration = promauto.With(Registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	// ObjectsDeleted counts objects removed by the eviction engine.
	ObjectsDeleted = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "objects_deleted_total",
		Help:      "Objects deleted while enforcing quotas.",
	}, []string{"bucket"})

	// DirectoriesRegistered counts directories newly persisted by the indexer.
	DirectoriesRegistered = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "directories_registered_total",
		Help:      "Leaf directories registered by the indexer.",
	}, []string{"bucket"})

	// BucketsRegistered counts buckets newly persisted by the indexer.
	BucketsRegistered = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "buckets_registered_total",
		Help:      "Quota-bearing buckets registered by the indexer.",
	})

	// EvictionOutcomes counts enforcement runs by result.
	EvictionOutcomes = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "eviction_runs_total",
		Help:      "Quota enforcement runs per bucket and outcome.",
	}, []string{"bucket", "outcome"})

	// JobRuns counts scheduler runs by job and status (ok, failed, skipped).
	JobRuns = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "job_runs_total",
		Help:      "Scheduled job runs by job and status.",
	}, []string{"job", "status"})

	// JobDuration observes how long each job run took.
	JobDuration = promauto.With(Registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "job_duration_seconds",
		Help:      "Duration of scheduled job runs.",
		Buckets:   []float64{.1, .5, 1, 5, 15, 60, 300, 900, 1800},
	}, []string{"job"})

	// BucketFreePercent is the last computed free headroom per bucket.
	BucketFreePercent = promauto.With(Registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "bucket_free_percent",
		Help:      "Free quota headroom in percent, as last evaluated.",
	}, []string{"bucket"})

	// BucketLastCleaned is the unix time of the last completed enforcement run.
	BucketLastCleaned = promauto.With(Registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "bucket_last_cleaned_timestamp_seconds",
		Help:      "Unix time of the last completed cleanup per bucket.",
	}, []string{"bucket"})
)

var initOnce sync.Once

// InitMetrics registers the Go runtime and process collectors. Safe to call repeatedly.
func InitMetrics() {
	initOnce.Do(func() {
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// Middleware records request counts and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		httpRequests.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}

// Register attaches the Prometheus metrics endpoint to the router.
func Register(router *gin.Engine, path string) {
	router.GET(path, gin.WrapH(promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})))
}
