package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	transformDuration prometheus.Histogram
	derivedBytes      prometheus.Counter
}

// NewMetrics registers the pipeline collectors on reg. A nil registerer
// keeps the metrics local, which is what the tests use.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixelcache_cache_hits_total",
			Help: "Total resize requests served from the derived-object cache.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixelcache_cache_misses_total",
			Help: "Total resize requests that required a transform.",
		}),
		transformDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pixelcache_transform_duration_seconds",
			Help:    "Time spent in the transform engine per cache miss.",
			Buckets: prometheus.DefBuckets,
		}),
		derivedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixelcache_derived_bytes_written_total",
			Help: "Total bytes persisted to the derived-object bucket.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.cacheHits, m.cacheMisses, m.transformDuration, m.derivedBytes)
	}
	return m
}

func (m *Metrics) startTransformTimer() *prometheus.Timer {
	return prometheus.NewTimer(m.transformDuration)
}
