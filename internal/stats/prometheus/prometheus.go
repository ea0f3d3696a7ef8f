// Package prometheus provides a Prometheus-based stats collector.
package prometheus

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/discochess/transread/internal/stats"
)

// help describes the metrics transread emits. Unknown names use their own
// name as help text.
var help = map[string]string{
	stats.MetricOpens:             "Resources opened successfully.",
	stats.MetricOpenErrors:        "Resources that failed to open.",
	stats.MetricOpenSeconds:       "Time spent opening a resource, including transport probes.",
	stats.MetricBytesRead:         "Logical bytes returned to readers.",
	stats.MetricSeekSkippedBytes:  "Bytes discarded by emulated forward seeks.",
	stats.MetricMaterializedBytes: "Bytes copied into local temporary files.",
	stats.MetricChunkBufferPeak:   "Largest decompressed surplus held by a chunked reader.",
	stats.MetricCacheHits:         "Local copy cache hits.",
	stats.MetricCacheMisses:       "Local copy cache misses.",
	stats.MetricCacheSize:         "Local copies currently cached.",
}

// openBuckets spans fast local opens through slow SSH handshakes.
var openBuckets = prometheus.ExponentialBuckets(0.001, 4, 9)

// Collector implements stats.Collector using Prometheus metrics.
// Metrics are registered lazily on first use.
type Collector struct {
	registry prometheus.Registerer

	mu         sync.Mutex
	counters   map[string]prometheus.Counter
	gauges     map[string]prometheus.Gauge
	histograms map[string]prometheus.Histogram
}

// Compile-time check that Collector implements stats.Collector.
var _ stats.Collector = (*Collector)(nil)

// New creates a new Prometheus collector.
// If registry is nil, prometheus.DefaultRegisterer is used.
func New(registry prometheus.Registerer) *Collector {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	return &Collector{
		registry:   registry,
		counters:   make(map[string]prometheus.Counter),
		gauges:     make(map[string]prometheus.Gauge),
		histograms: make(map[string]prometheus.Histogram),
	}
}

// IncCounter increments a counter metric.
func (c *Collector) IncCounter(name string, delta int64) {
	c.mu.Lock()
	counter, ok := c.counters[name]
	if !ok {
		counter = register(c.registry, prometheus.NewCounter(prometheus.CounterOpts{
			Name: name,
			Help: helpFor(name),
		}))
		c.counters[name] = counter
	}
	c.mu.Unlock()

	counter.Add(float64(delta))
}

// SetGauge sets a gauge metric.
func (c *Collector) SetGauge(name string, value int64) {
	c.mu.Lock()
	gauge, ok := c.gauges[name]
	if !ok {
		gauge = register(c.registry, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: name,
			Help: helpFor(name),
		}))
		c.gauges[name] = gauge
	}
	c.mu.Unlock()

	gauge.Set(float64(value))
}

// ObserveHistogram records a value in a histogram.
func (c *Collector) ObserveHistogram(name string, value float64) {
	c.mu.Lock()
	histogram, ok := c.histograms[name]
	if !ok {
		buckets := prometheus.DefBuckets
		if name == stats.MetricOpenSeconds {
			buckets = openBuckets
		}
		histogram = register(c.registry, prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    name,
			Help:    helpFor(name),
			Buckets: buckets,
		}))
		c.histograms[name] = histogram
	}
	c.mu.Unlock()

	histogram.Observe(value)
}

func helpFor(name string) string {
	if h, ok := help[name]; ok {
		return h
	}
	return name
}

// register registers m, returning the collector already registered under the
// same name if there is one. A failed registration still yields a usable
// metric; it is just not exported.
func register[M prometheus.Collector](reg prometheus.Registerer, m M) M {
	if err := reg.Register(m); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(M); ok {
				return existing
			}
		}
	}
	return m
}
