// Package stats provides a unified interface for collecting metrics.
package stats

// Metric names used throughout the library.
const (
	// Reader metrics.
	MetricOpens             = "transread_opens_total"
	MetricOpenErrors        = "transread_open_errors_total"
	MetricOpenSeconds       = "transread_open_seconds"
	MetricBytesRead         = "transread_bytes_read_total"
	MetricSeekSkippedBytes  = "transread_seek_skipped_bytes_total"
	MetricMaterializedBytes = "transread_materialized_bytes_total"

	// Decompression metrics.
	MetricChunkBufferPeak = "transread_chunk_buffer_peak_bytes"

	// Local copy cache metrics.
	MetricCacheHits   = "transread_cache_hits_total"
	MetricCacheMisses = "transread_cache_misses_total"
	MetricCacheSize   = "transread_cache_size"
)

// Collector defines the interface for collecting metrics.
type Collector interface {
	// IncCounter increments a counter metric by delta.
	IncCounter(name string, delta int64)

	// SetGauge sets a gauge metric to value.
	SetGauge(name string, value int64)

	// ObserveHistogram records a value in a histogram metric.
	ObserveHistogram(name string, value float64)
}
