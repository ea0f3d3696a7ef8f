// Package throughput measures decoding throughput of a resource across
// decompression chunk sizes.
package throughput

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/discochess/transread"
	"github.com/discochess/transread/internal/stats"
)

// Result holds the measurements for one chunk size.
type Result struct {
	ChunkSize int
	// Bytes is the decoded length of the resource.
	Bytes int64
	// Seconds is the wall time of each run.
	Seconds []float64
	// MBPerSecond is the decoded throughput of each run.
	MBPerSecond []float64
	// PeakBuffered is the largest decompressed surplus held across runs.
	PeakBuffered int64
}

// Runner reads one resource repeatedly with different chunk sizes.
type Runner struct {
	name string
	runs int
	opts []transread.Option
}

// NewRunner creates a Runner reading name runs times per chunk size. opts
// are applied to every open after the chunk size options.
func NewRunner(name string, runs int, opts ...transread.Option) *Runner {
	if runs < 1 {
		runs = 1
	}
	return &Runner{name: name, runs: runs, opts: opts}
}

// Run measures every chunk size in turn.
func (r *Runner) Run(ctx context.Context, chunkSizes []int) ([]*Result, error) {
	results := make([]*Result, 0, len(chunkSizes))
	for _, size := range chunkSizes {
		res, err := r.RunChunkSize(ctx, size)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// RunChunkSize reads the resource to the end runs times with chunkSize.
func (r *Runner) RunChunkSize(ctx context.Context, chunkSize int) (*Result, error) {
	res := &Result{
		ChunkSize:   chunkSize,
		Seconds:     make([]float64, 0, r.runs),
		MBPerSecond: make([]float64, 0, r.runs),
	}
	peak := &peakCollector{}
	opts := append([]transread.Option{
		transread.WithChunkSize(chunkSize),
		transread.WithBzip2ChunkSize(chunkSize),
		transread.WithStats(peak),
	}, r.opts...)

	for i := 0; i < r.runs; i++ {
		start := time.Now()
		n, err := readAll(ctx, r.name, opts)
		if err != nil {
			return nil, fmt.Errorf("chunk size %d, run %d: %w", chunkSize, i+1, err)
		}
		elapsed := time.Since(start).Seconds()

		res.Bytes = n
		res.Seconds = append(res.Seconds, elapsed)
		if elapsed > 0 {
			res.MBPerSecond = append(res.MBPerSecond, float64(n)/elapsed/1e6)
		}
	}
	res.PeakBuffered = peak.max()
	return res, nil
}

func readAll(ctx context.Context, name string, opts []transread.Option) (int64, error) {
	rd, err := transread.Open(ctx, name, opts...)
	if err != nil {
		return 0, err
	}
	defer rd.Close()

	n, err := io.Copy(io.Discard, rd)
	if err != nil {
		return n, err
	}
	return n, rd.Close()
}

// peakCollector keeps the largest chunk buffer gauge it sees.
type peakCollector struct {
	mu   sync.Mutex
	peak int64
}

func (c *peakCollector) IncCounter(string, int64)          {}
func (c *peakCollector) ObserveHistogram(string, float64) {}

func (c *peakCollector) SetGauge(name string, value int64) {
	if name != stats.MetricChunkBufferPeak {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if value > c.peak {
		c.peak = value
	}
}

func (c *peakCollector) max() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peak
}
