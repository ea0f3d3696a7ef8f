package transread

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/discochess/transread/internal/format"
	"github.com/discochess/transread/internal/stats"
	"github.com/discochess/transread/internal/transport"
)

// Opener opens Readers with a shared configuration and shared transport
// clients. An Opener is safe for concurrent use by multiple goroutines.
type Opener struct {
	opts     options
	resolver *transport.Resolver
	closed   atomic.Bool
}

// NewOpener creates an Opener with the given options.
func NewOpener(opts ...Option) *Opener {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	tOpts := append([]transport.Option{transport.WithLogger(cfg.logger)}, cfg.transport...)
	o := &Opener{
		opts:     cfg,
		resolver: transport.New(tOpts...),
	}

	o.opts.logger.Debug("opener initialized",
		zap.Int("chunkSize", cfg.chunkSize),
		zap.Int("bzip2ChunkSize", cfg.bzip2ChunkSize),
		zap.Bool("localCopy", cfg.localCopy),
		zap.String("tempDir", cfg.tempDir),
	)
	return o
}

// Open opens name, which is a local path or an http, https, ssh, s3, or gs
// URL, and returns a Reader over its decoded content.
func (o *Opener) Open(ctx context.Context, name string) (*Reader, error) {
	if o.closed.Load() {
		return nil, ErrClosed
	}

	start := time.Now()
	o.opts.stats.IncCounter(stats.MetricOpens, 1)

	r, err := o.open(ctx, name)
	if err != nil {
		o.opts.stats.IncCounter(stats.MetricOpenErrors, 1)
		o.opts.logger.Debug("open failed", zap.String("name", name), zap.Error(err))
		return nil, err
	}

	o.opts.stats.ObserveHistogram(stats.MetricOpenSeconds, time.Since(start).Seconds())
	o.opts.logger.Debug("opened",
		zap.String("name", name),
		zap.Stringer("format", r.format),
		zap.Bool("remote", r.Remote()),
		zap.Int64("size", r.size),
	)
	return r, nil
}

func (o *Opener) open(ctx context.Context, name string) (*Reader, error) {
	if o.opts.localCopy && o.opts.cache != nil {
		if f, ok := o.opts.cache.Open(name); ok {
			o.opts.logger.Debug("using cached local copy", zap.String("name", name))
			return newMaterializedReader(name, f, &o.opts)
		}
	}

	src, err := o.resolver.Open(ctx, name)
	if err != nil {
		return nil, err
	}

	stream, err := format.Open(name, src.Body, format.Config{
		ChunkSize:      o.opts.chunkSize,
		Bzip2ChunkSize: o.opts.bzip2ChunkSize,
		Stats:          o.opts.stats,
	})
	if err != nil {
		if cerr := src.Close(); cerr != nil {
			o.opts.logger.Debug("releasing source after failed open", zap.Error(cerr))
		}
		return nil, err
	}

	r := newReader(name, src, stream, &o.opts)
	if o.opts.localCopy {
		if err := r.MaterializeLocal(); err != nil {
			r.Close()
			return nil, fmt.Errorf("copying %q locally: %w", name, err)
		}
	}
	return r, nil
}

// Close releases transport clients the Opener created, which readers over
// gs URLs still depend on. After Close, Open fails with ErrClosed.
func (o *Opener) Close() error {
	if !o.closed.CompareAndSwap(false, true) {
		return nil
	}
	return o.resolver.Close()
}

// Open opens name with a one-off Opener configured by opts. The Opener's
// clients are released when the Reader is closed.
func Open(ctx context.Context, name string, opts ...Option) (*Reader, error) {
	o := NewOpener(opts...)
	r, err := o.Open(ctx, name)
	if err != nil {
		o.Close()
		return nil, err
	}
	r.h.release = o.Close
	return r, nil
}
