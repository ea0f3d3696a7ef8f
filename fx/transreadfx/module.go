// Package transreadfx provides an fx module for a transread Opener.
package transreadfx

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/discochess/transread"
	"github.com/discochess/transread/internal/localcache"
	"github.com/discochess/transread/internal/stats"
	"github.com/discochess/transread/internal/stats/logger"
	promstats "github.com/discochess/transread/internal/stats/prometheus"
)

// Config holds configuration for the Opener.
type Config struct {
	// TempDir is where local copies are written.
	// Default is os.TempDir.
	TempDir string

	// LocalCopy materializes every reader into a local file on open.
	LocalCopy bool

	// CacheSize is the number of local copies to keep between opens.
	// Zero disables the cache.
	CacheSize int

	// ChunkSize is the decompression step size for gzip, zstd, and xz.
	ChunkSize int

	// UserAgent is sent with HTTP requests.
	UserAgent string

	// Registerer receives Prometheus metrics. If nil, metrics are logged.
	Registerer prometheus.Registerer
}

// Module provides a *transread.Opener.
// Requires a Config and a *zap.Logger to be provided.
var Module = fx.Module("transread",
	fx.Provide(
		newStatsCollector,
		newOpener,
	),
)

func newStatsCollector(cfg Config, log *zap.Logger) stats.Collector {
	if cfg.Registerer != nil {
		return promstats.New(cfg.Registerer)
	}
	return logger.New(log.Named("transread.stats"))
}

// Params holds dependencies for creating the Opener.
type Params struct {
	fx.In

	Config    Config
	Logger    *zap.Logger
	Collector stats.Collector
	Lifecycle fx.Lifecycle
}

// Result holds the provided Opener.
type Result struct {
	fx.Out

	Opener *transread.Opener
}

func newOpener(p Params) (Result, error) {
	opts := []transread.Option{
		transread.WithLogger(p.Logger.Named("transread")),
		transread.WithStats(p.Collector),
		transread.WithTempDir(p.Config.TempDir),
		transread.WithChunkSize(p.Config.ChunkSize),
		transread.WithUserAgent(p.Config.UserAgent),
	}
	if p.Config.LocalCopy {
		opts = append(opts, transread.WithLocalCopy())
	}

	var cache *localcache.Cache
	if p.Config.CacheSize > 0 {
		var err error
		cache, err = localcache.New(p.Config.CacheSize,
			localcache.WithStats(p.Collector),
			localcache.WithLogger(p.Logger.Named("transread.cache")),
		)
		if err != nil {
			return Result{}, err
		}
		opts = append(opts, transread.WithLocalCache(cache))
	}

	opener := transread.NewOpener(opts...)

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			err := opener.Close()
			if cache != nil {
				if cerr := cache.Close(); err == nil {
					err = cerr
				}
			}
			return err
		},
	})

	return Result{Opener: opener}, nil
}
