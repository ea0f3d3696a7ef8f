package transread

import (
	"net/http"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/discochess/transread/internal/chunked"
	"github.com/discochess/transread/internal/localcache"
	"github.com/discochess/transread/internal/stats"
	"github.com/discochess/transread/internal/transport"
)

// Option configures an Opener.
type Option interface {
	apply(*options)
}

// options holds the opener configuration.
type options struct {
	logger         *zap.Logger
	stats          stats.Collector
	localCopy      bool
	tempDir        string
	cache          *localcache.Cache
	chunkSize      int
	bzip2ChunkSize int
	transport      []transport.Option
}

// defaultOptions returns the default configuration.
func defaultOptions() options {
	return options{
		logger:         zap.NewNop(),
		stats:          stats.NewNoop(),
		chunkSize:      chunked.DefaultChunkSize,
		bzip2ChunkSize: chunked.Bzip2ChunkSize,
	}
}

// optionFunc wraps a function to implement Option.
type optionFunc func(*options)

// Compile-time check that optionFunc implements Option.
var _ Option = optionFunc(nil)

func (f optionFunc) apply(o *options) { f(o) }

// WithLogger sets the logger.
// If not set, a no-op logger is used.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(o *options) {
		if l != nil {
			o.logger = l
		}
	})
}

// WithStats sets the stats collector.
// If not set, a no-op collector is used.
func WithStats(c stats.Collector) Option {
	return optionFunc(func(o *options) {
		if c != nil {
			o.stats = c
		}
	})
}

// WithLocalCopy makes every opened reader materialize its content into a
// local temporary file before Open returns.
func WithLocalCopy() Option {
	return optionFunc(func(o *options) {
		o.localCopy = true
	})
}

// WithTempDir sets the directory for local copies.
// If not set, os.TempDir is used.
func WithTempDir(dir string) Option {
	return optionFunc(func(o *options) {
		o.tempDir = dir
	})
}

// WithLocalCache keeps complete local copies in c so later local-copy
// opens of the same name skip the transfer. The caller owns c.
func WithLocalCache(c *localcache.Cache) Option {
	return optionFunc(func(o *options) {
		o.cache = c
	})
}

// WithChunkSize sets the decompression step size for gzip, zstd, and xz.
// Default is 128 KiB.
func WithChunkSize(n int) Option {
	return optionFunc(func(o *options) {
		if n > 0 {
			o.chunkSize = n
		}
	})
}

// WithBzip2ChunkSize sets the decompression step size for bzip2.
// Default is 128 bytes.
func WithBzip2ChunkSize(n int) Option {
	return optionFunc(func(o *options) {
		if n > 0 {
			o.bzip2ChunkSize = n
		}
	})
}

// WithHTTPClient sets the client for http and https URLs.
func WithHTTPClient(c *http.Client) Option {
	return transportOption(transport.WithHTTPClient(c))
}

// WithUserAgent sets the User-Agent header for HTTP requests.
func WithUserAgent(ua string) Option {
	return transportOption(transport.WithUserAgent(ua))
}

// WithRunner sets how ssh and sshpass are executed.
func WithRunner(r Runner) Option {
	return transportOption(transport.WithRunner(r))
}

// WithS3Client sets the client for s3 URLs.
func WithS3Client(c S3API) Option {
	return transportOption(transport.WithS3Client(c))
}

// WithGCSClient sets the client for gs URLs. The caller keeps ownership
// of c.
func WithGCSClient(c *storage.Client) Option {
	return transportOption(transport.WithGCSClient(c))
}

func transportOption(opt transport.Option) Option {
	return optionFunc(func(o *options) {
		o.transport = append(o.transport, opt)
	})
}

// Runner executes the external ssh tooling.
type Runner = transport.Runner

// Command is an external program invocation passed to a Runner.
type Command = transport.Command

// S3API is the subset of the S3 client used for s3 URLs.
type S3API = transport.S3API
