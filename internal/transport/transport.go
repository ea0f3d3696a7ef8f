// Package transport opens the raw byte source behind a resource name: a
// local file, an HTTP(S) body, the stdout of a remote cat over SSH, or an
// object in S3 or GCS.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"sync"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
)

var (
	// ErrResourceOpen is returned when a local path exists but cannot be
	// opened for reading.
	ErrResourceOpen = errors.New("transread: cannot open resource")

	// ErrRemoteOpen is returned when a URL cannot be fetched.
	ErrRemoteOpen = errors.New("transread: cannot open remote resource")
)

// Source is an opened raw byte source.
type Source struct {
	// Body yields the raw, possibly compressed, bytes.
	Body io.ReadCloser
	// File is set when Body is a local file.
	File *os.File
	// Remote reports that the bytes come over a network or a child process.
	Remote bool
	// ForceEmulatedSeek reports that seeking must never be delegated to
	// Body even if it appears to support it.
	ForceEmulatedSeek bool
	// Wait, when set, reaps the child process producing Body.
	Wait func() error
	// Size is the byte length of a local file, or -1.
	Size int64

	closed bool
}

// Close releases Body and then waits on the child process, if any.
// It is safe to call more than once.
func (s *Source) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	err := s.Body.Close()
	if s.Wait != nil {
		err = errors.Join(err, s.Wait())
	}
	return err
}

// Resolver maps resource names to sources. It is safe for concurrent use.
type Resolver struct {
	client    *http.Client
	userAgent string
	runner    Runner
	logger    *zap.Logger

	mu      sync.Mutex
	s3      S3API
	gcs     *storage.Client
	ownsGCS bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHTTPClient sets the client used for http and https URLs.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) {
		if c != nil {
			r.client = c
		}
	}
}

// WithUserAgent sets the User-Agent header sent with HTTP requests.
func WithUserAgent(ua string) Option {
	return func(r *Resolver) {
		if ua != "" {
			r.userAgent = ua
		}
	}
}

// WithRunner sets how SSH commands are executed.
func WithRunner(run Runner) Option {
	return func(r *Resolver) {
		if run != nil {
			r.runner = run
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithS3Client sets the client used for s3 URLs. Without one, a client is
// built from the default AWS configuration on first use.
func WithS3Client(c S3API) Option {
	return func(r *Resolver) {
		r.s3 = c
	}
}

// WithGCSClient sets the client used for gs URLs. Without one, a client is
// built from application default credentials on first use.
func WithGCSClient(c *storage.Client) Option {
	return func(r *Resolver) {
		r.gcs = c
	}
}

// New returns a Resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		client:    NewHTTPClient(),
		userAgent: DefaultUserAgent,
		runner:    ExecRunner{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open opens name. Names that exist on the local filesystem are opened as
// files; anything that does not is parsed as a URL.
func (r *Resolver) Open(ctx context.Context, name string) (*Source, error) {
	src, err := openLocal(name)
	if err == nil {
		r.logger.Debug("opened local file", zap.String("name", name), zap.Int64("size", src.Size))
		return src, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	u, perr := url.Parse(name)
	if perr != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrRemoteOpen, name, perr)
	}

	r.logger.Debug("opening URL", zap.String("scheme", u.Scheme), zap.String("host", u.Host))
	switch u.Scheme {
	case "http", "https":
		return r.openHTTP(ctx, u)
	case "ssh":
		return r.openSSH(ctx, u)
	case "s3":
		return r.openS3(ctx, u)
	case "gs":
		return r.openGCS(ctx, u)
	case "":
		// Neither a file nor a URL; keep the not-found cause visible.
		return nil, fmt.Errorf("%w: %q: %w", ErrRemoteOpen, name, err)
	default:
		return nil, fmt.Errorf("%w: %q: unsupported URL scheme %q", ErrRemoteOpen, name, u.Scheme)
	}
}

// Close releases clients the Resolver created itself.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gcs == nil || !r.ownsGCS {
		return nil
	}
	err := r.gcs.Close()
	r.gcs, r.ownsGCS = nil, false
	return err
}
