// Package transread reads local files, HTTP(S) URLs, remote files over SSH,
// and S3 or GCS objects as one sequential byte stream, transparently
// decompressing gzip, bzip2, zstd, xz, and tar-wrapped resources.
//
// Readers seek forward only, by reading and discarding, unless they are
// backed by a plain local file. MaterializeLocal copies the rest of a stream
// into a temporary file, after which the reader seeks natively.
//
// Example usage:
//
//	r, err := transread.Open(ctx, "https://example.com/disk.img.bz2")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
//	if _, err := r.Seek(4096, io.SeekStart); err != nil {
//	    log.Fatal(err)
//	}
//	block, err := r.ReadN(512)
package transread

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/discochess/transread/internal/format"
	"github.com/discochess/transread/internal/localcache"
	"github.com/discochess/transread/internal/seek"
	"github.com/discochess/transread/internal/stats"
	"github.com/discochess/transread/internal/transport"
)

const (
	// SizeUnknown is the size reported when the resource does not declare one.
	SizeUnknown int64 = -1

	// ReadAll passed to ReadN reads to the end of the stream.
	ReadAll = -1
)

// copyChunkSize is the read size used when materializing.
const copyChunkSize = 1024 * 1024

// Format identifies how a resource's bytes are encoded.
type Format = format.Format

// Formats recognized by name suffix.
const (
	FormatPlain = format.Plain
	FormatTar   = format.Tar
	FormatGzip  = format.Gzip
	FormatBzip2 = format.Bzip2
	FormatZstd  = format.Zstd
	FormatXZ    = format.XZ
)

// SupportedCompressionTypes lists the recognized name suffixes.
var SupportedCompressionTypes = format.SupportedCompressionTypes

type state int

const (
	stateTransparent state = iota
	stateMaterialized
)

// Compile-time check that Reader implements io.ReadSeekCloser.
var _ io.ReadSeekCloser = (*Reader)(nil)

// Reader is a forward-seekable view of a resource's decoded content.
// It is not safe for concurrent use; open one Reader per goroutine.
type Reader struct {
	name   string
	format format.Format
	size   int64
	remote bool
	// forceEmulated disables native seeking for sources that only look
	// seekable.
	forceEmulated bool

	state  state
	pos    int64
	closed bool

	h       *handles
	cleanup runtime.Cleanup

	tempDir string
	cache   *localcache.Cache
	stats   stats.Collector
	logger  *zap.Logger
}

// handles owns everything a Reader must release. It is kept apart from the
// Reader so a cleanup can release it after the Reader is unreachable.
type handles struct {
	src *transport.Source
	// decoded is the decoding stream layered over src, if any.
	decoded io.ReadCloser
	// active is what reads come from: decoded, src.Body, or file.
	active io.Reader
	// file is set when active is a plain local file.
	file *os.File
	// temp is a local copy to delete on release.
	temp string
	// release runs last, for resources shared with an Opener.
	release func() error
}

// close releases the decoding stream, then the raw source and its child
// process, then the local file and copy.
func (h *handles) close() error {
	var errs []error
	if h.decoded != nil {
		errs = append(errs, h.decoded.Close())
		h.decoded = nil
	}
	if h.src != nil {
		errs = append(errs, h.src.Close())
		h.src = nil
	}
	if h.file != nil {
		// A local source's file was closed with src above.
		if err := h.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, err)
		}
		h.file = nil
	}
	if h.temp != "" {
		errs = append(errs, os.Remove(h.temp))
		h.temp = ""
	}
	h.active = nil
	if h.release != nil {
		errs = append(errs, h.release())
		h.release = nil
	}
	return errors.Join(errs...)
}

func newReader(name string, src *transport.Source, stream *format.Stream, o *options) *Reader {
	h := &handles{src: src, active: stream.Body}
	if !stream.PassThrough {
		h.decoded = stream.Body
	}

	size := stream.Size
	if stream.PassThrough && !src.Remote {
		size = src.Size
	}
	if stream.PassThrough && src.File != nil && !src.ForceEmulatedSeek {
		h.file = src.File
	}

	r := &Reader{
		name:          name,
		format:        stream.Format,
		size:          size,
		remote:        src.Remote,
		forceEmulated: src.ForceEmulatedSeek,
		h:             h,
		tempDir:       o.tempDir,
		cache:         o.cache,
		stats:         o.stats,
		logger:        o.logger.With(zap.String("name", name)),
	}
	r.cleanup = runtime.AddCleanup(r, func(h *handles) { _ = h.close() }, h)
	return r
}

// newMaterializedReader returns a reader over an existing local copy.
func newMaterializedReader(name string, f *os.File, o *options) (*Reader, error) {
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %q: %w", ErrTempFile, f.Name(), err)
	}

	h := &handles{active: f, file: f}
	r := &Reader{
		name:    name,
		format:  format.Detect(name),
		size:    info.Size(),
		state:   stateMaterialized,
		h:       h,
		tempDir: o.tempDir,
		cache:   o.cache,
		stats:   o.stats,
		logger:  o.logger.With(zap.String("name", name)),
	}
	r.cleanup = runtime.AddCleanup(r, func(h *handles) { _ = h.close() }, h)
	return r, nil
}

// Name returns the resource name the reader was opened with.
func (r *Reader) Name() string {
	return r.name
}

// Size returns the declared size of the content, or SizeUnknown.
// Plain local files and tar members declare a size, as do local copies.
func (r *Reader) Size() int64 {
	return r.size
}

// Format returns the format detected from the resource name.
func (r *Reader) Format() Format {
	return r.format
}

// Compressed reports whether reads go through a decoder.
func (r *Reader) Compressed() bool {
	return r.state == stateTransparent && r.format.Compressed()
}

// Remote reports whether reads go over a network or a child process.
func (r *Reader) Remote() bool {
	return r.state == stateTransparent && r.remote
}

// ReadN returns up to n bytes of content, or everything that remains when
// n is ReadAll. A result shorter than n means the end of the content was
// reached, and an empty result means it had already been reached.
func (r *Reader) ReadN(n int) ([]byte, error) {
	if r.closed {
		return nil, ErrClosed
	}

	var (
		b   []byte
		err error
	)
	if nr, ok := r.h.active.(interface{ ReadN(int) ([]byte, error) }); ok {
		b, err = nr.ReadN(n)
	} else if n < 0 {
		b, err = io.ReadAll(r.h.active)
	} else {
		b, err = io.ReadAll(io.LimitReader(r.h.active, int64(n)))
	}

	r.advance(len(b))
	if err != nil {
		return b, fmt.Errorf("reading %q: %w", r.name, err)
	}
	return b, nil
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, ErrClosed
	}
	n, err := r.h.active.Read(p)
	r.advance(n)
	return n, err
}

func (r *Reader) advance(n int) {
	if n > 0 {
		r.pos += int64(n)
		r.stats.IncCounter(stats.MetricBytesRead, int64(n))
	}
}

// Seek sets the position for the next read.
//
// A reader backed by a plain local file, including a materialized one,
// seeks natively with any whence. Any other reader only moves forward, by
// reading and discarding, and accepts io.SeekStart and io.SeekCurrent.
// An emulated seek past the end stops there; compare the returned position
// with the one requested to detect it. A native seek may move past the end,
// as os.File does; compare the position with Size to detect it.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	if r.closed {
		return 0, ErrClosed
	}

	if f := r.nativeFile(); f != nil {
		pos, err := f.Seek(offset, whence)
		if err != nil {
			return r.pos, fmt.Errorf("seeking %q: %w", r.name, err)
		}
		r.pos = pos
		return pos, nil
	}

	from := r.pos
	pos, err := seek.Forward(r.h.active, r.pos, offset, whence)
	r.pos = pos
	if skipped := pos - from; skipped > 0 {
		r.stats.IncCounter(stats.MetricSeekSkippedBytes, skipped)
	}
	if err != nil {
		return pos, fmt.Errorf("seeking %q: %w", r.name, err)
	}
	return pos, nil
}

// Tell returns the current position.
func (r *Reader) Tell() (int64, error) {
	if r.closed {
		return 0, ErrClosed
	}
	if f := r.nativeFile(); f != nil {
		return f.Seek(0, io.SeekCurrent)
	}
	return r.pos, nil
}

// File returns the local file backing the reader. It is available only when
// the content is read straight from a plain local file: an uncompressed
// local resource or a materialized copy. The Reader keeps ownership.
func (r *Reader) File() (*os.File, error) {
	if r.closed {
		return nil, ErrClosed
	}
	if f := r.nativeFile(); f != nil {
		return f, nil
	}
	return nil, fmt.Errorf("%w: %q is not backed by a plain local file", ErrUnsupportedOperation, r.name)
}

func (r *Reader) nativeFile() *os.File {
	if r.forceEmulated && r.state == stateTransparent {
		return nil
	}
	return r.h.file
}

// MaterializeLocal copies the rest of the content into a temporary local
// file and switches the reader to it. Afterwards the reader is neither
// compressed nor remote, seeks natively, and reports the copied length as
// its size and zero as its position. The previous transport and decoder are
// released. Calling it on a materialized reader does nothing.
//
// With a local cache configured, a copy that holds the whole content is
// handed to the cache instead of being deleted on Close.
func (r *Reader) MaterializeLocal() error {
	if r.closed {
		return ErrClosed
	}
	if r.state == stateMaterialized {
		return nil
	}
	whole := r.pos == 0

	tmp, err := os.CreateTemp(r.tempDir, "transread-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTempFile, err)
	}
	path := tmp.Name()

	n, err := r.copyTo(tmp)
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("%w: %q: %w", ErrTempFile, path, cerr)
	}
	if err != nil {
		os.Remove(path)
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("%w: reopening %q: %w", ErrTempFile, path, err)
	}

	if err := r.h.close(); err != nil {
		r.logger.Warn("releasing transport after local copy", zap.Error(err))
	}
	r.h.active, r.h.file = f, f
	if whole && r.cache != nil {
		r.cache.Add(r.name, path)
	} else {
		r.h.temp = path
	}

	r.state = stateMaterialized
	r.size = n
	r.pos = 0
	r.stats.IncCounter(stats.MetricMaterializedBytes, n)
	r.logger.Debug("materialized local copy", zap.String("path", path), zap.Int64("bytes", n), zap.Bool("cached", whole && r.cache != nil))
	return nil
}

func (r *Reader) copyTo(w io.Writer) (int64, error) {
	var total int64
	for {
		b, err := r.ReadN(copyChunkSize)
		if len(b) > 0 {
			if _, werr := w.Write(b); werr != nil {
				return total, fmt.Errorf("%w: %w", ErrTempFile, werr)
			}
			total += int64(len(b))
		}
		if err != nil {
			return total, err
		}
		if len(b) < copyChunkSize {
			return total, nil
		}
	}
}

// Close releases the decoder, the raw source, any child process, and any
// local copy not owned by a cache. A child process is waited on after its
// output pipe is closed. Close is idempotent.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.cleanup.Stop()

	err := r.h.close()
	r.logger.Debug("closed", zap.Int64("pos", r.pos), zap.Error(err))
	if err != nil {
		return fmt.Errorf("closing %q: %w", r.name, err)
	}
	return nil
}
