// Package chunked decompresses a stream incrementally in bounded steps.
//
// A Reader pulls at most one chunk of decompressed output from its decoder
// per step and keeps any surplus beyond what the caller asked for in an
// internal buffer. The buffer never holds more than one chunk, so the chunk
// size caps memory use however well the input compresses. The same size
// also caps every read from the raw source.
package chunked

import (
	"fmt"
	"io"

	"github.com/discochess/transread/internal/codec"
	"github.com/discochess/transread/internal/codec/noopcodec"
	"github.com/discochess/transread/internal/seek"
	"github.com/discochess/transread/internal/stats"
)

const (
	// DefaultChunkSize is the step size for most formats.
	DefaultChunkSize = 128 * 1024

	// Bzip2ChunkSize is the step size for bzip2, whose expansion ratio on
	// degenerate input is far higher than gzip's.
	Bzip2ChunkSize = 128
)

// Compile-time check that Reader implements io.ReadSeekCloser.
var _ io.ReadSeekCloser = (*Reader)(nil)

// Reader is a forward-only, buffered, decompressing reader.
// It is not safe for concurrent use.
type Reader struct {
	dec       io.ReadCloser
	chunkSize int
	stats     stats.Collector

	step   []byte // scratch for one decoder step; buf may alias it
	buf    []byte
	bufPos int
	peak   int

	pos int64
	eof bool
	err error
}

// Option configures a Reader.
type Option func(*Reader)

// WithChunkSize sets the step size. Values below one are ignored.
func WithChunkSize(n int) Option {
	return func(r *Reader) {
		if n > 0 {
			r.chunkSize = n
		}
	}
}

// WithStats sets the collector that receives the peak buffer gauge.
func WithStats(c stats.Collector) Option {
	return func(r *Reader) {
		if c != nil {
			r.stats = c
		}
	}
}

// New returns a Reader decompressing src with c. A nil codec passes bytes
// through unchanged. The Reader does not close src.
func New(src io.Reader, c codec.Codec, opts ...Option) (*Reader, error) {
	r := &Reader{
		chunkSize: DefaultChunkSize,
		stats:     stats.NewNoop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if c == nil {
		c = noopcodec.New()
	}

	dec, err := c.Reader(&limitedReads{r: src, max: r.chunkSize})
	if err != nil {
		return nil, err
	}
	r.dec = dec
	r.step = make([]byte, r.chunkSize)
	return r, nil
}

// ReadN returns up to n bytes of decompressed data. A negative n reads to
// the end of the stream. A result shorter than n means the stream is
// exhausted; an empty result means it was already exhausted. The error is
// non-nil only when decoding fails.
func (r *Reader) ReadN(n int) ([]byte, error) {
	if n < 0 {
		var out []byte
		for {
			before := len(out)
			var err error
			out, err = r.appendN(out, r.chunkSize)
			if err != nil {
				return out, err
			}
			if len(out) == before {
				return out, nil
			}
		}
	}
	return r.appendN(make([]byte, 0, min(n, r.chunkSize)), n)
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	out, err := r.appendN(p[:0], len(p))
	if err != nil {
		return len(out), err
	}
	if len(out) == 0 {
		return 0, io.EOF
	}
	return len(out), nil
}

// Seek moves forward by reading and discarding decompressed data.
// Only io.SeekStart and io.SeekCurrent are supported.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	pos, err := seek.Forward(r, r.pos, offset, whence)
	r.pos = pos
	return pos, err
}

// Tell returns the number of decompressed bytes consumed so far.
func (r *Reader) Tell() int64 {
	return r.pos
}

// PeakBuffered returns the largest surplus the Reader has held.
func (r *Reader) PeakBuffered() int {
	return r.peak
}

// Close releases the decoder. It does not close the raw source.
func (r *Reader) Close() error {
	if r.dec == nil {
		return nil
	}
	err := r.dec.Close()
	r.dec = nil
	r.buf, r.step = nil, nil
	r.eof = true
	return err
}

// appendN appends up to n decompressed bytes to dst.
func (r *Reader) appendN(dst []byte, n int) ([]byte, error) {
	if r.err != nil {
		return dst, r.err
	}
	if r.dec == nil {
		return dst, io.ErrClosedPipe
	}
	start := len(dst)

	dst = r.appendBuffered(dst, n)
	for len(dst)-start < n && !r.eof {
		m, err := r.dec.Read(r.step)
		if err == io.EOF {
			r.eof = true
		} else if err != nil {
			r.err = fmt.Errorf("decompressing: %w", err)
		}

		// A step may legitimately yield nothing while the decoder consumes
		// framing or padding.
		if m > 0 {
			want := n - (len(dst) - start)
			if m >= want {
				r.buf, r.bufPos = r.step[:m], 0
				r.notePeak(m - want)
				dst = r.appendBuffered(dst, want)
			} else {
				dst = append(dst, r.step[:m]...)
			}
		}

		if r.err != nil {
			break
		}
	}

	r.pos += int64(len(dst) - start)
	return dst, r.err
}

// appendBuffered moves up to n buffered bytes to dst and resets the buffer
// once it is drained.
func (r *Reader) appendBuffered(dst []byte, n int) []byte {
	avail := len(r.buf) - r.bufPos
	if avail == 0 {
		return dst
	}
	take := min(avail, n)
	dst = append(dst, r.buf[r.bufPos:r.bufPos+take]...)
	r.bufPos += take
	if r.bufPos == len(r.buf) {
		r.buf, r.bufPos = nil, 0
	}
	return dst
}

func (r *Reader) notePeak(surplus int) {
	if surplus > r.peak {
		r.peak = surplus
		r.stats.SetGauge(stats.MetricChunkBufferPeak, int64(surplus))
	}
}

// limitedReads caps the size of every read from the raw source.
type limitedReads struct {
	r   io.Reader
	max int
}

func (l *limitedReads) Read(p []byte) (int, error) {
	if len(p) > l.max {
		p = p[:l.max]
	}
	return l.r.Read(p)
}
