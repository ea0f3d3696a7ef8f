package format

import (
	"archive/tar"
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/discochess/transread/internal/chunked"
	"github.com/discochess/transread/internal/stats"
)

// ErrCorrupt is returned when a compressed or archived resource cannot be
// decoded from its header onwards.
var ErrCorrupt = errors.New("transread: unsupported or corrupt archive")

// sniffBufferSize is the smallest bufio buffer; larger reads bypass it, so
// raw reads stay bounded by the chunked reader's chunk size.
const sniffBufferSize = 16

// Config tunes the pipelines built by Open.
type Config struct {
	// ChunkSize is the step size for gzip, zstd, and xz streams.
	ChunkSize int
	// Bzip2ChunkSize is the step size for bzip2 streams.
	Bzip2ChunkSize int
	// Stats receives decompression metrics. May be nil.
	Stats stats.Collector
}

func (c Config) chunkSize(f Format) int {
	if f == Bzip2 {
		if c.Bzip2ChunkSize > 0 {
			return c.Bzip2ChunkSize
		}
		return chunked.Bzip2ChunkSize
	}
	if c.ChunkSize > 0 {
		return c.ChunkSize
	}
	return chunked.DefaultChunkSize
}

// Stream is the decoded view of a raw source.
type Stream struct {
	// Body yields the decoded bytes. Closing it releases decoder state only;
	// the raw source stays open unless PassThrough is set, in which case
	// Body is the raw source itself.
	Body io.ReadCloser
	// Format is the detected format.
	Format Format
	// Size is the declared size of the decoded data, or -1 when unknown.
	// Only tar members declare one.
	Size int64
	// PassThrough reports that no decoding takes place.
	PassThrough bool
}

// Open wires raw through the pipeline that name's suffix selects.
// On error nothing is closed; raw still belongs to the caller.
func Open(name string, raw io.ReadCloser, cfg Config) (*Stream, error) {
	f := Detect(name)
	switch f {
	case Plain:
		return &Stream{Body: raw, Format: Plain, Size: -1, PassThrough: true}, nil
	case Tar:
		return openTar(name, raw)
	default:
		return openCompressed(name, raw, f, cfg)
	}
}

func openCompressed(name string, raw io.Reader, f Format, cfg Config) (*Stream, error) {
	br := bufio.NewReaderSize(raw, sniffBufferSize)
	if _, err := br.Peek(1); err == io.EOF {
		// A zero-length file decodes to empty content.
		return &Stream{Body: io.NopCloser(br), Format: f, Size: 0}, nil
	}
	if !hasMagic(br, f) {
		return nil, fmt.Errorf("%w: %q is not a %s stream", ErrCorrupt, name, f)
	}

	r, err := chunked.New(br, streamCodec(f),
		chunked.WithChunkSize(cfg.chunkSize(f)),
		chunked.WithStats(cfg.Stats),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open %q: %w", ErrCorrupt, name, err)
	}
	return &Stream{Body: r, Format: f, Size: -1}, nil
}

func openTar(name string, raw io.Reader) (*Stream, error) {
	br := bufio.NewReaderSize(raw, sniffBufferSize)

	var (
		src io.Reader = br
		dec io.Closer
	)
	if inner := sniff(br); inner != Plain {
		rc, err := streamCodec(inner).Reader(br)
		if err != nil {
			return nil, fmt.Errorf("%w: cannot open %q: %w", ErrCorrupt, name, err)
		}
		src, dec = rc, rc
	}

	tr := tar.NewReader(src)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			closeQuietly(dec)
			return nil, fmt.Errorf("%w: %q has no regular file member", ErrCorrupt, name)
		}
		if err != nil {
			closeQuietly(dec)
			return nil, fmt.Errorf("%w: cannot open %q: %w", ErrCorrupt, name, err)
		}
		if hdr.Typeflag == tar.TypeReg {
			return &Stream{
				Body:   &member{Reader: tr, dec: dec},
				Format: Tar,
				Size:   hdr.Size,
			}, nil
		}
	}
}

// member exposes one tar entry and owns the archive's decoder.
type member struct {
	io.Reader
	dec io.Closer
}

func (m *member) Close() error {
	if m.dec == nil {
		return nil
	}
	err := m.dec.Close()
	m.dec = nil
	return err
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}
