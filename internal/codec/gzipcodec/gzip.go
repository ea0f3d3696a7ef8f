// Package gzipcodec provides a gzip compression codec.
package gzipcodec

import (
	"bufio"
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/discochess/transread/internal/codec"
)

// Compile-time check that Codec implements codec.Codec.
var _ codec.Codec = (*Codec)(nil)

var gzipMagic = []byte{0x1f, 0x8b}

// Codec implements gzip compression. Concatenated gzip members are read as
// one stream. Bytes after the last member that do not start another member,
// such as zero padding to a block boundary, end the stream cleanly.
type Codec struct{}

// New returns a new gzip codec.
func New() *Codec {
	return &Codec{}
}

// Reader wraps r to decompress gzip data. The first member's header is read
// here.
func (c *Codec) Reader(r io.Reader) (io.ReadCloser, error) {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	z, err := gzip.NewReader(br)
	if err != nil {
		return nil, err
	}
	z.Multistream(false)
	return &memberReader{br: br, z: z}, nil
}

// Writer wraps w to compress data with gzip.
func (c *Codec) Writer(w io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriter(w), nil
}

// Extension returns "gz".
func (c *Codec) Extension() string {
	return "gz"
}

// memberReader decodes one gzip member at a time and moves to the next
// only when the following bytes carry the gzip magic.
type memberReader struct {
	br  *bufio.Reader
	z   *gzip.Reader
	eof bool
}

func (m *memberReader) Read(p []byte) (int, error) {
	for !m.eof {
		n, err := m.z.Read(p)
		if err != io.EOF {
			return n, err
		}
		more, err := m.nextMember()
		if err != nil {
			return n, err
		}
		m.eof = !more
		if n > 0 {
			return n, nil
		}
	}
	return 0, io.EOF
}

// nextMember starts the next member if one follows.
func (m *memberReader) nextMember() (bool, error) {
	head, err := m.br.Peek(len(gzipMagic))
	if err == io.EOF || (err == nil && !bytes.Equal(head, gzipMagic)) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := m.z.Reset(m.br); err != nil {
		return false, err
	}
	m.z.Multistream(false)
	return true, nil
}

func (m *memberReader) Close() error {
	return m.z.Close()
}
