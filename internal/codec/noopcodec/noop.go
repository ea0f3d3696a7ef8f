// Package noopcodec passes data through unchanged. Chunked readers built
// without a codec use it.
package noopcodec

import (
	"io"

	"github.com/discochess/transread/internal/codec"
)

var _ codec.Codec = (*Codec)(nil)

// Codec copies bytes through without compression.
type Codec struct{}

// New returns a pass-through codec.
func New() *Codec {
	return &Codec{}
}

// Reader returns r unchanged. Closing the result never closes r; the raw
// source belongs to its transport.
func (c *Codec) Reader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}

// Writer returns w. Closing the result never closes w.
func (c *Codec) Writer(w io.Writer) (io.WriteCloser, error) {
	return nopWriteCloser{w}, nil
}

// Extension returns "", the suffix of uncompressed data.
func (c *Codec) Extension() string {
	return ""
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
