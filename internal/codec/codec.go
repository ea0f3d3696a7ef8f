// Package codec provides the decompression primitives used by transread.
package codec

import "io"

// Codec provides compression and decompression functionality.
type Codec interface {
	// Reader wraps r to decompress data read from it. Implementations that
	// parse a stream header do so here, so a malformed header fails early.
	Reader(r io.Reader) (io.ReadCloser, error)
	// Writer wraps w to compress data written to it.
	Writer(w io.Writer) (io.WriteCloser, error)
	// Extension returns the file extension without dot (e.g., "bz2", "gz").
	// Returns empty string for no compression.
	Extension() string
}
