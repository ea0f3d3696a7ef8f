// Package format classifies resources by name and builds the decompression
// pipeline for each class.
package format

import (
	"strings"

	"github.com/discochess/transread/internal/codec"
	"github.com/discochess/transread/internal/codec/bzip2codec"
	"github.com/discochess/transread/internal/codec/gzipcodec"
	"github.com/discochess/transread/internal/codec/xzcodec"
	"github.com/discochess/transread/internal/codec/zstdcodec"
)

// Format identifies how a resource's bytes are encoded.
type Format int

const (
	// Plain is uncompressed data.
	Plain Format = iota
	// Tar is a tar archive, optionally compressed; readers expose its
	// first regular member.
	Tar
	// Gzip is a gzip stream.
	Gzip
	// Bzip2 is a bzip2 stream.
	Bzip2
	// Zstd is a zstd stream.
	Zstd
	// XZ is an xz stream.
	XZ
)

// String returns a short lowercase name.
func (f Format) String() string {
	switch f {
	case Plain:
		return "plain"
	case Tar:
		return "tar"
	case Gzip:
		return "gzip"
	case Bzip2:
		return "bzip2"
	case Zstd:
		return "zstd"
	case XZ:
		return "xz"
	default:
		return "unknown"
	}
}

// Compressed reports whether f needs a decoder.
func (f Format) Compressed() bool {
	return f != Plain
}

// suffixes is checked in order; the first match wins. Matching is exact and
// case-sensitive, so tar suffixes must precede their bare counterparts.
var suffixes = []struct {
	suffix string
	format Format
}{
	{".tar.gz", Tar},
	{".tar.bz2", Tar},
	{".tgz", Tar},
	{".tar.zst", Tar},
	{".tar.xz", Tar},
	{".gz", Gzip},
	{".bz2", Bzip2},
	{".zst", Zstd},
	{".xz", XZ},
}

// SupportedCompressionTypes lists the recognized name suffixes without the
// leading dot.
var SupportedCompressionTypes = func() []string {
	types := make([]string, len(suffixes))
	for i, s := range suffixes {
		types[i] = strings.TrimPrefix(s.suffix, ".")
	}
	return types
}()

// Detect classifies a resource by the suffix of its name.
func Detect(name string) Format {
	for _, s := range suffixes {
		if strings.HasSuffix(name, s.suffix) {
			return s.format
		}
	}
	return Plain
}

// streamCodec returns the codec for a single-stream format.
func streamCodec(f Format) codec.Codec {
	switch f {
	case Gzip:
		return gzipcodec.New()
	case Bzip2:
		return bzip2codec.New()
	case Zstd:
		return zstdcodec.New()
	case XZ:
		return xzcodec.New()
	default:
		return nil
	}
}
