package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/discochess/transread"
	"github.com/discochess/transread/internal/stats/logger"
)

var (
	// Global flags.
	tempDir string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "transread",
	Short: "Read local and remote files with transparent decompression",
	Long: `Transread reads a local file, an http(s):// URL, an ssh:// path, or an
s3:// or gs:// object as one byte stream, decompressing gzip, bzip2, zstd,
xz, and tar-wrapped resources on the fly.

Examples:
  # Stream a compressed image to stdout
  transread cat https://example.com/disk.img.bz2 > disk.img

  # Print 512 bytes at offset 1 MiB of a file on another host
  transread cat ssh://user@host/var/img.gz --offset 1048576 --length 512

  # Show what a resource is
  transread info archive.tar.gz`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&tempDir, "temp-dir", "", "directory for local copies (default: system temp dir)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

// newLogger returns a development logger under --verbose and a no-op
// logger otherwise.
func newLogger() (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	return log, nil
}

// newOpener builds an Opener from the global flags plus opts.
func newOpener(opts ...transread.Option) (*transread.Opener, func(), error) {
	log, err := newLogger()
	if err != nil {
		return nil, nil, err
	}

	base := []transread.Option{
		transread.WithLogger(log),
		transread.WithStats(logger.New(log.Named("stats"))),
		transread.WithTempDir(tempDir),
	}
	opener := transread.NewOpener(append(base, opts...)...)
	return opener, func() {
		opener.Close()
		_ = log.Sync()
	}, nil
}
