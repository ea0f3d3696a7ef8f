package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/discochess/transread"
)

var catCmd = &cobra.Command{
	Use:   "cat NAME",
	Short: "Write the decompressed content of a resource to stdout",
	Long: `Write the decompressed content of a resource to stdout.

--offset skips forward by reading and discarding, so it works on every
transport. --length limits how many bytes are written.

Examples:
  transread cat image.bz2 > image
  transread cat http://host/image.gz --offset 4096 --length 512 | xxd`,
	Args: cobra.ExactArgs(1),
	RunE: runCat,
}

var (
	catOffset int64
	catLength int64
)

func init() {
	catCmd.Flags().Int64Var(&catOffset, "offset", 0, "start writing at this offset of the decompressed content")
	catCmd.Flags().Int64Var(&catLength, "length", -1, "write at most this many bytes (-1 for all)")
	rootCmd.AddCommand(catCmd)
}

func runCat(cmd *cobra.Command, args []string) error {
	if catOffset < 0 {
		return fmt.Errorf("--offset must not be negative")
	}

	opener, done, err := newOpener()
	if err != nil {
		return err
	}
	defer done()

	r, err := opener.Open(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer r.Close()

	if catOffset > 0 {
		pos, err := r.Seek(catOffset, io.SeekStart)
		if err != nil {
			return err
		}
		if size := r.Size(); size != transread.SizeUnknown && pos > size {
			pos = size
		}
		if pos < catOffset {
			return fmt.Errorf("offset %d is past the end of %q (%d bytes)", catOffset, args[0], pos)
		}
	}

	var src io.Reader = r
	if catLength >= 0 {
		src = io.LimitReader(r, catLength)
	}
	if _, err := io.Copy(cmd.OutOrStdout(), src); err != nil {
		return fmt.Errorf("writing %q: %w", args[0], err)
	}
	return r.Close()
}
