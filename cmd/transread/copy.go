package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/discochess/transread"
)

var copyCmd = &cobra.Command{
	Use:   "copy NAME DEST",
	Short: "Copy the decompressed content of a resource to a local file",
	Long: `Materialize a resource into a local temporary file, then copy it to
DEST. DEST is only created once the whole resource has been transferred.`,
	Args: cobra.ExactArgs(2),
	RunE: runCopy,
}

func init() {
	rootCmd.AddCommand(copyCmd)
}

func runCopy(cmd *cobra.Command, args []string) error {
	name, dest := args[0], args[1]

	opener, done, err := newOpener(transread.WithLocalCopy())
	if err != nil {
		return err
	}
	defer done()

	r, err := opener.Open(cmd.Context(), name)
	if err != nil {
		return err
	}
	defer r.Close()

	src, err := r.File()
	if err != nil {
		return err
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating %q: %w", dest, err)
	}
	n, err := io.Copy(out, src)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dest)
		return fmt.Errorf("writing %q: %w", dest, err)
	}

	if verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "copied %s to %s\n", formatBytes(n), dest)
	}
	return nil
}
