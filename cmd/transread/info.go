package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/discochess/transread"
)

var infoCmd = &cobra.Command{
	Use:   "info NAME",
	Short: "Show how a resource is read",
	Long: `Show the detected format, whether the resource is compressed or
remote, and its declared size. Opening a resource runs the same transport
checks as reading it, so info also verifies that it is reachable.`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
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

	size := "unknown"
	if r.Size() != transread.SizeUnknown {
		size = fmt.Sprintf("%s (%d bytes)", formatBytes(r.Size()), r.Size())
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Name:       %s\n", r.Name())
	fmt.Fprintf(out, "Format:     %s\n", r.Format())
	fmt.Fprintf(out, "Compressed: %t\n", r.Compressed())
	fmt.Fprintf(out, "Remote:     %t\n", r.Remote())
	fmt.Fprintf(out, "Size:       %s\n", size)
	return nil
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
