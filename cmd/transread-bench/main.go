// Package main provides the transread-bench CLI tool for measuring
// decoding throughput across decompression chunk sizes.
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/discochess/transread"
	"github.com/discochess/transread/benchmark/analysis"
	"github.com/discochess/transread/benchmark/reporting"
	"github.com/discochess/transread/benchmark/throughput"
)

var (
	input        string
	chunkSizes   []int
	runs         int
	outputFormat string
	outputFile   string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "transread-bench",
	Short: "Benchmark decompression chunk sizes for transread",
	Long: `transread-bench reads one resource to the end repeatedly with each
decompression chunk size and reports decoded throughput and the peak
decompressed surplus held in memory.

Examples:
  # Compare the default chunk sizes
  transread-bench run --input disk.img.bz2

  # Compare specific chunk sizes over HTTP
  transread-bench run --input https://example.com/disk.img.gz --chunk-sizes 4096,1048576

  # Output as markdown report
  transread-bench run --input disk.img.xz --format markdown --output report.md`,
}

var runCmd = &cobra.Command{
	Use:          "run",
	Short:        "Run the benchmark",
	SilenceUsage: true,
	RunE:         runBenchmark,
}

func init() {
	runCmd.Flags().StringVarP(&input, "input", "i", "", "resource to read (path or URL)")
	runCmd.Flags().IntSliceVarP(&chunkSizes, "chunk-sizes", "c", []int{16 * 1024, 128 * 1024, 1024 * 1024}, "chunk sizes to compare")
	runCmd.Flags().IntVarP(&runs, "runs", "n", 5, "runs per chunk size")
	runCmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "output format: text, markdown")
	runCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	runCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	runCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	if len(chunkSizes) == 0 {
		return fmt.Errorf("no chunk sizes given")
	}

	logger := zap.NewNop()
	if verbose {
		var err error
		if logger, err = zap.NewDevelopment(); err != nil {
			return fmt.Errorf("creating logger: %w", err)
		}
		defer logger.Sync()
	}

	runner := throughput.NewRunner(input, runs, transread.WithLogger(logger))
	results, err := runner.Run(cmd.Context(), chunkSizes)
	if err != nil {
		return err
	}

	var comparisons []*analysis.Comparison
	for _, res := range results[1:] {
		comparisons = append(comparisons, analysis.Compare(
			strconv.Itoa(results[0].ChunkSize), results[0].MBPerSecond,
			strconv.Itoa(res.ChunkSize), res.MBPerSecond,
		))
	}

	output := cmd.OutOrStdout()
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	switch outputFormat {
	case "markdown":
		writeMarkdownReport(output, results, comparisons)
	default:
		writeTextReport(output, results, comparisons)
	}
	return nil
}

func writeTextReport(w io.Writer, results []*throughput.Result, comps []*analysis.Comparison) {
	fmt.Fprintf(w, "Transread Chunk Size Benchmark\n")
	fmt.Fprintf(w, "==============================\n\n")
	fmt.Fprintf(w, "Input: %s\n", input)
	fmt.Fprintf(w, "Runs:  %d\n\n", runs)

	for _, res := range results {
		s := analysis.Describe(res.MBPerSecond)
		fmt.Fprintf(w, "chunk size %d:\n", res.ChunkSize)
		fmt.Fprintf(w, "  Decoded bytes:  %d\n", res.Bytes)
		fmt.Fprintf(w, "  Mean MB/s:      %.2f\n", s.Mean)
		fmt.Fprintf(w, "  Median MB/s:    %.2f\n", s.Median)
		fmt.Fprintf(w, "  Std dev:        %.2f\n", s.StdDev)
		fmt.Fprintf(w, "  Peak buffered:  %d\n\n", res.PeakBuffered)
	}

	for _, c := range comps {
		fmt.Fprintln(w, c.Summary())
	}
}

func writeMarkdownReport(w io.Writer, results []*throughput.Result, comps []*analysis.Comparison) {
	report := reporting.NewMarkdownReport(w)
	report.WriteHeader("Transread Chunk Size Benchmark")
	report.WriteMethodology(input, runs)
	report.WriteSummaryTable(results)
	for _, c := range comps {
		report.WriteComparison(c)
	}
	report.WriteFooter()
}
