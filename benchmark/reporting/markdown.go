// Package reporting writes benchmark reports.
package reporting

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/discochess/transread/benchmark/analysis"
	"github.com/discochess/transread/benchmark/throughput"
)

// MarkdownReport writes benchmark reports in Markdown format.
type MarkdownReport struct {
	w io.Writer
}

// NewMarkdownReport creates a new Markdown report writer.
func NewMarkdownReport(w io.Writer) *MarkdownReport {
	return &MarkdownReport{w: w}
}

// WriteHeader writes the report header.
func (r *MarkdownReport) WriteHeader(title string) {
	fmt.Fprintf(r.w, "# %s\n\n", title)
	fmt.Fprintf(r.w, "Generated: %s\n\n", time.Now().Format(time.RFC3339))
}

// WriteMethodology writes the methodology section.
func (r *MarkdownReport) WriteMethodology(input string, runs int) {
	fmt.Fprintln(r.w, "## Methodology")
	fmt.Fprintln(r.w)
	fmt.Fprintf(r.w, "- **Input:** `%s`\n", input)
	fmt.Fprintf(r.w, "- **Runs per chunk size:** %d\n", runs)
	fmt.Fprintln(r.w, "- **Metric:** Decoded MB/s reading to the end (higher is better)")
	fmt.Fprintln(r.w, "- **Effect size:** Cohen's d against the smallest chunk size")
	fmt.Fprintln(r.w)
}

// WriteSummaryTable writes one row per chunk size.
func (r *MarkdownReport) WriteSummaryTable(results []*throughput.Result) {
	fmt.Fprintln(r.w, "## Summary")
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, "| Chunk Size | Decoded Bytes | Mean MB/s | Median MB/s | Std Dev | Peak Buffered |")
	fmt.Fprintln(r.w, "|------------|---------------|-----------|-------------|---------|---------------|")

	for _, res := range results {
		s := analysis.Describe(res.MBPerSecond)
		fmt.Fprintf(r.w, "| %d | %d | %.2f | %.2f | %.2f | %d |\n",
			res.ChunkSize, res.Bytes, s.Mean, s.Median, s.StdDev, res.PeakBuffered)
	}
	fmt.Fprintln(r.w)
}

// WriteComparison writes a detailed comparison section.
func (r *MarkdownReport) WriteComparison(comp *analysis.Comparison) {
	fmt.Fprintf(r.w, "## %s vs %s\n\n", comp.Baseline, comp.Candidate)

	fmt.Fprintln(r.w, "| Metric | "+comp.Baseline+" | "+comp.Candidate+" |")
	fmt.Fprintln(r.w, "|--------|"+strings.Repeat("-", len(comp.Baseline)+2)+"|"+strings.Repeat("-", len(comp.Candidate)+2)+"|")
	fmt.Fprintf(r.w, "| Mean | %.2f | %.2f |\n", comp.Stats1.Mean, comp.Stats2.Mean)
	fmt.Fprintf(r.w, "| Median | %.2f | %.2f |\n", comp.Stats1.Median, comp.Stats2.Median)
	fmt.Fprintf(r.w, "| P90 | %.2f | %.2f |\n", comp.Stats1.P90, comp.Stats2.P90)
	fmt.Fprintf(r.w, "| Std Dev | %.2f | %.2f |\n", comp.Stats1.StdDev, comp.Stats2.StdDev)
	fmt.Fprintln(r.w)

	fmt.Fprintf(r.w, "%s.\n\n", comp.Summary())
}

// WriteFooter writes the report footer.
func (r *MarkdownReport) WriteFooter() {
	fmt.Fprintln(r.w, "---")
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, "*Report generated by transread-bench*")
}
