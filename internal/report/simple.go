package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/perfumeharvest/internal/model"
)

// SimpleWriter outputs human-readable text reports.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with nothing to list are shown.
	showEmpty bool

	// verbose lists every failure instead of the counts per kind.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables the failure listing.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs one run report.
func (w *SimpleWriter) Write(report *model.RunReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, "PERFUME HARVEST REPORT")
	w.writeRun(&sb, report)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

// WriteBatch outputs the totals followed by every site.
func (w *SimpleWriter) WriteBatch(reports []*model.RunReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, "PERFUME HARVEST BATCH REPORT")

	t := Summarize(reports)
	fmt.Fprintf(&sb, "Sites:          %d\n", t.Sites)
	fmt.Fprintf(&sb, "Scraped:        %d of %d discovered\n", t.Scraped, t.Discovered)
	fmt.Fprintf(&sb, "Failed:         %d listing, %d product\n", t.FailedListings, t.FailedProducts)
	if t.CanceledSites > 0 {
		fmt.Fprintf(&sb, "Canceled:       %d site(s)\n", t.CanceledSites)
	}
	sb.WriteString("\n")

	for _, report := range reports {
		if report == nil {
			continue
		}
		w.writeRun(&sb, report)
	}
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, title string) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "%*s\n", 35+len(title)/2, title)
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")
}

// writeRun writes the summary and failures of one site.
func (w *SimpleWriter) writeRun(sb *strings.Builder, report *model.RunReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "SITE %s\n", report.Site)
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Base URL:       %s\n", report.BaseURL)
	fmt.Fprintf(sb, "Run ID:         %s\n", report.RunID)
	fmt.Fprintf(sb, "Started:        %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Duration:       %s\n", report.Duration())
	fmt.Fprintf(sb, "Listing Pages:  %d\n", report.ListingPagesVisited)
	fmt.Fprintf(sb, "Discovered:     %d\n", len(report.DiscoveredProductURLs))
	fmt.Fprintf(sb, "Scraped:        %d\n", report.ScrapedCount)
	fmt.Fprintf(sb, "Success Rate:   %.1f%%\n", report.SuccessRate()*100)

	switch {
	case report.Canceled:
		sb.WriteString("Status:         CANCELED (partial results)\n")
	case report.Error != "":
		fmt.Fprintf(sb, "Status:         ERROR - %s\n", report.Error)
	default:
		sb.WriteString("Status:         Complete\n")
	}
	sb.WriteString("\n")

	w.writeFailures(sb, report)
}

// writeFailures writes failure counts per kind, and every failure when
// verbose.
func (w *SimpleWriter) writeFailures(sb *strings.Builder, report *model.RunReport) {
	if len(report.Failures) == 0 {
		if w.showEmpty {
			sb.WriteString("FAILURES\n  None\n\n")
		}
		return
	}

	sb.WriteString("FAILURES\n")
	for _, kc := range sortedKinds(report) {
		fmt.Fprintf(sb, "  %-14s %d\n", kc.kind.String()+":", kc.count)
	}
	sb.WriteString("\n")

	if !w.verbose {
		return
	}

	for _, f := range report.Failures {
		fmt.Fprintf(sb, "  [%s] %s\n", f.Phase, f.URL)
		if f.StatusCode != 0 {
			fmt.Fprintf(sb, "    Status: %d\n", f.StatusCode)
		}
		if f.Message != "" {
			fmt.Fprintf(sb, "    Reason: %s\n", f.Message)
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by PerfumeHarvest\n")
	sb.WriteString("https://github.com/nao1215/perfumeharvest\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
