package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/perfumeharvest/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Mermaid charts and GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter

	// maxFailures caps the rows of the failure table.
	maxFailures int
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithMaxFailures caps the failure table at n rows. Zero or less lists all.
func WithMaxFailures(n int) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.maxFailures = n
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter:  newBaseWriter(output),
		maxFailures: 50,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs one run report in Markdown format.
func (w *MarkdownWriter) Write(report *model.RunReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Perfume Harvest Report: " + report.Site)
	md.PlainText("")
	w.writeRun(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteBatch outputs the totals of a batch and a section per site.
func (w *MarkdownWriter) WriteBatch(reports []*model.RunReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Perfume Harvest Batch Report")
	md.PlainText("")

	t := Summarize(reports)
	md.Table(markdown.TableSet{
		Header: []string{"Site", "Status", "Discovered", "Scraped", "Failed Products", "Failed Listings"},
		Rows:   batchRows(reports, t),
	})
	md.PlainText("")

	if t.Discovered > 0 {
		w.writePieChart(md, "All Sites", t.Scraped, t.FailedProducts)
	}

	for _, report := range reports {
		if report == nil {
			continue
		}
		md.H2(report.Site)
		md.PlainText("")
		w.writeRun(md, report)
	}

	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func batchRows(reports []*model.RunReport, t Totals) [][]string {
	rows := make([][]string, 0, len(reports)+1)
	for _, r := range reports {
		if r == nil {
			continue
		}
		rows = append(rows, []string{
			r.Site,
			status(r),
			strconv.Itoa(len(r.DiscoveredProductURLs)),
			strconv.Itoa(r.ScrapedCount),
			strconv.Itoa(len(r.FailedProductURLs)),
			strconv.Itoa(len(r.FailedListingURLs)),
		})
	}
	rows = append(rows, []string{
		"**Total**",
		"",
		"**" + strconv.Itoa(t.Discovered) + "**",
		"**" + strconv.Itoa(t.Scraped) + "**",
		"**" + strconv.Itoa(t.FailedProducts) + "**",
		"**" + strconv.Itoa(t.FailedListings) + "**",
	})
	return rows
}

// writeRun writes the summary table, chart, alert and failures of a run.
func (w *MarkdownWriter) writeRun(md *markdown.Markdown, report *model.RunReport) {
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Base URL", "`" + report.BaseURL + "`"},
			{"Run ID", "`" + report.RunID + "`"},
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", report.Duration().String()},
			{"Listing Pages", strconv.Itoa(report.ListingPagesVisited)},
			{"Discovered", strconv.Itoa(len(report.DiscoveredProductURLs))},
			{"Scraped", strconv.Itoa(report.ScrapedCount)},
			{"Success Rate", strconv.FormatFloat(report.SuccessRate()*100, 'f', 1, 64) + "%"},
			{"Status", w.getStatusText(report)},
		},
	})
	md.PlainText("")

	if len(report.DiscoveredProductURLs) > 0 {
		w.writePieChart(md, report.Site, report.ScrapedCount, len(report.FailedProductURLs))
	}

	w.writeAlert(md, report)
	w.writeFailures(md, report)
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.RunReport) string {
	switch {
	case report.Canceled:
		return "⚠️ Canceled (partial results)"
	case report.Error != "":
		return "❌ Error - " + report.Error
	default:
		return "✅ Complete"
	}
}

// writePieChart writes a mermaid pie chart of scraped and failed products.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, title string, scraped, failed int) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Products of "+title),
		piechart.WithShowData(true),
	)

	if scraped > 0 {
		chart.LabelAndIntValue("Scraped", uint64(scraped))
	}
	if failed > 0 {
		chart.LabelAndIntValue("Failed", uint64(failed))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert matching how the run went.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.RunReport) {
	failed := len(report.FailedListingURLs) + len(report.FailedProductURLs)

	switch {
	case report.Error != "" && !report.Canceled:
		md.Cautionf("The run ended with an error: %s", report.Error)
	case report.Canceled:
		md.Warningf("The run was canceled after %d of %d products.",
			report.ScrapedCount, len(report.DiscoveredProductURLs))
	case len(report.FailedListingURLs) > 0:
		md.Importantf("%d listing page(s) failed, so products may be missing.", len(report.FailedListingURLs))
	case failed > 0:
		md.Note(strconv.Itoa(failed) + " product page(s) could not be harvested.")
	default:
		md.Tip("Every discovered product was harvested.")
	}
	md.PlainText("")
}

// writeFailures writes failure counts per kind and a failure table.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, report *model.RunReport) {
	if len(report.Failures) == 0 {
		return
	}

	md.PlainText("### Failures")
	md.PlainText("")

	kinds := sortedKinds(report)
	items := make([]string, len(kinds))
	for i, kc := range kinds {
		items[i] = kc.kind.String() + ": " + strconv.Itoa(kc.count)
	}
	md.BulletList(items...)
	md.PlainText("")

	failures := report.Failures
	if w.maxFailures > 0 && len(failures) > w.maxFailures {
		failures = failures[:w.maxFailures]
	}

	rows := make([][]string, len(failures))
	for i, f := range failures {
		code := "-"
		if f.StatusCode != 0 {
			code = strconv.Itoa(f.StatusCode)
		}
		rows[i] = []string{
			truncateString(f.URL, 60),
			f.Phase.String(),
			f.Kind.String(),
			code,
			truncateString(f.Message, 60),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Phase", "Kind", "Status", "Message"},
		Rows:   rows,
	})
	md.PlainText("")

	if hidden := len(report.Failures) - len(failures); hidden > 0 {
		md.Details("More failures", strconv.Itoa(hidden)+" further failure(s) are in the JSON report.")
		md.PlainText("")
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [PerfumeHarvest](https://github.com/nao1215/perfumeharvest)*")
}
