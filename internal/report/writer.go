package report

import (
	"io"

	"github.com/nao1215/perfumeharvest/internal/model"
)

// Writer defines the interface for report output.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files or stdout with the same
// API.
type Writer interface {
	// Write outputs the report of one site.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.RunReport) (int, error)

	// WriteBatch outputs the reports of a batch, preceded by totals.
	WriteBatch(reports []*model.RunReport) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *model.RunReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteBatch outputs the batch to all configured Writers.
func (m *MultiWriter) WriteBatch(reports []*model.RunReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteBatch(reports)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// Totals sums up the reports of a batch.
type Totals struct {
	Sites           int `json:"sites"`
	ListingPages    int `json:"listing_pages"`
	Discovered      int `json:"discovered"`
	Scraped         int `json:"scraped"`
	FailedListings  int `json:"failed_listings"`
	FailedProducts  int `json:"failed_products"`
	CanceledSites   int `json:"canceled_sites"`
	SitesWithErrors int `json:"sites_with_errors"`
}

// Summarize computes the totals of reports. Nil reports are skipped.
func Summarize(reports []*model.RunReport) Totals {
	var t Totals
	for _, r := range reports {
		if r == nil {
			continue
		}
		t.Sites++
		t.ListingPages += r.ListingPagesVisited
		t.Discovered += len(r.DiscoveredProductURLs)
		t.Scraped += r.ScrapedCount
		t.FailedListings += len(r.FailedListingURLs)
		t.FailedProducts += len(r.FailedProductURLs)
		if r.Canceled {
			t.CanceledSites++
		}
		if r.Error != "" {
			t.SitesWithErrors++
		}
	}
	return t
}

// status returns a one-word state of the run.
func status(report *model.RunReport) string {
	switch {
	case report.Canceled:
		return "canceled"
	case report.Error != "":
		return "error"
	case len(report.Failures) > 0:
		return "partial"
	default:
		return "complete"
	}
}

// sortedKinds returns the failure kinds of report with their counts, in the
// order the kinds are declared.
func sortedKinds(report *model.RunReport) []kindCount {
	counts := report.FailuresByKind()
	kinds := []model.FailureKind{
		model.FailureTransport,
		model.FailureHTTPStatus,
		model.FailureAccessDenied,
		model.FailureIdentity,
		model.FailureValidation,
		model.FailureStore,
		model.FailureCanceled,
		model.FailureOther,
	}

	out := make([]kindCount, 0, len(counts))
	for _, k := range kinds {
		if n := counts[k]; n > 0 {
			out = append(out, kindCount{kind: k, count: n})
		}
	}
	return out
}

type kindCount struct {
	kind  model.FailureKind
	count int
}

// truncateString truncates a string to maxLen bytes with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
