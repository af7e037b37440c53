package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/perfumeharvest/internal/model"
)

// JSONWriter outputs reports in JSON format.
// This format is designed for tool integration and programmatic processing.
//
// Design decision: We use standard encoding/json rather than a third-party
// JSON library because:
// 1. The model types carry json tags already
// 2. Reports are written once per run, so encoding speed does not matter
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	indentPrefix string
	indentString string

	// version is stamped into batch output when set.
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion sets the version written into batch output.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the run report as a JSON object.
func (w *JSONWriter) Write(report *model.RunReport) (int, error) {
	return w.writeJSON(report)
}

// WriteBatch outputs the reports wrapped in a BatchReport.
func (w *JSONWriter) WriteBatch(reports []*model.RunReport) (int, error) {
	return w.writeJSON(NewBatchReport(reports, w.version))
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}

// BatchReport is the JSON document of a multi-site run.
type BatchReport struct {
	// Version is the PerfumeHarvest version that generated this report.
	Version string `json:"version,omitempty"`

	Totals  Totals             `json:"totals"`
	Reports []*model.RunReport `json:"reports"`
}

// NewBatchReport creates a BatchReport. Nil reports are dropped.
func NewBatchReport(reports []*model.RunReport, version string) *BatchReport {
	kept := make([]*model.RunReport, 0, len(reports))
	for _, r := range reports {
		if r != nil {
			kept = append(kept, r)
		}
	}
	return &BatchReport{
		Version: version,
		Totals:  Summarize(kept),
		Reports: kept,
	}
}
