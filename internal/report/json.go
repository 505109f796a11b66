package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/a11yscan/internal/model"
)

// JSONWriter outputs scan results in JSON format.
// scan.json is written with it, so the output is the plain ScanResult.
//
// Design decision: We use standard encoding/json rather than a third-party
// JSON library because:
// 1. It's part of the standard library (no extra dependencies)
// 2. The model types carry their own json tags and text marshalers
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
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

// WithPrettyPrint enables pretty-printed JSON with two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
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

// Write outputs the scan result in JSON format.
func (w *JSONWriter) Write(result *model.ScanResult) (int, error) {
	return w.writeJSON(result)
}

// WriteAudit outputs the norm audit in JSON format.
func (w *JSONWriter) WriteAudit(audit *model.NormAudit) (int, error) {
	return w.writeJSON(audit)
}

// writeJSON marshals v and writes it with a trailing newline.
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

	data = append(data, '\n')
	return w.output.Write(data)
}

// JSONReport wraps a scan result with tool metadata for stdout output.
//
// Design decision: We wrap the result rather than adding fields to
// ScanResult so scan.json stays the plain result that `norms audit` and
// the history store read back.
type JSONReport struct {
	// Version is the a11yscan version that generated this report.
	Version string `json:"version"`

	// Score and Totals repeat the summary for quick access.
	Score  int          `json:"score"`
	Totals model.Totals `json:"totals"`

	// Rules counts findings per rule id.
	Rules []model.RuleCount `json:"rules"`

	// Result is the full scan result.
	Result *model.ScanResult `json:"result"`
}

// NewJSONReport creates a JSONReport wrapper with version information.
func NewJSONReport(result *model.ScanResult, version string) *JSONReport {
	r := &JSONReport{
		Version: version,
		Rules:   result.RuleCounts(),
		Result:  result,
	}
	if result.Summary != nil {
		r.Score = result.Summary.Score
		r.Totals = result.Summary.Totals
	}
	return r
}

// FullJSONWriter outputs scan results with the metadata wrapper.
type FullJSONWriter struct {
	*JSONWriter

	// version is the a11yscan version string.
	version string
}

// NewFullJSONWriter creates a writer for wrapped results.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs the scan result wrapped with metadata.
func (w *FullJSONWriter) Write(result *model.ScanResult) (int, error) {
	return w.writeJSON(NewJSONReport(result, w.version))
}
