package analysis

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// reportSchemaVersion is incremented when the Report format changes.
const reportSchemaVersion uint16 = 1

var ErrReportSchema = errors.New("unsupported report schema")

// Report is the analysis result of one package.
type Report struct {
	Schema  uint16        `msgpack:"schema"`
	Package string        `msgpack:"package"`
	Digest  string        `msgpack:"digest,omitempty"`
	Routes  []RouteReport `msgpack:"routes"`
}

// RouteReport is the analysis result of one route pattern.
type RouteReport struct {
	// Pos is "file:line:column" of the host token.
	Pos         string             `msgpack:"pos"`
	Pattern     string             `msgpack:"pattern"`
	Usage       string             `msgpack:"usage"`
	Method      string             `msgpack:"method,omitempty"`
	Parameters  []string           `msgpack:"parameters,omitempty"`
	Diagnostics []ReportDiagnostic `msgpack:"diagnostics,omitempty"`
}

// ReportDiagnostic is a diagnostic flattened for reports.
type ReportDiagnostic struct {
	Code     string `msgpack:"code"`
	Severity string `msgpack:"severity"`
	Message  string `msgpack:"message"`

	// Pos is "file:line:column" of the diagnostic start.
	Pos string `msgpack:"pos"`

	// Start and End are byte offsets in the host token.
	Start int `msgpack:"start"`
	End   int `msgpack:"end"`
}

// NewReport creates an empty report for pkg.
func NewReport(pkg string) *Report {
	return &Report{Schema: reportSchemaVersion, Package: pkg}
}

// Count returns the number of diagnostics at or above threshold.
func (r *Report) Count(threshold Severity) int {
	n := 0
	for _, rt := range r.Routes {
		for _, d := range rt.Diagnostics {
			s, err := ParseSeverity(d.Severity)
			if err == nil && s >= threshold {
				n++
			}
		}
	}
	return n
}

// EncodeReport writes r in msgpack.
func EncodeReport(w io.Writer, r *Report) error {
	enc := msgpack.NewEncoder(w)
	return enc.Encode(r)
}

// DecodeReport reads a msgpack report.
func DecodeReport(rd io.Reader) (*Report, error) {
	var r Report
	if err := msgpack.NewDecoder(rd).Decode(&r); err != nil {
		return nil, err
	}
	if r.Schema != reportSchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrReportSchema, r.Schema)
	}
	return &r, nil
}

// MarshalReport returns r encoded in msgpack.
func MarshalReport(r *Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeReport(&buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalReport decodes a msgpack report.
func UnmarshalReport(b []byte) (*Report, error) {
	return DecodeReport(bytes.NewReader(b))
}
