package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"github.com/romshark/routelint/analysis"
	"github.com/romshark/routelint/parser"
)

var (
	colorError   = color.New(color.FgRed, color.Bold)
	colorWarning = color.New(color.FgYellow, color.Bold)
	colorInfo    = color.New(color.FgCyan)
	colorPos     = color.New(color.Bold)
	colorCode    = color.New(color.Faint)
	colorGutter  = color.New(color.FgBlue)
	colorCaret   = color.New(color.FgGreen, color.Bold)
)

// printer renders results with the source line and a caret
// under the offending span.
type printer struct {
	w io.Writer

	// lines caches split source files by absolute path.
	lines map[string][]string
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w, lines: map[string][]string{}}
}

func severityColor(s analysis.Severity) *color.Color {
	switch s {
	case analysis.SevError:
		return colorError
	case analysis.SevWarning:
		return colorWarning
	}
	return colorInfo
}

func (pr *printer) result(r result) {
	for _, pe := range r.Errors {
		pos := "?"
		if pe.Pos.IsValid() {
			pos = fmt.Sprintf("%s:%d:%d", pe.Pos.Filename, pe.Pos.Line, pe.Pos.Column)
		}
		fmt.Fprintf(pr.w, "%s: %s %s\n",
			colorPos.Sprint(relPath(r.Package, pos)),
			colorError.Sprint(analysis.SevError),
			pe.Err)
		if pe.Pos.IsValid() {
			pr.source(sourcePath(r.Package, pe.Pos.Filename), pe.Pos.Line, pe.Pos.Column, 1)
		}
	}
	if r.Report == nil {
		return
	}
	for _, rt := range r.Report.Routes {
		for _, d := range rt.Diagnostics {
			pr.diagnostic(r.Package, rt, d)
		}
	}
}

func (pr *printer) diagnostic(
	lp parser.ListedPackage, rt analysis.RouteReport, d analysis.ReportDiagnostic,
) {
	sev, err := analysis.ParseSeverity(d.Severity)
	if err != nil {
		sev = analysis.SevError
	}
	fmt.Fprintf(pr.w, "%s: %s %s: %s\n",
		colorPos.Sprint(relPath(lp, d.Pos)),
		severityColor(sev).Sprint(sev),
		colorCode.Sprint(d.Code),
		d.Message)

	file, line, col, ok := parsePos(d.Pos)
	if !ok {
		return
	}
	width := 1
	// Spans are relative to the host token; they only
	// apply if the diagnostic points into the pattern.
	if rf, rl, rc, ok := parsePos(rt.Pos); ok &&
		rf == file && rl == line && rc+d.Start == col {
		width = max(d.End-d.Start, 1)
	}
	pr.source(sourcePath(lp, file), line, col, width)
}

// source prints line of file with a caret under width bytes
// starting at the 1-based byte column col.
func (pr *printer) source(path string, line, col, width int) {
	lines, ok := pr.lines[path]
	if !ok {
		src, err := os.ReadFile(path)
		if err == nil {
			lines = strings.Split(string(src), "\n")
		}
		pr.lines[path] = lines
	}
	if line < 1 || line > len(lines) {
		return
	}
	text := strings.TrimRight(lines[line-1], "\r")
	start := min(max(col-1, 0), len(text))
	end := min(start+width, len(text))

	var pad strings.Builder
	for _, r := range text[:start] {
		if r == '\t' {
			pad.WriteByte('\t')
			continue
		}
		pad.WriteString(strings.Repeat(" ", runewidth.RuneWidth(r)))
	}
	carets := max(runewidth.StringWidth(text[start:end]), 1)

	num := strconv.Itoa(line)
	gutter := strings.Repeat(" ", len(num))
	fmt.Fprintf(pr.w, "%s %s %s\n", colorGutter.Sprint(num), colorGutter.Sprint("|"), text)
	fmt.Fprintf(pr.w, "%s %s %s%s\n",
		gutter, colorGutter.Sprint("|"), pad.String(),
		colorCaret.Sprint(strings.Repeat("^", carets)))
}

// summary prints the totals and returns the number of findings
// at or above threshold.
func (pr *printer) summary(results []result, threshold analysis.Severity) int {
	var counts [analysis.SevError + 1]int
	cached, failed := 0, 0
	for _, r := range results {
		counts[analysis.SevError] += len(r.Errors)
		failed += r.Count(threshold)
		if r.Cached {
			cached++
		}
		if r.Report == nil {
			continue
		}
		for _, rt := range r.Report.Routes {
			for _, d := range rt.Diagnostics {
				if s, err := analysis.ParseSeverity(d.Severity); err == nil {
					counts[s]++
				}
			}
		}
	}
	fmt.Fprintf(pr.w, "%s, %s, %s in %d package(s)",
		colorError.Sprintf("%d error(s)", counts[analysis.SevError]),
		colorWarning.Sprintf("%d warning(s)", counts[analysis.SevWarning]),
		colorInfo.Sprintf("%d info", counts[analysis.SevInfo]),
		len(results))
	if cached > 0 {
		fmt.Fprintf(pr.w, " (%d unchanged)", cached)
	}
	fmt.Fprintln(pr.w)
	return failed
}

// jsonResult is the --json form of a result.
type jsonResult struct {
	Package string           `json:"package"`
	Dir     string           `json:"dir"`
	Cached  bool             `json:"cached,omitempty"`
	Errors  []string         `json:"errors,omitempty"`
	Report  *analysis.Report `json:"report,omitempty"`
}

func writeJSON(w io.Writer, results []result) error {
	out := make([]jsonResult, 0, len(results))
	for _, r := range results {
		jr := jsonResult{
			Package: r.Package.Path,
			Dir:     r.Package.Dir,
			Cached:  r.Cached,
			Report:  r.Report,
		}
		for _, pe := range r.Errors {
			jr.Errors = append(jr.Errors, fmt.Sprintf("%s: %v", pe.Pos, pe.Err))
		}
		out = append(out, jr)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// parsePos splits "file:line:column".
func parsePos(s string) (file string, line, col int, ok bool) {
	i := strings.LastIndexByte(s, ':')
	if i < 0 {
		return "", 0, 0, false
	}
	j := strings.LastIndexByte(s[:i], ':')
	if j < 0 {
		return "", 0, 0, false
	}
	line, err1 := strconv.Atoi(s[j+1 : i])
	col, err2 := strconv.Atoi(s[i+1:])
	if err1 != nil || err2 != nil {
		return "", 0, 0, false
	}
	return s[:j], line, col, true
}

// relPath prefixes a file position with the package directory
// relative to the working directory.
func relPath(lp parser.ListedPackage, pos string) string {
	if _, _, _, ok := parsePos(pos); !ok {
		return pos
	}
	dir := lp.Dir
	if wd, err := os.Getwd(); err == nil {
		if rel, err := filepath.Rel(wd, dir); err == nil && !strings.HasPrefix(rel, "..") {
			dir = rel
		}
	}
	if dir == "." || dir == "" {
		return pos
	}
	return filepath.Join(dir, pos)
}
