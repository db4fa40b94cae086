package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/romshark/routelint/analysis"
	"github.com/romshark/routelint/routepattern"
	"github.com/romshark/routelint/usage"
)

var treeCmd = &cobra.Command{
	Use:   "tree [flags] <pattern>",
	Short: "Print the syntax tree and diagnostics of a route pattern",
	Args:  cobra.ExactArgs(1),
	RunE:  runTree,
}

var tokensCmd = &cobra.Command{
	Use:   "tokens [flags] <pattern>",
	Short: "Print the tokens of a route pattern",
	Args:  cobra.ExactArgs(1),
	RunE:  runTokens,
}

func init() {
	for _, c := range []*cobra.Command{treeCmd, tokensCmd} {
		c.Flags().Bool("replacement", false, "enable [token] replacements of attribute routes")
		c.Flags().Bool("servemux", false, "use the net/http.ServeMux wildcard dialect")
	}
	treeCmd.Flags().Bool("component", false, "check constraints as a page route")
}

// usageFromFlags returns the usage context selected by the flags of cmd.
func usageFromFlags(cmd *cobra.Command) (usage.Context, error) {
	replacement, err := cmd.Flags().GetBool("replacement")
	if err != nil {
		return usage.Context{}, fmt.Errorf("failed to get replacement flag: %w", err)
	}
	serveMux, err := cmd.Flags().GetBool("servemux")
	if err != nil {
		return usage.Context{}, fmt.Errorf("failed to get servemux flag: %w", err)
	}
	u := usage.Context{
		Type:                    usage.Http,
		IsAttributeRoute:        replacement,
		SupportTokenReplacement: replacement,
		ServeMux:                serveMux,
	}
	if cmd.Flags().Lookup("component") != nil {
		component, err := cmd.Flags().GetBool("component")
		if err != nil {
			return usage.Context{}, fmt.Errorf("failed to get component flag: %w", err)
		}
		if component {
			u.Type = usage.Component
		}
	}
	return u, nil
}

func runTree(cmd *cobra.Command, args []string) error {
	if err := setupColor(cmd); err != nil {
		return err
	}
	u, err := usageFromFlags(cmd)
	if err != nil {
		return err
	}
	tree := routepattern.ParseString(args[0], u.Options())
	fmt.Fprint(os.Stdout, tree.Dump())
	printPatternDiagnostics(os.Stdout, args[0], analysis.Diagnose(tree, u))
	return nil
}

func runTokens(cmd *cobra.Command, args []string) error {
	u, err := usageFromFlags(cmd)
	if err != nil {
		return err
	}
	for _, t := range routepattern.Tokenize(routepattern.TextFromString(args[0]), u.Options()) {
		s := t.Span()
		missing := ""
		if t.IsMissing {
			missing = " (missing)"
		}
		fmt.Fprintf(os.Stdout, "%-22s %3d..%-3d %s%s\n",
			t.Kind, s.Start, s.End, strconv.Quote(t.Text()), missing)
	}
	return nil
}

// printPatternDiagnostics prints diagnostics of a pattern given on the
// command line with a caret under their logical span.
func printPatternDiagnostics(w io.Writer, pattern string, ds []analysis.Diagnostic) {
	text := routepattern.TextFromString(pattern)
	for _, d := range ds {
		fmt.Fprintf(w, "%s %s: %s\n",
			severityColor(d.Severity).Sprint(d.Severity),
			colorCode.Sprint(d.Code.ID()),
			d.Message)
		raw := text.RawSpan(d.Span)
		pr := newPrinter(w)
		pr.lines["<pattern>"] = []string{pattern}
		pr.source("<pattern>", 1, raw.Start+1, max(raw.End-raw.Start, 1))
	}
}
