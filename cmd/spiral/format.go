package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}

// ANSI colours for diagnostic sources.
const (
	colorReset  = "\x1b[0m"
	colorRed    = "\x1b[31m"
	colorYellow = "\x1b[33m"
	colorBlue   = "\x1b[34m"
)

// useColor reports whether w is a terminal that should get coloured
// output. NO_COLOR disables colours everywhere.
func useColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func sourceColor(source string) string {
	switch source {
	case "syntax":
		return colorRed
	case "semantic":
		return colorYellow
	default:
		return colorBlue
	}
}

// outputResult writes a CLIResult to the command's stdout in the selected
// format.
func (a *app) outputResult(cmd *cobra.Command, result CLIResult) error {
	w := cmd.OutOrStdout()
	if a.format == "text" {
		return outputResultText(w, result)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it marked
// as reported. In JSON mode the error is written to stdout as a CLIResult
// envelope. In text mode it goes to stderr.
func (a *app) outputError(cmd *cobra.Command, command string, err error) error {
	if a.format == "text" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err)
		return reported{err}
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: command, Error: err.Error()})
	return reported{err}
}

// formatDiagnosticsText writes one "file:line:col: source: message" line
// per diagnostic. Diagnostics without a span are reported at the file.
func formatDiagnosticsText(w io.Writer, diags []CLIDiagnostic, color bool) {
	for _, d := range diags {
		pos := d.File
		if d.StartLine > 0 {
			pos = fmt.Sprintf("%s:%d:%d", d.File, d.StartLine, d.StartCol)
		}
		source := d.Source
		if color {
			source = sourceColor(d.Source) + source + colorReset
		}
		fmt.Fprintf(w, "%s: %s: %s\n", pos, source, d.Message)
	}
}

// formatLocationsText formats CLILocation results as "file:line:col" lines.
func formatLocationsText(w io.Writer, locs []CLILocation) {
	for _, loc := range locs {
		fmt.Fprintf(w, "%s:%d:%d\n", loc.File, loc.StartLine, loc.StartCol)
	}
}

// formatSymbolsText formats CLISymbol results as aligned columns.
func formatSymbolsText(w io.Writer, syms []CLISymbol) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tKIND\tTYPE\tFILE\tLINE")
	for _, s := range syms {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\n",
			s.ID, s.Name, s.Kind, s.Type, s.File, s.StartLine)
	}
	tw.Flush()
}

// formatCallEdgesText formats CLICallEdge results as aligned columns.
func formatCallEdgesText(w io.Writer, edges []CLICallEdge) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CALLER\tCALLEE\tFILE\tLINE\tCOL")
	for _, e := range edges {
		caller := fmt.Sprintf("%s (#%d)", e.CallerName, e.CallerID)
		callee := e.CalleeName + " (builtin)"
		if e.CalleeID != nil {
			callee = fmt.Sprintf("%s (#%d)", e.CalleeName, *e.CalleeID)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n",
			caller, callee, e.File, e.Line, e.Col)
	}
	tw.Flush()
}

// formatHierarchyText formats a CLITypeHierarchy as an indented tree.
func formatHierarchyText(w io.Writer, h CLITypeHierarchy) {
	fmt.Fprintf(w, "%s %s\n", h.Symbol.Kind, h.Symbol.Name)
	for _, b := range h.Bases {
		fmt.Fprintf(w, "  %s %s\n", b.Kind, b.Symbol.Name)
	}
	for _, name := range h.Unresolved {
		fmt.Fprintf(w, "  unresolved %s\n", name)
	}
	for _, s := range h.Subtypes {
		fmt.Fprintf(w, "  %s by %s %s\n", s.Kind, s.Symbol.Kind, s.Symbol.Name)
	}
}

// formatCompletionsText formats candidates as aligned columns.
func formatCompletionsText(w io.Writer, cs []CLICompletion) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, c := range cs {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Name, c.Kind, c.Type)
	}
	tw.Flush()
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLILocation:
		formatLocationsText(w, v)
	case []CLISymbol:
		formatSymbolsText(w, v)
	case CLISymbol:
		formatSymbolsText(w, []CLISymbol{v})
	case []CLICallEdge:
		formatCallEdgesText(w, v)
	case []CLIDiagnostic:
		formatDiagnosticsText(w, v, useColor(w))
	case CLITypeHierarchy:
		formatHierarchyText(w, v)
	case []CLICompletion:
		formatCompletionsText(w, v)
	case nil:
		// No output for nil results (e.g., definition of a built-in).
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}

	// Pagination footer.
	if result.TotalCount != nil {
		count := *result.TotalCount
		shown := resultLen(result.Results)
		if shown < count {
			fmt.Fprintf(w, "\nShowing %d of %d results\n", shown, count)
		}
	}
	return nil
}

// resultLen returns the length of a result slice, or 1 for a single value.
func resultLen(v any) int {
	switch r := v.(type) {
	case []CLILocation:
		return len(r)
	case []CLISymbol:
		return len(r)
	case []CLICallEdge:
		return len(r)
	case []CLIDiagnostic:
		return len(r)
	case []CLICompletion:
		return len(r)
	case nil:
		return 0
	default:
		return 1
	}
}
