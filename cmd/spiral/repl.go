package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	spiral "github.com/lucyelle/SpiralCompiler-sub000"
)

const (
	replPrompt      = "spiral> "
	replContinue    = "...     "
	replFile        = "<repl>"
	replHelpMessage = `Enter declarations; each one is checked together with everything entered before.
  :source  print the session source
  :reset   forget every entry
  :quit    leave the repl`
)

func newReplCmd(a *app) *cobra.Command {
	var rulesDir string
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Check declarations interactively",
		Long:  "Reads declarations line by line. Each entry is appended to the session source, which is re-analysed from scratch; entries with a syntax error are discarded.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, scriptsDir := a.analyzerOptions(rulesDir)
			an, err := spiral.NewAnalyzer(scriptsDir, opts...)
			if err != nil {
				return err
			}
			return runRepl(cmd.Context(), newSession(an), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&rulesDir, "rules", "", "load rule scripts from this scripts directory instead of the built-in rules")
	return cmd
}

// runRepl executes the read, check, print loop until :quit or EOF.
func runRepl(ctx context.Context, s *session, out io.Writer) error {
	rl, err := readline.New(replPrompt)
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Fprintln(out, replHelpMessage)
	color := useColor(out)
	var pending strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			// Control-C drops a half-typed entry.
			pending.Reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if pending.Len() == 0 {
			switch strings.TrimSpace(line) {
			case "":
				continue
			case ":quit":
				return nil
			case ":reset":
				s.reset()
				continue
			case ":source":
				fmt.Fprint(out, s.source())
				continue
			}
		}

		pending.WriteString(line)
		pending.WriteByte('\n')
		if braceDepth(pending.String()) > 0 {
			rl.SetPrompt(replContinue)
			continue
		}
		rl.SetPrompt(replPrompt)
		entry := pending.String()
		pending.Reset()

		diags, err := s.eval(ctx, entry)
		if err != nil {
			fmt.Fprintf(out, "Error: %s\n", err)
			continue
		}
		formatDiagnosticsText(out, diags, color)
	}
}

// session is the source entered so far in a repl. Every eval analyses the
// whole source with a new Compilation.
type session struct {
	an      *spiral.Analyzer
	entries []string
}

func newSession(an *spiral.Analyzer) *session {
	return &session{an: an}
}

func (s *session) source() string {
	return strings.Join(s.entries, "")
}

func (s *session) reset() {
	s.entries = nil
}

// eval appends entry to the session and returns the diagnostics that lie
// inside it. An entry with a syntax error is reported and discarded.
func (s *session) eval(ctx context.Context, entry string) ([]CLIDiagnostic, error) {
	if !strings.HasSuffix(entry, "\n") {
		entry += "\n"
	}
	before := s.source()
	res, err := s.an.Check(ctx, replFile, before+entry)
	if err != nil {
		return nil, err
	}

	out := []CLIDiagnostic{}
	syntaxErr := false
	for _, d := range res.Diagnostics {
		if d.Source == "syntax" {
			syntaxErr = true
		}
		if d.HasSpan && d.StartOffset < len(before) {
			continue
		}
		out = append(out, diagnosticToCLI(replFile, d))
	}
	if !syntaxErr {
		s.entries = append(s.entries, entry)
	}
	return out, nil
}

// braceDepth returns the number of unclosed '{' in src, ignoring string
// literals and // comments.
func braceDepth(src string) int {
	depth := 0
	inString := false
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case inString:
			if c == '\\' {
				i++
			} else if c == '"' {
				inString = false
			}
		case c == '"':
			inString = true
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == '{':
			depth++
		case c == '}':
			depth--
		}
	}
	return depth
}
