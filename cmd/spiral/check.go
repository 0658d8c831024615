package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	spiral "github.com/lucyelle/SpiralCompiler-sub000"
)

func newCheckCmd(a *app) *cobra.Command {
	var rulesDir string
	cmd := &cobra.Command{
		Use:   "check <file>...",
		Short: "Report syntax, semantic and rule diagnostics",
		Long:  "Parses and analyses each file on its own, runs the rule scripts and prints every diagnostic. Exits with status 1 when any file has a diagnostic.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCheck(cmd, args, rulesDir)
		},
	}
	cmd.Flags().StringVar(&rulesDir, "rules", "", "load rule scripts from this scripts directory instead of the built-in rules")
	return cmd
}

func (a *app) runCheck(cmd *cobra.Command, args []string, rulesDir string) error {
	opts, scriptsDir := a.analyzerOptions(rulesDir)
	an, err := spiral.NewAnalyzer(scriptsDir, opts...)
	if err != nil {
		return a.outputError(cmd, "check", err)
	}
	log.Printf("check: %d rules", len(an.Rules()))

	diags := []CLIDiagnostic{}
	for _, arg := range args {
		path, err := filepath.Abs(arg)
		if err != nil {
			return a.outputError(cmd, "check", fmt.Errorf("resolving path %q: %w", arg, err))
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return a.outputError(cmd, "check", err)
		}
		res, err := an.Check(cmd.Context(), path, string(src))
		if err != nil {
			return a.outputError(cmd, "check", err)
		}
		log.Printf("check: %s: %d diagnostics", arg, len(res.Diagnostics))
		for _, d := range res.Diagnostics {
			diags = append(diags, diagnosticToCLI(arg, d))
		}
	}

	count := len(diags)
	if err := a.outputResult(cmd, CLIResult{Command: "check", Results: diags, TotalCount: &count}); err != nil {
		return err
	}
	if count > 0 {
		return reported{fmt.Errorf("%d diagnostics", count)}
	}
	return nil
}

// diagnosticToCLI converts a diagnostic of the file shown as file.
func diagnosticToCLI(file string, d *spiral.Diagnostic) CLIDiagnostic {
	cd := CLIDiagnostic{File: file, Source: d.Source, Message: d.Message}
	if d.HasSpan {
		cd.StartLine, cd.StartCol = d.StartLine, d.StartCol
		cd.EndLine, cd.EndCol = d.EndLine, d.EndCol
	}
	return cd
}
