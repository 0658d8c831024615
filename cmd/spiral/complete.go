package main

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"

	spiral "github.com/lucyelle/SpiralCompiler-sub000"
)

func newCompleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <file> <offset>",
		Short: "List the names that may be written at a byte offset",
		Long:  "After a '.', lists the members of the expression before it; otherwise lists the names visible at the offset. The part of the name already typed filters the candidates.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			offset, err := strconv.Atoi(args[1])
			if err != nil {
				return a.outputError(cmd, "complete", err)
			}
			src, err := os.ReadFile(args[0])
			if err != nil {
				return a.outputError(cmd, "complete", err)
			}
			opts, _ := a.analyzerOptions("")
			an, err := spiral.NewAnalyzer("", append(opts, spiral.WithRules(false))...)
			if err != nil {
				return a.outputError(cmd, "complete", err)
			}
			cs, err := an.Complete(args[0], string(src), offset)
			if err != nil {
				return a.outputError(cmd, "complete", err)
			}

			out := make([]CLICompletion, len(cs))
			for i, c := range cs {
				out[i] = CLICompletion{Name: c.Name, Kind: c.Kind, Type: c.Type}
			}
			n := len(out)
			return a.outputResult(cmd, CLIResult{Command: "complete", Results: out, TotalCount: &n})
		},
	}
}
