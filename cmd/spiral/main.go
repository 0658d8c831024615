// The spiral command checks, indexes and queries Spiral source code.
package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	spiral "github.com/lucyelle/SpiralCompiler-sub000"
	"github.com/lucyelle/SpiralCompiler-sub000/scripts"
)

func main() {
	log.SetPrefix("spiral: ")
	log.SetFlags(0)
	log.SetOutput(io.Discard)

	if err := newRootCmd().Execute(); err != nil {
		var r reported
		if !errors.As(err, &r) {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

// reported wraps an error that has already been written to the user, so
// main doesn't double-print.
type reported struct{ err error }

func (r reported) Error() string { return r.err.Error() }
func (r reported) Unwrap() error { return r.err }

// app holds the persistent flags and the config they were merged with.
type app struct {
	db         string
	format     string
	configPath string
	verbose    bool

	cfg *Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "spiral",
		Short:         "Semantic analysis for Spiral source code",
		Long:          "Spiral checks source files for syntax, semantic and rule diagnostics and indexes them into a SQLite database for queries.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		// No Run: prints help by default.
	}

	root.PersistentFlags().StringVar(&a.db, "db", "", "database path (default: .spiral/index.db relative to repo root)")
	root.PersistentFlags().StringVar(&a.format, "format", "text", "output format: json|text")
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default: spiral.yaml in the repo root)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log progress to stderr")

	root.AddCommand(newCheckCmd(a))
	root.AddCommand(newIndexCmd(a))
	root.AddCommand(newQueryCmd(a))
	root.AddCommand(newCompleteCmd(a))
	root.AddCommand(newReplCmd(a))
	return root
}

// setup loads the config file and merges it under the flags.
func (a *app) setup(cmd *cobra.Command) error {
	if a.verbose {
		log.SetOutput(cmd.ErrOrStderr())
	}

	path := a.configPath
	if path == "" {
		if cwd, err := os.Getwd(); err == nil {
			path = findConfig(findRepoRoot(cwd))
		}
	}
	a.cfg = &Config{}
	if path != "" {
		cfg, err := LoadConfig(path)
		if err != nil {
			return err
		}
		log.Printf("using config %s", cfg.Path)
		a.cfg = cfg
	}

	if !cmd.Flags().Changed("format") && a.cfg.Format != "" {
		a.format = a.cfg.Format
	}
	return validateFormat(a.format)
}

// analyzerOptions returns the options shared by the Analyzer and the
// Engine, and the scripts directory to load rules from ("" for the
// embedded rules).
func (a *app) analyzerOptions(rulesFlag string) ([]spiral.Option, string) {
	var opts []spiral.Option
	if a.cfg.Module != "" {
		opts = append(opts, spiral.WithModuleName(a.cfg.Module))
	}
	if a.verbose {
		opts = append(opts, spiral.WithScriptLog(os.Stderr))
	}
	scriptsDir := rulesFlag
	if scriptsDir == "" {
		scriptsDir = a.cfg.resolve(a.cfg.Rules)
	}
	if scriptsDir == "" {
		opts = append(opts, spiral.WithScriptsFS(scripts.FS))
	}
	return opts, scriptsDir
}

// findRepoRoot walks up from startDir looking for a .git directory or a
// spiral.yaml file. Returns startDir if neither is found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		if findConfig(dir) != "" {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root.
			return startDir
		}
		dir = parent
	}
}

// dbPath returns the database path from the --db flag, the config file or
// the default under repoRoot.
func (a *app) dbPath(repoRoot string) string {
	if a.db != "" {
		if filepath.IsAbs(a.db) {
			return a.db
		}
		return filepath.Join(repoRoot, a.db)
	}
	if a.cfg.DB != "" {
		return a.cfg.resolve(a.cfg.DB)
	}
	return filepath.Join(repoRoot, ".spiral", "index.db")
}
