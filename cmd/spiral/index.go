package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	spiral "github.com/lucyelle/SpiralCompiler-sub000"
)

func newIndexCmd(a *app) *cobra.Command {
	var (
		force    bool
		parallel bool
		rulesDir string
	)
	cmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Index a directory of Spiral files",
		Long:  "Analyses every .sp file under path and writes declarations, scopes, references, call edges and diagnostics to the SQLite database. Unchanged files are skipped.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("parallel") && a.cfg.Parallel != nil {
				parallel = *a.cfg.Parallel
			}
			return a.runIndex(cmd, args, force, parallel, rulesDir)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "delete database and reindex from scratch")
	cmd.Flags().BoolVar(&parallel, "parallel", true, "analyse files on a worker pool")
	cmd.Flags().StringVar(&rulesDir, "rules", "", "load rule scripts from this scripts directory instead of the built-in rules")
	return cmd
}

func (a *app) runIndex(cmd *cobra.Command, args []string, force, parallel bool, rulesDir string) error {
	start := time.Now()
	errOut := cmd.ErrOrStderr()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}
	dbPath := a.dbPath(findRepoRoot(targetDir))

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}
	if force {
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing database for --force: %w", err)
		}
		fmt.Fprintf(errOut, "Cleared database: %s\n", dbPath)
	}

	opts, scriptsDir := a.analyzerOptions(rulesDir)
	opts = append(opts, spiral.WithParallel(parallel))
	engine, err := spiral.New(dbPath, scriptsDir, opts...)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer engine.Close()

	if engine.RulesChanged() {
		log.Printf("index: rules changed, re-analysing every file")
	}
	if err := engine.IndexDirectory(cmd.Context(), targetDir); err != nil {
		return fmt.Errorf("indexing: %w", err)
	}

	changes := engine.Changes()
	for _, c := range changes {
		log.Printf("index: %s: +%d -%d ~%d", c.Path, len(c.Added), len(c.Removed), len(c.Changed))
	}

	fmt.Fprintf(errOut, "Indexed %s in %s (%d files with changed declarations)\n",
		targetDir, time.Since(start).Round(time.Millisecond), len(changes))
	fmt.Fprintf(errOut, "Database: %s\n", dbPath)
	return nil
}

// resolveTargetDir returns the absolute path of the directory to index.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}
