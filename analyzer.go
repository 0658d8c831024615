package spiral

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lucyelle/SpiralCompiler-sub000/internal/runtime"
	"github.com/lucyelle/SpiralCompiler-sub000/internal/semantics"
	"github.com/lucyelle/SpiralCompiler-sub000/internal/store"
	"github.com/lucyelle/SpiralCompiler-sub000/internal/syntax"
)

type options struct {
	scriptsFS   fs.FS
	moduleName  string
	useParallel bool
	rules       bool
	logOut      io.Writer
}

func defaultOptions() *options {
	return &options{useParallel: true, rules: true}
}

// Option configures an Analyzer or an Engine.
type Option func(*options)

// WithScriptsFS loads rule scripts from fsys instead of from the scripts
// directory on disk. This enables embedding scripts via go:embed.
func WithScriptsFS(fsys fs.FS) Option {
	return func(o *options) {
		o.scriptsFS = fsys
	}
}

// WithModuleName names the module of every analysed file. By default a
// file's module is named after the file.
func WithModuleName(name string) Option {
	return func(o *options) {
		o.moduleName = name
	}
}

// WithParallel controls parallel indexing. When true (default), IndexFiles
// analyses files on a worker pool, with a single writer committing batches
// to SQLite. Set to false for serial mode.
func WithParallel(parallel bool) Option {
	return func(o *options) {
		o.useParallel = parallel
	}
}

// WithRules enables or disables rule scripts. Enabled by default.
func WithRules(enabled bool) Option {
	return func(o *options) {
		o.rules = enabled
	}
}

// WithScriptLog redirects the output of the log object seen by scripts.
func WithScriptLog(w io.Writer) Option {
	return func(o *options) {
		o.logOut = w
	}
}

// Analyzer parses, analyses and runs rules over single Spiral files. It
// holds no per-file state and is safe for concurrent use.
type Analyzer struct {
	runtime    *runtime.Runtime
	rules      []string
	moduleName string
}

// NewAnalyzer creates an Analyzer loading rule scripts from scriptsDir, or
// from the WithScriptsFS filesystem. scriptsDir may be empty.
func NewAnalyzer(scriptsDir string, opts ...Option) (*Analyzer, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return newAnalyzer(scriptsDir, o, nil)
}

func newAnalyzer(scriptsDir string, o *options, s *store.Store) (*Analyzer, error) {
	var rtOpts []runtime.RuntimeOption
	if o.scriptsFS != nil {
		rtOpts = append(rtOpts, runtime.WithRuntimeFS(o.scriptsFS))
	}
	if s != nil {
		rtOpts = append(rtOpts, runtime.WithStore(s))
	}
	if o.logOut != nil {
		rtOpts = append(rtOpts, runtime.WithLogOutput(o.logOut))
	}
	a := &Analyzer{
		runtime:    runtime.NewRuntime(scriptsDir, rtOpts...),
		moduleName: o.moduleName,
	}
	if o.rules {
		rules, err := a.runtime.Rules()
		if err != nil {
			return nil, fmt.Errorf("spiral: %w", err)
		}
		a.rules = rules
	}
	return a, nil
}

// Rules returns the rule scripts run on every file.
func (a *Analyzer) Rules() []string {
	return a.rules
}

// ModuleName returns the module name used for the file at path.
func (a *Analyzer) ModuleName(path string) string {
	if a.moduleName != "" {
		return a.moduleName
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if name == "" || name == "." {
		return "main"
	}
	return name
}

// Result is the outcome of checking one file.
type Result struct {
	Path   string
	Source string
	// Compilation is nil when the file has a syntax error.
	Compilation *semantics.Compilation
	// Diagnostics holds syntax, semantic and rule diagnostics in document
	// order; diagnostics without a position come first.
	Diagnostics []*Diagnostic
}

// Check analyses src as the contents of path. Diagnostics are data; the
// error is reserved for internal failures and script errors.
func (a *Analyzer) Check(ctx context.Context, path, src string) (*Result, error) {
	batch := store.NewBatchedStore(0)
	comp, err := a.analyze(ctx, path, src, batch, batch.FileID)
	if err != nil {
		return nil, err
	}
	diags := make([]*Diagnostic, len(batch.Diagnostics))
	for i := range batch.Diagnostics {
		diags[i] = &batch.Diagnostics[i]
	}
	sort.SliceStable(diags, func(i, j int) bool {
		return diagnosticStart(diags[i]) < diagnosticStart(diags[j])
	})
	return &Result{Path: path, Source: src, Compilation: comp, Diagnostics: diags}, nil
}

func diagnosticStart(d *Diagnostic) int {
	if !d.HasSpan {
		return -1
	}
	return d.StartOffset
}

// analyze runs the whole per-file pipeline, writing rows for fileID into
// ds. A syntax error is recorded as a diagnostic and ends the pipeline
// with a nil Compilation.
func (a *Analyzer) analyze(ctx context.Context, path, src string, ds store.DataStore, fileID int64) (*semantics.Compilation, error) {
	lines := syntax.NewLineIndex(src)
	prog, err := syntax.Parse(path, src)
	if err != nil {
		var list syntax.ErrorList
		if !errors.As(err, &list) {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		x := newExporter(ds, fileID, nil, lines)
		for _, e := range list {
			span := e.Span
			if err := x.diagnostic(e.Msg, store.SourceSyntax, &span); err != nil {
				return nil, fmt.Errorf("export syntax errors: %w", err)
			}
		}
		return nil, nil
	}

	comp := semantics.New(prog, semantics.WithModuleName(a.ModuleName(path)))
	x := newExporter(ds, fileID, comp, lines)
	if err := x.export(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if len(a.rules) == 0 {
		return comp, nil
	}
	found, err := a.runtime.RunRules(ctx, a.rules, &runtime.Unit{Path: path, Source: src, Comp: comp})
	if err != nil {
		return nil, fmt.Errorf("rules %s: %w", path, err)
	}
	if err := x.findings(found); err != nil {
		return nil, fmt.Errorf("export findings: %w", err)
	}
	return comp, nil
}
