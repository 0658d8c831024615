package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"

	"github.com/lucyelle/SpiralCompiler-sub000/internal/store"
)

// Runtime embeds a Risor VM and runs rule scripts against analysed Spiral
// files. Scripts see the file through host functions over its Compilation
// and, when a Store is configured, read-only SQL over the index.
type Runtime struct {
	store      *store.Store
	scriptsDir string
	fsys       fs.FS
	logOut     io.Writer
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS configures the Runtime to load scripts from an fs.FS
// instead of from disk. Also configures the Risor importer to use
// FSImporter for import statement resolution.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithStore exposes the index to scripts through db_query and
// symbols_by_name.
func WithStore(s *store.Store) RuntimeOption {
	return func(r *Runtime) {
		r.store = s
	}
}

// WithLogOutput redirects the script log object. The default is stderr.
func WithLogOutput(w io.Writer) RuntimeOption {
	return func(r *Runtime) {
		r.logOut = w
	}
}

// NewRuntime creates a Runtime loading scripts from scriptsDir.
// scriptsDir may be empty when WithRuntimeFS is used or when only inline
// sources are run.
func NewRuntime(scriptsDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		scriptsDir: scriptsDir,
		logOut:     os.Stderr,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunScript loads and executes a Risor script with all standard globals
// plus any extra globals provided by the caller.
func (r *Runtime) RunScript(ctx context.Context, scriptPath string, extraGlobals map[string]any) error {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return err
	}
	return r.eval(ctx, src, scriptPath, extraGlobals)
}

// RunSource executes Risor source code directly with all standard globals
// plus any extra globals. Useful for testing without script files.
func (r *Runtime) RunSource(ctx context.Context, source string, extraGlobals map[string]any) error {
	return r.eval(ctx, source, "<inline>", extraGlobals)
}

func (r *Runtime) eval(ctx context.Context, source, label string, extraGlobals map[string]any) error {
	globals := r.buildGlobals(extraGlobals)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}

	// Wire importer so Risor import statements resolve correctly.
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	_, err := risor.Eval(ctx, source, opts...)
	if err != nil {
		return fmt.Errorf("runtime: script %s: %w", label, err)
	}
	return nil
}

// buildImporter returns a Risor importer configured for the Runtime's script source.
// Returns nil if neither fs.FS nor scriptsDir is configured.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// LoadScript reads a .risor file and returns its source code.
// When an fs.FS is configured, uses fs.ReadFile on the embedded filesystem.
// Otherwise, uses os.ReadFile with scriptsDir as the base directory.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil {
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading script %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := path
	if !filepath.IsAbs(path) {
		fullPath = filepath.Join(r.scriptsDir, path)
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

// Rules lists the rule scripts under rules/, sorted by path. A missing
// rules directory yields no rules.
func (r *Runtime) Rules() ([]string, error) {
	var paths []string
	collect := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".risor") {
			paths = append(paths, path)
		}
		return nil
	}

	switch {
	case r.fsys != nil:
		if _, err := fs.Stat(r.fsys, RulesDir); errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		if err := fs.WalkDir(r.fsys, RulesDir, collect); err != nil {
			return nil, fmt.Errorf("runtime: list rules: %w", err)
		}
	case r.scriptsDir != "":
		root := filepath.Join(r.scriptsDir, RulesDir)
		if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, _ := filepath.Rel(r.scriptsDir, path)
			return collect(rel, d, nil)
		})
		if err != nil {
			return nil, fmt.Errorf("runtime: list rules: %w", err)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// buildGlobals constructs the full set of globals exposed to Risor scripts.
func (r *Runtime) buildGlobals(extra map[string]any) map[string]any {
	globals := map[string]any{
		"log": mustProxy(&logObject{prefix: "spiral", out: r.logOut}),
	}

	// Expose the Store if available.
	if r.store != nil {
		globals["db_query"] = makeDBQueryFn(r.store)
		globals["symbols_by_name"] = makeSymbolsByNameFn(r.store)
		globals["diagnostics_by_file"] = makeDiagnosticsByFileFn(r.store)
	}

	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
