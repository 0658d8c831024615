package spiral

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucyelle/SpiralCompiler-sub000/internal/store"
	"github.com/lucyelle/SpiralCompiler-sub000/scripts"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	e, err := New(dbPath, t.TempDir(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

// writeSource writes a Spiral file into dir and returns its path.
func writeSource(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

// writeRule writes a rule script into scriptsDir/rules.
func writeRule(t *testing.T, scriptsDir, name, src string) {
	t.Helper()
	writeSource(t, filepath.Join(scriptsDir, "rules"), name+".risor", src)
}

// markFile adds a diagnostic row to an indexed file. Re-indexing the file
// deletes it, so its survival shows the file was skipped.
func markFile(t *testing.T, e *Engine, path string) int64 {
	t.Helper()
	f, err := e.Store().FileByPath(path)
	require.NoError(t, err)
	require.NotNil(t, f)
	_, err = e.Store().InsertDiagnostic(&store.Diagnostic{FileID: f.ID, Message: "marker", Source: store.SourceRule})
	require.NoError(t, err)
	return f.ID
}

func hasMarker(t *testing.T, e *Engine, path string) bool {
	t.Helper()
	diags, err := e.Query().Diagnostics(path)
	require.NoError(t, err)
	for _, d := range diags {
		if d.Message == "marker" {
			return true
		}
	}
	return false
}

func symbolNames(t *testing.T, e *Engine, path string) []string {
	t.Helper()
	f, err := e.Store().FileByPath(path)
	require.NoError(t, err)
	if f == nil {
		return nil
	}
	syms, err := e.Store().SymbolsByFile(f.ID)
	require.NoError(t, err)
	var names []string
	for _, s := range syms {
		names = append(names, s.Name)
	}
	return names
}

func TestNew_CreatesStoreAndRuntime(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	e, err := New(dbPath, t.TempDir())
	require.NoError(t, err)
	defer e.Close()

	require.NotNil(t, e.store)
	require.NotNil(t, e.runtime)
	require.NotNil(t, e.Store())
	assert.Empty(t, e.Rules())

	// Verify the DB is usable (migration ran).
	_, err = e.Store().InsertFile(&store.File{
		Path: "/tmp/test.sp", Module: "test", Hash: "abc", LastIndexed: time.Now(),
	})
	require.NoError(t, err)
}

func TestNew_InvalidPath(t *testing.T) {
	_, err := New("/nonexistent/dir/db.sqlite", t.TempDir())
	require.Error(t, err)
}

func TestClose(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	e, err := New(dbPath, t.TempDir())
	require.NoError(t, err)
	require.NoError(t, e.Close())
}

func TestQuery_ReturnsQueryBuilder(t *testing.T) {
	e := newTestEngine(t)
	require.NotNil(t, e.Query())
}

func TestIndexFiles_SkipsNonSpiralFiles(t *testing.T) {
	e := newTestEngine(t)

	tmp := writeSource(t, t.TempDir(), "readme.txt", "hello")
	require.NoError(t, e.IndexFiles(context.Background(), []string{tmp}))

	f, err := e.Store().FileByPath(tmp)
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestIndexFiles_InsertsNewFile(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		e := newTestEngine(t, WithParallel(parallel))
		path := writeSource(t, t.TempDir(), "calc.sp", "func add(a: Int, b: Int): Int {\n\treturn a + b;\n}\n")

		require.NoError(t, e.IndexFiles(context.Background(), []string{path}))

		f, err := e.Store().FileByPath(path)
		require.NoError(t, err)
		require.NotNil(t, f)
		assert.Equal(t, "calc", f.Module)
		assert.Equal(t, 4, f.LineCount)
		assert.Equal(t, []string{"add", "a", "b"}, symbolNames(t, e, path))
	}
}

func TestIndexFiles_ModuleNameOption(t *testing.T) {
	e := newTestEngine(t, WithModuleName("app"))
	path := writeSource(t, t.TempDir(), "calc.sp", "var x = 1;\n")
	require.NoError(t, e.IndexFiles(context.Background(), []string{path}))

	f, err := e.Store().FileByPath(path)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "app", f.Module)
}

func TestIndexFiles_SkipsUnchangedFiles(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		e := newTestEngine(t, WithParallel(parallel))
		path := writeSource(t, t.TempDir(), "main.sp", "var x = 1;\n")

		require.NoError(t, e.IndexFiles(context.Background(), []string{path}))
		markFile(t, e, path)

		require.NoError(t, e.IndexFiles(context.Background(), []string{path}))
		assert.True(t, hasMarker(t, e, path), "unchanged file should not be re-analysed")
	}
}

func TestIndexFiles_ReindexesChangedFiles(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		e := newTestEngine(t, WithParallel(parallel))
		dir := t.TempDir()
		path := writeSource(t, dir, "main.sp", "func a() {}\nfunc b(x: Int) {}\n")

		require.NoError(t, e.IndexFiles(context.Background(), []string{path}))
		changes := e.Changes()
		require.Len(t, changes, 1)
		assert.Equal(t, path, changes[0].Path)
		assert.Equal(t, []string{"function .a", "function .b", "parameter b.x"}, changes[0].Added)
		assert.Empty(t, e.Changes(), "Changes resets after reading")

		markFile(t, e, path)
		writeSource(t, dir, "main.sp", "func b(x: String) {}\nfunc c() {}\n")
		require.NoError(t, e.IndexFiles(context.Background(), []string{path}))
		assert.False(t, hasMarker(t, e, path))
		assert.Equal(t, []string{"b", "x", "c"}, symbolNames(t, e, path))

		changes = e.Changes()
		require.Len(t, changes, 1)
		assert.Equal(t, []string{"function .c"}, changes[0].Added)
		assert.Equal(t, []string{"function .a"}, changes[0].Removed)
		assert.Equal(t, []string{"function .b", "parameter b.x"}, changes[0].Changed)
	}
}

func TestIndexFiles_WhitespaceEditHasNoChanges(t *testing.T) {
	e := newTestEngine(t)
	dir := t.TempDir()
	path := writeSource(t, dir, "main.sp", "func a() {}\n")
	require.NoError(t, e.IndexFiles(context.Background(), []string{path}))
	e.Changes()

	writeSource(t, dir, "main.sp", "\n\nfunc a() {\n}\n")
	require.NoError(t, e.IndexFiles(context.Background(), []string{path}))
	assert.Empty(t, e.Changes())
}

func TestIndexFiles_SyntaxErrorIsStored(t *testing.T) {
	e := newTestEngine(t)
	path := writeSource(t, t.TempDir(), "bad.sp", "var = 1;\n")

	require.NoError(t, e.IndexFiles(context.Background(), []string{path}))

	diags, err := e.Query().Diagnostics(path)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, store.SourceSyntax, diags[0].Source)
	assert.Equal(t, 1, diags[0].StartLine)
	assert.Empty(t, symbolNames(t, e, path))
}

func TestIndexFiles_ScriptErrorDropsFile(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		scriptsDir := t.TempDir()
		writeRule(t, scriptsDir, "broken", "this is not risor (")

		e, err := New(filepath.Join(t.TempDir(), "test.db"), scriptsDir, WithParallel(parallel))
		require.NoError(t, err)
		path := writeSource(t, t.TempDir(), "main.sp", "var x = 1;\n")

		err = e.IndexFiles(context.Background(), []string{path})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "main.sp")

		f, err := e.Store().FileByPath(path)
		require.NoError(t, err)
		assert.Nil(t, f, "failed file must not stay in the index")
		require.NoError(t, e.Close())
	}
}

func TestIndexFiles_ContinuesAfterFileError(t *testing.T) {
	e := newTestEngine(t, WithParallel(false))
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.sp")
	good := writeSource(t, dir, "good.sp", "var x = 1;\n")

	err := e.IndexFiles(context.Background(), []string{missing, good})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.sp")
	assert.Equal(t, []string{"x"}, symbolNames(t, e, good))
}

func TestIndexFiles_CancelledContext(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		e := newTestEngine(t, WithParallel(parallel))
		path := writeSource(t, t.TempDir(), "main.sp", "var x = 1;\n")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := e.IndexFiles(ctx, []string{path})
		require.ErrorIs(t, err, context.Canceled)
	}
}

func TestIndexFiles_SerialAndParallelAgree(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	paths = append(paths, writeSource(t, dir, "a.sp", "class A { var n: Int; func get(): Int { return n; } }\n"))
	paths = append(paths, writeSource(t, dir, "b.sp", "func f(a: Int): Int { var unused = 2; return a; }\nfunc g() { f(1); }\n"))
	paths = append(paths, writeSource(t, dir, "c.sp", "var = ;\n"))

	summarize := func(parallel bool) *ProjectSummary {
		e := newTestEngine(t, WithScriptsFS(scripts.FS), WithParallel(parallel))
		require.NoError(t, e.IndexFiles(context.Background(), paths))
		s, err := e.Query().ProjectSummary(10)
		require.NoError(t, err)
		return s
	}

	serial := summarize(false)
	parallel := summarize(true)
	assert.Equal(t, 3, serial.FileCount)
	assert.Equal(t, serial.SymbolCount, parallel.SymbolCount)
	assert.Equal(t, serial.KindCounts, parallel.KindCounts)
	assert.Equal(t, serial.DiagnosticCounts, parallel.DiagnosticCounts)
	assert.Equal(t, 1, serial.DiagnosticCounts[store.SourceRule])
	assert.Equal(t, 1, serial.DiagnosticCounts[store.SourceSyntax])
}

func TestRulesChanged(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	scriptsDir := t.TempDir()
	path := writeSource(t, t.TempDir(), "main.sp", "func main() { var x = 1; }\n")

	e, err := New(dbPath, scriptsDir)
	require.NoError(t, err)
	assert.True(t, e.RulesChanged(), "fresh database")
	require.NoError(t, e.IndexFiles(context.Background(), []string{path}))
	assert.False(t, e.RulesChanged())
	markFile(t, e, path)
	require.NoError(t, e.Close())

	// Adding a rule re-analyses files whose content did not change.
	writeRule(t, scriptsDir, "unused_variable", `
for _, s := range symbols() {
    if s["kind"] == "variable" {
        report("found " + s["name"], s["start"], s["end"])
    }
}
`)
	e, err = New(dbPath, scriptsDir)
	require.NoError(t, err)
	defer e.Close()
	assert.True(t, e.RulesChanged())
	require.NoError(t, e.IndexFiles(context.Background(), []string{path}))
	assert.False(t, e.RulesChanged())
	assert.False(t, hasMarker(t, e, path))

	diags, err := e.Query().Diagnostics(path)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "unused_variable: found x", diags[0].Message)
}

func TestIndexDirectory_DiscoversSpiralFiles(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "main.sp", "var a = 1;\n")
	writeSource(t, root, filepath.Join("lib", "util.sp"), "var b = 2;\n")
	writeSource(t, root, "readme.txt", "docs")
	writeSource(t, root, filepath.Join(".hidden", "skip.sp"), "var c = 3;\n")
	for _, dir := range []string{"vendor", "node_modules"} {
		writeSource(t, root, filepath.Join(dir, "lib.sp"), "var d = 4;\n")
	}

	e := newTestEngine(t)
	require.NoError(t, e.IndexDirectory(context.Background(), root))

	files, err := e.Store().Files()
	require.NoError(t, err)
	var got []string
	for _, f := range files {
		rel, err := filepath.Rel(root, f.Path)
		require.NoError(t, err)
		got = append(got, rel)
	}
	assert.ElementsMatch(t, []string{"main.sp", filepath.Join("lib", "util.sp")}, got)
}

func TestIndexDirectory_PrunesDeletedFiles(t *testing.T) {
	root := t.TempDir()
	keep := writeSource(t, root, "keep.sp", "var a = 1;\n")
	gone := writeSource(t, root, "gone.sp", "func f() {}\n")

	e := newTestEngine(t)
	require.NoError(t, e.IndexDirectory(context.Background(), root))
	e.Changes()

	require.NoError(t, os.Remove(gone))
	require.NoError(t, e.IndexDirectory(context.Background(), root))

	f, err := e.Store().FileByPath(gone)
	require.NoError(t, err)
	assert.Nil(t, f)
	assert.Equal(t, []string{"a"}, symbolNames(t, e, keep))

	changes := e.Changes()
	require.Len(t, changes, 1)
	assert.Equal(t, gone, changes[0].Path)
	assert.Equal(t, []string{"function .f"}, changes[0].Removed)
}

func TestNew_WithScriptsFS_RunsRules(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	e, err := New(dbPath, "/nonexistent/scripts/path", WithScriptsFS(scripts.FS))
	require.NoError(t, err)
	defer e.Close()
	assert.Len(t, e.Rules(), 2)

	path := writeSource(t, t.TempDir(), "main.sp", "func main() {\n\tvar idle = 1;\n}\n")
	require.NoError(t, e.IndexFiles(context.Background(), []string{path}))

	diags, err := e.Query().Diagnostics(path)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, store.SourceRule, diags[0].Source)
	assert.Equal(t, "unused_variable: idle is declared but never used", diags[0].Message)
	assert.Equal(t, 2, diags[0].StartLine)
}

func TestNew_WithRulesDisabled(t *testing.T) {
	e := newTestEngine(t, WithScriptsFS(scripts.FS), WithRules(false))
	assert.Empty(t, e.Rules())

	path := writeSource(t, t.TempDir(), "main.sp", "func main() {\n\tvar idle = 1;\n}\n")
	require.NoError(t, e.IndexFiles(context.Background(), []string{path}))

	diags, err := e.Query().Diagnostics(path)
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestNewQueryBuilder(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := store.NewStore(dbPath)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Migrate())

	qb := NewQueryBuilder(s)
	require.NotNil(t, qb)

	sym, err := qb.SymbolAt("nonexistent.sp", 1, 1)
	require.NoError(t, err)
	assert.Nil(t, sym)

	result, err := qb.Symbols(SymbolFilter{}, Sort{}, Pagination{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalCount)
	assert.Empty(t, result.Items)
}
