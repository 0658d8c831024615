package runtime

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucyelle/SpiralCompiler-sub000/internal/semantics"
	"github.com/lucyelle/SpiralCompiler-sub000/internal/store"
	"github.com/lucyelle/SpiralCompiler-sub000/internal/syntax"
	"github.com/lucyelle/SpiralCompiler-sub000/scripts"
)

const spiralTestSource = `var count: Int = 0;
func add(a: Int, b: Int): Int {
	var unused = 1;
	var sum = a + b;
	var count = sum;
	return count;
}
`

// compileUnit parses and compiles src into a Unit for rule scripts.
func compileUnit(t *testing.T, src string) *Unit {
	t.Helper()
	prog, err := syntax.Parse("test.sp", src)
	require.NoError(t, err)
	return &Unit{Path: "test.sp", Source: src, Comp: semantics.New(prog)}
}

func offsetOf(t *testing.T, src, needle string) int {
	t.Helper()
	i := strings.Index(src, needle)
	require.GreaterOrEqual(t, i, 0, "%q not found", needle)
	return i
}

// --- Rule helpers ---

func TestIsSourceFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want bool
	}{
		{"main.sp", true},
		{"lib/Shapes.SP", true},
		{"main.go", false},
		{"sp", false},
		{"rules/x.risor", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsSourceFile(tt.path), tt.path)
	}
}

func TestRuleName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "unused_variable", RuleName("rules/unused_variable.risor"))
	assert.Equal(t, "x", RuleName(filepath.Join("a", "b", "x.risor")))
}

// --- Unit host functions ---

func TestRunRuleSource_Report(t *testing.T) {
	t.Parallel()
	u := compileUnit(t, spiralTestSource)
	rt := NewRuntime("")

	script := `
report("file level")
report("first decl", 4, 9)
`
	found, err := rt.RunRuleSource(context.Background(), "demo", script, u)
	require.NoError(t, err)
	require.Len(t, found, 2)

	assert.Equal(t, "demo", found[0].Rule)
	assert.Equal(t, "file level", found[0].Message)
	assert.Nil(t, found[0].Span)

	require.NotNil(t, found[1].Span)
	assert.Equal(t, syntax.Span{Start: 4, End: 9}, *found[1].Span)
}

func TestRunRuleSource_ReportRejectsBadRange(t *testing.T) {
	t.Parallel()
	u := compileUnit(t, spiralTestSource)
	rt := NewRuntime("")

	for _, script := range []string{
		`report("x", 5, 2)`,
		`report("x", -1, 2)`,
		`report("x", 0, 100000)`,
		`report("x", 1)`,
	} {
		_, err := rt.RunRuleSource(context.Background(), "demo", script, u)
		assert.Error(t, err, script)
	}
}

func TestRunRuleSource_Symbols(t *testing.T) {
	t.Parallel()
	u := compileUnit(t, spiralTestSource)
	rt := NewRuntime("")

	script := `
syms := symbols()
assert(len(syms) == 7, 'expected 7 symbols, got {len(syms)}')

g := syms[0]
assert(g["name"] == "count", "first symbol is the global")
assert(g["kind"] == "variable", "global kind")
assert(g["type"] == "Int", "global type")
assert(g["scope_kind"] == "module", 'global scope is {g["scope_kind"]}')
assert(g["line"] == 1 && g["col"] == 5, "global position")
assert(!g["builtin"], "declared symbols are not builtin")

fn := syms[1]
assert(fn["kind"] == "function", "second symbol is add")
assert(fn["type"] == "func add(a: Int, b: Int): Int", 'signature {fn["type"]}')

a := syms[2]
assert(a["kind"] == "parameter" && a["scope_kind"] == "function", "parameter scope")

local := syms[6]
assert(local["name"] == "count" && local["scope_kind"] == "block", "local count")
assert(local["scope_start"] > g["scope_start"], "block scope nests in module scope")
`
	_, err := rt.RunRuleSource(context.Background(), "symbols", script, u)
	require.NoError(t, err)
}

func TestRunRuleSource_References(t *testing.T) {
	t.Parallel()
	src := "func main() { print(missing); var x = 1; print(x); }"
	u := compileUnit(t, src)
	rt := NewRuntime("")

	script := fmt.Sprintf(`
refs := references()
by_name := {}
for _, r := range refs {
    by_name[r["name"]] = r
}
assert(!by_name["missing"]["resolved"], "missing is unresolved")
assert(by_name["print"]["builtin"], "print is an intrinsic")
assert(by_name["print"]["context"] == "call", "print is called")
x := by_name["x"]
assert(x["resolved"] && x["target_kind"] == "variable", "x resolves to the local")
assert(x["target_start"] == %d, 'x target {x["target_start"]}')
`, offsetOf(t, src, "x ="))
	_, err := rt.RunRuleSource(context.Background(), "refs", script, u)
	require.NoError(t, err)
}

func TestRunRuleSource_Diagnostics(t *testing.T) {
	t.Parallel()
	u := compileUnit(t, `var x: Int = "hi";`)
	rt := NewRuntime("")

	script := `
diags := diagnostics()
assert(len(diags) == 1, "one diagnostic")
assert(diags[0]["message"] == "cannot assign String to Int", diags[0]["message"])
assert(diags[0]["line"] == 1, "line")
`
	_, err := rt.RunRuleSource(context.Background(), "diags", script, u)
	require.NoError(t, err)
}

func TestRunRuleSource_LookupTypeOfLineCol(t *testing.T) {
	t.Parallel()
	u := compileUnit(t, spiralTestSource)
	rt := NewRuntime("")

	inBody := offsetOf(t, spiralTestSource, "a + b")
	script := fmt.Sprintf(`
sym := lookup(%d, "a")
assert(sym["kind"] == "parameter", 'lookup a: {sym["kind"]}')
assert(lookup(%d, "nope") == nil, "unknown names are nil")
assert(lookup(0, "a") == nil, "parameters are not visible at top level")
assert(lookup(0, "print")["builtin"], "intrinsics are visible everywhere")

assert(type_of(%d) == "Int", 'type_of a: {type_of(%d)}')

pos := line_col(%d)
assert(pos[0] == 4 && pos[1] == 12, 'line_col {pos}')
`, inBody, inBody, inBody, inBody, inBody)
	_, err := rt.RunRuleSource(context.Background(), "lookup", script, u)
	require.NoError(t, err)
}

func TestRunRuleSource_Log(t *testing.T) {
	t.Parallel()
	u := compileUnit(t, "var x = 1;")
	var out bytes.Buffer
	rt := NewRuntime("", WithLogOutput(&out))

	_, err := rt.RunRuleSource(context.Background(), "log", `log.Warn('checking {file_path}')`, u)
	require.NoError(t, err)
	assert.Equal(t, "[spiral] WARN: checking test.sp\n", out.String())
}

func TestRunRuleSource_ScriptError(t *testing.T) {
	t.Parallel()
	u := compileUnit(t, "var x = 1;")
	rt := NewRuntime("")

	_, err := rt.RunRuleSource(context.Background(), "broken", `assert(false, "boom")`, u)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

// --- Rule discovery and the built-in rules ---

func TestRules_FromFS(t *testing.T) {
	t.Parallel()
	mapFS := fstest.MapFS{
		"rules/b.risor":        &fstest.MapFile{Data: []byte(``)},
		"rules/a.risor":        &fstest.MapFile{Data: []byte(``)},
		"rules/nested/c.risor": &fstest.MapFile{Data: []byte(``)},
		"rules/README.md":      &fstest.MapFile{Data: []byte(`x`)},
		"other/d.risor":        &fstest.MapFile{Data: []byte(``)},
	}
	rt := NewRuntime("", WithRuntimeFS(mapFS))

	paths, err := rt.Rules()
	require.NoError(t, err)
	assert.Equal(t, []string{"rules/a.risor", "rules/b.risor", "rules/nested/c.risor"}, paths)
}

func TestRules_FromDir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, RulesDir), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, RulesDir, "only.risor"), []byte(`report("x")`), 0o644))

	rt := NewRuntime(dir)
	paths, err := rt.Rules()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(RulesDir, "only.risor")}, paths)

	found, err := rt.RunRules(context.Background(), paths, compileUnit(t, "var x = 1;"))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "only", found[0].Rule)
}

func TestRules_NoSource(t *testing.T) {
	t.Parallel()
	paths, err := NewRuntime("").Rules()
	require.NoError(t, err)
	assert.Empty(t, paths)

	paths, err = NewRuntime(t.TempDir()).Rules()
	require.NoError(t, err)
	assert.Empty(t, paths)

	paths, err = NewRuntime("", WithRuntimeFS(fstest.MapFS{})).Rules()
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestBuiltinRules(t *testing.T) {
	t.Parallel()
	rt := NewRuntime("", WithRuntimeFS(scripts.FS))
	paths, err := rt.Rules()
	require.NoError(t, err)
	assert.Equal(t, []string{"rules/shadowed_name.risor", "rules/unused_variable.risor"}, paths)

	u := compileUnit(t, spiralTestSource)
	found, err := rt.RunRules(context.Background(), paths, u)
	require.NoError(t, err)
	require.Len(t, found, 2)

	assert.Equal(t, "unused_variable", found[0].Rule)
	assert.Equal(t, "unused is declared but never used", found[0].Message)
	assert.Equal(t, offsetOf(t, spiralTestSource, "unused"), found[0].Span.Start)

	assert.Equal(t, "shadowed_name", found[1].Rule)
	assert.Equal(t, "count shadows variable declared at line 1", found[1].Message)
	assert.Equal(t, offsetOf(t, spiralTestSource, "count = sum"), found[1].Span.Start)
}

func TestBuiltinRules_CleanFile(t *testing.T) {
	t.Parallel()
	rt := NewRuntime("", WithRuntimeFS(scripts.FS))
	paths, err := rt.Rules()
	require.NoError(t, err)

	u := compileUnit(t, `
class Counter {
	var n: Int;
	func inc(by: Int) { n = n + by; }
}
func bump(c: Counter) {
	var step = 2;
	c.inc(step);
}
`)
	found, err := rt.RunRules(context.Background(), paths, u)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestRunRules_Canceled(t *testing.T) {
	t.Parallel()
	rt := NewRuntime("", WithRuntimeFS(scripts.FS))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := rt.RunRules(ctx, []string{"rules/unused_variable.risor"}, compileUnit(t, "var x = 1;"))
	assert.ErrorIs(t, err, context.Canceled)
}

// --- Store host functions ---

func newIndexedStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate())

	fileID, err := s.InsertFile(&store.File{Path: "a.sp", Module: "a", Hash: "h"})
	require.NoError(t, err)
	_, err = s.InsertSymbol(&store.Symbol{
		FileID: fileID, Name: "add", Kind: "function", TypeText: "func add(a: Int, b: Int): Int",
		StartLine: 2, StartCol: 6, EndLine: 2, EndCol: 9, StartOffset: 24, EndOffset: 27,
	})
	require.NoError(t, err)
	_, err = s.InsertDiagnostic(&store.Diagnostic{
		FileID: fileID, Message: "undefined name x", Source: store.SourceSemantic, HasSpan: true,
		StartLine: 3, StartCol: 2, EndLine: 3, EndCol: 3, StartOffset: 40, EndOffset: 41,
	})
	require.NoError(t, err)
	return s
}

func TestStoreFuncs(t *testing.T) {
	t.Parallel()
	rt := NewRuntime("", WithStore(newIndexedStore(t)))

	script := `
rows := db_query("SELECT name, kind FROM symbols WHERE kind = ?", "function")
assert(len(rows) == 1, 'rows {len(rows)}')
assert(rows[0]["name"] == "add", "db_query row")

syms := symbols_by_name("add")
assert(len(syms) == 1 && syms[0]["start_line"] == 2, "symbols_by_name")
assert(syms[0]["type"] == "func add(a: Int, b: Int): Int", "symbol type")

diags := diagnostics_by_file(syms[0]["file_id"])
assert(len(diags) == 1 && diags[0]["source"] == "semantic", "diagnostics_by_file")
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestDBQuery_RejectsWrites(t *testing.T) {
	t.Parallel()
	rt := NewRuntime("", WithStore(newIndexedStore(t)))

	err := rt.RunSource(context.Background(), `db_query("DELETE FROM symbols")`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only SELECT")
}

func TestStoreFuncs_AbsentWithoutStore(t *testing.T) {
	t.Parallel()
	err := NewRuntime("").RunSource(context.Background(), `db_query("SELECT 1")`, nil)
	assert.Error(t, err)
}

// --- Script loading ---

func TestRunScript_LoadsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.risor"), []byte(`result := 1 + 1`), 0o644))

	rt := NewRuntime(dir)
	require.NoError(t, rt.RunScript(context.Background(), "test.risor", nil))
}

func TestRunScript_MissingFile(t *testing.T) {
	rt := NewRuntime(t.TempDir())
	err := rt.RunScript(context.Background(), "nonexistent.risor", nil)
	require.Error(t, err)
}

func TestLoadScript_FromFS(t *testing.T) {
	t.Parallel()

	content := `x := 42`
	mapFS := fstest.MapFS{
		"rules/x.risor": &fstest.MapFile{Data: []byte(content)},
	}
	rt := NewRuntime("", WithRuntimeFS(mapFS))

	got, err := rt.LoadScript("rules/x.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	// Absolute-style path should be resolved within the FS.
	got, err = rt.LoadScript("/rules/x.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	_, err = rt.LoadScript("missing.risor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from fs")
}

func TestLoadScript_FallsBackToDisk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	content := `z := 7`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.risor"), []byte(content), 0o644))

	got, err := NewRuntime(dir).LoadScript("test.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

// --- Importer wiring ---

func TestImport_FSImporter(t *testing.T) {
	// FSImporter resolves "lib_helpers" by trying name + ".risor" at the
	// root of the FS.
	mapFS := fstest.MapFS{
		"lib_helpers.risor": &fstest.MapFile{Data: []byte(`
func is_local(sym) {
	return sym["scope_kind"] == "block"
}
`)},
	}
	rt := NewRuntime("", WithRuntimeFS(mapFS))

	script := `
import lib_helpers

n := 0
for _, s := range symbols() {
    if lib_helpers.is_local(s) {
        n += 1
    }
}
assert(n == 3, 'expected 3 locals, got {n}')
`
	_, err := rt.RunRuleSource(context.Background(), "import", script, compileUnit(t, spiralTestSource))
	require.NoError(t, err)
}

func TestImport_GlobalsAvailableInImportedModules(t *testing.T) {
	// Imported modules can reference host-provided globals. If global names
	// aren't passed to the importer, this fails to compile.
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "helper.risor"), []byte(`
func do_log(msg) {
	log.Info(msg)
}
`), 0o644))

	var out bytes.Buffer
	rt := NewRuntime(dir, WithLogOutput(&out))
	require.NoError(t, rt.RunSource(context.Background(), "import helper\nhelper.do_log(\"test message\")", nil))
	assert.Contains(t, out.String(), "INFO: test message")
}
