package spiral

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucyelle/SpiralCompiler-sub000/internal/store"
)

// findModuleRoot walks up from cwd to find go.mod, returning the repo root.
func findModuleRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	require.NoError(t, err)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find module root")
		}
		dir = parent
	}
}

// newIntegrationEngine creates an Engine backed by a temp DB and the real
// scripts dir.
func newIntegrationEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "integration.db")
	scriptsDir := filepath.Join(findModuleRoot(t), "scripts")

	e, err := New(dbPath, scriptsDir, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

const animalsSource = `interface Speaker {
	func speak(): String;
}

class Animal: Speaker {
	var name: String = "animal";
	func speak(): String { return name; }
}

class Dog: Animal {
	func fetch(): Int { return 1; }
}

func describe(s: Speaker): String {
	return s.speak();
}

func main(d: Dog) {
	var said = describe(d);
	print(said);
	print(d.fetch());
}
`

// indexAnimals indexes animalsSource and returns the engine and file path.
func indexAnimals(t *testing.T) (*Engine, string) {
	t.Helper()
	e := newIntegrationEngine(t)
	path := writeSource(t, t.TempDir(), "animals.sp", animalsSource)
	require.NoError(t, e.IndexFiles(context.Background(), []string{path}))
	return e, path
}

// findSymbol returns the only symbol with the given name and kind.
func findSymbol(t *testing.T, e *Engine, name, kind string) SymbolResult {
	t.Helper()
	result, err := e.Query().SearchSymbols(name, SymbolFilter{Kinds: []string{kind}}, Sort{}, Pagination{})
	require.NoError(t, err)
	require.Len(t, result.Items, 1, "symbol %s %s", kind, name)
	return result.Items[0]
}

// findMember returns the member of a class or interface.
func findMember(t *testing.T, e *Engine, parentID int64, name string) SymbolResult {
	t.Helper()
	result, err := e.Query().SearchSymbols(name, SymbolFilter{ParentID: &parentID}, Sort{}, Pagination{})
	require.NoError(t, err)
	require.Len(t, result.Items, 1, "member %s", name)
	return result.Items[0]
}

func TestIntegration_CleanFileHasNoDiagnostics(t *testing.T) {
	e, path := indexAnimals(t)

	diags, err := e.Query().Diagnostics(path)
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestIntegration_Definition(t *testing.T) {
	e, path := indexAnimals(t)
	q := e.Query()

	// "describe" in: var said = describe(d);
	locs, err := q.DefinitionAt(path, 19, 13)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, path, locs[0].File)
	assert.Equal(t, 14, locs[0].StartLine)
	assert.Equal(t, 1, locs[0].StartCol)
	assert.Equal(t, 16, locs[0].EndLine)

	// "name" inside Animal.speak resolves to the field.
	locs, err = q.DefinitionAt(path, 7, 32)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, 6, locs[0].StartLine)

	// "print" is built in.
	locs, err = q.DefinitionAt(path, 20, 3)
	require.NoError(t, err)
	assert.Nil(t, locs)
}

func TestIntegration_TargetAtParameterUse(t *testing.T) {
	e, path := indexAnimals(t)

	// "d" in: print(d.fetch());
	sym, err := e.Query().TargetAt(path, 21, 8)
	require.NoError(t, err)
	require.NotNil(t, sym)
	assert.Equal(t, "d", sym.Name)
	assert.Equal(t, "parameter", sym.Kind)
	assert.Equal(t, "Dog", sym.TypeText)
	assert.Equal(t, 2, sym.RefCount)
}

func TestIntegration_References(t *testing.T) {
	e, _ := indexAnimals(t)

	describe := findSymbol(t, e, "describe", "function")
	assert.Equal(t, "func describe(s: Speaker): String", describe.TypeText)
	assert.Equal(t, 1, describe.CallerCount)

	locs, err := e.Query().ReferencesTo(describe.ID)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, 19, locs[0].StartLine)
	assert.Equal(t, 13, locs[0].StartCol)
	assert.Equal(t, 21, locs[0].EndCol)

	speaker := findSymbol(t, e, "Speaker", "interface")
	locs, err = e.Query().ReferencesTo(speaker.ID)
	require.NoError(t, err)
	var lines []int
	for _, l := range locs {
		lines = append(lines, l.StartLine)
	}
	assert.Equal(t, []int{5, 14}, lines)
}

func TestIntegration_TypeHierarchy(t *testing.T) {
	e, _ := indexAnimals(t)
	q := e.Query()

	animal := findSymbol(t, e, "Animal", "class")
	h, err := q.TypeHierarchy(animal.ID)
	require.NoError(t, err)
	require.Len(t, h.Bases, 1)
	assert.Equal(t, "Speaker", h.Bases[0].Symbol.Name)
	assert.Equal(t, RelationImplements, h.Bases[0].Kind)
	require.Len(t, h.Subtypes, 1)
	assert.Equal(t, "Dog", h.Subtypes[0].Symbol.Name)
	assert.Equal(t, RelationInherits, h.Subtypes[0].Kind)

	speaker := findSymbol(t, e, "Speaker", "interface")
	subs, err := q.Subtypes(speaker.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, 5, subs[0].StartLine)
}

func TestIntegration_CallGraph(t *testing.T) {
	e, _ := indexAnimals(t)
	q := e.Query()

	main := findSymbol(t, e, "main", "function")
	graph, err := q.TransitiveCallees(main.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, graph.Depth)
	assert.ElementsMatch(t, []string{"describe", "fetch"}, nodeNames(graph, 1))
	assert.Equal(t, []string{"speak"}, nodeNames(graph, 2))

	// print is a built-in callee: an edge without a symbol.
	callees, err := q.Callees(main.ID)
	require.NoError(t, err)
	builtins := 0
	for _, c := range callees {
		if c.CalleeSymbolID == nil {
			builtins++
			assert.Equal(t, "print", c.CalleeName)
		}
	}
	assert.Equal(t, 2, builtins)

	speaker := findSymbol(t, e, "Speaker", "interface")
	speak := findMember(t, e, speaker.ID, "speak")
	graph, err = q.TransitiveCallers(speak.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"describe"}, nodeNames(graph, 1))
	assert.Equal(t, []string{"main"}, nodeNames(graph, 2))
}

func TestIntegration_SymbolDetailAndScopes(t *testing.T) {
	e, path := indexAnimals(t)
	q := e.Query()

	main := findSymbol(t, e, "main", "function")
	detail, err := q.SymbolDetail(main.ID)
	require.NoError(t, err)
	require.Len(t, detail.Parameters, 1)
	assert.Equal(t, "d", detail.Parameters[0].Name)
	assert.Equal(t, "Dog", detail.Parameters[0].TypeText)

	animal := findSymbol(t, e, "Animal", "class")
	detail, err = q.SymbolDetail(animal.ID)
	require.NoError(t, err)
	require.Len(t, detail.Members, 2)
	assert.Equal(t, "name", detail.Members[0].Name)
	assert.Equal(t, "field", detail.Members[0].Kind)
	assert.Equal(t, "speak", detail.Members[1].Name)

	chain, err := q.ScopeAt(path, 20, 3)
	require.NoError(t, err)
	var kinds []string
	for _, sc := range chain {
		kinds = append(kinds, sc.Kind)
	}
	assert.Equal(t, []string{"block", "function", "module"}, kinds)
	require.NotNil(t, chain[1].SymbolID)
	assert.Equal(t, main.ID, *chain[1].SymbolID)
}

func TestIntegration_UnusedAndHotspots(t *testing.T) {
	e, _ := indexAnimals(t)
	q := e.Query()

	unused, err := q.UnusedSymbols(SymbolFilter{}, Sort{}, Pagination{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"speak", "main"}, names(unused.Items))

	hot, err := q.Hotspots(1)
	require.NoError(t, err)
	require.Len(t, hot, 1)
	// d is read twice and Speaker is named twice; ties go to the lower ID.
	assert.Equal(t, "Speaker", hot[0].Symbol.Name)
	assert.Equal(t, 2, hot[0].Symbol.RefCount)
}

func TestIntegration_DiagnosticsFromAllSources(t *testing.T) {
	e := newIntegrationEngine(t)
	dir := t.TempDir()
	path := writeSource(t, dir, "errors.sp", `var level: Int = 1;

func main() {
	var level = "high";
	var spare = 0;
	print(level);
	print(nothing);
}
`)
	broken := writeSource(t, dir, "broken.sp", "class {\n")
	require.NoError(t, e.IndexFiles(context.Background(), []string{path, broken}))

	diags, err := e.Query().Diagnostics(path)
	require.NoError(t, err)
	type row struct {
		Line   int
		Source string
		Msg    string
	}
	var got []row
	for _, d := range diags {
		require.True(t, d.HasSpan)
		got = append(got, row{d.StartLine, d.Source, d.Message})
	}
	assert.Equal(t, []row{
		{4, store.SourceRule, "shadowed_name: level shadows variable declared at line 1"},
		{5, store.SourceRule, "unused_variable: spare is declared but never used"},
		{7, store.SourceSemantic, "undefined name nothing"},
	}, got)

	diags, err = e.Query().Diagnostics(broken)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, store.SourceSyntax, diags[0].Source)
}

func TestIntegration_IncrementalReindex(t *testing.T) {
	e := newIntegrationEngine(t)
	ctx := context.Background()
	dir := t.TempDir()
	path := writeSource(t, dir, "calc.sp", "func add(a: Int, b: Int): Int { return a + b; }\n")
	require.NoError(t, e.IndexFiles(ctx, []string{path}))
	e.Changes()

	// Add a caller; add itself keeps its signature.
	writeSource(t, dir, "calc.sp", "func add(a: Int, b: Int): Int { return a + b; }\nfunc twice(x: Int): Int { return add(x, x); }\n")
	require.NoError(t, e.IndexFiles(ctx, []string{path}))

	changes := e.Changes()
	require.Len(t, changes, 1)
	assert.Equal(t, []string{"function .twice", "parameter twice.x"}, changes[0].Added)
	assert.Empty(t, changes[0].Changed)
	assert.Empty(t, changes[0].Removed)

	add := findSymbol(t, e, "add", "function")
	callers, err := e.Query().Callers(add.ID)
	require.NoError(t, err)
	require.Len(t, callers, 1)
	assert.Equal(t, 2, callers[0].Line)

	// Only one copy of each declaration survives re-indexing.
	result, err := e.Query().Symbols(SymbolFilter{}, Sort{}, Pagination{})
	require.NoError(t, err)
	assert.Equal(t, 5, result.TotalCount)
}

func TestIntegration_IndexDirectoryThenQuery(t *testing.T) {
	e := newIntegrationEngine(t)
	root := t.TempDir()
	writeSource(t, root, "animals.sp", animalsSource)
	writeSource(t, root, filepath.Join("util", "math.sp"), "func sq(n: Int): Int { return n * n; }\n")

	require.NoError(t, e.IndexDirectory(context.Background(), root))

	files, err := e.Query().Files(root, Sort{}, Pagination{})
	require.NoError(t, err)
	require.Len(t, files.Items, 2)
	assert.Equal(t, "animals", files.Items[0].Module)
	assert.Equal(t, "math", files.Items[1].Module)

	result, err := e.Query().Symbols(SymbolFilter{PathPrefix: strPtr(filepath.Join(root, "util"))}, Sort{}, Pagination{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"sq", "n"}, names(result.Items))

	summary, err := e.Query().ProjectSummary(3)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.FileCount)
	assert.Equal(t, 2, summary.KindCounts["class"])
	assert.Empty(t, summary.DiagnosticCounts)
}
