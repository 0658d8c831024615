package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureSource = `interface Speaker {
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

// execute runs the spiral command in-process and returns its output.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

// jsonResult is CLIResult with the results left undecoded.
type jsonResult struct {
	Command    string          `json:"command"`
	Results    json.RawMessage `json:"results"`
	TotalCount *int            `json:"total_count"`
	Error      string          `json:"error"`
}

func decodeResult(t *testing.T, stdout string, into any) jsonResult {
	t.Helper()
	var r jsonResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &r), "invalid JSON output: %s", stdout)
	if into != nil && r.Error == "" {
		require.NoError(t, json.Unmarshal(r.Results, into))
	}
	return r
}

// indexFixture writes the fixture into a temp dir and indexes it,
// returning the source path and database path.
func indexFixture(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "animals.sp")
	require.NoError(t, os.WriteFile(src, []byte(fixtureSource), 0o644))
	dbPath := filepath.Join(t.TempDir(), "index.db")

	_, stderr, err := execute(t, "index", dir, "--db", dbPath)
	require.NoError(t, err, stderr)
	assert.Contains(t, stderr, "Indexed "+dir)
	require.FileExists(t, dbPath)
	return src, dbPath
}

// query runs a query subcommand with JSON output.
func query(t *testing.T, dbPath string, into any, args ...string) jsonResult {
	t.Helper()
	full := append([]string{"query"}, args...)
	full = append(full, "--db", dbPath, "--format", "json")
	stdout, _, _ := execute(t, full...)
	return decodeResult(t, stdout, into)
}

func writeFile(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestCheckCmd_CleanFile(t *testing.T) {
	path := writeFile(t, "animals.sp", fixtureSource)

	stdout, _, err := execute(t, "check", path)
	require.NoError(t, err)
	assert.Empty(t, stdout)
}

func TestCheckCmd_ReportsDiagnostics(t *testing.T) {
	path := writeFile(t, "main.sp", "func main() {\n\tvar spare = 0;\n\tprint(missing);\n}\n")

	stdout, _, err := execute(t, "check", "--format", "json", path)
	require.Error(t, err)
	var r reported
	assert.True(t, errors.As(err, &r), "diagnostics are reported, not printed by main")

	var diags []CLIDiagnostic
	res := decodeResult(t, stdout, &diags)
	assert.Equal(t, "check", res.Command)
	want := []CLIDiagnostic{
		{File: path, Source: "rule", Message: "unused_variable: spare is declared but never used", StartLine: 2, StartCol: 6, EndLine: 2, EndCol: 11},
		{File: path, Source: "semantic", Message: "undefined name missing", StartLine: 3, StartCol: 8, EndLine: 3, EndCol: 15},
	}
	if diff := cmp.Diff(want, diags); diff != "" {
		t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckCmd_TextFormat(t *testing.T) {
	path := writeFile(t, "main.sp", "func main() {\n\tprint(missing);\n}\n")

	stdout, _, err := execute(t, "check", path)
	require.Error(t, err)
	assert.Equal(t, path+":2:8: semantic: undefined name missing\n", stdout)
}

func TestCheckCmd_SyntaxError(t *testing.T) {
	path := writeFile(t, "broken.sp", "var = 1;\n")

	stdout, _, err := execute(t, "check", path)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(stdout, path+":1:"), stdout)
	assert.Contains(t, stdout, ": syntax: ")
}

func TestCheckCmd_CustomRulesDir(t *testing.T) {
	scriptsDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(scriptsDir, "rules"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(scriptsDir, "rules", "every_file.risor"),
		[]byte(`report("checked " + file_path, 0, 1)`), 0o644))
	path := writeFile(t, "main.sp", "func main() {\n\tvar spare = 0;\n}\n")

	stdout, _, err := execute(t, "check", "--rules", scriptsDir, "--format", "json", path)
	require.Error(t, err)
	var diags []CLIDiagnostic
	decodeResult(t, stdout, &diags)
	require.Len(t, diags, 1, "the built-in rules are replaced")
	assert.Equal(t, "every_file: checked "+path, diags[0].Message)
}

func TestCheckCmd_ConfigFormat(t *testing.T) {
	cfg := writeConfig(t, t.TempDir(), "format: json\n")
	path := writeFile(t, "main.sp", "func main() {\n\tprint(missing);\n}\n")

	stdout, _, err := execute(t, "check", "--config", cfg, path)
	require.Error(t, err)
	var diags []CLIDiagnostic
	decodeResult(t, stdout, &diags)
	require.Len(t, diags, 1)

	// The flag wins over the config file.
	stdout, _, err = execute(t, "check", "--config", cfg, "--format", "text", path)
	require.Error(t, err)
	assert.Contains(t, stdout, ":2:8: semantic: ")
}

func TestCheckCmd_BadConfig(t *testing.T) {
	cfg := writeConfig(t, t.TempDir(), "colour: always\n")
	path := writeFile(t, "main.sp", "func main() {}\n")

	_, _, err := execute(t, "check", "--config", cfg, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "colour")
}

func TestIndexCmd_Force(t *testing.T) {
	src, dbPath := indexFixture(t)

	_, stderr, err := execute(t, "index", filepath.Dir(src), "--db", dbPath, "--force", "--parallel=false")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Cleared database: "+dbPath)

	var syms []CLISymbol
	query(t, dbPath, &syms, "symbols", "--kind", "class")
	assert.Len(t, syms, 2)
}

func TestIndexCmd_NotADirectory(t *testing.T) {
	path := writeFile(t, "main.sp", "func main() {}\n")

	_, _, err := execute(t, "index", path, "--db", filepath.Join(t.TempDir(), "index.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestQueryCmd_Symbols(t *testing.T) {
	_, dbPath := indexFixture(t)

	var syms []CLISymbol
	res := query(t, dbPath, &syms, "symbols", "--kind", "class,interface")
	require.NotNil(t, res.TotalCount)
	assert.Equal(t, 3, *res.TotalCount)
	var names []string
	for _, s := range syms {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"Animal", "Dog", "Speaker"}, names)

	res = query(t, dbPath, &syms, "symbols", "des*")
	require.Len(t, syms, 1)
	assert.Equal(t, "describe", syms[0].Name)
	assert.Equal(t, "func describe(s: Speaker): String", syms[0].Type)
	assert.Equal(t, 1, syms[0].CallerCount)
}

func TestQueryCmd_DefinitionAndReferences(t *testing.T) {
	src, dbPath := indexFixture(t)

	var locs []CLILocation
	query(t, dbPath, &locs, "definition", src, "19", "13")
	require.Len(t, locs, 1)
	assert.Equal(t, src, locs[0].File)
	assert.Equal(t, 14, locs[0].StartLine)
	require.NotNil(t, locs[0].SymbolID)

	// Chain the definition's symbol into a references query.
	query(t, dbPath, &locs, "references", "--symbol", strconv.FormatInt(*locs[0].SymbolID, 10))
	require.Len(t, locs, 1)
	assert.Equal(t, 19, locs[0].StartLine)
	assert.Equal(t, 13, locs[0].StartCol)
}

func TestQueryCmd_CallersAndCallees(t *testing.T) {
	src, dbPath := indexFixture(t)

	// Inside the name of describe's declaration.
	var edges []CLICallEdge
	query(t, dbPath, &edges, "callers", src, "14", "7")
	require.Len(t, edges, 1)
	assert.Equal(t, "main", edges[0].CallerName)
	assert.Equal(t, 19, edges[0].Line)

	query(t, dbPath, &edges, "callees", src, "18", "7")
	require.Len(t, edges, 4)
	var builtins []string
	for _, e := range edges {
		if e.CalleeID == nil {
			builtins = append(builtins, e.CalleeName)
		}
	}
	assert.Equal(t, []string{"print", "print"}, builtins)
}

func TestQueryCmd_Hierarchy(t *testing.T) {
	src, dbPath := indexFixture(t)

	var h CLITypeHierarchy
	query(t, dbPath, &h, "hierarchy", src, "5", "8")
	assert.Equal(t, "Animal", h.Symbol.Name)
	require.Len(t, h.Bases, 1)
	assert.Equal(t, "Speaker", h.Bases[0].Symbol.Name)
	assert.Equal(t, "implements", h.Bases[0].Kind)
	require.Len(t, h.Subtypes, 1)
	assert.Equal(t, "Dog", h.Subtypes[0].Symbol.Name)
	assert.Equal(t, "inherits", h.Subtypes[0].Kind)
}

func TestQueryCmd_Diagnostics(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.sp"), []byte("func main() {\n\tprint(missing);\n}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ok.sp"), []byte("func ok() {}\n"), 0o644))
	dbPath := filepath.Join(t.TempDir(), "index.db")
	_, stderr, err := execute(t, "index", dir, "--db", dbPath)
	require.NoError(t, err, stderr)

	var diags []CLIDiagnostic
	query(t, dbPath, &diags, "diagnostics")
	require.Len(t, diags, 1)
	assert.Equal(t, filepath.Join(dir, "main.sp"), diags[0].File)
	assert.Equal(t, "undefined name missing", diags[0].Message)

	query(t, dbPath, &diags, "diagnostics", filepath.Join(dir, "ok.sp"))
	assert.Empty(t, diags)
}

func TestQueryCmd_MissingDatabase(t *testing.T) {
	res := query(t, filepath.Join(t.TempDir(), "none.db"), nil, "symbols")
	assert.Equal(t, "symbols", res.Command)
	assert.Contains(t, res.Error, "database not found")
}

func TestQueryCmd_NoSymbolAtPosition(t *testing.T) {
	src, dbPath := indexFixture(t)

	res := query(t, dbPath, nil, "references", src, "4", "1")
	assert.Contains(t, res.Error, "no symbol found")
}

func TestCompleteCmd(t *testing.T) {
	src := strings.Replace(fixtureSource, "print(d.fetch());", "print(d.);", 1)
	path := writeFile(t, "animals.sp", src)
	offset := strings.Index(src, "print(d.") + len("print(d.")

	stdout, _, err := execute(t, "complete", path, strconv.Itoa(offset), "--format", "json")
	require.NoError(t, err)
	var cs []CLICompletion
	decodeResult(t, stdout, &cs)
	var names []string
	for _, c := range cs {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"fetch", "name", "speak"}, names)
}
