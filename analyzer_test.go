package spiral

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucyelle/SpiralCompiler-sub000/internal/store"
	"github.com/lucyelle/SpiralCompiler-sub000/scripts"
)

func newTestAnalyzer(t *testing.T, opts ...Option) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer("", opts...)
	require.NoError(t, err)
	return a
}

func TestCheck_CleanFile(t *testing.T) {
	a := newTestAnalyzer(t)

	res, err := a.Check(context.Background(), "calc.sp", "func add(a: Int, b: Int): Int { return a + b; }\n")
	require.NoError(t, err)
	assert.Equal(t, "calc.sp", res.Path)
	require.NotNil(t, res.Compilation)
	assert.Empty(t, res.Diagnostics)
}

func TestCheck_SyntaxError(t *testing.T) {
	a := newTestAnalyzer(t)

	res, err := a.Check(context.Background(), "broken.sp", "func f( {\n")
	require.NoError(t, err)
	assert.Nil(t, res.Compilation)
	require.Len(t, res.Diagnostics, 1)
	d := res.Diagnostics[0]
	assert.Equal(t, store.SourceSyntax, d.Source)
	assert.True(t, d.HasSpan)
	assert.Equal(t, 1, d.StartLine)
}

func TestCheck_SemanticError(t *testing.T) {
	a := newTestAnalyzer(t)

	res, err := a.Check(context.Background(), "main.sp", "func main() {\n\tprint(missing);\n}\n")
	require.NoError(t, err)
	require.NotNil(t, res.Compilation)
	require.Len(t, res.Diagnostics, 1)
	d := res.Diagnostics[0]
	assert.Equal(t, store.SourceSemantic, d.Source)
	assert.Equal(t, "undefined name missing", d.Message)
	assert.Equal(t, 2, d.StartLine)
	assert.Equal(t, 8, d.StartCol)
}

func TestCheck_RulesFromEmbeddedScripts(t *testing.T) {
	a := newTestAnalyzer(t, WithScriptsFS(scripts.FS))
	assert.Equal(t, []string{"rules/shadowed_name.risor", "rules/unused_variable.risor"}, a.Rules())

	res, err := a.Check(context.Background(), "main.sp", "func main() {\n\tvar spare = 0;\n}\n")
	require.NoError(t, err)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, store.SourceRule, res.Diagnostics[0].Source)
	assert.Equal(t, "unused_variable: spare is declared but never used", res.Diagnostics[0].Message)
	assert.Equal(t, 2, res.Diagnostics[0].StartLine)
}

func TestCheck_DiagnosticsInDocumentOrder(t *testing.T) {
	a := newTestAnalyzer(t, WithScriptsFS(scripts.FS))

	src := `func main() {
	var spare = 0;
	print(missing);
	var level = 1;
	print(level);
	print(nowhere);
}
`
	res, err := a.Check(context.Background(), "main.sp", src)
	require.NoError(t, err)

	var lines []int
	var sources []string
	for _, d := range res.Diagnostics {
		lines = append(lines, d.StartLine)
		sources = append(sources, d.Source)
	}
	assert.Equal(t, []int{2, 3, 6}, lines)
	assert.Equal(t, []string{store.SourceRule, store.SourceSemantic, store.SourceSemantic}, sources)
}

func TestCheck_WithRulesDisabled(t *testing.T) {
	a := newTestAnalyzer(t, WithScriptsFS(scripts.FS), WithRules(false))
	assert.Empty(t, a.Rules())

	res, err := a.Check(context.Background(), "main.sp", "func main() {\n\tvar spare = 0;\n}\n")
	require.NoError(t, err)
	assert.Empty(t, res.Diagnostics)
}

func TestCheck_MissingRulesDirHasNoRules(t *testing.T) {
	a, err := NewAnalyzer(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, a.Rules())
}

func TestCheck_ConcurrentUse(t *testing.T) {
	a := newTestAnalyzer(t, WithScriptsFS(scripts.FS))
	src := "func main() {\n\tvar spare = 0;\n}\n"

	var wg sync.WaitGroup
	errs := make([]error, 8)
	counts := make([]int, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := a.Check(context.Background(), "main.sp", src)
			errs[i] = err
			if err == nil {
				counts[i] = len(res.Diagnostics)
			}
		}(i)
	}
	wg.Wait()
	for i := range errs {
		require.NoError(t, errs[i])
		assert.Equal(t, 1, counts[i])
	}
}

func TestModuleName(t *testing.T) {
	a := newTestAnalyzer(t)
	assert.Equal(t, "calc", a.ModuleName("/src/lib/calc.sp"))
	assert.Equal(t, "main", a.ModuleName(".sp"))

	named := newTestAnalyzer(t, WithModuleName("app"))
	assert.Equal(t, "app", named.ModuleName("/src/lib/calc.sp"))
}
