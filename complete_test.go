package spiral

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completeSource = `class Base {
	var id: Int;
}

class Item: Base {
	var label: String;
	func show(): String { return label; }
}

func use(item: Item, count: Int) {
	var cost = 2;
	print(%s);
}
`

// itemsSource fills the print argument in completeSource with expr.
func itemsSource(expr string) string {
	return strings.Replace(completeSource, "%s", expr, 1)
}

// cursorAfter returns the offset just past the first occurrence of marker.
func cursorAfter(t *testing.T, src, marker string) int {
	t.Helper()
	i := strings.Index(src, marker)
	require.GreaterOrEqual(t, i, 0, "marker %q", marker)
	return i + len(marker)
}

func completionNames(cs []Completion) []string {
	var out []string
	for _, c := range cs {
		out = append(out, c.Name)
	}
	return out
}

func TestComplete_MembersIncludeInherited(t *testing.T) {
	a := newTestAnalyzer(t)

	src := itemsSource("item.")
	cs, err := a.Complete("items.sp", src, cursorAfter(t, src, "print(item."))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"label", "show", "id"}, completionNames(cs))

	for _, c := range cs {
		switch c.Name {
		case "label":
			assert.Equal(t, "field", c.Kind)
			assert.Equal(t, "String", c.Type)
		case "show":
			assert.Equal(t, "function", c.Kind)
			assert.Equal(t, "func show(): String", c.Type)
		}
	}
}

func TestComplete_MemberPrefix(t *testing.T) {
	a := newTestAnalyzer(t)

	src := itemsSource("item.sh")
	cs, err := a.Complete("items.sp", src, cursorAfter(t, src, "item.sh"))
	require.NoError(t, err)
	assert.Equal(t, []string{"show"}, completionNames(cs))
}

func TestComplete_VisibleNamesWithPrefix(t *testing.T) {
	a := newTestAnalyzer(t)

	src := itemsSource("co")
	cs, err := a.Complete("items.sp", src, cursorAfter(t, src, "print(co"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"count", "cost"}, completionNames(cs))
}

func TestComplete_VisibleNamesReachModuleAndBuiltins(t *testing.T) {
	a := newTestAnalyzer(t)

	src := "func main() {\n\t\n}\n"
	cs, err := a.Complete("main.sp", src, cursorAfter(t, src, "{\n\t"))
	require.NoError(t, err)
	names := completionNames(cs)
	assert.Contains(t, names, "main")
	assert.Contains(t, names, "print")
	assert.Contains(t, names, "Int")
}

func TestComplete_NoMembersOnUnknownType(t *testing.T) {
	a := newTestAnalyzer(t)

	src := "func main() {\n\tprint(nothing.);\n}\n"
	cs, err := a.Complete("main.sp", src, cursorAfter(t, src, "nothing."))
	require.NoError(t, err)
	assert.Empty(t, cs)
}

func TestComplete_UnparseableSource(t *testing.T) {
	a := newTestAnalyzer(t)

	src := "func f( {\n"
	cs, err := a.Complete("main.sp", src, len(src))
	require.NoError(t, err)
	assert.Nil(t, cs)
}

func TestComplete_OffsetOutOfRange(t *testing.T) {
	a := newTestAnalyzer(t)

	_, err := a.Complete("main.sp", "func f() {}", -1)
	assert.Error(t, err)
	_, err = a.Complete("main.sp", "func f() {}", 100)
	assert.Error(t, err)
}
