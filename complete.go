package spiral

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lucyelle/SpiralCompiler-sub000/internal/semantics"
	"github.com/lucyelle/SpiralCompiler-sub000/internal/syntax"
)

// completionMarker stands in for the partially typed name while the
// source is re-parsed.
const completionMarker = "__complete"

// A Completion is one candidate name at a cursor.
type Completion struct {
	Name string
	Kind string
	Type string
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// Complete returns the names that may be written at offset in src. After a
// '.', these are the members of the expression before the dot; otherwise
// they are the names visible at the cursor. Candidates are filtered by the
// part of the name already typed. A source that does not parse even with
// the cursor filled in yields no candidates.
func (a *Analyzer) Complete(path, src string, offset int) ([]Completion, error) {
	if offset < 0 || offset > len(src) {
		return nil, fmt.Errorf("complete: offset %d out of range", offset)
	}
	start := offset
	for start > 0 && isIdentByte(src[start-1]) {
		start--
	}
	end := offset
	for end < len(src) && isIdentByte(src[end]) {
		end++
	}
	prefix := src[start:offset]
	member := start > 0 && src[start-1] == '.'

	var prog *syntax.Program
	var err error
	for _, fill := range []string{completionMarker, completionMarker + ";"} {
		prog, err = syntax.Parse(path, src[:start]+fill+src[end:])
		if err == nil {
			break
		}
	}
	if err != nil {
		var list syntax.ErrorList
		if errors.As(err, &list) {
			return nil, nil
		}
		return nil, fmt.Errorf("complete: %w", err)
	}
	comp := semantics.New(prog, semantics.WithModuleName(a.ModuleName(path)))

	var candidates []semantics.Symbol
	if member {
		x := findMarkerMember(prog)
		if x == nil {
			return nil, nil
		}
		candidates, err = comp.Completions(x.X)
	} else {
		at := syntax.Innermost[syntax.Node](prog, start)
		if at == nil {
			at = prog
		}
		candidates, err = comp.Visible(at)
	}
	if err != nil {
		return nil, fmt.Errorf("complete: %w", err)
	}

	seen := make(map[string]bool)
	out := []Completion{}
	for _, sym := range candidates {
		name := sym.Name()
		if seen[name] || !strings.HasPrefix(name, prefix) {
			continue
		}
		seen[name] = true
		out = append(out, Completion{Name: name, Kind: sym.Kind().String(), Type: semantics.TypeText(sym)})
	}
	return out, nil
}

func findMarkerMember(prog *syntax.Program) *syntax.MemberExpr {
	var found *syntax.MemberExpr
	syntax.Walk(prog, func(n syntax.Node) bool {
		if found != nil {
			return false
		}
		if x, ok := n.(*syntax.MemberExpr); ok && x.Name != nil && x.Name.Text == completionMarker {
			found = x
			return false
		}
		return true
	})
	return found
}
