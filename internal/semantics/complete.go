package semantics

import (
	"github.com/lucyelle/SpiralCompiler-sub000/internal/syntax"
)

// Completions returns the members that may follow a '.' applied to expr,
// in lookup order. It returns nil when expr has no members or failed to
// resolve.
func (c *Compilation) Completions(expr syntax.Expr) ([]Symbol, error) {
	t, err := c.TypeOf(expr)
	if err != nil {
		return nil, err
	}
	if t == Error {
		return nil, nil
	}
	return MembersOf(t), nil
}

// Visible returns every symbol visible from node, innermost scope first.
// Shadowed names appear once.
func (c *Compilation) Visible(node syntax.Node) (out []Symbol, err error) {
	defer catch(&err)
	seen := make(map[string]bool)
	for b := c.binders.Get(node); b != nil; b = b.Parent() {
		for _, sym := range b.Symbols() {
			if !seen[sym.Name()] {
				seen[sym.Name()] = true
				out = append(out, sym)
			}
		}
	}
	return out, nil
}
