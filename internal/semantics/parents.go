package semantics

import (
	"fmt"

	"github.com/lucyelle/SpiralCompiler-sub000/internal/syntax"
)

// ParentIndex maps each node of a tree to its parent. The tree itself never
// stores parent pointers, so the index is built by one pre-order traversal
// the first time a parent is requested.
type ParentIndex struct {
	root    *syntax.Program
	parents map[syntax.Node]syntax.Node
}

// NewParentIndex returns an unpopulated index over root.
func NewParentIndex(root *syntax.Program) *ParentIndex {
	return &ParentIndex{root: root}
}

func (p *ParentIndex) build() {
	if p.parents != nil {
		return
	}
	p.parents = make(map[syntax.Node]syntax.Node)
	var visit func(n syntax.Node)
	visit = func(n syntax.Node) {
		for _, c := range n.Children() {
			p.parents[c] = n
			visit(c)
		}
	}
	visit(p.root)
}

// Parent returns the parent of n. It returns ErrNotFound for the root and
// for nodes outside the tree.
func (p *ParentIndex) Parent(n syntax.Node) (syntax.Node, error) {
	p.build()
	parent, ok := p.parents[n]
	if !ok {
		if n == syntax.Node(p.root) {
			return nil, fmt.Errorf("parent of program root: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("parent of %T at %s: %w", n, n.Span(), ErrNotFound)
	}
	return parent, nil
}

// Contains reports whether n belongs to the indexed tree.
func (p *ParentIndex) Contains(n syntax.Node) bool {
	p.build()
	_, ok := p.parents[n]
	return ok || n == syntax.Node(p.root)
}

// ScopeOf returns the nearest scope-defining node at or above n.
func (p *ParentIndex) ScopeOf(n syntax.Node) syntax.Node {
	for {
		if isScope(n) {
			return n
		}
		parent, err := p.Parent(n)
		if err != nil {
			invariantf(err, "no enclosing scope")
		}
		n = parent
	}
}

// isScope reports whether n introduces a lexical scope.
func isScope(n syntax.Node) bool {
	switch n.(type) {
	case *syntax.Program, *syntax.FuncDecl, *syntax.BlockStmt, *syntax.ClassDecl, *syntax.InterfaceDecl:
		return true
	}
	return false
}
