package semantics

import (
	"github.com/lucyelle/SpiralCompiler-sub000/internal/syntax"
)

// BinderCache holds at most one Binder per scope-defining node for the
// lifetime of a Compilation. It is not safe for concurrent use.
type BinderCache struct {
	c       *Compilation
	binders map[syntax.Node]Binder
}

func newBinderCache(c *Compilation) *BinderCache {
	return &BinderCache{c: c, binders: make(map[syntax.Node]Binder)}
}

// Get returns the binder of the scope enclosing node, node included.
func (bc *BinderCache) Get(node syntax.Node) Binder {
	scope := bc.c.parents.ScopeOf(node)
	if b, ok := bc.binders[scope]; ok {
		return b
	}
	b := bc.build(scope)
	bc.binders[scope] = b
	return b
}

func (bc *BinderCache) parentOf(scope syntax.Node) Binder {
	parent, err := bc.c.parents.Parent(scope)
	if err != nil {
		invariantf(err, "scope %T has no parent", scope)
	}
	return bc.Get(parent)
}

func (bc *BinderCache) build(scope syntax.Node) Binder {
	switch n := scope.(type) {
	case *syntax.Program:
		return &ModuleBinder{parent: &RootBinder{}, Module: bc.c.RootModule()}

	case *syntax.FuncDecl:
		parent := bc.parentOf(n)
		fn, ok := findDeclared(parent, n).(*FunctionSymbol)
		if !ok {
			invariantf(nil, "function %s was not declared before binding", n.Name.Text)
		}
		b := &FunctionBinder{parent: parent, Function: fn}
		for _, p := range fn.params {
			b.params = append(b.params, p)
		}
		return b

	case *syntax.ClassDecl, *syntax.InterfaceDecl:
		parent := bc.parentOf(n)
		t, ok := findDeclared(parent, n).(Type)
		if !ok {
			invariantf(nil, "type at %s was not declared before binding", n.Span())
		}
		return &ClassBinder{parent: parent, Class: t}

	case *syntax.BlockStmt:
		parent := bc.parentOf(n)
		var owner Symbol
		if fn := enclosingFunction(parent); fn != nil {
			owner = fn
		}
		return &BlockBinder{parent: parent, Block: n, locals: bc.c.blockLocals(n, owner)}
	}
	invariantf(nil, "%T does not define a scope", scope)
	panic("unreachable")
}

// findDeclared scans a scope's view for the symbol declared by node,
// looking inside overload sets.
func findDeclared(b Binder, node syntax.Node) Symbol {
	for _, sym := range b.Symbols() {
		switch s := sym.(type) {
		case *OverloadSymbol:
			for _, fn := range s.Functions {
				if fn.decl == node {
					return fn
				}
			}
		default:
			if s.Decl() == node {
				return s
			}
		}
	}
	return nil
}
