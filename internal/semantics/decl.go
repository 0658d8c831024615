package semantics

import "github.com/lucyelle/SpiralCompiler-sub000/internal/syntax"

// NameToken returns the identifier token that declares sym, or nil for
// symbols with no declaration in the tree.
func NameToken(sym Symbol) *syntax.Token {
	switch n := sym.Decl().(type) {
	case *syntax.FuncDecl:
		return n.Name
	case *syntax.ClassDecl:
		return n.Name
	case *syntax.InterfaceDecl:
		return n.Name
	case *syntax.VarDecl:
		return n.Name
	case *syntax.Param:
		return n.Name
	}
	return nil
}

// DeclaringBinder returns the binder whose view contains sym: the scope
// around its declaration rather than the scope the declaration opens.
func (c *Compilation) DeclaringBinder(sym Symbol) (b Binder, err error) {
	decl := sym.Decl()
	if decl == nil {
		return &RootBinder{}, nil
	}
	parent, err := c.parents.Parent(decl)
	if err != nil {
		return nil, err
	}
	defer catch(&err)
	return c.binders.Get(parent), nil
}

// TypeText renders the type of sym for display. Functions render as their
// signature.
func TypeText(sym Symbol) string {
	switch s := sym.(type) {
	case ValueSymbol:
		return s.Type().Name()
	case *FunctionSymbol:
		return s.String()
	case *OverloadSymbol:
		return s.String()
	case Type:
		return s.Name()
	}
	return ""
}
