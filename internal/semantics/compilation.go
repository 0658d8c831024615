// Package semantics turns a Spiral syntax tree into a resolved symbol graph
// and type-checks it.
//
// A Compilation owns one tree and every cache derived from it: the parent
// index, one Binder per scope-defining node, the lazily built root module,
// and the annotations recorded while binding (the symbol an identifier
// resolves to, the candidate a call selects, the type of each expression).
// Semantic errors are reported as Diagnostic values and never stop the
// pass; unresolvable types and calls are replaced by Error and by a
// synthetic error function so that one mistake yields one diagnostic.
//
// A Compilation is not safe for concurrent use. Independent Compilations
// share no mutable state and may be used in parallel.
package semantics

import (
	"sort"

	"github.com/lucyelle/SpiralCompiler-sub000/internal/syntax"
)

// RefContext describes how a name is used at a reference site.
type RefContext string

const (
	RefRead   RefContext = "read"
	RefWrite  RefContext = "write"
	RefCall   RefContext = "call"
	RefType   RefContext = "type"
	RefMember RefContext = "member"
)

// A Reference is one use of a name. Symbol is nil when the name did not
// resolve.
type Reference struct {
	Name    string
	Span    syntax.Span
	Symbol  Symbol
	Context RefContext
}

// An Option configures a Compilation.
type Option func(*Compilation)

// WithModuleName sets the name of the root module. The default is "main".
func WithModuleName(name string) Option {
	return func(c *Compilation) { c.moduleName = name }
}

// Compilation analyses one program.
type Compilation struct {
	tree       *syntax.Program
	moduleName string
	parents    *ParentIndex
	binders    *BinderCache
	module     *ModuleSymbol

	declared map[syntax.Node]Symbol
	symbols  map[syntax.Node]Symbol
	types    map[syntax.Expr]Type
	refs     []Reference

	diags    Diagnostics
	checked  bool
	checkErr error
	quiet    bool // binding on behalf of a query, after the pass
}

// New returns a Compilation over tree. No analysis happens until a result
// is requested.
func New(tree *syntax.Program, opts ...Option) *Compilation {
	c := &Compilation{
		tree:       tree,
		moduleName: "main",
		parents:    NewParentIndex(tree),
		declared:   make(map[syntax.Node]Symbol),
		symbols:    make(map[syntax.Node]Symbol),
		types:      make(map[syntax.Expr]Type),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.binders = newBinderCache(c)
	return c
}

// Tree returns the analysed program.
func (c *Compilation) Tree() *syntax.Program { return c.tree }

// Parents returns the compilation's parent index.
func (c *Compilation) Parents() *ParentIndex { return c.parents }

// RootModule returns the module symbol for the program. Code generators
// walk its members and follow their Decl back into the tree.
func (c *Compilation) RootModule() *ModuleSymbol {
	if c.module == nil {
		c.module = &ModuleSymbol{name: c.moduleName, decl: c.tree, c: c}
	}
	return c.module
}

// Diagnostics runs the analysis, once, and returns every diagnostic in
// document order. The error is non-nil only for an internal invariant
// violation.
func (c *Compilation) Diagnostics() ([]Diagnostic, error) {
	if err := c.ensureChecked(); err != nil {
		return nil, err
	}
	return c.diags.List(), nil
}

func (c *Compilation) ensureChecked() (err error) {
	if c.checked {
		return c.checkErr
	}
	c.checked = true
	defer func() { c.checkErr = err }()
	defer catch(&err)
	c.check()
	return nil
}

// BinderOf returns the binder of the scope enclosing node.
func (c *Compilation) BinderOf(node syntax.Node) (b Binder, err error) {
	defer catch(&err)
	return c.binders.Get(node), nil
}

// LookupAt resolves name as seen from node. A nil Symbol means the name is
// not declared in any enclosing scope.
func (c *Compilation) LookupAt(node syntax.Node, name string) (sym Symbol, err error) {
	defer catch(&err)
	return c.lookupAt(node, name), nil
}

func (c *Compilation) lookupAt(node syntax.Node, name string) Symbol {
	return Lookup(c.binders.Get(node), name)
}

// SymbolOf returns the symbol a node declares or refers to: the declared
// symbol for declarations and parameters, the resolved symbol for names and
// member accesses, and the selected candidate for calls. It returns nil for
// nodes that neither declare nor resolve anything.
func (c *Compilation) SymbolOf(node syntax.Node) (Symbol, error) {
	if err := c.ensureChecked(); err != nil {
		return nil, err
	}
	if sym, ok := c.declared[node]; ok {
		return sym, nil
	}
	if sym, ok := c.symbols[node]; ok {
		return sym, nil
	}
	if node == syntax.Node(c.tree) {
		return c.module, nil
	}
	return nil, nil
}

// TypeOf returns the type of expr, which may be any expression of the tree.
// A callee has the type of the value it names; functions are not values, so
// naming one yields Error. Expressions the pass did not type are bound on
// demand without reporting and without recording references or symbols.
func (c *Compilation) TypeOf(expr syntax.Expr) (t Type, err error) {
	if err := c.ensureChecked(); err != nil {
		return nil, err
	}
	if t, ok := c.types[expr]; ok {
		return t, nil
	}
	if sym, ok := c.symbols[expr]; ok {
		if v, ok := sym.(ValueSymbol); ok {
			return v.Type(), nil
		}
		return Error, nil
	}
	defer catch(&err)
	c.quiet = true
	defer func() { c.quiet = false }()
	return c.bindExpr(expr, &Diagnostics{}), nil
}

// Symbols returns every declared symbol in document order. Overloaded
// functions are listed individually.
func (c *Compilation) Symbols() ([]Symbol, error) {
	if err := c.ensureChecked(); err != nil {
		return nil, err
	}
	var out []Symbol
	syntax.Walk(c.tree, func(n syntax.Node) bool {
		if sym, ok := c.declared[n]; ok {
			out = append(out, sym)
		}
		return true
	})
	return out, nil
}

// References returns every name use in document order.
func (c *Compilation) References() ([]Reference, error) {
	if err := c.ensureChecked(); err != nil {
		return nil, err
	}
	refs := make([]Reference, len(c.refs))
	copy(refs, c.refs)
	sort.SliceStable(refs, func(i, j int) bool { return refs[i].Span.Start < refs[j].Span.Start })
	return refs, nil
}

// EnclosingFunction returns the function whose declaration contains node,
// or nil when node is outside any function.
func (c *Compilation) EnclosingFunction(node syntax.Node) (fn *FunctionSymbol, err error) {
	defer catch(&err)
	return enclosingFunction(c.binders.Get(node)), nil
}

func (c *Compilation) addRef(tok *syntax.Token, name string, sym Symbol, ctx RefContext) {
	if c.quiet {
		return
	}
	c.refs = append(c.refs, Reference{Name: name, Span: tok.Span(), Symbol: sym, Context: ctx})
}
