package semantics

import (
	"github.com/lucyelle/SpiralCompiler-sub000/internal/syntax"
)

// BinderKind identifies the concrete kind of a Binder.
type BinderKind uint8

const (
	RootBinderKind BinderKind = iota
	ModuleBinderKind
	ClassBinderKind
	FunctionBinderKind
	BlockBinderKind
)

func (k BinderKind) String() string {
	switch k {
	case RootBinderKind:
		return "root"
	case ModuleBinderKind:
		return "module"
	case ClassBinderKind:
		return "class"
	case FunctionBinderKind:
		return "function"
	case BlockBinderKind:
		return "block"
	}
	return "unknown"
}

// A Binder answers which names are visible in one lexical scope. Each
// binder sees the symbols declared directly in its scope and defers
// everything else to its parent. The set of implementations is closed.
type Binder interface {
	Kind() BinderKind
	// Parent returns the enclosing binder, or nil for a RootBinder.
	Parent() Binder
	// Node returns the scope-defining node, or nil for a RootBinder.
	Node() syntax.Node
	// Symbols returns the declared-symbol view in declaration order.
	Symbols() []Symbol
	aBinder()
}

// Lookup resolves name from b outward. Within one binder the first symbol
// with that name wins. It returns nil if no enclosing scope declares name.
func Lookup(b Binder, name string) Symbol {
	for ; b != nil; b = b.Parent() {
		for _, sym := range b.Symbols() {
			if sym.Name() == name {
				return sym
			}
		}
	}
	return nil
}

// RootBinder terminates every chain. Its view holds the intrinsics.
type RootBinder struct{}

func (*RootBinder) Kind() BinderKind  { return RootBinderKind }
func (*RootBinder) Parent() Binder    { return nil }
func (*RootBinder) Node() syntax.Node { return nil }
func (*RootBinder) Symbols() []Symbol { return intrinsics }
func (*RootBinder) aBinder()          {}

// ModuleBinder is the scope of a program's top-level declarations.
type ModuleBinder struct {
	parent *RootBinder
	Module *ModuleSymbol
}

func (b *ModuleBinder) Kind() BinderKind  { return ModuleBinderKind }
func (b *ModuleBinder) Parent() Binder    { return b.parent }
func (b *ModuleBinder) Node() syntax.Node { return b.Module.decl }
func (b *ModuleBinder) Symbols() []Symbol { return b.Module.Members() }
func (b *ModuleBinder) aBinder()          {}

// ClassBinder is the scope of a class or interface body. Inherited members
// follow the class's own members in its view.
type ClassBinder struct {
	parent Binder
	Class  Type
}

func (b *ClassBinder) Kind() BinderKind  { return ClassBinderKind }
func (b *ClassBinder) Parent() Binder    { return b.parent }
func (b *ClassBinder) Node() syntax.Node { return b.Class.Decl() }
func (b *ClassBinder) Symbols() []Symbol { return MembersOf(b.Class) }
func (b *ClassBinder) aBinder()          {}

// FunctionBinder is the scope of a function's parameters.
type FunctionBinder struct {
	parent   Binder
	Function *FunctionSymbol
	params   []Symbol
}

func (b *FunctionBinder) Kind() BinderKind  { return FunctionBinderKind }
func (b *FunctionBinder) Parent() Binder    { return b.parent }
func (b *FunctionBinder) Node() syntax.Node { return b.Function.decl }
func (b *FunctionBinder) Symbols() []Symbol { return b.params }
func (b *FunctionBinder) aBinder()          {}

// BlockBinder is the scope of the locals declared directly in a block.
type BlockBinder struct {
	parent Binder
	Block  *syntax.BlockStmt
	locals []Symbol
}

func (b *BlockBinder) Kind() BinderKind  { return BlockBinderKind }
func (b *BlockBinder) Parent() Binder    { return b.parent }
func (b *BlockBinder) Node() syntax.Node { return b.Block }
func (b *BlockBinder) Symbols() []Symbol { return b.locals }
func (b *BlockBinder) aBinder()          {}

// enclosingFunction returns the function whose body contains b's scope, or
// nil at module and class level.
func enclosingFunction(b Binder) *FunctionSymbol {
	for ; b != nil; b = b.Parent() {
		switch b := b.(type) {
		case *FunctionBinder:
			return b.Function
		case *ClassBinder, *ModuleBinder:
			return nil
		}
	}
	return nil
}
