package semantics

import (
	"strings"

	"github.com/lucyelle/SpiralCompiler-sub000/internal/syntax"
)

// SymbolKind identifies the concrete kind of a Symbol.
type SymbolKind uint8

const (
	KindModule SymbolKind = iota
	KindClass
	KindInterface
	KindFunction
	KindOverload
	KindField
	KindVariable
	KindParameter
	KindBuiltIn
)

var kindNames = [...]string{
	KindModule:    "module",
	KindClass:     "class",
	KindInterface: "interface",
	KindFunction:  "function",
	KindOverload:  "overload",
	KindField:     "field",
	KindVariable:  "variable",
	KindParameter: "parameter",
	KindBuiltIn:   "builtin",
}

func (k SymbolKind) String() string { return kindNames[k] }

// A Symbol is a named entity produced by a declaration or built into the
// language. The set of implementations is closed.
type Symbol interface {
	Name() string
	Kind() SymbolKind
	// Decl returns the declaring node, or nil for built-in and synthetic
	// symbols.
	Decl() syntax.Node
	// Owner returns the symbol of the declaring scope, or nil.
	Owner() Symbol
	String() string
	aSymbol()
}

// A Type is a symbol that can appear in a type position.
type Type interface {
	Symbol
	// Bases returns the resolved direct base types, in declaration order.
	Bases() []Type
}

// A ValueSymbol is a symbol usable as a value: a field, variable or
// parameter.
type ValueSymbol interface {
	Symbol
	Type() Type
}

type memoState uint8

const (
	unresolved memoState = iota
	resolving
	resolved
)

// memo is a lazily computed value together with the diagnostics its
// computation produced. Those diagnostics are reported by the document-order
// pass when it reaches the owning declaration, so they appear exactly once
// regardless of which use forced the computation.
type memo[T any] struct {
	state     memoState
	reentered bool
	value     T
	diags     []Diagnostic
}

// get computes the value on first use. A call that re-enters get while the
// computation is in progress marks the memo and receives cycle.
func (m *memo[T]) get(compute func(d *Diagnostics) T, cycle T) T {
	switch m.state {
	case resolved:
		return m.value
	case resolving:
		m.reentered = true
		return cycle
	}
	m.state = resolving
	var d Diagnostics
	v := compute(&d)
	m.value, m.diags, m.state = v, d.list, resolved
	return v
}

func resolvedMemo[T any](v T) memo[T] { return memo[T]{state: resolved, value: v} }

// ModuleSymbol is the root module of a compilation.
type ModuleSymbol struct {
	name    string
	decl    *syntax.Program
	c       *Compilation
	members memo[[]Symbol]
}

func (s *ModuleSymbol) Name() string      { return s.name }
func (s *ModuleSymbol) Kind() SymbolKind  { return KindModule }
func (s *ModuleSymbol) Decl() syntax.Node { return s.decl }
func (s *ModuleSymbol) Owner() Symbol     { return nil }
func (s *ModuleSymbol) String() string    { return "module " + s.name }
func (s *ModuleSymbol) aSymbol()          {}

// Members returns the top-level declarations in source order. Same-named
// functions appear once, as an OverloadSymbol.
func (s *ModuleSymbol) Members() []Symbol {
	return s.members.get(func(*Diagnostics) []Symbol { return s.c.moduleMembers(s) }, nil)
}

// ClassSymbol is a user-declared class.
type ClassSymbol struct {
	name    string
	decl    *syntax.ClassDecl
	c       *Compilation
	owner   Symbol
	members memo[[]Symbol]
	bases   memo[[]Type]
}

func (s *ClassSymbol) Name() string      { return s.name }
func (s *ClassSymbol) Kind() SymbolKind  { return KindClass }
func (s *ClassSymbol) Decl() syntax.Node { return s.decl }
func (s *ClassSymbol) Owner() Symbol     { return s.owner }
func (s *ClassSymbol) String() string    { return s.name }
func (s *ClassSymbol) aSymbol()          {}

// Members returns the fields and methods declared directly in the class.
func (s *ClassSymbol) Members() []Symbol {
	return s.members.get(func(*Diagnostics) []Symbol { return s.c.classMembers(s, s.decl.Members) }, nil)
}

func (s *ClassSymbol) Bases() []Type {
	return s.bases.get(func(d *Diagnostics) []Type { return s.c.resolveBases(s, s.decl.Bases, d) }, nil)
}

// InterfaceSymbol is a user-declared interface.
type InterfaceSymbol struct {
	name    string
	decl    *syntax.InterfaceDecl
	c       *Compilation
	owner   Symbol
	members memo[[]Symbol]
	bases   memo[[]Type]
}

func (s *InterfaceSymbol) Name() string      { return s.name }
func (s *InterfaceSymbol) Kind() SymbolKind  { return KindInterface }
func (s *InterfaceSymbol) Decl() syntax.Node { return s.decl }
func (s *InterfaceSymbol) Owner() Symbol     { return s.owner }
func (s *InterfaceSymbol) String() string    { return s.name }
func (s *InterfaceSymbol) aSymbol()          {}

// Members returns the method signatures declared directly in the interface.
func (s *InterfaceSymbol) Members() []Symbol {
	return s.members.get(func(*Diagnostics) []Symbol { return s.c.classMembers(s, s.decl.Members) }, nil)
}

func (s *InterfaceSymbol) Bases() []Type {
	return s.bases.get(func(d *Diagnostics) []Type { return s.c.resolveBases(s, s.decl.Bases, d) }, nil)
}

// BuiltInType is an intrinsic type such as Int.
type BuiltInType struct {
	name string
}

func (s *BuiltInType) Name() string      { return s.name }
func (s *BuiltInType) Kind() SymbolKind  { return KindBuiltIn }
func (s *BuiltInType) Decl() syntax.Node { return nil }
func (s *BuiltInType) Owner() Symbol     { return nil }
func (s *BuiltInType) String() string    { return s.name }
func (s *BuiltInType) Bases() []Type     { return nil }
func (s *BuiltInType) aSymbol()          {}

// FunctionSymbol is a function, a method, an interface method signature, an
// intrinsic function or the synthetic error function returned by a failed
// overload resolution.
type FunctionSymbol struct {
	name    string
	decl    *syntax.FuncDecl
	c       *Compilation
	owner   Symbol
	params  []*ParameterSymbol
	result  memo[Type]
	isError bool
}

func (s *FunctionSymbol) Name() string     { return s.name }
func (s *FunctionSymbol) Kind() SymbolKind { return KindFunction }
func (s *FunctionSymbol) Owner() Symbol    { return s.owner }
func (s *FunctionSymbol) aSymbol()         {}

func (s *FunctionSymbol) Decl() syntax.Node {
	if s.decl == nil {
		return nil
	}
	return s.decl
}

// Params returns the parameters in declaration order.
func (s *FunctionSymbol) Params() []*ParameterSymbol { return s.params }

// Arity returns the number of parameters.
func (s *FunctionSymbol) Arity() int { return len(s.params) }

// IsError reports whether s is the synthetic error function.
func (s *FunctionSymbol) IsError() bool { return s.isError }

// Result returns the declared result type, Void if none is declared.
func (s *FunctionSymbol) Result() Type {
	return s.result.get(func(d *Diagnostics) Type {
		if s.decl.Result == nil {
			return Void
		}
		return s.c.resolveSignatureType(s.decl, s.decl.Result, d)
	}, Error)
}

// String renders the function as it would be declared.
func (s *FunctionSymbol) String() string {
	var b strings.Builder
	b.WriteString("func ")
	b.WriteString(s.name)
	b.WriteByte('(')
	for i, p := range s.params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.name)
		b.WriteString(": ")
		b.WriteString(p.Type().Name())
	}
	b.WriteByte(')')
	if r := s.Result(); r != Void {
		b.WriteString(": ")
		b.WriteString(r.Name())
	}
	return b.String()
}

// OverloadSymbol groups same-named functions declared in one scope.
type OverloadSymbol struct {
	name      string
	owner     Symbol
	Functions []*FunctionSymbol
}

func (s *OverloadSymbol) Name() string     { return s.name }
func (s *OverloadSymbol) Kind() SymbolKind { return KindOverload }
func (s *OverloadSymbol) Owner() Symbol    { return s.owner }
func (s *OverloadSymbol) String() string   { return "overloads of " + s.name }
func (s *OverloadSymbol) aSymbol()         {}

// Decl returns the declaration of the first function in the set.
func (s *OverloadSymbol) Decl() syntax.Node { return s.Functions[0].Decl() }

// FieldSymbol is a class field.
type FieldSymbol struct {
	name  string
	decl  *syntax.VarDecl
	c     *Compilation
	owner Symbol
	typ   memo[Type]
}

func (s *FieldSymbol) Name() string      { return s.name }
func (s *FieldSymbol) Kind() SymbolKind  { return KindField }
func (s *FieldSymbol) Decl() syntax.Node { return s.decl }
func (s *FieldSymbol) Owner() Symbol     { return s.owner }
func (s *FieldSymbol) String() string    { return s.name + ": " + s.Type().Name() }
func (s *FieldSymbol) aSymbol()          {}

func (s *FieldSymbol) Type() Type {
	return s.typ.get(func(d *Diagnostics) Type { return s.c.declaredType(s.decl, &s.typ, d) }, Error)
}

// VariableSymbol is a global or local variable.
type VariableSymbol struct {
	name   string
	decl   *syntax.VarDecl
	c      *Compilation
	owner  Symbol
	global bool
	typ    memo[Type]
}

func (s *VariableSymbol) Name() string      { return s.name }
func (s *VariableSymbol) Kind() SymbolKind  { return KindVariable }
func (s *VariableSymbol) Decl() syntax.Node { return s.decl }
func (s *VariableSymbol) Owner() Symbol     { return s.owner }
func (s *VariableSymbol) String() string    { return s.name + ": " + s.Type().Name() }
func (s *VariableSymbol) aSymbol()          {}

// IsGlobal reports whether the variable is declared at module level.
func (s *VariableSymbol) IsGlobal() bool { return s.global }

func (s *VariableSymbol) Type() Type {
	return s.typ.get(func(d *Diagnostics) Type { return s.c.declaredType(s.decl, &s.typ, d) }, Error)
}

// ParameterSymbol is a function parameter.
type ParameterSymbol struct {
	name  string
	decl  *syntax.Param
	c     *Compilation
	owner *FunctionSymbol
	typ   memo[Type]
}

func (s *ParameterSymbol) Name() string     { return s.name }
func (s *ParameterSymbol) Kind() SymbolKind { return KindParameter }
func (s *ParameterSymbol) Owner() Symbol    { return s.owner }
func (s *ParameterSymbol) String() string   { return s.name + ": " + s.Type().Name() }
func (s *ParameterSymbol) aSymbol()         {}

func (s *ParameterSymbol) Decl() syntax.Node {
	if s.decl == nil {
		return nil
	}
	return s.decl
}

func (s *ParameterSymbol) Type() Type {
	return s.typ.get(func(d *Diagnostics) Type {
		return s.c.resolveSignatureType(s.owner.decl, s.decl.Type, d)
	}, Error)
}
