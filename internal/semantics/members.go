package semantics

import (
	"github.com/lucyelle/SpiralCompiler-sub000/internal/syntax"
)

// memberSet accumulates the declared symbols of one scope, collapsing
// same-named functions into an OverloadSymbol at the first one's position.
type memberSet struct {
	owner Symbol
	list  []Symbol
	funcs map[string]int
}

func (m *memberSet) add(sym Symbol) { m.list = append(m.list, sym) }

func (m *memberSet) addFunc(fn *FunctionSymbol) {
	if i, ok := m.funcs[fn.name]; ok {
		switch prev := m.list[i].(type) {
		case *FunctionSymbol:
			m.list[i] = &OverloadSymbol{name: fn.name, owner: m.owner, Functions: []*FunctionSymbol{prev, fn}}
		case *OverloadSymbol:
			prev.Functions = append(prev.Functions, fn)
		}
		return
	}
	if m.funcs == nil {
		m.funcs = make(map[string]int)
	}
	m.funcs[fn.name] = len(m.list)
	m.list = append(m.list, fn)
}

func (c *Compilation) declare(node syntax.Node, sym Symbol) {
	c.declared[node] = sym
}

func (c *Compilation) moduleMembers(mod *ModuleSymbol) []Symbol {
	set := memberSet{owner: mod}
	for _, d := range mod.decl.Decls {
		switch d := d.(type) {
		case *syntax.FuncDecl:
			set.addFunc(c.newFunction(d, mod))
		case *syntax.ClassDecl:
			cls := &ClassSymbol{name: d.Name.Text, decl: d, c: c, owner: mod}
			c.declare(d, cls)
			set.add(cls)
		case *syntax.InterfaceDecl:
			iface := &InterfaceSymbol{name: d.Name.Text, decl: d, c: c, owner: mod}
			c.declare(d, iface)
			set.add(iface)
		case *syntax.VarDecl:
			v := &VariableSymbol{name: d.Name.Text, decl: d, c: c, owner: mod, global: true}
			c.declare(d, v)
			set.add(v)
		}
	}
	return set.list
}

// classMembers builds the member view of a class or interface.
func (c *Compilation) classMembers(owner Type, decls []syntax.Decl) []Symbol {
	set := memberSet{owner: owner}
	for _, d := range decls {
		switch d := d.(type) {
		case *syntax.FuncDecl:
			set.addFunc(c.newFunction(d, owner))
		case *syntax.VarDecl:
			f := &FieldSymbol{name: d.Name.Text, decl: d, c: c, owner: owner}
			c.declare(d, f)
			set.add(f)
		}
	}
	return set.list
}

func (c *Compilation) newFunction(d *syntax.FuncDecl, owner Symbol) *FunctionSymbol {
	fn := &FunctionSymbol{name: d.Name.Text, decl: d, c: c, owner: owner}
	for _, p := range d.Params {
		param := &ParameterSymbol{name: p.Name.Text, decl: p, c: c, owner: fn}
		c.declare(p, param)
		fn.params = append(fn.params, param)
	}
	c.declare(d, fn)
	return fn
}

// blockLocals declares the variables of the var statements directly inside
// block.
func (c *Compilation) blockLocals(block *syntax.BlockStmt, owner Symbol) []Symbol {
	var locals []Symbol
	for _, s := range block.Stmts {
		if d, ok := s.(*syntax.VarDecl); ok {
			v := &VariableSymbol{name: d.Name.Text, decl: d, c: c, owner: owner}
			c.declare(d, v)
			locals = append(locals, v)
		}
	}
	return locals
}

// resolveTypeExpr resolves a type reference in the scope enclosing it.
func (c *Compilation) resolveTypeExpr(t syntax.TypeExpr, d *Diagnostics) Type {
	return c.resolveTypeIn(c.binders.Get(t), t, d)
}

// resolveSignatureType resolves a parameter or result type of fn in the
// scope enclosing fn. Parameter names never hide types in a signature.
func (c *Compilation) resolveSignatureType(fn *syntax.FuncDecl, t syntax.TypeExpr, d *Diagnostics) Type {
	return c.resolveTypeIn(c.binders.parentOf(fn), t, d)
}

func (c *Compilation) resolveTypeIn(scope Binder, t syntax.TypeExpr, d *Diagnostics) Type {
	named := t.(*syntax.NamedType)
	name := named.Name.Text
	sym := Lookup(scope, name)
	c.addRef(named.Name, name, sym, RefType)
	switch s := sym.(type) {
	case nil:
		d.Errorf(named, "undefined name %s", name)
		return Error
	case Type:
		c.symbols[named] = s
		return s
	}
	c.symbols[named] = sym
	d.Errorf(named, "%s is not a type", name)
	return Error
}

// resolveBases resolves the base list of a class or interface in the scope
// enclosing the declaration, so members never hide base names. Bases that
// would make the hierarchy invalid are diagnosed and dropped.
func (c *Compilation) resolveBases(owner Type, bases []syntax.TypeExpr, d *Diagnostics) []Type {
	var out []Type
	classes := 0
	_, isInterface := owner.(*InterfaceSymbol)
	scope := c.binders.parentOf(owner.Decl())
	for _, b := range bases {
		t := c.resolveTypeIn(scope, b, d)
		if t == Error {
			continue
		}
		switch t.(type) {
		case *ClassSymbol:
			if isInterface {
				d.Errorf(b, "interface %s cannot inherit from class %s", owner.Name(), t.Name())
				continue
			}
			if classes++; classes > 1 {
				d.Errorf(b, "%s cannot inherit from more than one class", owner.Name())
				continue
			}
		case *BuiltInType:
			d.Errorf(b, "cannot inherit from %s", t.Name())
			continue
		}
		if BaseSet(t)[owner] {
			d.Errorf(b, "circular base type %s", t.Name())
			continue
		}
		out = append(out, t)
	}
	return out
}

// declaredType computes the type of a variable or field: the declared type,
// checked against the initializer if there is one, or the initializer's type.
func (c *Compilation) declaredType(decl *syntax.VarDecl, m *memo[Type], d *Diagnostics) Type {
	name := decl.Name.Text
	var declared Type
	if decl.Type != nil {
		declared = c.resolveTypeExpr(decl.Type, d)
	}
	if decl.Value == nil {
		if declared == nil {
			d.Errorf(decl.Name, "cannot infer type of %s", name)
			return Error
		}
		return declared
	}
	value := c.bindExpr(decl.Value, d)
	if m.reentered {
		d.Errorf(decl.Name, "%s is referenced in its own declaration", name)
		return Error
	}
	if declared == nil {
		if value == Void {
			d.Errorf(decl.Value, "cannot infer type of %s", name)
			return Error
		}
		return value
	}
	return Assign(decl.Value, declared, value, d)
}

// MembersOf returns the members visible on values of type t: its own members
// first, then those inherited from each base in order. A name declared
// closer to t hides the same name further up.
func MembersOf(t Type) []Symbol {
	var out []Symbol
	seen := make(map[string]bool)
	visited := make(map[Type]bool)
	var visit func(t Type)
	visit = func(t Type) {
		if visited[t] {
			return
		}
		visited[t] = true
		own := ownMembers(t)
		for _, m := range own {
			if !seen[m.Name()] {
				out = append(out, m)
			}
		}
		for _, m := range own {
			seen[m.Name()] = true
		}
		for _, b := range t.Bases() {
			visit(b)
		}
	}
	visit(t)
	return out
}

func ownMembers(t Type) []Symbol {
	switch t := t.(type) {
	case *ClassSymbol:
		return t.Members()
	case *InterfaceSymbol:
		return t.Members()
	}
	return nil
}

// lookupMember finds a member of t by name, searching bases after t.
func lookupMember(t Type, name string) Symbol {
	for _, m := range MembersOf(t) {
		if m.Name() == name {
			return m
		}
	}
	return nil
}
