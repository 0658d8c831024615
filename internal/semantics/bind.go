package semantics

import (
	"github.com/lucyelle/SpiralCompiler-sub000/internal/syntax"
)

// check runs the document-order pass over every declaration, statement and
// expression, accumulating diagnostics in c.diags.
func (c *Compilation) check() {
	c.RootModule().Members()
	for _, decl := range c.tree.Decls {
		c.checkDecl(decl, &c.diags)
	}
}

func (c *Compilation) checkDecl(decl syntax.Decl, d *Diagnostics) {
	switch n := decl.(type) {
	case *syntax.FuncDecl:
		c.checkFunc(n, d)

	case *syntax.ClassDecl:
		cls := c.declared[n].(*ClassSymbol)
		cls.Bases()
		d.add(cls.bases.diags...)
		cls.Members()
		for _, m := range n.Members {
			c.checkDecl(m, d)
		}

	case *syntax.InterfaceDecl:
		iface := c.declared[n].(*InterfaceSymbol)
		iface.Bases()
		d.add(iface.bases.diags...)
		iface.Members()
		for _, m := range n.Members {
			c.checkDecl(m, d)
		}

	case *syntax.VarDecl:
		c.checkVar(n, d)
	}
}

func (c *Compilation) checkVar(n *syntax.VarDecl, d *Diagnostics) {
	switch v := c.declared[n].(type) {
	case *VariableSymbol:
		v.Type()
		d.add(v.typ.diags...)
	case *FieldSymbol:
		v.Type()
		d.add(v.typ.diags...)
	default:
		invariantf(nil, "variable %s was not declared before binding", n.Name.Text)
	}
}

func (c *Compilation) checkFunc(n *syntax.FuncDecl, d *Diagnostics) {
	fn, ok := c.declared[n].(*FunctionSymbol)
	if !ok {
		invariantf(nil, "function %s was not declared before binding", n.Name.Text)
	}
	for _, p := range fn.params {
		p.Type()
		d.add(p.typ.diags...)
	}
	fn.Result()
	d.add(fn.result.diags...)
	if n.Body != nil {
		c.checkStmt(n.Body, fn, d)
	}
}

func (c *Compilation) checkStmt(s syntax.Stmt, fn *FunctionSymbol, d *Diagnostics) {
	switch s := s.(type) {
	case *syntax.VarDecl:
		// Building the block's binder declares the local.
		c.binders.Get(s)
		c.checkVar(s, d)

	case *syntax.BlockStmt:
		for _, stmt := range s.Stmts {
			c.checkStmt(stmt, fn, d)
		}

	case *syntax.IfStmt:
		CheckCondition(s.Cond, c.bindExpr(s.Cond, d), d)
		c.checkStmt(s.Then, fn, d)
		if s.Else != nil {
			c.checkStmt(s.Else, fn, d)
		}

	case *syntax.WhileStmt:
		CheckCondition(s.Cond, c.bindExpr(s.Cond, d), d)
		c.checkStmt(s.Body, fn, d)

	case *syntax.ReturnStmt:
		want := fn.Result()
		if s.Result == nil {
			if want != Void && want != Error {
				d.Errorf(s, "missing return value")
			}
			return
		}
		Assign(s.Result, want, c.bindExpr(s.Result, d), d)

	case *syntax.ExprStmt:
		c.bindExpr(s.X, d)

	case *syntax.AssignStmt:
		target := c.bindTarget(s.Target, d)
		Assign(s.Value, target, c.bindExpr(s.Value, d), d)
	}
}

// bindTarget binds the left side of an assignment and returns the type of
// the storage location.
func (c *Compilation) bindTarget(x syntax.Expr, d *Diagnostics) Type {
	switch x := x.(type) {
	case *syntax.Ident:
		sym := c.lookupAt(x, x.Name())
		c.addRef(x.Tok, x.Name(), sym, RefWrite)
		if sym == nil {
			d.Errorf(x, "undefined name %s", x.Name())
			c.types[x] = Error
			return Error
		}
		c.symbols[x] = sym
		v, ok := sym.(ValueSymbol)
		if !ok {
			d.Errorf(x, "invalid assignment target")
			c.types[x] = Error
			return Error
		}
		t := v.Type()
		c.types[x] = t
		return t

	case *syntax.MemberExpr:
		c.types[x] = Error
		sym, ok := c.bindMember(x, RefWrite, d)
		if !ok {
			return Error
		}
		f, ok := sym.(*FieldSymbol)
		if !ok {
			d.Errorf(x, "invalid assignment target")
			return Error
		}
		t := f.Type()
		c.types[x] = t
		return t
	}
	if c.bindExpr(x, d) != Error {
		d.Errorf(x, "invalid assignment target")
	}
	return Error
}

// bindExpr returns the type of x, binding it on first use.
func (c *Compilation) bindExpr(x syntax.Expr, d *Diagnostics) Type {
	if t, ok := c.types[x]; ok {
		return t
	}
	t := c.bindExpr1(x, d)
	c.types[x] = t
	return t
}

func (c *Compilation) bindExpr1(x syntax.Expr, d *Diagnostics) Type {
	switch x := x.(type) {
	case *syntax.Ident:
		sym := c.lookupAt(x, x.Name())
		c.addRef(x.Tok, x.Name(), sym, RefRead)
		if sym == nil {
			d.Errorf(x, "undefined name %s", x.Name())
			return Error
		}
		c.bindSymbol(x, sym)
		return valueType(x, sym, d)

	case *syntax.Literal:
		switch x.Value.(type) {
		case int64:
			return Int
		case string:
			return String
		case bool:
			return Bool
		}
		invariantf(nil, "literal of type %T", x.Value)

	case *syntax.ParenExpr:
		return c.bindExpr(x.X, d)

	case *syntax.UnaryExpr:
		return UnaryOp(x, x.Op.Kind, c.bindExpr(x.X, d), d)

	case *syntax.BinaryExpr:
		left := c.bindExpr(x.X, d)
		right := c.bindExpr(x.Y, d)
		return BinaryOp(x, x.Op.Kind, left, right, d)

	case *syntax.MemberExpr:
		sym, ok := c.bindMember(x, RefMember, d)
		if !ok {
			return Error
		}
		return valueType(x, sym, d)

	case *syntax.CallExpr:
		return c.bindCall(x, d).Result()
	}
	invariantf(nil, "unexpected expression %T", x)
	panic("unreachable")
}

// bindMember resolves x.Name on the type of x.X. It reports false when the
// receiver is Error or has no such member. Calls record their own
// reference once the overload is chosen.
func (c *Compilation) bindMember(x *syntax.MemberExpr, ctx RefContext, d *Diagnostics) (Symbol, bool) {
	recv := c.bindExpr(x.X, d)
	name := x.Name.Text
	var sym Symbol
	if recv != Error {
		sym = lookupMember(recv, name)
		if sym == nil {
			d.Errorf(x.Name, "%s has no member %s", recv.Name(), name)
		}
	}
	if ctx != RefCall {
		c.addRef(x.Name, name, sym, ctx)
	}
	if sym == nil {
		return nil, false
	}
	c.bindSymbol(x, sym)
	return sym, true
}

func (c *Compilation) bindSymbol(node syntax.Node, sym Symbol) {
	if !c.quiet {
		c.symbols[node] = sym
	}
}

func valueType(node syntax.Node, sym Symbol, d *Diagnostics) Type {
	if v, ok := sym.(ValueSymbol); ok {
		return v.Type()
	}
	d.Errorf(node, "%s is not a value", sym.Name())
	return Error
}

// bindCall resolves the callee of x against its arguments. It always returns
// a function; failures yield the error function with the call's arity.
func (c *Compilation) bindCall(x *syntax.CallExpr, d *Diagnostics) *FunctionSymbol {
	var (
		name   string
		nameAt *syntax.Token
		callee Symbol
	)
	switch fn := x.Fn.(type) {
	case *syntax.Ident:
		name, nameAt = fn.Name(), fn.Tok
		callee = c.lookupAt(fn, name)
		if callee == nil {
			d.Errorf(fn, "undefined name %s", name)
		}
	case *syntax.MemberExpr:
		name, nameAt = fn.Name.Text, fn.Name
		callee, _ = c.bindMember(fn, RefCall, d)
	default:
		if t := c.bindExpr(fn, d); t != Error {
			d.Errorf(fn, "%s is not callable", t.Name())
		}
	}

	var candidates []*FunctionSymbol
	switch s := callee.(type) {
	case *FunctionSymbol:
		candidates = []*FunctionSymbol{s}
	case *OverloadSymbol:
		candidates = s.Functions
	case nil:
	default:
		d.Errorf(x.Fn, "%s is not callable", name)
		callee = nil
	}

	args := make([]Type, len(x.Args))
	for i, a := range x.Args {
		args[i] = c.bindExpr(a, d)
	}

	var chosen *FunctionSymbol
	if callee == nil {
		chosen = errorFunction(name, len(args))
	} else {
		chosen = ResolveOverload(x, name, candidates, args, d)
	}
	c.symbols[x] = chosen

	if nameAt != nil {
		target := Symbol(chosen)
		if chosen.isError {
			target = callee
		}
		if target != nil {
			c.symbols[x.Fn] = target
		}
		c.addRef(nameAt, name, target, RefCall)
	}
	return chosen
}
