// Package syntax provides the Spiral syntax tree, scanner and parser.
//
// The tree is strictly child-owning: nodes never point at their parent, and
// every node is a pointer whose identity is stable for the lifetime of the
// tree. Semantic analysis keys its caches by node identity.
package syntax

// A Node is a node in a Spiral syntax tree.
type Node interface {
	// Span returns the byte range covered by the node.
	Span() Span
	// Children returns the node's children in source order, tokens included.
	Children() []Node
}

// A Decl is a top-level or member declaration.
type Decl interface {
	Node
	decl()
}

func (*FuncDecl) decl()      {}
func (*ClassDecl) decl()     {}
func (*InterfaceDecl) decl() {}
func (*VarDecl) decl()       {}

// A Stmt is a statement inside a function body.
type Stmt interface {
	Node
	stmt()
}

func (*VarDecl) stmt()    {}
func (*BlockStmt) stmt()  {}
func (*IfStmt) stmt()     {}
func (*WhileStmt) stmt()  {}
func (*ReturnStmt) stmt() {}
func (*ExprStmt) stmt()   {}
func (*AssignStmt) stmt() {}

// An Expr is an expression.
type Expr interface {
	Node
	expr()
}

func (*Ident) expr()      {}
func (*Literal) expr()    {}
func (*CallExpr) expr()   {}
func (*MemberExpr) expr() {}
func (*BinaryExpr) expr() {}
func (*UnaryExpr) expr()  {}
func (*ParenExpr) expr()  {}

// A TypeExpr is a type reference.
type TypeExpr interface {
	Node
	typeExpr()
}

func (*NamedType) typeExpr() {}

// A Program is the root of a parsed source file.
type Program struct {
	Path  string
	Decls []Decl
	EOF   *Token
}

func (x *Program) Span() Span { return spanOf(x) }

func (x *Program) Children() []Node {
	var c children
	for _, d := range x.Decls {
		c.add(d)
	}
	c.tok(x.EOF)
	return c
}

// A FuncDecl declares a function or method:
//
//	func name(a: Int, b: Int): Int { ... }
//
// Interface methods have no body and end with a semicolon.
type FuncDecl struct {
	Func   *Token
	Name   *Token
	LParen *Token
	Params []*Param
	RParen *Token
	Colon  *Token     // nil if no result type
	Result TypeExpr   // nil if no result type
	Body   *BlockStmt // nil for signatures
	Semi   *Token     // non-nil iff Body is nil
}

func (x *FuncDecl) Span() Span { return spanOf(x) }

func (x *FuncDecl) Children() []Node {
	var c children
	c.tok(x.Func)
	c.tok(x.Name)
	c.tok(x.LParen)
	for _, p := range x.Params {
		c.add(p)
	}
	c.tok(x.RParen)
	c.tok(x.Colon)
	if x.Result != nil {
		c.add(x.Result)
	}
	if x.Body != nil {
		c.add(x.Body)
	}
	c.tok(x.Semi)
	return c
}

// A Param is a function parameter.
type Param struct {
	Name  *Token
	Colon *Token
	Type  TypeExpr
}

func (x *Param) Span() Span { return spanOf(x) }

func (x *Param) Children() []Node {
	var c children
	c.tok(x.Name)
	c.tok(x.Colon)
	c.add(x.Type)
	return c
}

// A ClassDecl declares a class with optional base types.
type ClassDecl struct {
	Class   *Token
	Name    *Token
	Colon   *Token // nil if no bases
	Bases   []TypeExpr
	LBrace  *Token
	Members []Decl // *FuncDecl or *VarDecl
	RBrace  *Token
}

func (x *ClassDecl) Span() Span { return spanOf(x) }

func (x *ClassDecl) Children() []Node {
	var c children
	c.tok(x.Class)
	c.tok(x.Name)
	c.tok(x.Colon)
	for _, b := range x.Bases {
		c.add(b)
	}
	c.tok(x.LBrace)
	for _, m := range x.Members {
		c.add(m)
	}
	c.tok(x.RBrace)
	return c
}

// An InterfaceDecl declares an interface of method signatures.
type InterfaceDecl struct {
	Interface *Token
	Name      *Token
	Colon     *Token
	Bases     []TypeExpr
	LBrace    *Token
	Members   []Decl // *FuncDecl without bodies
	RBrace    *Token
}

func (x *InterfaceDecl) Span() Span { return spanOf(x) }

func (x *InterfaceDecl) Children() []Node {
	var c children
	c.tok(x.Interface)
	c.tok(x.Name)
	c.tok(x.Colon)
	for _, b := range x.Bases {
		c.add(b)
	}
	c.tok(x.LBrace)
	for _, m := range x.Members {
		c.add(m)
	}
	c.tok(x.RBrace)
	return c
}

// A VarDecl declares a global, field or local variable:
//
//	var x: Int = 1;
type VarDecl struct {
	Var   *Token
	Name  *Token
	Colon *Token   // nil if no type
	Type  TypeExpr // may be nil
	Eq    *Token   // nil if no initializer
	Value Expr     // may be nil
	Semi  *Token
}

func (x *VarDecl) Span() Span { return spanOf(x) }

func (x *VarDecl) Children() []Node {
	var c children
	c.tok(x.Var)
	c.tok(x.Name)
	c.tok(x.Colon)
	if x.Type != nil {
		c.add(x.Type)
	}
	c.tok(x.Eq)
	if x.Value != nil {
		c.add(x.Value)
	}
	c.tok(x.Semi)
	return c
}

// A BlockStmt is a braced statement list. Every block introduces a scope.
type BlockStmt struct {
	LBrace *Token
	Stmts  []Stmt
	RBrace *Token
}

func (x *BlockStmt) Span() Span { return spanOf(x) }

func (x *BlockStmt) Children() []Node {
	var c children
	c.tok(x.LBrace)
	for _, s := range x.Stmts {
		c.add(s)
	}
	c.tok(x.RBrace)
	return c
}

// An IfStmt is a conditional. 'else if' chains nest an IfStmt in Else.
type IfStmt struct {
	If      *Token
	LParen  *Token
	Cond    Expr
	RParen  *Token
	Then    *BlockStmt
	ElseTok *Token // nil if no else branch
	Else    Stmt   // *BlockStmt or *IfStmt; may be nil
}

func (x *IfStmt) Span() Span { return spanOf(x) }

func (x *IfStmt) Children() []Node {
	var c children
	c.tok(x.If)
	c.tok(x.LParen)
	c.add(x.Cond)
	c.tok(x.RParen)
	c.add(x.Then)
	c.tok(x.ElseTok)
	if x.Else != nil {
		c.add(x.Else)
	}
	return c
}

// A WhileStmt is a loop.
type WhileStmt struct {
	While  *Token
	LParen *Token
	Cond   Expr
	RParen *Token
	Body   *BlockStmt
}

func (x *WhileStmt) Span() Span { return spanOf(x) }

func (x *WhileStmt) Children() []Node {
	var c children
	c.tok(x.While)
	c.tok(x.LParen)
	c.add(x.Cond)
	c.tok(x.RParen)
	c.add(x.Body)
	return c
}

// A ReturnStmt returns from a function.
type ReturnStmt struct {
	Return *Token
	Result Expr // may be nil
	Semi   *Token
}

func (x *ReturnStmt) Span() Span { return spanOf(x) }

func (x *ReturnStmt) Children() []Node {
	var c children
	c.tok(x.Return)
	if x.Result != nil {
		c.add(x.Result)
	}
	c.tok(x.Semi)
	return c
}

// An ExprStmt is an expression evaluated for side effects.
type ExprStmt struct {
	X    Expr
	Semi *Token
}

func (x *ExprStmt) Span() Span { return spanOf(x) }

func (x *ExprStmt) Children() []Node {
	var c children
	c.add(x.X)
	c.tok(x.Semi)
	return c
}

// An AssignStmt stores a value: Target = Value;
type AssignStmt struct {
	Target Expr
	Eq     *Token
	Value  Expr
	Semi   *Token
}

func (x *AssignStmt) Span() Span { return spanOf(x) }

func (x *AssignStmt) Children() []Node {
	var c children
	c.add(x.Target)
	c.tok(x.Eq)
	c.add(x.Value)
	c.tok(x.Semi)
	return c
}

// An Ident is a name reference.
type Ident struct {
	Tok *Token
}

// Name returns the identifier text.
func (x *Ident) Name() string { return x.Tok.Text }

func (x *Ident) Span() Span { return x.Tok.Span() }

func (x *Ident) Children() []Node { return []Node{x.Tok} }

// A Literal is an integer, string or boolean constant.
type Literal struct {
	Tok   *Token
	Value any // int64, string or bool
}

func (x *Literal) Span() Span { return x.Tok.Span() }

func (x *Literal) Children() []Node { return []Node{x.Tok} }

// A CallExpr is a call: Fn(Args...).
type CallExpr struct {
	Fn     Expr
	LParen *Token
	Args   []Expr
	RParen *Token
}

func (x *CallExpr) Span() Span { return spanOf(x) }

func (x *CallExpr) Children() []Node {
	var c children
	c.add(x.Fn)
	c.tok(x.LParen)
	for _, a := range x.Args {
		c.add(a)
	}
	c.tok(x.RParen)
	return c
}

// A MemberExpr selects a member: X.Name.
type MemberExpr struct {
	X    Expr
	Dot  *Token
	Name *Token
}

func (x *MemberExpr) Span() Span { return spanOf(x) }

func (x *MemberExpr) Children() []Node {
	var c children
	c.add(x.X)
	c.tok(x.Dot)
	c.tok(x.Name)
	return c
}

// A BinaryExpr is X Op Y.
type BinaryExpr struct {
	X  Expr
	Op *Token
	Y  Expr
}

func (x *BinaryExpr) Span() Span { return spanOf(x) }

func (x *BinaryExpr) Children() []Node {
	var c children
	c.add(x.X)
	c.tok(x.Op)
	c.add(x.Y)
	return c
}

// A UnaryExpr is Op X.
type UnaryExpr struct {
	Op *Token
	X  Expr
}

func (x *UnaryExpr) Span() Span { return spanOf(x) }

func (x *UnaryExpr) Children() []Node {
	var c children
	c.tok(x.Op)
	c.add(x.X)
	return c
}

// A ParenExpr is a parenthesized expression.
type ParenExpr struct {
	LParen *Token
	X      Expr
	RParen *Token
}

func (x *ParenExpr) Span() Span { return spanOf(x) }

func (x *ParenExpr) Children() []Node {
	var c children
	c.tok(x.LParen)
	c.add(x.X)
	c.tok(x.RParen)
	return c
}

// A NamedType references a type by name.
type NamedType struct {
	Name *Token
}

func (x *NamedType) Span() Span { return x.Name.Span() }

func (x *NamedType) Children() []Node { return []Node{x.Name} }

// children accumulates non-nil child nodes.
type children []Node

func (c *children) add(n Node) {
	if n != nil {
		*c = append(*c, n)
	}
}

// tok adds a token; a nil *Token must not become a non-nil Node.
func (c *children) tok(t *Token) {
	if t != nil {
		*c = append(*c, t)
	}
}

// spanOf covers n's first through last child. Every composite node owns at
// least one token, so the child list is never empty.
func spanOf(n Node) Span {
	cs := n.Children()
	return Span{Start: cs[0].Span().Start, End: cs[len(cs)-1].Span().End}
}
