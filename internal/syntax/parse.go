package syntax

import (
	"fmt"
	"strconv"
)

// Parse parses a Spiral source file. It stops at the first syntax error,
// which is returned as an ErrorList; a tree is returned only on success.
func Parse(path, src string) (prog *Program, err error) {
	tokens, err := Scan(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	defer p.recover(&err)
	prog = p.parseProgram()
	prog.Path = path
	return prog, nil
}

// ParseExpr parses a single expression, as typed into a REPL or a test.
func ParseExpr(src string) (x Expr, err error) {
	tokens, err := Scan(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	defer p.recover(&err)
	x = p.parseExpr()
	p.expect(EOF)
	return x, nil
}

type parser struct {
	tokens []*Token
	pos    int
	errors ErrorList
}

func (p *parser) recover(err *error) {
	if e := recover(); e != nil {
		if _, ok := e.(bailout); !ok {
			panic(e)
		}
		p.errors.sort()
		*err = p.errors
	}
}

func (p *parser) errorf(tok *Token, format string, args ...any) {
	p.errors = append(p.errors, Error{tok.Span(), fmt.Sprintf(format, args...)})
	panic(bailout{})
}

func (p *parser) peek() *Token { return p.tokens[p.pos] }

func (p *parser) at(kind TokenKind) bool { return p.peek().Kind == kind }

func (p *parser) advance() *Token {
	tok := p.tokens[p.pos]
	if tok.Kind != EOF {
		p.pos++
	}
	return tok
}

// accept consumes the next token if it has the given kind.
func (p *parser) accept(kind TokenKind) *Token {
	if p.at(kind) {
		return p.advance()
	}
	return nil
}

func (p *parser) expect(kind TokenKind) *Token {
	if !p.at(kind) {
		p.errorf(p.peek(), "got %s, want %s", p.peek(), kind)
	}
	return p.advance()
}

func (p *parser) parseProgram() *Program {
	prog := &Program{}
	for !p.at(EOF) {
		prog.Decls = append(prog.Decls, p.parseDecl())
	}
	prog.EOF = p.expect(EOF)
	return prog
}

func (p *parser) parseDecl() Decl {
	switch p.peek().Kind {
	case FUNC:
		return p.parseFuncDecl()
	case CLASS:
		return p.parseClassDecl()
	case INTERFACE:
		return p.parseInterfaceDecl()
	case VAR:
		return p.parseVarDecl()
	}
	p.errorf(p.peek(), "got %s, want declaration", p.peek())
	panic("unreachable")
}

func (p *parser) parseFuncDecl() *FuncDecl {
	fn := &FuncDecl{Func: p.expect(FUNC)}
	fn.Name = p.expect(IDENT)
	fn.LParen = p.expect(LPAREN)
	if !p.at(RPAREN) {
		for {
			fn.Params = append(fn.Params, p.parseParam())
			if p.accept(COMMA) == nil {
				break
			}
		}
	}
	fn.RParen = p.expect(RPAREN)
	if fn.Colon = p.accept(COLON); fn.Colon != nil {
		fn.Result = p.parseType()
	}
	if p.at(LBRACE) {
		fn.Body = p.parseBlock()
	} else {
		fn.Semi = p.expect(SEMI)
	}
	return fn
}

func (p *parser) parseParam() *Param {
	param := &Param{Name: p.expect(IDENT)}
	param.Colon = p.expect(COLON)
	param.Type = p.parseType()
	return param
}

func (p *parser) parseBases() (*Token, []TypeExpr) {
	colon := p.accept(COLON)
	if colon == nil {
		return nil, nil
	}
	var bases []TypeExpr
	for {
		bases = append(bases, p.parseType())
		if p.accept(COMMA) == nil {
			break
		}
	}
	return colon, bases
}

func (p *parser) parseClassDecl() *ClassDecl {
	cls := &ClassDecl{Class: p.expect(CLASS)}
	cls.Name = p.expect(IDENT)
	cls.Colon, cls.Bases = p.parseBases()
	cls.LBrace = p.expect(LBRACE)
	for !p.at(RBRACE) {
		switch p.peek().Kind {
		case FUNC:
			cls.Members = append(cls.Members, p.parseFuncDecl())
		case VAR:
			cls.Members = append(cls.Members, p.parseVarDecl())
		default:
			p.errorf(p.peek(), "got %s, want class member", p.peek())
		}
	}
	cls.RBrace = p.expect(RBRACE)
	return cls
}

func (p *parser) parseInterfaceDecl() *InterfaceDecl {
	iface := &InterfaceDecl{Interface: p.expect(INTERFACE)}
	iface.Name = p.expect(IDENT)
	iface.Colon, iface.Bases = p.parseBases()
	iface.LBrace = p.expect(LBRACE)
	for !p.at(RBRACE) {
		if !p.at(FUNC) {
			p.errorf(p.peek(), "got %s, want method signature", p.peek())
		}
		fn := p.parseFuncDecl()
		if fn.Body != nil {
			p.errorf(fn.Body.LBrace, "interface method %s cannot have a body", fn.Name.Text)
		}
		iface.Members = append(iface.Members, fn)
	}
	iface.RBrace = p.expect(RBRACE)
	return iface
}

func (p *parser) parseVarDecl() *VarDecl {
	v := &VarDecl{Var: p.expect(VAR)}
	v.Name = p.expect(IDENT)
	if v.Colon = p.accept(COLON); v.Colon != nil {
		v.Type = p.parseType()
	}
	if v.Eq = p.accept(EQ); v.Eq != nil {
		v.Value = p.parseExpr()
	}
	v.Semi = p.expect(SEMI)
	return v
}

func (p *parser) parseType() TypeExpr {
	return &NamedType{Name: p.expect(IDENT)}
}

func (p *parser) parseBlock() *BlockStmt {
	block := &BlockStmt{LBrace: p.expect(LBRACE)}
	for !p.at(RBRACE) && !p.at(EOF) {
		block.Stmts = append(block.Stmts, p.parseStmt())
	}
	block.RBrace = p.expect(RBRACE)
	return block
}

func (p *parser) parseStmt() Stmt {
	switch p.peek().Kind {
	case VAR:
		return p.parseVarDecl()
	case LBRACE:
		return p.parseBlock()
	case IF:
		return p.parseIf()
	case WHILE:
		w := &WhileStmt{While: p.advance()}
		w.LParen = p.expect(LPAREN)
		w.Cond = p.parseExpr()
		w.RParen = p.expect(RPAREN)
		w.Body = p.parseBlock()
		return w
	case RETURN:
		ret := &ReturnStmt{Return: p.advance()}
		if !p.at(SEMI) {
			ret.Result = p.parseExpr()
		}
		ret.Semi = p.expect(SEMI)
		return ret
	}
	x := p.parseExpr()
	if eq := p.accept(EQ); eq != nil {
		value := p.parseExpr()
		return &AssignStmt{Target: x, Eq: eq, Value: value, Semi: p.expect(SEMI)}
	}
	return &ExprStmt{X: x, Semi: p.expect(SEMI)}
}

func (p *parser) parseIf() *IfStmt {
	stmt := &IfStmt{If: p.expect(IF)}
	stmt.LParen = p.expect(LPAREN)
	stmt.Cond = p.parseExpr()
	stmt.RParen = p.expect(RPAREN)
	stmt.Then = p.parseBlock()
	if stmt.ElseTok = p.accept(ELSE); stmt.ElseTok != nil {
		if p.at(IF) {
			stmt.Else = p.parseIf()
		} else {
			stmt.Else = p.parseBlock()
		}
	}
	return stmt
}

// binary operator precedence; higher binds tighter.
var precedence = map[TokenKind]int{
	OROR:    1,
	ANDAND:  2,
	EQL:     3,
	NEQ:     3,
	LT:      4,
	LE:      4,
	GT:      4,
	GE:      4,
	PLUS:    5,
	MINUS:   5,
	STAR:    6,
	SLASH:   6,
	PERCENT: 6,
}

func (p *parser) parseExpr() Expr { return p.parseBinary(1) }

func (p *parser) parseBinary(minPrec int) Expr {
	x := p.parseUnary()
	for {
		prec, ok := precedence[p.peek().Kind]
		if !ok || prec < minPrec {
			return x
		}
		op := p.advance()
		y := p.parseBinary(prec + 1)
		x = &BinaryExpr{X: x, Op: op, Y: y}
	}
}

func (p *parser) parseUnary() Expr {
	if p.at(MINUS) || p.at(BANG) {
		op := p.advance()
		return &UnaryExpr{Op: op, X: p.parseUnary()}
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() Expr {
	x := p.parsePrimary()
	for {
		switch p.peek().Kind {
		case LPAREN:
			call := &CallExpr{Fn: x, LParen: p.advance()}
			if !p.at(RPAREN) {
				for {
					call.Args = append(call.Args, p.parseExpr())
					if p.accept(COMMA) == nil {
						break
					}
				}
			}
			call.RParen = p.expect(RPAREN)
			x = call
		case DOT:
			dot := p.advance()
			x = &MemberExpr{X: x, Dot: dot, Name: p.expect(IDENT)}
		default:
			return x
		}
	}
}

func (p *parser) parsePrimary() Expr {
	tok := p.peek()
	switch tok.Kind {
	case IDENT:
		return &Ident{Tok: p.advance()}
	case INT:
		p.advance()
		n, err := strconv.ParseInt(tok.Text, 10, 64)
		if err != nil {
			p.errorf(tok, "int literal %s out of range", tok.Text)
		}
		return &Literal{Tok: tok, Value: n}
	case STRING:
		p.advance()
		return &Literal{Tok: tok, Value: unquote(tok.Text)}
	case TRUE, FALSE:
		p.advance()
		return &Literal{Tok: tok, Value: tok.Kind == TRUE}
	case LPAREN:
		paren := &ParenExpr{LParen: p.advance()}
		paren.X = p.parseExpr()
		paren.RParen = p.expect(RPAREN)
		return paren
	}
	p.errorf(tok, "got %s, want expression", tok)
	panic("unreachable")
}
