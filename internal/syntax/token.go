package syntax

import "fmt"

// A Span is a half-open byte range [Start, End) in the source text.
type Span struct {
	Start int
	End   int
}

// Contains reports whether offset lies within the span. The end offset is
// included so that a cursor placed right after a name still hits it.
func (s Span) Contains(offset int) bool {
	return s.Start <= offset && offset <= s.End
}

func (s Span) String() string { return fmt.Sprintf("%d-%d", s.Start, s.End) }

// A TokenKind is the lexical category of a Token.
type TokenKind uint8

const (
	ILLEGAL TokenKind = iota
	EOF

	IDENT
	INT
	STRING

	// keywords
	FUNC
	VAR
	CLASS
	INTERFACE
	IF
	ELSE
	WHILE
	RETURN
	TRUE
	FALSE

	// punctuation
	LPAREN
	RPAREN
	LBRACE
	RBRACE
	COMMA
	SEMI
	COLON
	DOT
	EQ

	// operators
	PLUS
	MINUS
	STAR
	SLASH
	PERCENT
	EQL
	NEQ
	LT
	LE
	GT
	GE
	ANDAND
	OROR
	BANG
)

var tokenNames = [...]string{
	ILLEGAL:   "illegal token",
	EOF:       "end of file",
	IDENT:     "identifier",
	INT:       "int literal",
	STRING:    "string literal",
	FUNC:      "func",
	VAR:       "var",
	CLASS:     "class",
	INTERFACE: "interface",
	IF:        "if",
	ELSE:      "else",
	WHILE:     "while",
	RETURN:    "return",
	TRUE:      "true",
	FALSE:     "false",
	LPAREN:    "(",
	RPAREN:    ")",
	LBRACE:    "{",
	RBRACE:    "}",
	COMMA:     ",",
	SEMI:      ";",
	COLON:     ":",
	DOT:       ".",
	EQ:        "=",
	PLUS:      "+",
	MINUS:     "-",
	STAR:      "*",
	SLASH:     "/",
	PERCENT:   "%",
	EQL:       "==",
	NEQ:       "!=",
	LT:        "<",
	LE:        "<=",
	GT:        ">",
	GE:        ">=",
	ANDAND:    "&&",
	OROR:      "||",
	BANG:      "!",
}

func (k TokenKind) String() string {
	if int(k) < len(tokenNames) {
		return tokenNames[k]
	}
	return fmt.Sprintf("token(%d)", k)
}

var keywords = map[string]TokenKind{
	"func":      FUNC,
	"var":       VAR,
	"class":     CLASS,
	"interface": INTERFACE,
	"if":        IF,
	"else":      ELSE,
	"while":     WHILE,
	"return":    RETURN,
	"true":      TRUE,
	"false":     FALSE,
}

// A Token is a leaf of the syntax tree.
type Token struct {
	Kind  TokenKind
	Text  string // raw source text
	Start int
	End   int
}

func (t *Token) Span() Span { return Span{Start: t.Start, End: t.End} }

// Children returns nil: tokens are leaves.
func (t *Token) Children() []Node { return nil }

func (t *Token) String() string {
	switch t.Kind {
	case IDENT, INT, STRING:
		return fmt.Sprintf("%s %s", t.Kind, t.Text)
	}
	return t.Kind.String()
}
