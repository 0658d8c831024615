package syntax

import (
	"fmt"
	"sort"
	"strings"
)

// An Error is a syntax error at a source span.
type Error struct {
	Span Span
	Msg  string
}

func (e Error) Error() string { return fmt.Sprintf("%d: %s", e.Span.Start, e.Msg) }

// An ErrorList is a list of syntax errors, sorted by position.
type ErrorList []Error

func (e ErrorList) Error() string {
	if len(e) == 0 {
		return "no errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", e[0], len(e)-1)
}

func (e ErrorList) sort() {
	sort.SliceStable(e, func(i, j int) bool { return e[i].Span.Start < e[j].Span.Start })
}

// bailout is the panic value used to unwind the scanner and parser on the
// first syntax error.
type bailout struct{}

type scanner struct {
	src    string
	pos    int
	tokens []*Token
	errors ErrorList
}

// Scan splits src into tokens, ending with an EOF token.
func Scan(src string) (tokens []*Token, err error) {
	sc := &scanner{src: src}
	defer sc.recover(&err)
	for {
		tok := sc.next()
		sc.tokens = append(sc.tokens, tok)
		if tok.Kind == EOF {
			break
		}
	}
	return sc.tokens, nil
}

func (sc *scanner) recover(err *error) {
	if e := recover(); e != nil {
		if _, ok := e.(bailout); !ok {
			panic(e)
		}
		*err = sc.errors
	}
}

func (sc *scanner) errorf(start, end int, format string, args ...any) {
	sc.errors = append(sc.errors, Error{Span{start, end}, fmt.Sprintf(format, args...)})
	panic(bailout{})
}

func (sc *scanner) peekByte(off int) byte {
	if sc.pos+off < len(sc.src) {
		return sc.src[sc.pos+off]
	}
	return 0
}

func (sc *scanner) skipSpaceAndComments() {
	for sc.pos < len(sc.src) {
		c := sc.src[sc.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			sc.pos++
		case c == '/' && sc.peekByte(1) == '/':
			for sc.pos < len(sc.src) && sc.src[sc.pos] != '\n' {
				sc.pos++
			}
		default:
			return
		}
	}
}

func (sc *scanner) make(kind TokenKind, start int) *Token {
	return &Token{Kind: kind, Text: sc.src[start:sc.pos], Start: start, End: sc.pos}
}

func (sc *scanner) next() *Token {
	sc.skipSpaceAndComments()
	start := sc.pos
	if sc.pos >= len(sc.src) {
		return &Token{Kind: EOF, Start: start, End: start}
	}

	c := sc.src[sc.pos]
	switch {
	case isLetter(c):
		for sc.pos < len(sc.src) && (isLetter(sc.src[sc.pos]) || isDigit(sc.src[sc.pos])) {
			sc.pos++
		}
		tok := sc.make(IDENT, start)
		if kw, ok := keywords[tok.Text]; ok {
			tok.Kind = kw
		}
		return tok
	case isDigit(c):
		for sc.pos < len(sc.src) && isDigit(sc.src[sc.pos]) {
			sc.pos++
		}
		if sc.pos < len(sc.src) && isLetter(sc.src[sc.pos]) {
			sc.errorf(start, sc.pos+1, "invalid int literal")
		}
		return sc.make(INT, start)
	case c == '"':
		return sc.scanString(start)
	}

	sc.pos++
	two := func(next byte, yes, no TokenKind) *Token {
		if sc.peekByte(0) == next {
			sc.pos++
			return sc.make(yes, start)
		}
		return sc.make(no, start)
	}
	switch c {
	case '(':
		return sc.make(LPAREN, start)
	case ')':
		return sc.make(RPAREN, start)
	case '{':
		return sc.make(LBRACE, start)
	case '}':
		return sc.make(RBRACE, start)
	case ',':
		return sc.make(COMMA, start)
	case ';':
		return sc.make(SEMI, start)
	case ':':
		return sc.make(COLON, start)
	case '.':
		return sc.make(DOT, start)
	case '+':
		return sc.make(PLUS, start)
	case '-':
		return sc.make(MINUS, start)
	case '*':
		return sc.make(STAR, start)
	case '/':
		return sc.make(SLASH, start)
	case '%':
		return sc.make(PERCENT, start)
	case '=':
		return two('=', EQL, EQ)
	case '!':
		return two('=', NEQ, BANG)
	case '<':
		return two('=', LE, LT)
	case '>':
		return two('=', GE, GT)
	case '&':
		if sc.peekByte(0) == '&' {
			sc.pos++
			return sc.make(ANDAND, start)
		}
	case '|':
		if sc.peekByte(0) == '|' {
			sc.pos++
			return sc.make(OROR, start)
		}
	}
	sc.errorf(start, sc.pos, "unexpected character %q", c)
	panic("unreachable")
}

func (sc *scanner) scanString(start int) *Token {
	sc.pos++ // opening quote
	for {
		if sc.pos >= len(sc.src) || sc.src[sc.pos] == '\n' {
			sc.errorf(start, sc.pos, "unterminated string literal")
		}
		switch sc.src[sc.pos] {
		case '"':
			sc.pos++
			return sc.make(STRING, start)
		case '\\':
			switch sc.peekByte(1) {
			case '"', '\\', 'n', 't':
				sc.pos += 2
			default:
				sc.errorf(sc.pos, sc.pos+2, "invalid escape sequence")
			}
		default:
			sc.pos++
		}
	}
}

// unquote decodes the text of a STRING token.
func unquote(text string) string {
	body := text[1 : len(text)-1]
	if !strings.ContainsRune(body, '\\') {
		return body
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] != '\\' {
			b.WriteByte(body[i])
			continue
		}
		i++
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		default:
			b.WriteByte(body[i])
		}
	}
	return b.String()
}

func isLetter(c byte) bool {
	return c == '_' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }
