package semantics

import (
	"github.com/lucyelle/SpiralCompiler-sub000/internal/syntax"
)

// BaseSet returns t together with every type it transitively inherits from.
func BaseSet(t Type) map[Type]bool {
	set := make(map[Type]bool)
	var visit func(t Type)
	visit = func(t Type) {
		if set[t] {
			return
		}
		set[t] = true
		for _, b := range t.Bases() {
			visit(b)
		}
	}
	visit(t)
	return set
}

// IsAssignable reports whether a value of type right can be stored in a
// location of type left. Error is assignable both ways.
func IsAssignable(left, right Type) bool {
	if left == Error || right == Error {
		return true
	}
	return BaseSet(right)[left]
}

// Assign checks that right can be stored in left. It returns left on
// success and Error otherwise, reporting at node unless an operand is
// already Error.
func Assign(node syntax.Node, left, right Type, d *Diagnostics) Type {
	if left == Error || right == Error {
		return Error
	}
	if BaseSet(right)[left] {
		return left
	}
	d.Errorf(node, "cannot assign %s to %s", right.Name(), left.Name())
	return Error
}

// CheckCondition reports a condition whose type is not Bool.
func CheckCondition(node syntax.Node, t Type, d *Diagnostics) {
	if t == Error || t == Bool {
		return
	}
	d.Errorf(node, "condition must be bool expression")
}

// ResolveOverload picks the first candidate, in declaration order, whose
// parameters accept args position by position. If none does it reports at
// node and returns an error function with len(args) parameters.
func ResolveOverload(node syntax.Node, name string, candidates []*FunctionSymbol, args []Type, d *Diagnostics) *FunctionSymbol {
	for _, fn := range candidates {
		if matches(fn, args) {
			return fn
		}
	}
	d.Errorf(node, "No overload of %s matches the given arguments", name)
	return errorFunction(name, len(args))
}

func matches(fn *FunctionSymbol, args []Type) bool {
	if len(fn.params) != len(args) {
		return false
	}
	for i, p := range fn.params {
		if !IsAssignable(p.Type(), args[i]) {
			return false
		}
	}
	return true
}

// BinaryOp returns the result type of x op y.
func BinaryOp(node syntax.Node, op syntax.TokenKind, x, y Type, d *Diagnostics) Type {
	if x == Error || y == Error {
		return Error
	}
	switch op {
	case syntax.PLUS:
		if x == Int && y == Int || x == String && y == String {
			return x
		}
	case syntax.MINUS, syntax.STAR, syntax.SLASH, syntax.PERCENT:
		if x == Int && y == Int {
			return Int
		}
	case syntax.LT, syntax.LE, syntax.GT, syntax.GE:
		if x == Int && y == Int {
			return Bool
		}
	case syntax.EQL, syntax.NEQ:
		if IsAssignable(x, y) || IsAssignable(y, x) {
			return Bool
		}
	case syntax.ANDAND, syntax.OROR:
		if x == Bool && y == Bool {
			return Bool
		}
	}
	d.Errorf(node, "operator %s is not defined for %s and %s", op, x.Name(), y.Name())
	return Error
}

// UnaryOp returns the result type of op x.
func UnaryOp(node syntax.Node, op syntax.TokenKind, x Type, d *Diagnostics) Type {
	if x == Error {
		return Error
	}
	switch {
	case op == syntax.MINUS && x == Int:
		return Int
	case op == syntax.BANG && x == Bool:
		return Bool
	}
	d.Errorf(node, "operator %s is not defined for %s", op, x.Name())
	return Error
}
