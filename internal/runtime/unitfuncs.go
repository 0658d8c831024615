package runtime

import (
	"context"
	"fmt"
	"io"

	"github.com/risor-io/risor/object"

	"github.com/lucyelle/SpiralCompiler-sub000/internal/semantics"
	"github.com/lucyelle/SpiralCompiler-sub000/internal/syntax"
)

// unitHost backs the host functions that expose one analysed file to a
// rule script. Offsets passed to and from scripts are byte offsets; lines
// and columns are 1-based.
type unitHost struct {
	u     *Unit
	lines *syntax.LineIndex
}

// unitGlobals builds the per-file globals of a rule script.
func unitGlobals(u *Unit, sink *findings) map[string]any {
	h := &unitHost{u: u, lines: syntax.NewLineIndex(u.Source)}
	return map[string]any{
		"file_path":   u.Path,
		"source":      u.Source,
		"symbols":     h.makeSymbolsFn(),
		"references":  h.makeReferencesFn(),
		"diagnostics": h.makeDiagnosticsFn(),
		"lookup":      h.makeLookupFn(),
		"type_of":     h.makeTypeOfFn(),
		"line_col":    h.makeLineColFn(),
		"report":      h.makeReportFn(sink),
	}
}

// addSpan stores start, end, line and col for span, or -1 everywhere when
// span is nil.
func (h *unitHost) addSpan(m map[string]object.Object, span *syntax.Span) {
	if span == nil {
		for _, k := range []string{"start", "end", "line", "col"} {
			m[k] = object.NewInt(-1)
		}
		return
	}
	line, col := h.lines.LineCol(span.Start)
	m["start"] = object.NewInt(int64(span.Start))
	m["end"] = object.NewInt(int64(span.End))
	m["line"] = object.NewInt(int64(line))
	m["col"] = object.NewInt(int64(col))
}

func nameSpan(sym semantics.Symbol) *syntax.Span {
	tok := semantics.NameToken(sym)
	if tok == nil {
		return nil
	}
	span := tok.Span()
	return &span
}

// symbolMap converts a symbol to a Risor map:
//
//	{name, kind, type, builtin, owner, start, end, line, col,
//	 scope_kind, scope_start, scope_end}
//
// The scope is the one the symbol is declared in.
func (h *unitHost) symbolMap(sym semantics.Symbol) (object.Object, error) {
	m := map[string]object.Object{
		"name":    object.NewString(sym.Name()),
		"kind":    object.NewString(sym.Kind().String()),
		"type":    object.NewString(semantics.TypeText(sym)),
		"builtin": object.NewBool(sym.Decl() == nil),
		"owner":   object.NewString(""),
	}
	if owner := sym.Owner(); owner != nil {
		m["owner"] = object.NewString(owner.Name())
	}
	h.addSpan(m, nameSpan(sym))

	m["scope_kind"] = object.NewString(semantics.RootBinderKind.String())
	m["scope_start"] = object.NewInt(-1)
	m["scope_end"] = object.NewInt(-1)
	if sym.Decl() != nil {
		b, err := h.u.Comp.DeclaringBinder(sym)
		if err != nil {
			return nil, err
		}
		m["scope_kind"] = object.NewString(b.Kind().String())
		if n := b.Node(); n != nil {
			span := n.Span()
			m["scope_start"] = object.NewInt(int64(span.Start))
			m["scope_end"] = object.NewInt(int64(span.End))
		}
	}
	return object.NewMap(m), nil
}

// symbols() → list of symbol maps in document order.
func (h *unitHost) makeSymbolsFn() *object.Builtin {
	return object.NewBuiltin("symbols", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("symbols", 0, len(args))
		}
		syms, err := h.u.Comp.Symbols()
		if err != nil {
			return object.Errorf("symbols: %v", err)
		}
		results := make([]object.Object, 0, len(syms))
		for _, sym := range syms {
			m, err := h.symbolMap(sym)
			if err != nil {
				return object.Errorf("symbols: %v", err)
			}
			results = append(results, m)
		}
		return object.NewList(results)
	})
}

// references() → list of {name, context, start, end, line, col, resolved,
// builtin, target_kind, target_start} in document order. target_start is
// the offset of the target's declaring identifier, -1 when there is none.
func (h *unitHost) makeReferencesFn() *object.Builtin {
	return object.NewBuiltin("references", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("references", 0, len(args))
		}
		refs, err := h.u.Comp.References()
		if err != nil {
			return object.Errorf("references: %v", err)
		}
		results := make([]object.Object, 0, len(refs))
		for _, ref := range refs {
			m := map[string]object.Object{
				"name":         object.NewString(ref.Name),
				"context":      object.NewString(string(ref.Context)),
				"resolved":     object.False,
				"builtin":      object.False,
				"target_kind":  object.NewString(""),
				"target_start": object.NewInt(-1),
			}
			span := ref.Span
			h.addSpan(m, &span)
			if sym := ref.Symbol; sym != nil && !isErrorSymbol(sym) {
				m["resolved"] = object.True
				m["builtin"] = object.NewBool(sym.Decl() == nil)
				m["target_kind"] = object.NewString(sym.Kind().String())
				if ns := nameSpan(sym); ns != nil {
					m["target_start"] = object.NewInt(int64(ns.Start))
				}
			}
			results = append(results, object.NewMap(m))
		}
		return object.NewList(results)
	})
}

func isErrorSymbol(sym semantics.Symbol) bool {
	fn, ok := sym.(*semantics.FunctionSymbol)
	return ok && fn.IsError()
}

// diagnostics() → list of {message, start, end, line, col}.
func (h *unitHost) makeDiagnosticsFn() *object.Builtin {
	return object.NewBuiltin("diagnostics", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("diagnostics", 0, len(args))
		}
		diags, err := h.u.Comp.Diagnostics()
		if err != nil {
			return object.Errorf("diagnostics: %v", err)
		}
		results := make([]object.Object, 0, len(diags))
		for _, d := range diags {
			m := map[string]object.Object{"message": object.NewString(d.Message)}
			h.addSpan(m, d.Span)
			results = append(results, object.NewMap(m))
		}
		return object.NewList(results)
	})
}

// lookup(offset, name) → symbol map, or nil when name is not visible at
// offset.
func (h *unitHost) makeLookupFn() *object.Builtin {
	return object.NewBuiltin("lookup", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("lookup", 2, len(args))
		}
		offset, err := toInt64(args[0])
		if err != nil {
			return object.Errorf("lookup: offset: %v", err)
		}
		name, err := toString(args[1])
		if err != nil {
			return object.Errorf("lookup: name: %v", err)
		}
		tree := h.u.Comp.Tree()
		var at syntax.Node = syntax.Innermost[syntax.Node](tree, int(offset))
		if at == nil {
			at = tree
		}
		sym, err := h.u.Comp.LookupAt(at, name)
		if err != nil {
			return object.Errorf("lookup: %v", err)
		}
		if sym == nil {
			return object.Nil
		}
		m, err := h.symbolMap(sym)
		if err != nil {
			return object.Errorf("lookup: %v", err)
		}
		return m
	})
}

// type_of(offset) → name of the type of the innermost expression at
// offset, or nil when offset is not inside an expression.
func (h *unitHost) makeTypeOfFn() *object.Builtin {
	return object.NewBuiltin("type_of", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("type_of", 1, len(args))
		}
		offset, err := toInt64(args[0])
		if err != nil {
			return object.Errorf("type_of: %v", err)
		}
		expr := syntax.Innermost[syntax.Expr](h.u.Comp.Tree(), int(offset))
		if expr == nil {
			return object.Nil
		}
		t, err := h.u.Comp.TypeOf(expr)
		if err != nil {
			return object.Errorf("type_of: %v", err)
		}
		return object.NewString(t.Name())
	})
}

// line_col(offset) → [line, col].
func (h *unitHost) makeLineColFn() *object.Builtin {
	return object.NewBuiltin("line_col", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("line_col", 1, len(args))
		}
		offset, err := toInt64(args[0])
		if err != nil {
			return object.Errorf("line_col: %v", err)
		}
		line, col := h.lines.LineCol(int(offset))
		return object.NewList([]object.Object{object.NewInt(int64(line)), object.NewInt(int64(col))})
	})
}

// report(message) or report(message, start, end) records a finding.
func (h *unitHost) makeReportFn(sink *findings) *object.Builtin {
	return object.NewBuiltin("report", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 && len(args) != 3 {
			return object.Errorf("report: expected 1 or 3 arguments, got %d", len(args))
		}
		msg, err := toString(args[0])
		if err != nil {
			return object.Errorf("report: message: %v", err)
		}
		if len(args) == 1 {
			sink.add(msg, nil)
			return object.Nil
		}
		start, err := toInt64(args[1])
		if err != nil {
			return object.Errorf("report: start: %v", err)
		}
		end, err := toInt64(args[2])
		if err != nil {
			return object.Errorf("report: end: %v", err)
		}
		if start < 0 || end < start || int(end) > len(h.u.Source) {
			return object.Errorf("report: invalid range %d-%d", start, end)
		}
		sink.add(msg, &syntax.Span{Start: int(start), End: int(end)})
		return object.Nil
	})
}

// logObject provides log.Info/Warn/Error methods for Risor scripts.
type logObject struct {
	prefix string
	out    io.Writer
}

func (l *logObject) Info(msg string) {
	fmt.Fprintf(l.out, "[%s] INFO: %s\n", l.prefix, msg)
}

func (l *logObject) Warn(msg string) {
	fmt.Fprintf(l.out, "[%s] WARN: %s\n", l.prefix, msg)
}

func (l *logObject) Error(msg string) {
	fmt.Fprintf(l.out, "[%s] ERROR: %s\n", l.prefix, msg)
}
