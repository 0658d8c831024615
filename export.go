package spiral

import (
	"fmt"

	"github.com/lucyelle/SpiralCompiler-sub000/internal/runtime"
	"github.com/lucyelle/SpiralCompiler-sub000/internal/semantics"
	"github.com/lucyelle/SpiralCompiler-sub000/internal/store"
	"github.com/lucyelle/SpiralCompiler-sub000/internal/syntax"
)

// exporter writes one analysed file into a DataStore. IDs handed out by the
// DataStore may be fake (BatchedStore); they are only used to link rows of
// the same file.
type exporter struct {
	ds     store.DataStore
	fileID int64
	comp   *semantics.Compilation
	lines  *syntax.LineIndex

	symIDs   map[semantics.Symbol]int64
	scopeIDs map[syntax.Node]int64
}

func newExporter(ds store.DataStore, fileID int64, comp *semantics.Compilation, lines *syntax.LineIndex) *exporter {
	return &exporter{
		ds:       ds,
		fileID:   fileID,
		comp:     comp,
		lines:    lines,
		symIDs:   make(map[semantics.Symbol]int64),
		scopeIDs: make(map[syntax.Node]int64),
	}
}

// export writes declarations, scopes, references, call edges and semantic
// diagnostics, in that order.
func (x *exporter) export() error {
	if err := x.symbols(); err != nil {
		return fmt.Errorf("export symbols: %w", err)
	}
	if err := x.scopes(x.comp.Tree(), nil); err != nil {
		return fmt.Errorf("export scopes: %w", err)
	}
	if err := x.references(); err != nil {
		return fmt.Errorf("export references: %w", err)
	}
	if err := x.diagnostics(); err != nil {
		return fmt.Errorf("export diagnostics: %w", err)
	}
	return nil
}

func (x *exporter) symbols() error {
	syms, err := x.comp.Symbols()
	if err != nil {
		return err
	}

	// Base lists may name types declared further down, so they are written
	// once every symbol has an ID.
	type pendingBases struct {
		symID int64
		bases []*store.TypeBase
		types []semantics.Type
	}
	var pending []pendingBases

	for _, sym := range syms {
		params := functionParams(sym)
		bases, types := typeBases(sym)

		row := &store.Symbol{
			FileID:   x.fileID,
			Name:     sym.Name(),
			Kind:     sym.Kind().String(),
			TypeText: semantics.TypeText(sym),
		}
		row.SignatureHash = store.ComputeSignatureHash(row.Name, row.Kind, row.TypeText, params, bases)
		x.setSpan(sym.Decl().Span(), &row.StartLine, &row.StartCol, &row.EndLine, &row.EndCol, &row.StartOffset, &row.EndOffset)
		if owner := sym.Owner(); owner != nil {
			if id, ok := x.symIDs[owner]; ok {
				row.ParentSymbolID = &id
			}
		}
		id, err := x.ds.InsertSymbol(row)
		if err != nil {
			return err
		}
		x.symIDs[sym] = id

		for _, p := range params {
			p.SymbolID = id
			if _, err := x.ds.InsertFunctionParam(p); err != nil {
				return err
			}
		}
		if len(bases) > 0 {
			pending = append(pending, pendingBases{symID: id, bases: bases, types: types})
		}
	}

	for _, p := range pending {
		for _, b := range p.bases {
			b.SymbolID = p.symID
			for _, t := range p.types {
				if t.Name() != b.BaseName {
					continue
				}
				if id, ok := x.symIDs[t]; ok {
					b.BaseSymbolID = &id
				}
			}
			if _, err := x.ds.InsertTypeBase(b); err != nil {
				return err
			}
		}
	}
	return nil
}

func functionParams(sym semantics.Symbol) []*store.FunctionParam {
	fn, ok := sym.(*semantics.FunctionSymbol)
	if !ok {
		return nil
	}
	var params []*store.FunctionParam
	for i, p := range fn.Params() {
		params = append(params, &store.FunctionParam{Name: p.Name(), Ordinal: i, TypeText: p.Type().Name()})
	}
	return params
}

// typeBases returns the base list as written, along with the bases that
// resolved to valid types.
func typeBases(sym semantics.Symbol) ([]*store.TypeBase, []semantics.Type) {
	var (
		exprs    []syntax.TypeExpr
		resolved []semantics.Type
	)
	switch s := sym.(type) {
	case *semantics.ClassSymbol:
		exprs, resolved = s.Decl().(*syntax.ClassDecl).Bases, s.Bases()
	case *semantics.InterfaceSymbol:
		exprs, resolved = s.Decl().(*syntax.InterfaceDecl).Bases, s.Bases()
	default:
		return nil, nil
	}
	var bases []*store.TypeBase
	for i, e := range exprs {
		name := ""
		if nt, ok := e.(*syntax.NamedType); ok {
			name = nt.Name.Text
		}
		bases = append(bases, &store.TypeBase{BaseName: name, Ordinal: i})
	}
	return bases, resolved
}

func scopeKind(n syntax.Node) (string, bool) {
	switch n.(type) {
	case *syntax.Program:
		return semantics.ModuleBinderKind.String(), true
	case *syntax.ClassDecl, *syntax.InterfaceDecl:
		return semantics.ClassBinderKind.String(), true
	case *syntax.FuncDecl:
		return semantics.FunctionBinderKind.String(), true
	case *syntax.BlockStmt:
		return semantics.BlockBinderKind.String(), true
	}
	return "", false
}

func (x *exporter) scopes(n syntax.Node, parent *int64) error {
	if kind, ok := scopeKind(n); ok {
		row := &store.Scope{FileID: x.fileID, Kind: kind, ParentScopeID: parent}
		var discard int
		x.setSpan(n.Span(), &row.StartLine, &row.StartCol, &row.EndLine, &row.EndCol, &discard, &discard)
		if _, isProgram := n.(*syntax.Program); !isProgram {
			sym, err := x.comp.SymbolOf(n)
			if err != nil {
				return err
			}
			if id, ok := x.symIDs[sym]; ok && sym != nil {
				row.SymbolID = &id
			}
		}
		id, err := x.ds.InsertScope(row)
		if err != nil {
			return err
		}
		x.scopeIDs[n] = id
		parent = &id
	}
	for _, c := range n.Children() {
		if err := x.scopes(c, parent); err != nil {
			return err
		}
	}
	return nil
}

func isErrorFunction(sym semantics.Symbol) bool {
	fn, ok := sym.(*semantics.FunctionSymbol)
	return ok && fn.IsError()
}

// references writes every name use and, for calls made inside a function,
// a call edge.
func (x *exporter) references() error {
	refs, err := x.comp.References()
	if err != nil {
		return err
	}
	tree := x.comp.Tree()
	for _, ref := range refs {
		row := &store.Reference{
			FileID:   x.fileID,
			Name:     ref.Name,
			Context:  string(ref.Context),
			Resolved: ref.Symbol != nil && !isErrorFunction(ref.Symbol),
		}
		x.setSpan(ref.Span, &row.StartLine, &row.StartCol, &row.EndLine, &row.EndCol, &row.StartOffset, &row.EndOffset)

		at := syntax.Innermost[syntax.Node](tree, ref.Span.Start)
		if at == nil {
			at = tree
		}
		if id, ok := x.scopeIDs[x.comp.Parents().ScopeOf(at)]; ok {
			row.ScopeID = &id
		}
		var target *int64
		if row.Resolved {
			if id, ok := x.symIDs[ref.Symbol]; ok {
				target = &id
			}
		}
		row.TargetSymbolID = target
		if _, err := x.ds.InsertReference(row); err != nil {
			return err
		}

		if ref.Context != semantics.RefCall || !row.Resolved {
			continue
		}
		caller, err := x.comp.EnclosingFunction(at)
		if err != nil {
			return err
		}
		callerID, ok := x.symIDs[caller]
		if caller == nil || !ok {
			continue
		}
		if _, err := x.ds.InsertCallEdge(&store.CallEdge{
			CallerSymbolID: callerID,
			CalleeSymbolID: target,
			CalleeName:     ref.Name,
			FileID:         x.fileID,
			Line:           row.StartLine,
			Col:            row.StartCol,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (x *exporter) diagnostics() error {
	diags, err := x.comp.Diagnostics()
	if err != nil {
		return err
	}
	for _, d := range diags {
		if err := x.diagnostic(d.Message, store.SourceSemantic, d.Span); err != nil {
			return err
		}
	}
	return nil
}

// findings stores rule reports as diagnostics. The rule name prefixes the
// message.
func (x *exporter) findings(found []runtime.Finding) error {
	for _, f := range found {
		if err := x.diagnostic(f.Rule+": "+f.Message, store.SourceRule, f.Span); err != nil {
			return err
		}
	}
	return nil
}

func (x *exporter) diagnostic(msg, source string, span *syntax.Span) error {
	row := &store.Diagnostic{FileID: x.fileID, Message: msg, Source: source}
	if span != nil {
		row.HasSpan = true
		x.setSpan(*span, &row.StartLine, &row.StartCol, &row.EndLine, &row.EndCol, &row.StartOffset, &row.EndOffset)
	}
	_, err := x.ds.InsertDiagnostic(row)
	return err
}

func (x *exporter) setSpan(span syntax.Span, startLine, startCol, endLine, endCol, startOff, endOff *int) {
	*startLine, *startCol = x.lines.LineCol(span.Start)
	*endLine, *endCol = x.lines.LineCol(span.End)
	*startOff, *endOff = span.Start, span.End
}
