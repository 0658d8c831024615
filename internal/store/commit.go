package store

import (
	"database/sql"
	"fmt"
)

// CommitBatch inserts all buffered data from a BatchedStore into SQLite
// within a single transaction. Fake (negative) IDs are remapped to real
// IDs, and every FK within the batch is rewritten through the fakeToReal
// mapping.
//
// Insert order respects FK dependencies:
//  1. Symbols (parent_symbol_id points at an earlier symbol)
//  2. FunctionParams, TypeBases (symbol_id)
//  3. Scopes (symbol_id, parent_scope_id)
//  4. References (scope_id, target_symbol_id)
//  5. CallEdges (caller and callee symbol_id)
//  6. Diagnostics (file_id only)
func (s *Store) CommitBatch(batch *BatchedStore) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	fakeToReal := make(map[int64]int64)
	remap := func(id *int64) *int64 {
		if id == nil || *id >= 0 {
			return id
		}
		r := fakeToReal[*id]
		return &r
	}

	// 1. Symbols
	for _, sym := range batch.Symbols {
		sym.ParentSymbolID = remap(sym.ParentSymbolID)
		realID, err := insertSymbolTx(tx, &sym)
		if err != nil {
			return fmt.Errorf("commit batch: symbol %q: %w", sym.Name, err)
		}
		fakeToReal[sym.ID] = realID
	}

	// 2. FunctionParams and TypeBases
	for _, fp := range batch.FunctionParams {
		realID, ok := fakeToReal[fp.SymbolID]
		if fp.SymbolID < 0 && !ok {
			return fmt.Errorf("commit batch: param %q has symbol_id=%d not in fakeToReal map (have %d symbols)", fp.Name, fp.SymbolID, len(batch.Symbols))
		}
		if ok {
			fp.SymbolID = realID
		}
		if _, err := insertFunctionParamTx(tx, &fp); err != nil {
			return fmt.Errorf("commit batch: param %q: %w", fp.Name, err)
		}
	}
	for _, tb := range batch.TypeBases {
		tb.SymbolID = *remap(&tb.SymbolID)
		tb.BaseSymbolID = remap(tb.BaseSymbolID)
		if _, err := insertTypeBaseTx(tx, &tb); err != nil {
			return fmt.Errorf("commit batch: base %q: %w", tb.BaseName, err)
		}
	}

	// 3. Scopes
	for _, scope := range batch.Scopes {
		scope.ParentScopeID = remap(scope.ParentScopeID)
		scope.SymbolID = remap(scope.SymbolID)
		realID, err := insertScopeTx(tx, &scope)
		if err != nil {
			return fmt.Errorf("commit batch: scope: %w", err)
		}
		fakeToReal[scope.ID] = realID
	}

	// 4. References
	for _, ref := range batch.References {
		ref.ScopeID = remap(ref.ScopeID)
		ref.TargetSymbolID = remap(ref.TargetSymbolID)
		if _, err := insertReferenceTx(tx, &ref); err != nil {
			return fmt.Errorf("commit batch: reference %q: %w", ref.Name, err)
		}
	}

	// 5. CallEdges
	for _, edge := range batch.CallEdges {
		edge.CallerSymbolID = *remap(&edge.CallerSymbolID)
		edge.CalleeSymbolID = remap(edge.CalleeSymbolID)
		if _, err := insertCallEdgeTx(tx, &edge); err != nil {
			return fmt.Errorf("commit batch: call to %q: %w", edge.CalleeName, err)
		}
	}

	// 6. Diagnostics
	for _, diag := range batch.Diagnostics {
		if _, err := insertDiagnosticTx(tx, &diag); err != nil {
			return fmt.Errorf("commit batch: diagnostic: %w", err)
		}
	}

	return tx.Commit()
}

// execer is satisfied by *sql.DB and *sql.Tx, so the Store insert methods
// and CommitBatch share one set of statements.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertID(ex execer, query string, args ...any) (int64, error) {
	res, err := ex.Exec(query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertSymbolTx(ex execer, sym *Symbol) (int64, error) {
	return insertID(ex,
		`INSERT INTO symbols (file_id, name, kind, type_text, signature_hash,
			start_line, start_col, end_line, end_col, start_offset, end_offset, parent_symbol_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sym.FileID, sym.Name, sym.Kind, sym.TypeText, sym.SignatureHash,
		sym.StartLine, sym.StartCol, sym.EndLine, sym.EndCol,
		sym.StartOffset, sym.EndOffset, sym.ParentSymbolID,
	)
}

func insertFunctionParamTx(ex execer, fp *FunctionParam) (int64, error) {
	return insertID(ex,
		`INSERT INTO function_parameters (symbol_id, name, ordinal, type_text) VALUES (?, ?, ?, ?)`,
		fp.SymbolID, fp.Name, fp.Ordinal, fp.TypeText,
	)
}

func insertTypeBaseTx(ex execer, tb *TypeBase) (int64, error) {
	return insertID(ex,
		`INSERT INTO type_bases (symbol_id, base_symbol_id, base_name, ordinal) VALUES (?, ?, ?, ?)`,
		tb.SymbolID, tb.BaseSymbolID, tb.BaseName, tb.Ordinal,
	)
}

func insertScopeTx(ex execer, scope *Scope) (int64, error) {
	return insertID(ex,
		`INSERT INTO scopes (file_id, symbol_id, kind, start_line, start_col, end_line, end_col, parent_scope_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		scope.FileID, scope.SymbolID, scope.Kind,
		scope.StartLine, scope.StartCol, scope.EndLine, scope.EndCol, scope.ParentScopeID,
	)
}

func insertReferenceTx(ex execer, ref *Reference) (int64, error) {
	return insertID(ex,
		`INSERT INTO references_ (file_id, scope_id, target_symbol_id, name, resolved,
			start_line, start_col, end_line, end_col, start_offset, end_offset, context)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ref.FileID, ref.ScopeID, ref.TargetSymbolID, ref.Name, ref.Resolved,
		ref.StartLine, ref.StartCol, ref.EndLine, ref.EndCol,
		ref.StartOffset, ref.EndOffset, ref.Context,
	)
}

func insertCallEdgeTx(ex execer, edge *CallEdge) (int64, error) {
	return insertID(ex,
		`INSERT INTO call_graph (caller_symbol_id, callee_symbol_id, callee_name, file_id, line, col)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		edge.CallerSymbolID, edge.CalleeSymbolID, edge.CalleeName, edge.FileID, edge.Line, edge.Col,
	)
}

func insertDiagnosticTx(ex execer, diag *Diagnostic) (int64, error) {
	return insertID(ex,
		`INSERT INTO diagnostics (file_id, message, source, has_span,
			start_line, start_col, end_line, end_col, start_offset, end_offset)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		diag.FileID, diag.Message, diag.Source, diag.HasSpan,
		diag.StartLine, diag.StartCol, diag.EndLine, diag.EndCol,
		diag.StartOffset, diag.EndOffset,
	)
}
