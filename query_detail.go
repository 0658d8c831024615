package spiral

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lucyelle/SpiralCompiler-sub000/internal/store"
)

// SymbolDetail bundles a symbol with its structural metadata. One call
// replaces several Store lookups.
type SymbolDetail struct {
	Symbol     SymbolResult
	Parameters []*store.FunctionParam // empty for non-functions
	Bases      []*store.TypeBase      // empty for non-types
	Members    []SymbolResult         // fields, methods, locals declared directly inside
}

// SymbolDetail returns the symbol and its parameters, bases and members.
// Returns nil with no error if the symbol ID does not exist.
func (q *QueryBuilder) SymbolDetail(symbolID int64) (*SymbolDetail, error) {
	sr, err := q.symbolResultByID(symbolID)
	if err != nil {
		return nil, fmt.Errorf("symbol detail: %w", err)
	}
	if sr == nil {
		return nil, nil
	}

	params, err := q.store.FunctionParams(symbolID)
	if err != nil {
		return nil, fmt.Errorf("symbol detail: function params: %w", err)
	}
	bases, err := q.store.TypeBases(symbolID)
	if err != nil {
		return nil, fmt.Errorf("symbol detail: bases: %w", err)
	}
	members, err := q.querySymbolResults(
		symbolResultSelect()+" WHERE s.parent_symbol_id = ? ORDER BY s.start_offset, s.id", symbolID)
	if err != nil {
		return nil, fmt.Errorf("symbol detail: members: %w", err)
	}

	if params == nil {
		params = []*store.FunctionParam{}
	}
	if bases == nil {
		bases = []*store.TypeBase{}
	}
	return &SymbolDetail{
		Symbol:     *sr,
		Parameters: params,
		Bases:      bases,
		Members:    members,
	}, nil
}

// SymbolAt returns the innermost declaration of file containing (line,
// col). Returns nil with no error if there is none.
func (q *QueryBuilder) SymbolAt(file string, line, col int) (*SymbolResult, error) {
	fid, err := q.fileID(file)
	if err != nil {
		return nil, fmt.Errorf("symbol at: lookup file: %w", err)
	}
	if fid == 0 {
		return nil, nil
	}
	cond := strings.NewReplacer(
		"start_line", "s.start_line", "start_col", "s.start_col",
		"end_line", "s.end_line", "end_col", "s.end_col",
	).Replace(containsPos)
	sr, err := scanSymbolResult(q.store.DB().QueryRow(
		symbolResultSelect()+" WHERE s.file_id = ? AND "+cond+" ORDER BY s.end_offset - s.start_offset, s.id LIMIT 1",
		append([]any{fid}, posArgs(line, col)...)...,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("symbol at: %w", err)
	}
	return &sr, nil
}

// SymbolDetailAt is a position-based convenience that resolves the
// innermost declaration at (file, line, col) and returns its SymbolDetail.
// Returns nil with no error if no declaration contains the position.
func (q *QueryBuilder) SymbolDetailAt(file string, line, col int) (*SymbolDetail, error) {
	sym, err := q.SymbolAt(file, line, col)
	if err != nil {
		return nil, fmt.Errorf("symbol detail at: %w", err)
	}
	if sym == nil {
		return nil, nil
	}
	return q.SymbolDetail(sym.ID)
}

// ScopeAt returns the scope chain at a position, ordered from innermost to
// the module scope. Returns a nil slice and nil error if no scope contains
// the position or the file is not indexed.
func (q *QueryBuilder) ScopeAt(file string, line, col int) ([]*store.Scope, error) {
	fid, err := q.fileID(file)
	if err != nil {
		return nil, fmt.Errorf("scope at: lookup file: %w", err)
	}
	if fid == 0 {
		return nil, nil
	}

	// Scopes nest, so the one starting last is the innermost.
	var innermost int64
	err = q.store.DB().QueryRow(
		"SELECT id FROM scopes WHERE file_id = ? AND "+containsPos+" ORDER BY start_line DESC, start_col DESC, id DESC LIMIT 1",
		append([]any{fid}, posArgs(line, col)...)...,
	).Scan(&innermost)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scope at: find innermost: %w", err)
	}

	chain, err := q.store.ScopeChain(innermost)
	if err != nil {
		return nil, fmt.Errorf("scope at: scope chain: %w", err)
	}
	return chain, nil
}

// symbolResultsByIDs loads multiple symbols as SymbolResults in a single
// query. Missing IDs are simply absent from the map.
func (q *QueryBuilder) symbolResultsByIDs(ids []int64) (map[int64]*SymbolResult, error) {
	result := make(map[int64]*SymbolResult, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	items, err := q.querySymbolResults(
		symbolResultSelect()+" WHERE s.id IN ("+strings.Repeat("?,", len(ids)-1)+"?)", args...)
	if err != nil {
		return nil, err
	}
	for i := range items {
		result[items[i].ID] = &items[i]
	}
	return result, nil
}

// symbolResultByID loads a single symbol as a SymbolResult. Returns nil
// with no error if not found.
func (q *QueryBuilder) symbolResultByID(symbolID int64) (*SymbolResult, error) {
	sr, err := scanSymbolResult(q.store.DB().QueryRow(symbolResultSelect()+" WHERE s.id = ?", symbolID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sr, nil
}
