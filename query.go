package spiral

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lucyelle/SpiralCompiler-sub000/internal/store"
)

// QueryBuilder provides the read API over an index. Lines and columns are
// 1-based; a position is inside a range when start <= pos < end.
type QueryBuilder struct {
	store *store.Store
}

// NewQueryBuilder creates a QueryBuilder over an existing Store, for
// read-only access to an index without an Engine.
func NewQueryBuilder(s *Store) *QueryBuilder {
	return &QueryBuilder{store: s}
}

// Location represents a source code position range.
type Location struct {
	File      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// containsPos is a WHERE fragment matching rows whose range contains
// (line, col). It takes the arguments returned by posArgs.
const containsPos = `start_line <= ? AND end_line >= ?
	AND (start_line < ? OR start_col <= ?)
	AND (end_line > ? OR end_col > ?)`

func posArgs(line, col int) []any {
	return []any{line, line, line, col, line, col}
}

// fileID returns the ID of the file indexed at path, or 0 when there is
// none.
func (q *QueryBuilder) fileID(path string) (int64, error) {
	f, err := q.store.FileByPath(path)
	if err != nil || f == nil {
		return 0, err
	}
	return f.ID, nil
}

// referenceAt returns the reference covering (line, col) in a file.
func (q *QueryBuilder) referenceAt(fileID int64, line, col int) (*store.Reference, error) {
	refs, err := q.store.QueryReferences(
		"SELECT "+store.ReferenceCols+" FROM references_ WHERE file_id = ? AND "+containsPos+" ORDER BY end_offset - start_offset LIMIT 1",
		append([]any{fileID}, posArgs(line, col)...)...,
	)
	if err != nil || len(refs) == 0 {
		return nil, err
	}
	return refs[0], nil
}

// DefinitionAt finds the declaration of the name used at the given
// position. It returns nil when there is no reference at the position or
// when the reference resolved to a built-in or to nothing.
func (q *QueryBuilder) DefinitionAt(file string, line, col int) ([]Location, error) {
	fid, err := q.fileID(file)
	if err != nil {
		return nil, fmt.Errorf("definition at: lookup file: %w", err)
	}
	if fid == 0 {
		return nil, nil
	}
	ref, err := q.referenceAt(fid, line, col)
	if err != nil {
		return nil, fmt.Errorf("definition at: %w", err)
	}
	if ref == nil || ref.TargetSymbolID == nil {
		return nil, nil
	}
	loc, err := q.symbolLocation(*ref.TargetSymbolID)
	if err != nil {
		return nil, fmt.Errorf("definition at: symbol location: %w", err)
	}
	if loc == nil {
		return nil, nil
	}
	return []Location{*loc}, nil
}

// TargetAt returns the symbol at a position: the target of the reference
// there, or else the innermost declaration containing the position.
// Returns nil with no error when there is neither.
func (q *QueryBuilder) TargetAt(file string, line, col int) (*SymbolResult, error) {
	fid, err := q.fileID(file)
	if err != nil {
		return nil, fmt.Errorf("target at: lookup file: %w", err)
	}
	if fid == 0 {
		return nil, nil
	}
	ref, err := q.referenceAt(fid, line, col)
	if err != nil {
		return nil, fmt.Errorf("target at: %w", err)
	}
	if ref != nil && ref.TargetSymbolID != nil {
		return q.symbolResultByID(*ref.TargetSymbolID)
	}
	return q.SymbolAt(file, line, col)
}

// ReferencesTo finds all source locations that reference the given symbol.
func (q *QueryBuilder) ReferencesTo(symbolID int64) ([]Location, error) {
	refs, err := q.store.ReferencesToSymbol(symbolID)
	if err != nil {
		return nil, fmt.Errorf("references to: %w", err)
	}
	paths, err := q.store.FilePaths()
	if err != nil {
		return nil, fmt.Errorf("references to: %w", err)
	}
	locations := []Location{}
	for _, r := range refs {
		locations = append(locations, referenceLocation(r, paths))
	}
	return locations, nil
}

// Callers returns call graph edges where the given symbol is the callee.
func (q *QueryBuilder) Callers(symbolID int64) ([]*store.CallEdge, error) {
	return q.store.CallersByCallee(symbolID)
}

// Callees returns call graph edges where the given symbol is the caller.
// Calls to built-ins have a nil CalleeSymbolID.
func (q *QueryBuilder) Callees(symbolID int64) ([]*store.CallEdge, error) {
	return q.store.CalleesByCaller(symbolID)
}

// Diagnostics returns the diagnostics of the file indexed at path, in
// document order, or of every file when path is empty.
func (q *QueryBuilder) Diagnostics(path string) ([]*store.Diagnostic, error) {
	var fid int64
	if path != "" {
		var err error
		fid, err = q.fileID(path)
		if err != nil {
			return nil, fmt.Errorf("diagnostics: lookup file: %w", err)
		}
		if fid == 0 {
			return []*store.Diagnostic{}, nil
		}
	}
	diags, err := q.store.Diagnostics(fid)
	if err != nil {
		return nil, err
	}
	if diags == nil {
		diags = []*store.Diagnostic{}
	}
	return diags, nil
}

// symbolLocation resolves a symbol ID to its file path and position.
func (q *QueryBuilder) symbolLocation(symbolID int64) (*Location, error) {
	var loc Location
	err := q.store.DB().QueryRow(
		`SELECT f.path, s.start_line, s.start_col, s.end_line, s.end_col
		 FROM symbols s JOIN files f ON f.id = s.file_id WHERE s.id = ?`, symbolID,
	).Scan(&loc.File, &loc.StartLine, &loc.StartCol, &loc.EndLine, &loc.EndCol)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

func referenceLocation(r *store.Reference, paths map[int64]string) Location {
	return Location{
		File:      paths[r.FileID],
		StartLine: r.StartLine,
		StartCol:  r.StartCol,
		EndLine:   r.EndLine,
		EndCol:    r.EndCol,
	}
}
