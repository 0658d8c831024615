package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// --- File operations ---

func (s *Store) InsertFile(f *File) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO files (path, module, hash, line_count, last_indexed) VALUES (?, ?, ?, ?, ?)",
		f.Path, f.Module, f.Hash, f.LineCount, f.LastIndexed,
	)
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	f.ID = id
	return id, nil
}

const fileCols = `id, path, module, hash, line_count, last_indexed`

func scanFile(sc scanner) (*File, error) {
	f := &File{}
	return f, sc.Scan(&f.ID, &f.Path, &f.Module, &f.Hash, &f.LineCount, &f.LastIndexed)
}

// FileByPath returns the file indexed at path, or nil if there is none.
func (s *Store) FileByPath(path string) (*File, error) {
	f, err := scanFile(s.db.QueryRow("SELECT "+fileCols+" FROM files WHERE path = ?", path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

// FileByID returns the file with the given ID, or nil if there is none.
func (s *Store) FileByID(id int64) (*File, error) {
	f, err := scanFile(s.db.QueryRow("SELECT "+fileCols+" FROM files WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by id: %w", err)
	}
	return f, nil
}

// Files returns every indexed file ordered by path.
func (s *Store) Files() ([]*File, error) {
	rows, err := s.db.Query("SELECT " + fileCols + " FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// FilePaths maps every file ID to its path.
func (s *Store) FilePaths() (map[int64]string, error) {
	rows, err := s.db.Query("SELECT id, path FROM files")
	if err != nil {
		return nil, fmt.Errorf("file paths: %w", err)
	}
	defer rows.Close()
	paths := make(map[int64]string)
	for rows.Next() {
		var id int64
		var path string
		if err := rows.Scan(&id, &path); err != nil {
			return nil, fmt.Errorf("scan file path: %w", err)
		}
		paths[id] = path
	}
	return paths, rows.Err()
}

// --- Symbol operations ---

func (s *Store) InsertSymbol(sym *Symbol) (int64, error) {
	id, err := insertSymbolTx(s.db, sym)
	if err != nil {
		return 0, fmt.Errorf("insert symbol: %w", err)
	}
	sym.ID = id
	return id, nil
}

// SymbolCols is the column list for symbol queries, exported for use by QueryBuilder.
const SymbolCols = `id, file_id, name, kind, type_text, signature_hash,
	start_line, start_col, end_line, end_col, start_offset, end_offset, parent_symbol_id`

// ScanSymbolRow scans a single row selected with SymbolCols.
func ScanSymbolRow(sc scanner) (*Symbol, error) {
	sym := &Symbol{}
	var typeText, hash sql.NullString
	err := sc.Scan(
		&sym.ID, &sym.FileID, &sym.Name, &sym.Kind, &typeText, &hash,
		&sym.StartLine, &sym.StartCol, &sym.EndLine, &sym.EndCol,
		&sym.StartOffset, &sym.EndOffset, &sym.ParentSymbolID,
	)
	if err != nil {
		return nil, err
	}
	sym.TypeText = typeText.String
	sym.SignatureHash = hash.String
	return sym, nil
}

// QuerySymbols runs a query selecting SymbolCols and scans every row.
func (s *Store) QuerySymbols(query string, args ...any) ([]*Symbol, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var symbols []*Symbol
	for rows.Next() {
		sym, err := ScanSymbolRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

// SymbolByID returns the symbol with the given ID, or nil if there is none.
func (s *Store) SymbolByID(id int64) (*Symbol, error) {
	sym, err := ScanSymbolRow(s.db.QueryRow("SELECT "+SymbolCols+" FROM symbols WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("symbol by id: %w", err)
	}
	return sym, nil
}

func (s *Store) SymbolsByFile(fileID int64) ([]*Symbol, error) {
	return s.QuerySymbols("SELECT "+SymbolCols+" FROM symbols WHERE file_id = ? ORDER BY start_offset, id", fileID)
}

func (s *Store) SymbolsByName(name string) ([]*Symbol, error) {
	return s.QuerySymbols("SELECT "+SymbolCols+" FROM symbols WHERE name = ? ORDER BY file_id, start_offset", name)
}

func (s *Store) SymbolsByKind(kind string) ([]*Symbol, error) {
	return s.QuerySymbols("SELECT "+SymbolCols+" FROM symbols WHERE kind = ? ORDER BY file_id, start_offset", kind)
}

func (s *Store) SymbolChildren(symbolID int64) ([]*Symbol, error) {
	return s.QuerySymbols("SELECT "+SymbolCols+" FROM symbols WHERE parent_symbol_id = ? ORDER BY start_offset, id", symbolID)
}

// SymbolAt returns the innermost declaration of a file whose range contains
// offset, or nil if offset is outside every declaration.
func (s *Store) SymbolAt(fileID int64, offset int) (*Symbol, error) {
	sym, err := ScanSymbolRow(s.db.QueryRow(
		"SELECT "+SymbolCols+` FROM symbols
		 WHERE file_id = ? AND start_offset <= ? AND ? < end_offset
		 ORDER BY end_offset - start_offset LIMIT 1`,
		fileID, offset, offset,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("symbol at: %w", err)
	}
	return sym, nil
}

// --- Function parameters and base types ---

func (s *Store) InsertFunctionParam(fp *FunctionParam) (int64, error) {
	id, err := insertFunctionParamTx(s.db, fp)
	if err != nil {
		return 0, fmt.Errorf("insert function param: %w", err)
	}
	fp.ID = id
	return id, nil
}

func (s *Store) FunctionParams(symbolID int64) ([]*FunctionParam, error) {
	rows, err := s.db.Query(
		"SELECT id, symbol_id, name, ordinal, type_text FROM function_parameters WHERE symbol_id = ? ORDER BY ordinal",
		symbolID,
	)
	if err != nil {
		return nil, fmt.Errorf("function params: %w", err)
	}
	defer rows.Close()
	var params []*FunctionParam
	for rows.Next() {
		fp := &FunctionParam{}
		if err := rows.Scan(&fp.ID, &fp.SymbolID, &fp.Name, &fp.Ordinal, &fp.TypeText); err != nil {
			return nil, fmt.Errorf("scan function param: %w", err)
		}
		params = append(params, fp)
	}
	return params, rows.Err()
}

func (s *Store) InsertTypeBase(tb *TypeBase) (int64, error) {
	id, err := insertTypeBaseTx(s.db, tb)
	if err != nil {
		return 0, fmt.Errorf("insert type base: %w", err)
	}
	tb.ID = id
	return id, nil
}

const typeBaseCols = `id, symbol_id, base_symbol_id, base_name, ordinal`

func (s *Store) queryTypeBases(query string, args ...any) ([]*TypeBase, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("type bases: %w", err)
	}
	defer rows.Close()
	var bases []*TypeBase
	for rows.Next() {
		tb := &TypeBase{}
		if err := rows.Scan(&tb.ID, &tb.SymbolID, &tb.BaseSymbolID, &tb.BaseName, &tb.Ordinal); err != nil {
			return nil, fmt.Errorf("scan type base: %w", err)
		}
		bases = append(bases, tb)
	}
	return bases, rows.Err()
}

// TypeBases returns the declared base list of a class or interface.
func (s *Store) TypeBases(symbolID int64) ([]*TypeBase, error) {
	return s.queryTypeBases("SELECT "+typeBaseCols+" FROM type_bases WHERE symbol_id = ? ORDER BY ordinal", symbolID)
}

// Subtypes returns the base entries naming symbolID as their base.
func (s *Store) Subtypes(symbolID int64) ([]*TypeBase, error) {
	return s.queryTypeBases("SELECT "+typeBaseCols+" FROM type_bases WHERE base_symbol_id = ? ORDER BY symbol_id", symbolID)
}

// --- Scope operations ---

func (s *Store) InsertScope(scope *Scope) (int64, error) {
	id, err := insertScopeTx(s.db, scope)
	if err != nil {
		return 0, fmt.Errorf("insert scope: %w", err)
	}
	scope.ID = id
	return id, nil
}

const scopeCols = `id, file_id, symbol_id, kind, start_line, start_col, end_line, end_col, parent_scope_id`

func scanScope(sc scanner) (*Scope, error) {
	scope := &Scope{}
	return scope, sc.Scan(
		&scope.ID, &scope.FileID, &scope.SymbolID, &scope.Kind,
		&scope.StartLine, &scope.StartCol, &scope.EndLine, &scope.EndCol, &scope.ParentScopeID,
	)
}

func (s *Store) ScopesByFile(fileID int64) ([]*Scope, error) {
	rows, err := s.db.Query("SELECT "+scopeCols+" FROM scopes WHERE file_id = ? ORDER BY id", fileID)
	if err != nil {
		return nil, fmt.Errorf("scopes by file: %w", err)
	}
	defer rows.Close()
	var scopes []*Scope
	for rows.Next() {
		scope, err := scanScope(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scope: %w", err)
		}
		scopes = append(scopes, scope)
	}
	return scopes, rows.Err()
}

// ScopeChain walks up the parent_scope_id chain from scopeID to the module scope.
func (s *Store) ScopeChain(scopeID int64) ([]*Scope, error) {
	var chain []*Scope
	currentID := &scopeID
	for currentID != nil {
		scope, err := scanScope(s.db.QueryRow("SELECT "+scopeCols+" FROM scopes WHERE id = ?", *currentID))
		if errors.Is(err, sql.ErrNoRows) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("scope chain: %w", err)
		}
		chain = append(chain, scope)
		currentID = scope.ParentScopeID
	}
	return chain, nil
}

// --- Reference operations ---

func (s *Store) InsertReference(ref *Reference) (int64, error) {
	id, err := insertReferenceTx(s.db, ref)
	if err != nil {
		return 0, fmt.Errorf("insert reference: %w", err)
	}
	ref.ID = id
	return id, nil
}

// ReferenceCols is the column list for reference queries.
const ReferenceCols = `id, file_id, scope_id, target_symbol_id, name, resolved,
	start_line, start_col, end_line, end_col, start_offset, end_offset, context`

// ScanReferenceRow scans a single row selected with ReferenceCols.
func ScanReferenceRow(sc scanner) (*Reference, error) {
	ref := &Reference{}
	return ref, sc.Scan(
		&ref.ID, &ref.FileID, &ref.ScopeID, &ref.TargetSymbolID, &ref.Name, &ref.Resolved,
		&ref.StartLine, &ref.StartCol, &ref.EndLine, &ref.EndCol,
		&ref.StartOffset, &ref.EndOffset, &ref.Context,
	)
}

// QueryReferences runs a query selecting ReferenceCols and scans every row.
func (s *Store) QueryReferences(query string, args ...any) ([]*Reference, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var refs []*Reference
	for rows.Next() {
		ref, err := ScanReferenceRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reference: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (s *Store) ReferencesByFile(fileID int64) ([]*Reference, error) {
	return s.QueryReferences("SELECT "+ReferenceCols+" FROM references_ WHERE file_id = ? ORDER BY start_offset, id", fileID)
}

func (s *Store) ReferencesByName(name string) ([]*Reference, error) {
	return s.QueryReferences("SELECT "+ReferenceCols+" FROM references_ WHERE name = ? ORDER BY file_id, start_offset", name)
}

func (s *Store) ReferencesToSymbol(symbolID int64) ([]*Reference, error) {
	return s.QueryReferences("SELECT "+ReferenceCols+" FROM references_ WHERE target_symbol_id = ? ORDER BY file_id, start_offset", symbolID)
}

// ReferenceAt returns the reference of a file whose range contains offset,
// or nil if there is none.
func (s *Store) ReferenceAt(fileID int64, offset int) (*Reference, error) {
	ref, err := ScanReferenceRow(s.db.QueryRow(
		"SELECT "+ReferenceCols+" FROM references_ WHERE file_id = ? AND start_offset <= ? AND ? < end_offset LIMIT 1",
		fileID, offset, offset,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reference at: %w", err)
	}
	return ref, nil
}

// --- Diagnostic operations ---

func (s *Store) InsertDiagnostic(diag *Diagnostic) (int64, error) {
	id, err := insertDiagnosticTx(s.db, diag)
	if err != nil {
		return 0, fmt.Errorf("insert diagnostic: %w", err)
	}
	diag.ID = id
	return id, nil
}

const diagnosticCols = `id, file_id, message, source, has_span,
	start_line, start_col, end_line, end_col, start_offset, end_offset`

// Diagnostics returns the diagnostics of one file, or of every file when
// fileID is zero, in file and document order.
func (s *Store) Diagnostics(fileID int64) ([]*Diagnostic, error) {
	query := "SELECT " + diagnosticCols + " FROM diagnostics"
	var args []any
	if fileID != 0 {
		query += " WHERE file_id = ?"
		args = append(args, fileID)
	}
	query += " ORDER BY file_id, start_offset, id"
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: %w", err)
	}
	defer rows.Close()
	var diags []*Diagnostic
	for rows.Next() {
		d := &Diagnostic{}
		if err := rows.Scan(&d.ID, &d.FileID, &d.Message, &d.Source, &d.HasSpan,
			&d.StartLine, &d.StartCol, &d.EndLine, &d.EndCol, &d.StartOffset, &d.EndOffset); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		diags = append(diags, d)
	}
	return diags, rows.Err()
}
