package spiral

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/lucyelle/SpiralCompiler-sub000/internal/store"
)

// --- Common Types ---

// Pagination controls offset+limit paging on list/search results.
type Pagination struct {
	Offset int // skip this many results (default 0)
	Limit  int // max results to return (default 50, max 500)
}

const (
	defaultLimit = 50
	maxLimit     = 500
)

// normalize returns a Pagination with defaults applied and bounds enforced.
func (p Pagination) normalize() Pagination {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

// SortField specifies how to order results.
type SortField string

const (
	SortByName     SortField = "name"
	SortByKind     SortField = "kind"
	SortByFile     SortField = "file"
	SortByPosition SortField = "position"
	SortByRefCount SortField = "ref_count"
)

// SortOrder specifies ascending or descending.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// Sort controls result ordering.
type Sort struct {
	Field SortField
	Order SortOrder
}

// SymbolResult extends Symbol with computed fields useful for discovery.
type SymbolResult struct {
	store.Symbol
	FilePath    string
	RefCount    int // resolved references targeting this symbol
	CallerCount int // call sites calling this symbol
}

// PagedResult wraps a page of results with total count for pagination.
type PagedResult[T any] struct {
	Items      []T
	TotalCount int // total matching results (before pagination)
}

// SymbolFilter specifies which symbols to include. All fields are
// optional.
type SymbolFilter struct {
	Kinds      []string // match any of these kinds
	FileID     *int64   // restrict to a single file
	ParentID   *int64   // restrict to direct children of this symbol
	PathPrefix *string  // restrict to symbols in files under this path

	RefCountMin *int // at least this many references
	RefCountMax *int // at most this many references
}

// --- Internal Helpers ---

// normalizePathPrefix ensures a path prefix ends with "/" for correct LIKE matching.
// "src/app" -> "src/app/" to prevent matching "src/app_utils/".
func normalizePathPrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	if !strings.HasSuffix(prefix, "/") {
		return prefix + "/"
	}
	return prefix
}

// symbolSortColumn returns the SQL ORDER BY expression for symbol queries.
// Falls back to "s.name" for unknown fields.
func symbolSortColumn(field SortField) string {
	switch field {
	case SortByName:
		return "s.name"
	case SortByKind:
		return "s.kind"
	case SortByFile:
		return "f.path"
	case SortByPosition:
		return "f.path, s.start_offset"
	case SortByRefCount:
		return "ref_count"
	default:
		return "s.name"
	}
}

// sortDirection returns "ASC" or "DESC".
func sortDirection(order SortOrder) string {
	if order == Desc {
		return "DESC"
	}
	return "ASC"
}

// whereClause renders the filter as a WHERE clause over symbols s joined
// with files f.
func (filter SymbolFilter) whereClause(where []string, args []any) (string, []any) {
	if len(filter.Kinds) > 0 {
		where = append(where, "s.kind IN ("+strings.Repeat("?,", len(filter.Kinds)-1)+"?)")
		for _, k := range filter.Kinds {
			args = append(args, k)
		}
	}
	if filter.FileID != nil {
		where = append(where, "s.file_id = ?")
		args = append(args, *filter.FileID)
	}
	if filter.ParentID != nil {
		where = append(where, "s.parent_symbol_id = ?")
		args = append(args, *filter.ParentID)
	}
	if filter.PathPrefix != nil {
		if prefix := normalizePathPrefix(*filter.PathPrefix); prefix != "" {
			where = append(where, "f.path LIKE ? ESCAPE '\\'")
			args = append(args, escapeLike(prefix)+"%")
		}
	}
	const refCount = "(SELECT COUNT(*) FROM references_ rc WHERE rc.target_symbol_id = s.id)"
	if filter.RefCountMin != nil {
		where = append(where, refCount+" >= ?")
		args = append(args, *filter.RefCountMin)
	}
	if filter.RefCountMax != nil {
		where = append(where, refCount+" <= ?")
		args = append(args, *filter.RefCountMax)
	}
	if len(where) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(where, " AND "), args
}

// symbolResultSelect is the SELECT list read by scanSymbolResult.
func symbolResultSelect() string {
	return fmt.Sprintf(
		`SELECT %s, COALESCE(f.path, '') AS file_path,
			(SELECT COUNT(*) FROM references_ r WHERE r.target_symbol_id = s.id) AS ref_count,
			(SELECT COUNT(*) FROM call_graph cg WHERE cg.callee_symbol_id = s.id) AS caller_count
		 FROM symbols s
		 LEFT JOIN files f ON s.file_id = f.id`,
		prefixSymbolCols("s"),
	)
}

// pagedSymbols runs a count and a data query over the same WHERE clause.
func (q *QueryBuilder) pagedSymbols(op, whereClause string, args []any, sort Sort, page Pagination) (*PagedResult[SymbolResult], error) {
	page = page.normalize()

	countSQL := `SELECT COUNT(*) FROM symbols s LEFT JOIN files f ON s.file_id = f.id ` + whereClause
	var totalCount int
	if err := q.store.DB().QueryRow(countSQL, args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("%s: count: %w", op, err)
	}

	dataSQL := fmt.Sprintf(`%s %s ORDER BY %s %s, s.id LIMIT ? OFFSET ?`,
		symbolResultSelect(), whereClause, symbolSortColumn(sort.Field), sortDirection(sort.Order))
	dataArgs := append(append([]any{}, args...), page.Limit, page.Offset)

	items, err := q.querySymbolResults(dataSQL, dataArgs...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &PagedResult[SymbolResult]{Items: items, TotalCount: totalCount}, nil
}

func (q *QueryBuilder) querySymbolResults(query string, args ...any) ([]SymbolResult, error) {
	rows, err := q.store.DB().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	items := []SymbolResult{}
	for rows.Next() {
		sr, err := scanSymbolResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		items = append(items, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return items, nil
}

// --- Enumeration Endpoints ---

// Symbols is the primary listing/filtering endpoint.
func (q *QueryBuilder) Symbols(filter SymbolFilter, sort Sort, page Pagination) (*PagedResult[SymbolResult], error) {
	where, args := filter.whereClause(nil, nil)
	return q.pagedSymbols("symbols", where, args, sort, page)
}

// Files lists indexed files, optionally restricted to a path prefix.
func (q *QueryBuilder) Files(pathPrefix string, sort Sort, page Pagination) (*PagedResult[store.File], error) {
	page = page.normalize()

	var whereClause string
	var args []any
	if pathPrefix != "" {
		whereClause = "WHERE path LIKE ? ESCAPE '\\'"
		args = append(args, escapeLike(normalizePathPrefix(pathPrefix))+"%")
	}

	var totalCount int
	if err := q.store.DB().QueryRow("SELECT COUNT(*) FROM files "+whereClause, args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("files: count: %w", err)
	}

	orderCol := "path"
	if sort.Field == SortByName {
		orderCol = "module"
	}
	dataSQL := fmt.Sprintf(
		`SELECT id, path, module, hash, line_count, last_indexed FROM files %s ORDER BY %s %s LIMIT ? OFFSET ?`,
		whereClause, orderCol, sortDirection(sort.Order),
	)
	dataArgs := append(append([]any{}, args...), page.Limit, page.Offset)

	rows, err := q.store.DB().Query(dataSQL, dataArgs...)
	if err != nil {
		return nil, fmt.Errorf("files: query: %w", err)
	}
	defer rows.Close()

	items := []store.File{}
	for rows.Next() {
		var f store.File
		if err := rows.Scan(&f.ID, &f.Path, &f.Module, &f.Hash, &f.LineCount, &f.LastIndexed); err != nil {
			return nil, fmt.Errorf("files: scan: %w", err)
		}
		items = append(items, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("files: rows: %w", err)
	}
	return &PagedResult[store.File]{Items: items, TotalCount: totalCount}, nil
}

// --- Search ---

// SearchSymbols performs glob-style search on symbol names.
// '*' is the wildcard (mapped to SQL '%').
func (q *QueryBuilder) SearchSymbols(pattern string, filter SymbolFilter, sort Sort, page Pagination) (*PagedResult[SymbolResult], error) {
	var where []string
	var args []any

	// Escape literal % and _ first, then convert * to %.
	if pattern != "" && pattern != "*" {
		likePattern := strings.ReplaceAll(escapeLike(pattern), "*", "%")
		where = append(where, "s.name LIKE ? ESCAPE '\\'")
		args = append(args, likePattern)
	}
	whereClause, args := filter.whereClause(where, args)
	return q.pagedSymbols("search symbols", whereClause, args, sort, page)
}

// --- Digest Endpoints ---

// ProjectSummary provides a high-level overview of the indexed code.
type ProjectSummary struct {
	FileCount   int
	SymbolCount int
	KindCounts  map[string]int
	// DiagnosticCounts is keyed by source: syntax, semantic or rule.
	DiagnosticCounts map[string]int
	TopSymbols       []SymbolResult
}

// ProjectSummary returns an overview of the whole index. TopSymbols holds
// up to topN referenced symbols, most referenced first.
func (q *QueryBuilder) ProjectSummary(topN int) (*ProjectSummary, error) {
	summary := &ProjectSummary{
		KindCounts:       make(map[string]int),
		DiagnosticCounts: make(map[string]int),
		TopSymbols:       []SymbolResult{},
	}

	if err := q.store.DB().QueryRow(`SELECT COUNT(*) FROM files`).Scan(&summary.FileCount); err != nil {
		return nil, fmt.Errorf("project summary: file count: %w", err)
	}

	if err := q.countBy(`SELECT kind, COUNT(*) FROM symbols GROUP BY kind`, summary.KindCounts); err != nil {
		return nil, fmt.Errorf("project summary: kind counts: %w", err)
	}
	for _, n := range summary.KindCounts {
		summary.SymbolCount += n
	}

	if err := q.countBy(`SELECT source, COUNT(*) FROM diagnostics GROUP BY source`, summary.DiagnosticCounts); err != nil {
		return nil, fmt.Errorf("project summary: diagnostic counts: %w", err)
	}

	if topN > 0 {
		top, err := q.querySymbolResults(
			symbolResultSelect()+`
			 WHERE EXISTS (SELECT 1 FROM references_ r2 WHERE r2.target_symbol_id = s.id)
			 ORDER BY ref_count DESC, s.id
			 LIMIT ?`, topN)
		if err != nil {
			return nil, fmt.Errorf("project summary: top symbols: %w", err)
		}
		summary.TopSymbols = top
	}
	return summary, nil
}

func (q *QueryBuilder) countBy(query string, into map[string]int) error {
	rows, err := q.store.DB().Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		into[key] = n
	}
	return rows.Err()
}

// --- Scan Helpers ---

// prefixSymbolCols returns the symbol columns with a table prefix applied.
func prefixSymbolCols(prefix string) string {
	cols := []string{
		"id", "file_id", "name", "kind", "type_text", "signature_hash",
		"start_line", "start_col", "end_line", "end_col", "start_offset", "end_offset",
		"parent_symbol_id",
	}
	prefixed := make([]string, len(cols))
	for i, c := range cols {
		prefixed[i] = prefix + "." + c
	}
	return strings.Join(prefixed, ", ")
}

type scanner interface {
	Scan(dest ...any) error
}

// scanSymbolResult scans a row selected with symbolResultSelect.
func scanSymbolResult(row scanner) (SymbolResult, error) {
	var sr SymbolResult
	var typeText, hash sql.NullString
	err := row.Scan(
		&sr.ID, &sr.FileID, &sr.Name, &sr.Kind, &typeText, &hash,
		&sr.StartLine, &sr.StartCol, &sr.EndLine, &sr.EndCol, &sr.StartOffset, &sr.EndOffset,
		&sr.ParentSymbolID,
		&sr.FilePath, &sr.RefCount, &sr.CallerCount,
	)
	if err != nil {
		return sr, err
	}
	sr.TypeText = typeText.String
	sr.SignatureHash = hash.String
	return sr, nil
}

// escapeLike escapes SQL LIKE special characters (% and _) with backslash.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
