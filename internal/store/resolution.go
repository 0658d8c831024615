package store

import "fmt"

// --- Call graph operations ---

func (s *Store) InsertCallEdge(edge *CallEdge) (int64, error) {
	id, err := insertCallEdgeTx(s.db, edge)
	if err != nil {
		return 0, fmt.Errorf("insert call edge: %w", err)
	}
	edge.ID = id
	return id, nil
}

const callEdgeCols = `id, caller_symbol_id, callee_symbol_id, callee_name, file_id, line, col`

func (s *Store) queryCallEdges(query string, args ...any) ([]*CallEdge, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var edges []*CallEdge
	for rows.Next() {
		e := &CallEdge{}
		if err := rows.Scan(&e.ID, &e.CallerSymbolID, &e.CalleeSymbolID, &e.CalleeName,
			&e.FileID, &e.Line, &e.Col); err != nil {
			return nil, fmt.Errorf("scan call edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// CallersByCallee returns the edges whose callee is symbolID.
func (s *Store) CallersByCallee(symbolID int64) ([]*CallEdge, error) {
	return s.queryCallEdges(
		"SELECT "+callEdgeCols+" FROM call_graph WHERE callee_symbol_id = ? ORDER BY file_id, line, col", symbolID,
	)
}

// CalleesByCaller returns the edges leaving symbolID, built-in callees
// included.
func (s *Store) CalleesByCaller(symbolID int64) ([]*CallEdge, error) {
	return s.queryCallEdges(
		"SELECT "+callEdgeCols+" FROM call_graph WHERE caller_symbol_id = ? ORDER BY line, col", symbolID,
	)
}

// CallEdgesByFile returns every call made from a file.
func (s *Store) CallEdgesByFile(fileID int64) ([]*CallEdge, error) {
	return s.queryCallEdges(
		"SELECT "+callEdgeCols+" FROM call_graph WHERE file_id = ? ORDER BY line, col", fileID,
	)
}

// AllCallEdges returns every call edge in the index, for in-memory graph
// traversal.
func (s *Store) AllCallEdges() ([]*CallEdge, error) {
	return s.queryCallEdges("SELECT " + callEdgeCols + " FROM call_graph ORDER BY id")
}
