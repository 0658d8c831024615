package spiral

import (
	"fmt"
	"sort"
)

// CallGraph represents a transitive call graph rooted at a symbol.
// Nodes and edges are bulk-loaded then traversed with BFS; no recursive
// SQL or N+1 queries.
type CallGraph struct {
	Root  int64           // starting symbol ID
	Nodes []CallGraphNode // all symbols reachable within depth, root first
	Edges []CallGraphEdge // all edges in the subgraph
	Depth int             // actual max depth reached (may be < maxDepth if graph is shallow)
}

// CallGraphNode is a symbol in the call graph with its distance from the root.
type CallGraphNode struct {
	Symbol SymbolResult
	Depth  int // BFS depth from root (0 = root itself)
}

// CallGraphEdge is a single caller-callee relationship in the call graph.
type CallGraphEdge struct {
	CallerID int64
	CalleeID int64
	File     string
	Line     int
	Col      int
}

// maxCallDepth caps transitive traversals.
const maxCallDepth = 100

// callGraphData holds the bulk-loaded call graph adjacency maps and file path index.
type callGraphData struct {
	forward   map[int64][]*CallEdge // edges keyed by caller
	reverse   map[int64][]*CallEdge // edges keyed by callee
	filePaths map[int64]string      // file ID -> path
}

// buildCallGraph bulk-loads all call edges and files into memory. Edges to
// built-in callees have no callee symbol and are left out.
func (q *QueryBuilder) buildCallGraph() (*callGraphData, error) {
	edges, err := q.store.AllCallEdges()
	if err != nil {
		return nil, fmt.Errorf("build call graph: load edges: %w", err)
	}
	filePaths, err := q.store.FilePaths()
	if err != nil {
		return nil, fmt.Errorf("build call graph: load files: %w", err)
	}

	data := &callGraphData{
		forward:   make(map[int64][]*CallEdge),
		reverse:   make(map[int64][]*CallEdge),
		filePaths: filePaths,
	}
	for _, e := range edges {
		if e.CalleeSymbolID == nil {
			continue
		}
		data.forward[e.CallerSymbolID] = append(data.forward[e.CallerSymbolID], e)
		data.reverse[*e.CalleeSymbolID] = append(data.reverse[*e.CalleeSymbolID], e)
	}
	return data, nil
}

func (d *callGraphData) edge(e *CallEdge) CallGraphEdge {
	return CallGraphEdge{
		CallerID: e.CallerSymbolID,
		CalleeID: *e.CalleeSymbolID,
		File:     d.filePaths[e.FileID],
		Line:     e.Line,
		Col:      e.Col,
	}
}

// TransitiveCallers returns all transitive callers of a symbol up to maxDepth.
// maxDepth of 0 returns only the root node (no traversal). Negative returns
// an error; values above 100 are capped. Returns nil, nil if symbolID does
// not exist.
func (q *QueryBuilder) TransitiveCallers(symbolID int64, maxDepth int) (*CallGraph, error) {
	g, err := q.transitive(symbolID, maxDepth, true)
	if err != nil {
		return nil, fmt.Errorf("transitive callers: %w", err)
	}
	return g, nil
}

// TransitiveCallees returns all transitive callees of a symbol up to
// maxDepth, with the same depth rules as TransitiveCallers.
func (q *QueryBuilder) TransitiveCallees(symbolID int64, maxDepth int) (*CallGraph, error) {
	g, err := q.transitive(symbolID, maxDepth, false)
	if err != nil {
		return nil, fmt.Errorf("transitive callees: %w", err)
	}
	return g, nil
}

func (q *QueryBuilder) transitive(symbolID int64, maxDepth int, callers bool) (*CallGraph, error) {
	if maxDepth < 0 {
		return nil, fmt.Errorf("maxDepth must be non-negative, got %d", maxDepth)
	}
	maxDepth = min(maxDepth, maxCallDepth)

	rootSym, err := q.symbolResultByID(symbolID)
	if err != nil {
		return nil, err
	}
	if rootSym == nil {
		return nil, nil
	}
	result := &CallGraph{
		Root:  symbolID,
		Nodes: []CallGraphNode{{Symbol: *rootSym, Depth: 0}},
		Edges: []CallGraphEdge{},
	}
	if maxDepth == 0 {
		return result, nil
	}

	data, err := q.buildCallGraph()
	if err != nil {
		return nil, err
	}
	adjacent := data.forward
	next := func(e *CallEdge) int64 { return *e.CalleeSymbolID }
	if callers {
		adjacent = data.reverse
		next = func(e *CallEdge) int64 { return e.CallerSymbolID }
	}

	visited := map[int64]int{symbolID: 0} // symbol ID -> depth
	queue := []int64{symbolID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		depth := visited[current]
		if depth >= maxDepth {
			continue
		}
		for _, e := range adjacent[current] {
			id := next(e)
			if _, seen := visited[id]; seen {
				continue
			}
			visited[id] = depth + 1
			result.Depth = max(result.Depth, depth+1)
			queue = append(queue, id)
		}
	}

	nodeIDs := make([]int64, 0, len(visited)-1)
	for id := range visited {
		if id != symbolID {
			nodeIDs = append(nodeIDs, id)
		}
	}
	sort.Slice(nodeIDs, func(i, j int) bool {
		if visited[nodeIDs[i]] != visited[nodeIDs[j]] {
			return visited[nodeIDs[i]] < visited[nodeIDs[j]]
		}
		return nodeIDs[i] < nodeIDs[j]
	})
	symbols, err := q.symbolResultsByIDs(nodeIDs)
	if err != nil {
		return nil, fmt.Errorf("load symbols: %w", err)
	}
	for _, id := range nodeIDs {
		if sr, ok := symbols[id]; ok {
			result.Nodes = append(result.Nodes, CallGraphNode{Symbol: *sr, Depth: visited[id]})
		}
	}

	// Keep every edge whose ends were both reached.
	for id := range visited {
		for _, e := range data.forward[id] {
			if _, ok := visited[*e.CalleeSymbolID]; ok {
				result.Edges = append(result.Edges, data.edge(e))
			}
		}
	}
	sort.Slice(result.Edges, func(i, j int) bool {
		a, b := result.Edges[i], result.Edges[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Col < b.Col
	})
	return result, nil
}

// HotspotResult represents a heavily-referenced symbol with fan-in/fan-out
// metrics from the call graph.
type HotspotResult struct {
	Symbol      SymbolResult
	CallerCount int // direct call sites (fan-in)
	CalleeCount int // calls made (fan-out)
}

// UnusedSymbols returns declarations that no reference resolves to.
// Modules are never reported. Supports the same SymbolFilter and
// Pagination as Symbols.
func (q *QueryBuilder) UnusedSymbols(filter SymbolFilter, sort Sort, page Pagination) (*PagedResult[SymbolResult], error) {
	where := []string{
		"NOT EXISTS (SELECT 1 FROM references_ r WHERE r.target_symbol_id = s.id)",
		"s.kind != 'module'",
	}
	whereClause, args := filter.whereClause(where, nil)
	return q.pagedSymbols("unused symbols", whereClause, args, sort, page)
}

// Hotspots returns the topN most-referenced symbols with fan-in and
// fan-out metrics. topN of 0 returns an empty list. Negative returns an
// error.
func (q *QueryBuilder) Hotspots(topN int) ([]*HotspotResult, error) {
	if topN < 0 {
		return nil, fmt.Errorf("hotspots: topN must be non-negative, got %d", topN)
	}
	if topN == 0 {
		return []*HotspotResult{}, nil
	}

	dataSQL := fmt.Sprintf(
		`SELECT %s, COALESCE(f.path, '') AS file_path,
			(SELECT COUNT(*) FROM references_ r WHERE r.target_symbol_id = s.id) AS ref_count,
			(SELECT COUNT(*) FROM call_graph cg WHERE cg.callee_symbol_id = s.id) AS caller_count,
			(SELECT COUNT(*) FROM call_graph cg WHERE cg.caller_symbol_id = s.id) AS callee_count
		 FROM symbols s
		 LEFT JOIN files f ON s.file_id = f.id
		 WHERE EXISTS (SELECT 1 FROM references_ r2 WHERE r2.target_symbol_id = s.id)
		 ORDER BY ref_count DESC, s.id
		 LIMIT ?`,
		prefixSymbolCols("s"),
	)
	rows, err := q.store.DB().Query(dataSQL, topN)
	if err != nil {
		return nil, fmt.Errorf("hotspots: query: %w", err)
	}
	defer rows.Close()

	items := []*HotspotResult{}
	for rows.Next() {
		hr, err := scanHotspotResult(rows)
		if err != nil {
			return nil, fmt.Errorf("hotspots: scan: %w", err)
		}
		items = append(items, hr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("hotspots: rows: %w", err)
	}
	return items, nil
}

// scanHotspotResult reads the symbol result columns followed by callee_count.
func scanHotspotResult(row scanner) (*HotspotResult, error) {
	var hr HotspotResult
	sr, err := scanSymbolResult(appendScan{row, &hr.CalleeCount})
	if err != nil {
		return nil, err
	}
	hr.Symbol = sr
	hr.CallerCount = sr.CallerCount
	return &hr, nil
}

// appendScan scans extra trailing columns after the ones the caller asks
// for.
type appendScan struct {
	row   scanner
	extra any
}

func (a appendScan) Scan(dest ...any) error {
	return a.row.Scan(append(dest, a.extra)...)
}
