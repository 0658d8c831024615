package main

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLISymbol is a JSON-friendly symbol representation.
type CLISymbol struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Type        string `json:"type,omitempty"`
	File        string `json:"file,omitempty"`
	StartLine   int    `json:"start_line"`
	StartCol    int    `json:"start_col"`
	EndLine     int    `json:"end_line"`
	EndCol      int    `json:"end_col"`
	ParentID    *int64 `json:"parent_id,omitempty"`
	RefCount    int    `json:"ref_count"`
	CallerCount int    `json:"caller_count"`
}

// CLILocation extends Location with the symbol ID for chaining.
type CLILocation struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
	SymbolID  *int64 `json:"symbol_id,omitempty"`
}

// CLICallEdge is a JSON-friendly call graph edge. CalleeID is absent for
// calls to built-in functions.
type CLICallEdge struct {
	CallerID   int64  `json:"caller_id"`
	CallerName string `json:"caller_name,omitempty"`
	CalleeID   *int64 `json:"callee_id,omitempty"`
	CalleeName string `json:"callee_name"`
	File       string `json:"file,omitempty"`
	Line       int    `json:"line"`
	Col        int    `json:"col"`
}

// CLIDiagnostic is a JSON-friendly diagnostic. Position fields are zero
// when the diagnostic has no span.
type CLIDiagnostic struct {
	File      string `json:"file"`
	Source    string `json:"source"`
	Message   string `json:"message"`
	StartLine int    `json:"start_line,omitempty"`
	StartCol  int    `json:"start_col,omitempty"`
	EndLine   int    `json:"end_line,omitempty"`
	EndCol    int    `json:"end_col,omitempty"`
}

// CLITypeHierarchy is a JSON-friendly type hierarchy.
type CLITypeHierarchy struct {
	Symbol     CLISymbol         `json:"symbol"`
	Bases      []CLITypeRelation `json:"bases"`
	Subtypes   []CLITypeRelation `json:"subtypes"`
	Unresolved []string          `json:"unresolved,omitempty"`
}

// CLITypeRelation is a JSON-friendly type relationship.
type CLITypeRelation struct {
	Symbol CLISymbol `json:"symbol"`
	Kind   string    `json:"kind"`
}

// CLICompletion is one completion candidate.
type CLICompletion struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Type string `json:"type,omitempty"`
}
