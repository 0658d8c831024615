package store

import "time"

// Index rows. Lines and columns are 1-based; offsets are byte offsets into
// the file.

type File struct {
	ID          int64
	Path        string
	Module      string
	Hash        string
	LineCount   int
	LastIndexed time.Time
}

type Symbol struct {
	ID             int64
	FileID         int64
	Name           string
	Kind           string
	TypeText       string
	SignatureHash  string
	StartLine      int
	StartCol       int
	EndLine        int
	EndCol         int
	StartOffset    int
	EndOffset      int
	ParentSymbolID *int64
}

type FunctionParam struct {
	ID       int64
	SymbolID int64
	Name     string
	Ordinal  int
	TypeText string
}

// TypeBase records one entry of a class or interface base list.
// BaseSymbolID is nil when the base did not resolve to a declared type.
type TypeBase struct {
	ID           int64
	SymbolID     int64
	BaseSymbolID *int64
	BaseName     string
	Ordinal      int
}

type Scope struct {
	ID            int64
	FileID        int64
	SymbolID      *int64
	Kind          string
	StartLine     int
	StartCol      int
	EndLine       int
	EndCol        int
	ParentScopeID *int64
}

// Reference is one use of a name. Resolved is true whenever the name bound
// to something; TargetSymbolID is additionally set when that something is
// declared in the index rather than built in.
type Reference struct {
	ID             int64
	FileID         int64
	ScopeID        *int64
	TargetSymbolID *int64
	Name           string
	Resolved       bool
	StartLine      int
	StartCol       int
	EndLine        int
	EndCol         int
	StartOffset    int
	EndOffset      int
	Context        string
}

// CallEdge links a function to a function it calls. CalleeSymbolID is nil
// for built-in callees.
type CallEdge struct {
	ID             int64
	CallerSymbolID int64
	CalleeSymbolID *int64
	CalleeName     string
	FileID         int64
	Line           int
	Col            int
}

// Diagnostic sources.
const (
	SourceSyntax   = "syntax"
	SourceSemantic = "semantic"
	SourceRule     = "rule"
)

type Diagnostic struct {
	ID          int64
	FileID      int64
	Message     string
	Source      string
	HasSpan     bool
	StartLine   int
	StartCol    int
	EndLine     int
	EndCol      int
	StartOffset int
	EndOffset   int
}
