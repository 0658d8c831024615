// Package spiral analyses Spiral source files and keeps the results in a
// queryable SQLite index.
//
// # Pipeline
//
// Each .sp file is its own module and is analysed on its own:
//
//  1. Parse: the hand-written parser in internal/syntax builds an immutable
//     tree. A syntax error stops analysis of that file and is recorded as a
//     diagnostic.
//
//  2. Analyse: a fresh semantics.Compilation binds every name, checks types
//     and resolves overloads, producing a symbol graph and diagnostics.
//
//  3. Rules: Risor scripts under rules/ run against the finished
//     Compilation and report findings, which are stored as diagnostics.
//
//  4. Export: declarations, scopes, references, call edges and diagnostics
//     are written to SQLite in one transaction per file.
//
// # Usage
//
//	e, err := spiral.New(".spiral/index.db", "", spiral.WithScriptsFS(scripts.FS))
//	if err != nil { ... }
//	defer e.Close()
//
//	err = e.IndexDirectory(ctx, "path/to/project")
//
//	q := e.Query()
//	locs, err := q.DefinitionAt("main.sp", 10, 5)
//
// An [Analyzer] checks single buffers without an index; the REPL and the
// check command use it.
//
// # Query API
//
// The [QueryBuilder] returned by [Engine.Query] covers navigation
// ([QueryBuilder.DefinitionAt], [QueryBuilder.ReferencesTo]), the call graph
// ([QueryBuilder.Callers], [QueryBuilder.TransitiveCallees]), class
// hierarchies ([QueryBuilder.TypeHierarchy]), discovery
// ([QueryBuilder.Symbols], [QueryBuilder.SearchSymbols]) and stored
// diagnostics ([QueryBuilder.Diagnostics]).
//
// # Incremental Indexing
//
// [Engine.IndexFiles] skips files whose content hash is unchanged. For files
// that did change it compares the signature hashes of their declarations
// before and after; [Engine.Changes] reports the declarations whose
// signatures differ. [Engine.RulesChanged] tells callers when the rule scripts differ
// from those that produced the index, in which case a full re-index is due.
package spiral
