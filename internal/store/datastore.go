package store

// DataStore is the write side of indexing. Both Store (direct SQLite) and
// BatchedStore (in-memory buffering for parallel indexing) implement it, so
// the exporter does not know which one it is filling.
type DataStore interface {
	// Inserts. Each returns the assigned ID.
	InsertSymbol(sym *Symbol) (int64, error)
	InsertFunctionParam(fp *FunctionParam) (int64, error)
	InsertTypeBase(tb *TypeBase) (int64, error)
	InsertScope(scope *Scope) (int64, error)
	InsertReference(ref *Reference) (int64, error)
	InsertCallEdge(edge *CallEdge) (int64, error)
	InsertDiagnostic(diag *Diagnostic) (int64, error)

	SymbolsByFile(fileID int64) ([]*Symbol, error)
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
