package store

import "sync"

// BatchedStore buffers one file's index rows in memory using fake
// (negative) IDs. It implements DataStore so the exporter can write to it
// without knowing whether it is hitting SQLite or an in-memory buffer.
//
// Thread safety: the mutex protects fake ID allocation and slice appends.
// A batch is normally filled by a single worker and then handed to the
// writer goroutine, which calls Store.CommitBatch.
type BatchedStore struct {
	mu sync.Mutex

	// FileID is the already-committed file row the batch belongs to.
	FileID int64

	Symbols        []Symbol
	FunctionParams []FunctionParam
	TypeBases      []TypeBase
	Scopes         []Scope
	References     []Reference
	CallEdges      []CallEdge
	Diagnostics    []Diagnostic

	nextFakeID int64 // starts at -1, decrements
}

// Compile-time check: *BatchedStore satisfies DataStore.
var _ DataStore = (*BatchedStore)(nil)

// NewBatchedStore creates an empty batch for the file with the given ID.
func NewBatchedStore(fileID int64) *BatchedStore {
	return &BatchedStore{
		FileID:     fileID,
		nextFakeID: -1,
	}
}

func (b *BatchedStore) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

func (b *BatchedStore) InsertSymbol(sym *Symbol) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sym.ID = b.allocFakeID()
	b.Symbols = append(b.Symbols, *sym)
	return sym.ID, nil
}

func (b *BatchedStore) InsertFunctionParam(fp *FunctionParam) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fp.ID = b.allocFakeID()
	b.FunctionParams = append(b.FunctionParams, *fp)
	return fp.ID, nil
}

func (b *BatchedStore) InsertTypeBase(tb *TypeBase) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tb.ID = b.allocFakeID()
	b.TypeBases = append(b.TypeBases, *tb)
	return tb.ID, nil
}

func (b *BatchedStore) InsertScope(scope *Scope) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	scope.ID = b.allocFakeID()
	b.Scopes = append(b.Scopes, *scope)
	return scope.ID, nil
}

func (b *BatchedStore) InsertReference(ref *Reference) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ref.ID = b.allocFakeID()
	b.References = append(b.References, *ref)
	return ref.ID, nil
}

func (b *BatchedStore) InsertCallEdge(edge *CallEdge) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	edge.ID = b.allocFakeID()
	b.CallEdges = append(b.CallEdges, *edge)
	return edge.ID, nil
}

func (b *BatchedStore) InsertDiagnostic(diag *Diagnostic) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	diag.ID = b.allocFakeID()
	b.Diagnostics = append(b.Diagnostics, *diag)
	return diag.ID, nil
}

// SymbolsByFile returns the buffered symbols of the file. Nothing for the
// file is in the database while its batch is being filled.
func (b *BatchedStore) SymbolsByFile(fileID int64) ([]*Symbol, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*Symbol
	for i := range b.Symbols {
		if b.Symbols[i].FileID == fileID {
			out = append(out, &b.Symbols[i])
		}
	}
	return out, nil
}
