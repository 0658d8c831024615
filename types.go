package spiral

import "github.com/lucyelle/SpiralCompiler-sub000/internal/store"

// Public type aliases for internal store types used in the QueryBuilder API.
// These are Go type aliases (=), identical to the internal types at compile
// time.

type Store = store.Store
type Symbol = store.Symbol
type File = store.File
type Scope = store.Scope
type Reference = store.Reference
type CallEdge = store.CallEdge
type FunctionParam = store.FunctionParam
type TypeBase = store.TypeBase
type Diagnostic = store.Diagnostic
type ChangeSet = store.ChangeSet
