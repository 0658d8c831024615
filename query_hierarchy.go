package spiral

import (
	"fmt"
)

// Relation kinds of a TypeRelation.
const (
	RelationInherits   = "inherits"   // a class base
	RelationImplements = "implements" // an interface base
)

// TypeRelation represents a relationship between two types in a hierarchy.
type TypeRelation struct {
	Symbol SymbolResult
	Kind   string
}

// TypeHierarchy is the hierarchy view of a single class or interface.
type TypeHierarchy struct {
	Symbol   SymbolResult    // the queried type
	Bases    []*TypeRelation // resolved entries of the base list, in order
	Subtypes []*TypeRelation // types naming this one as a base
	// Unresolved holds base list entries that did not name a declared type.
	Unresolved []string
}

func relationKind(base *SymbolResult) string {
	if base.Kind == "interface" {
		return RelationImplements
	}
	return RelationInherits
}

// TypeHierarchy returns the bases and direct subtypes of a type.
// Returns nil with no error if the symbol ID does not exist.
func (q *QueryBuilder) TypeHierarchy(symbolID int64) (*TypeHierarchy, error) {
	sr, err := q.symbolResultByID(symbolID)
	if err != nil {
		return nil, fmt.Errorf("type hierarchy: %w", err)
	}
	if sr == nil {
		return nil, nil
	}

	bases, err := q.store.TypeBases(symbolID)
	if err != nil {
		return nil, fmt.Errorf("type hierarchy: bases: %w", err)
	}
	subs, err := q.store.Subtypes(symbolID)
	if err != nil {
		return nil, fmt.Errorf("type hierarchy: subtypes: %w", err)
	}

	// Collect all needed symbol IDs and load them in one query.
	neededIDs := make([]int64, 0, len(bases)+len(subs))
	for _, b := range bases {
		if b.BaseSymbolID != nil {
			neededIDs = append(neededIDs, *b.BaseSymbolID)
		}
	}
	for _, s := range subs {
		neededIDs = append(neededIDs, s.SymbolID)
	}
	symbols, err := q.symbolResultsByIDs(neededIDs)
	if err != nil {
		return nil, fmt.Errorf("type hierarchy: batch symbol lookup: %w", err)
	}

	h := &TypeHierarchy{
		Symbol:     *sr,
		Bases:      []*TypeRelation{},
		Subtypes:   []*TypeRelation{},
		Unresolved: []string{},
	}
	for _, b := range bases {
		if b.BaseSymbolID == nil {
			h.Unresolved = append(h.Unresolved, b.BaseName)
			continue
		}
		if base, ok := symbols[*b.BaseSymbolID]; ok {
			h.Bases = append(h.Bases, &TypeRelation{Symbol: *base, Kind: relationKind(base)})
		}
	}
	for _, s := range subs {
		if sub, ok := symbols[s.SymbolID]; ok {
			h.Subtypes = append(h.Subtypes, &TypeRelation{Symbol: *sub, Kind: relationKind(sr)})
		}
	}
	return h, nil
}

// Subtypes returns the locations of the types naming symbolID as a base.
func (q *QueryBuilder) Subtypes(symbolID int64) ([]Location, error) {
	subs, err := q.store.Subtypes(symbolID)
	if err != nil {
		return nil, fmt.Errorf("subtypes: %w", err)
	}
	locations := []Location{}
	for _, s := range subs {
		loc, err := q.symbolLocation(s.SymbolID)
		if err != nil {
			return nil, fmt.Errorf("subtypes: symbol location: %w", err)
		}
		if loc != nil {
			locations = append(locations, *loc)
		}
	}
	return locations, nil
}
