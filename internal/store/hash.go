package store

import (
	"crypto/sha256"
	"fmt"
	"sort"
)

// ComputeSignatureHash computes a deterministic hash from a symbol's
// semantic identity: name, kind, type text, parameters and base list.
// Location changes do NOT affect the hash.
func ComputeSignatureHash(name, kind, typeText string, params []*FunctionParam, bases []*TypeBase) string {
	h := sha256.New()

	fmt.Fprintf(h, "name:%s\n", name)
	fmt.Fprintf(h, "kind:%s\n", kind)
	fmt.Fprintf(h, "type:%s\n", typeText)

	sorted := make([]*FunctionParam, len(params))
	copy(sorted, params)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Ordinal < sorted[j].Ordinal })
	for _, p := range sorted {
		fmt.Fprintf(h, "param:%d:%s:%s\n", p.Ordinal, p.Name, p.TypeText)
	}

	sortedBases := make([]*TypeBase, len(bases))
	copy(sortedBases, bases)
	sort.Slice(sortedBases, func(i, j int) bool { return sortedBases[i].Ordinal < sortedBases[j].Ordinal })
	for _, b := range sortedBases {
		fmt.Fprintf(h, "base:%d:%s\n", b.Ordinal, b.BaseName)
	}

	return fmt.Sprintf("%x", h.Sum(nil))
}

// SignatureHashes returns the stored signature hashes of a file keyed by
// SymbolKey, for change detection across re-indexing.
func (s *Store) SignatureHashes(fileID int64) (map[string]string, error) {
	rows, err := s.db.Query(
		`SELECT s.kind, s.name, COALESCE(p.name, ''), COALESCE(s.signature_hash, '')
		 FROM symbols s LEFT JOIN symbols p ON p.id = s.parent_symbol_id
		 WHERE s.file_id = ? ORDER BY s.start_offset, s.id`, fileID,
	)
	if err != nil {
		return nil, fmt.Errorf("signature hashes: %w", err)
	}
	defer rows.Close()
	hashes := make(map[string]string)
	for rows.Next() {
		var kind, name, parent, hash string
		if err := rows.Scan(&kind, &name, &parent, &hash); err != nil {
			return nil, fmt.Errorf("scan signature hash: %w", err)
		}
		// Overloads share a key; concatenating keeps the set comparable.
		key := SymbolKey(kind, name, parent)
		hashes[key] += hash
	}
	return hashes, rows.Err()
}

// SymbolKey identifies a declaration independently of its row ID.
func SymbolKey(kind, name, parent string) string {
	return kind + " " + parent + "." + name
}
