package store

import "sort"

// ChangeSet classifies the declarations of a re-indexed file by comparing
// the signature hashes taken before and after.
type ChangeSet struct {
	Added   []string
	Removed []string
	Changed []string
}

// Empty reports whether nothing changed.
func (c ChangeSet) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Changed) == 0
}

// DiffSignatures compares two SignatureHashes results. Keys in each list are
// sorted.
func DiffSignatures(before, after map[string]string) ChangeSet {
	var cs ChangeSet
	for key, old := range before {
		h, ok := after[key]
		switch {
		case !ok:
			cs.Removed = append(cs.Removed, key)
		case h != old:
			cs.Changed = append(cs.Changed, key)
		}
	}
	for key := range after {
		if _, ok := before[key]; !ok {
			cs.Added = append(cs.Added, key)
		}
	}
	sort.Strings(cs.Added)
	sort.Strings(cs.Removed)
	sort.Strings(cs.Changed)
	return cs
}
