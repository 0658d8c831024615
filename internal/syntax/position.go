package syntax

import "sort"

// A LineIndex converts byte offsets to 1-based line and column numbers.
type LineIndex struct {
	starts []int
}

// NewLineIndex records the start offset of each line in src.
func NewLineIndex(src string) *LineIndex {
	idx := &LineIndex{starts: []int{0}}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			idx.starts = append(idx.starts, i+1)
		}
	}
	return idx
}

// LineCol returns the 1-based line and column of offset.
func (idx *LineIndex) LineCol(offset int) (line, col int) {
	i := sort.Search(len(idx.starts), func(i int) bool { return idx.starts[i] > offset }) - 1
	if i < 0 {
		i = 0
	}
	return i + 1, offset - idx.starts[i] + 1
}

// Offset is the inverse of LineCol. Out-of-range lines clamp to the last line.
func (idx *LineIndex) Offset(line, col int) int {
	if line < 1 {
		line = 1
	}
	if line > len(idx.starts) {
		line = len(idx.starts)
	}
	return idx.starts[line-1] + col - 1
}
