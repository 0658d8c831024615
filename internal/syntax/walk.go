package syntax

// Walk traverses the tree rooted at n in pre-order. If fn returns false the
// children of that node are skipped.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children() {
		Walk(c, fn)
	}
}

// Innermost returns the deepest node of kind T whose span contains offset,
// or the zero T if none does.
func Innermost[T Node](root Node, offset int) T {
	var found T
	Walk(root, func(n Node) bool {
		if !n.Span().Contains(offset) {
			return false
		}
		if t, ok := n.(T); ok {
			found = t
		}
		return true
	})
	return found
}
