package semantics

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by the parent index for the root node and for
// nodes that do not belong to the tree.
var ErrNotFound = errors.New("semantics: not found")

// An InvariantError reports an internal phase-ordering bug, such as asking
// for the binder of a node outside the tree. It is never caused by the
// analysed program itself.
type InvariantError struct {
	Msg string
	Err error
}

func (e *InvariantError) Error() string {
	if e.Err != nil {
		return "semantics: invariant violated: " + e.Msg + ": " + e.Err.Error()
	}
	return "semantics: invariant violated: " + e.Msg
}

func (e *InvariantError) Unwrap() error { return e.Err }

// invariantf aborts the current analysis.
func invariantf(err error, format string, args ...any) {
	panic(&InvariantError{Msg: fmt.Sprintf(format, args...), Err: err})
}

// catch converts an invariant panic into an error. Other panics propagate.
func catch(err *error) {
	if r := recover(); r != nil {
		ie, ok := r.(*InvariantError)
		if !ok {
			panic(r)
		}
		*err = ie
	}
}
