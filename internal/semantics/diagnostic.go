package semantics

import (
	"fmt"

	"github.com/lucyelle/SpiralCompiler-sub000/internal/syntax"
)

// A Diagnostic is a semantic error in the analysed program. Span is nil when
// the error has no source location.
type Diagnostic struct {
	Message string       `json:"message"`
	Span    *syntax.Span `json:"span,omitempty"`
}

func (d Diagnostic) String() string {
	if d.Span == nil {
		return d.Message
	}
	return fmt.Sprintf("%s: %s", d.Span, d.Message)
}

// Diagnostics is an append-only sink of diagnostics in report order.
type Diagnostics struct {
	list []Diagnostic
}

// Errorf records a diagnostic located at node, or unlocated if node is nil.
func (d *Diagnostics) Errorf(node syntax.Node, format string, args ...any) {
	diag := Diagnostic{Message: fmt.Sprintf(format, args...)}
	if node != nil {
		span := node.Span()
		diag.Span = &span
	}
	d.list = append(d.list, diag)
}

func (d *Diagnostics) add(diags ...Diagnostic) { d.list = append(d.list, diags...) }

// Len returns the number of recorded diagnostics.
func (d *Diagnostics) Len() int { return len(d.list) }

// List returns the recorded diagnostics.
func (d *Diagnostics) List() []Diagnostic { return d.list }
