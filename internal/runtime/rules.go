package runtime

import (
	"context"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lucyelle/SpiralCompiler-sub000/internal/semantics"
	"github.com/lucyelle/SpiralCompiler-sub000/internal/syntax"
)

// RulesDir is the directory, relative to the scripts root, holding rule
// scripts.
const RulesDir = "rules"

// SourceExt is the file extension of Spiral source files.
const SourceExt = ".sp"

// IsSourceFile reports whether path names a Spiral source file.
func IsSourceFile(p string) bool {
	return strings.EqualFold(filepath.Ext(p), SourceExt)
}

// RuleName returns the rule name of a script path: its base name without
// the .risor extension.
func RuleName(scriptPath string) string {
	return strings.TrimSuffix(path.Base(filepath.ToSlash(scriptPath)), ".risor")
}

// A Unit is one analysed file handed to rule scripts.
type Unit struct {
	Path   string
	Source string
	Comp   *semantics.Compilation
}

// A Finding is one report made by a rule script. Span is nil when the
// script reported without a location.
type Finding struct {
	Rule    string
	Message string
	Span    *syntax.Span
}

// RunRule runs one rule script against u and returns what it reported.
func (r *Runtime) RunRule(ctx context.Context, scriptPath string, u *Unit) ([]Finding, error) {
	sink := &findings{rule: RuleName(scriptPath)}
	if err := r.RunScript(ctx, scriptPath, unitGlobals(u, sink)); err != nil {
		return nil, err
	}
	return sink.list, nil
}

// RunRuleSource is RunRule for inline source, named rule.
func (r *Runtime) RunRuleSource(ctx context.Context, rule, source string, u *Unit) ([]Finding, error) {
	sink := &findings{rule: rule}
	if err := r.RunSource(ctx, source, unitGlobals(u, sink)); err != nil {
		return nil, err
	}
	return sink.list, nil
}

// RunRules runs every script in order and merges the findings by position.
// Unlocated findings come first. A failing script stops the run.
func (r *Runtime) RunRules(ctx context.Context, scriptPaths []string, u *Unit) ([]Finding, error) {
	var all []Finding
	for _, p := range scriptPaths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		found, err := r.RunRule(ctx, p, u)
		if err != nil {
			return nil, err
		}
		all = append(all, found...)
	}
	sort.SliceStable(all, func(i, j int) bool { return findingStart(all[i]) < findingStart(all[j]) })
	return all, nil
}

func findingStart(f Finding) int {
	if f.Span == nil {
		return -1
	}
	return f.Span.Start
}

type findings struct {
	rule string
	list []Finding
}

func (f *findings) add(msg string, span *syntax.Span) {
	f.list = append(f.list, Finding{Rule: f.rule, Message: msg, Span: span})
}
