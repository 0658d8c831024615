package main

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	spiral "github.com/lucyelle/SpiralCompiler-sub000"
	"github.com/lucyelle/SpiralCompiler-sub000/internal/store"
)

// queryFlags are shared by the query subcommands.
type queryFlags struct {
	limit  int
	offset int
	sort   string
	order  string
}

func newQueryCmd(a *app) *cobra.Command {
	qf := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query the semantic index",
		Long:  "Run queries against an indexed directory. Line and column numbers are 1-based.",
	}
	cmd.PersistentFlags().IntVar(&qf.limit, "limit", 50, "pagination limit (max 500)")
	cmd.PersistentFlags().IntVar(&qf.offset, "offset", 0, "pagination offset")
	cmd.PersistentFlags().StringVar(&qf.sort, "sort", "", "sort field: name|kind|file|position|ref_count")
	cmd.PersistentFlags().StringVar(&qf.order, "order", "asc", "sort order: asc|desc")

	cmd.AddCommand(newSymbolsCmd(a, qf))
	cmd.AddCommand(newDefinitionCmd(a))
	cmd.AddCommand(newReferencesCmd(a))
	cmd.AddCommand(newCallsCmd(a, "callers", "Find call sites of a function", (*spiral.QueryBuilder).Callers))
	cmd.AddCommand(newCallsCmd(a, "callees", "Find calls made by a function", (*spiral.QueryBuilder).Callees))
	cmd.AddCommand(newDiagnosticsCmd(a))
	cmd.AddCommand(newHierarchyCmd(a))
	return cmd
}

// --- Helpers ---

// openStore opens the Store from the --db flag path (or default).
func (a *app) openStore() (*store.Store, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	dbPath := a.dbPath(findRepoRoot(cwd))
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'spiral index' first)", dbPath)
	}
	log.Printf("query: database %s", dbPath)
	return store.NewStore(dbPath)
}

// resolveFilePath converts a file argument to an absolute path.
func resolveFilePath(file string) (string, error) {
	if filepath.IsAbs(file) {
		return file, nil
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving file path %q: %w", file, err)
	}
	return abs, nil
}

// parseIntArg parses a positional argument as a positive integer with a
// clear error.
func parseIntArg(value, name string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", name, value)
	}
	if n < 1 {
		return 0, fmt.Errorf("invalid %s %q: must be at least 1", name, value)
	}
	return n, nil
}

// parsePosition parses <file> <line> <col> arguments.
func parsePosition(args []string) (string, int, int, error) {
	file, err := resolveFilePath(args[0])
	if err != nil {
		return "", 0, 0, err
	}
	line, err := parseIntArg(args[1], "line")
	if err != nil {
		return "", 0, 0, err
	}
	col, err := parseIntArg(args[2], "col")
	if err != nil {
		return "", 0, 0, err
	}
	return file, line, col, nil
}

// resolveSymbolID resolves a symbol ID from either positional args
// (<file> <line> <col>) or the --symbol flag. A position names the symbol
// referenced there or the declaration containing it.
func resolveSymbolID(cmd *cobra.Command, args []string, qb *spiral.QueryBuilder) (int64, error) {
	symbolFlag, _ := cmd.Flags().GetInt64("symbol")
	if symbolFlag != 0 {
		return symbolFlag, nil
	}
	if len(args) < 3 {
		return 0, errors.New("requires either <file> <line> <col> arguments or --symbol flag")
	}
	file, line, col, err := parsePosition(args)
	if err != nil {
		return 0, err
	}
	sym, err := qb.TargetAt(file, line, col)
	if err != nil {
		return 0, fmt.Errorf("looking up symbol: %w", err)
	}
	if sym == nil {
		return 0, fmt.Errorf("no symbol found at %s:%d:%d", file, line, col)
	}
	return sym.ID, nil
}

// pagination creates a Pagination from the flags.
func (qf *queryFlags) pagination() spiral.Pagination {
	return spiral.Pagination{Limit: qf.limit, Offset: qf.offset}
}

// sortSpec creates a Sort from the flags.
func (qf *queryFlags) sortSpec() spiral.Sort {
	var field spiral.SortField
	switch qf.sort {
	case "kind":
		field = spiral.SortByKind
	case "file":
		field = spiral.SortByFile
	case "position":
		field = spiral.SortByPosition
	case "ref_count":
		field = spiral.SortByRefCount
	default:
		field = spiral.SortByName
	}
	order := spiral.Asc
	if qf.order == "desc" {
		order = spiral.Desc
	}
	return spiral.Sort{Field: field, Order: order}
}

// symbolResultToCLI converts a spiral.SymbolResult to a CLISymbol.
func symbolResultToCLI(sr spiral.SymbolResult) CLISymbol {
	return CLISymbol{
		ID:          sr.ID,
		Name:        sr.Name,
		Kind:        sr.Kind,
		Type:        sr.TypeText,
		File:        sr.FilePath,
		StartLine:   sr.StartLine,
		StartCol:    sr.StartCol,
		EndLine:     sr.EndLine,
		EndCol:      sr.EndCol,
		ParentID:    sr.ParentSymbolID,
		RefCount:    sr.RefCount,
		CallerCount: sr.CallerCount,
	}
}

// locationToCLI converts a spiral.Location to a CLILocation.
func locationToCLI(loc spiral.Location, symbolID *int64) CLILocation {
	return CLILocation{
		File:      loc.File,
		StartLine: loc.StartLine,
		StartCol:  loc.StartCol,
		EndLine:   loc.EndLine,
		EndCol:    loc.EndCol,
		SymbolID:  symbolID,
	}
}

// lookupSymbolName fetches just the name of a symbol by ID.
// Returns empty string if not found; logs other errors.
func lookupSymbolName(s *store.Store, id int64) string {
	var name string
	err := s.DB().QueryRow("SELECT name FROM symbols WHERE id = ?", id).Scan(&name)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		log.Printf("warning: lookupSymbolName(%d): %v", id, err)
	}
	return name
}

// --- Commands ---

func newSymbolsCmd(a *app, qf *queryFlags) *cobra.Command {
	var (
		kinds []string
		path  string
	)
	cmd := &cobra.Command{
		Use:   "symbols [pattern]",
		Short: "List declarations, optionally matching a glob pattern",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return a.outputError(cmd, "symbols", err)
			}
			defer s.Close()

			filter := spiral.SymbolFilter{Kinds: kinds}
			if path != "" {
				abs, err := resolveFilePath(path)
				if err != nil {
					return a.outputError(cmd, "symbols", err)
				}
				filter.PathPrefix = &abs
			}
			pattern := ""
			if len(args) > 0 {
				pattern = args[0]
			}

			result, err := spiral.NewQueryBuilder(s).SearchSymbols(pattern, filter, qf.sortSpec(), qf.pagination())
			if err != nil {
				return a.outputError(cmd, "symbols", err)
			}
			syms := make([]CLISymbol, len(result.Items))
			for i, sr := range result.Items {
				syms[i] = symbolResultToCLI(sr)
			}
			return a.outputResult(cmd, CLIResult{Command: "symbols", Results: syms, TotalCount: &result.TotalCount})
		},
	}
	cmd.Flags().StringSliceVar(&kinds, "kind", nil, "only these kinds (class, interface, function, field, variable, parameter)")
	cmd.Flags().StringVar(&path, "path", "", "only symbols in files under this directory")
	return cmd
}

func newDefinitionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "definition <file> <line> <col>",
		Short: "Find the declaration of the name at a position",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return a.outputError(cmd, "definition", err)
			}
			defer s.Close()

			file, line, col, err := parsePosition(args)
			if err != nil {
				return a.outputError(cmd, "definition", err)
			}
			qb := spiral.NewQueryBuilder(s)
			locs, err := qb.DefinitionAt(file, line, col)
			if err != nil {
				return a.outputError(cmd, "definition", err)
			}
			var target *int64
			if sym, err := qb.TargetAt(file, line, col); err == nil && sym != nil {
				target = &sym.ID
			}

			cliLocs := make([]CLILocation, len(locs))
			for i, loc := range locs {
				cliLocs[i] = locationToCLI(loc, target)
			}
			n := len(cliLocs)
			return a.outputResult(cmd, CLIResult{Command: "definition", Results: cliLocs, TotalCount: &n})
		},
	}
}

func newReferencesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "references [<file> <line> <col>]",
		Short: "Find all references to a symbol",
		Long:  "Accepts either <file> <line> <col> positional args or --symbol <id>.",
		Args:  cobra.MaximumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return a.outputError(cmd, "references", err)
			}
			defer s.Close()

			qb := spiral.NewQueryBuilder(s)
			symID, err := resolveSymbolID(cmd, args, qb)
			if err != nil {
				return a.outputError(cmd, "references", err)
			}
			locs, err := qb.ReferencesTo(symID)
			if err != nil {
				return a.outputError(cmd, "references", err)
			}
			cliLocs := make([]CLILocation, len(locs))
			for i, loc := range locs {
				cliLocs[i] = locationToCLI(loc, &symID)
			}
			n := len(cliLocs)
			return a.outputResult(cmd, CLIResult{Command: "references", Results: cliLocs, TotalCount: &n})
		},
	}
	cmd.Flags().Int64("symbol", 0, "symbol ID to query")
	return cmd
}

// newCallsCmd builds the callers and callees commands, which differ only
// in the edge query.
func newCallsCmd(a *app, name, short string, edgesOf func(*spiral.QueryBuilder, int64) ([]*store.CallEdge, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name + " [<file> <line> <col>]",
		Short: short,
		Long:  "Accepts either <file> <line> <col> positional args or --symbol <id>.",
		Args:  cobra.MaximumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return a.outputError(cmd, name, err)
			}
			defer s.Close()

			qb := spiral.NewQueryBuilder(s)
			symID, err := resolveSymbolID(cmd, args, qb)
			if err != nil {
				return a.outputError(cmd, name, err)
			}
			edges, err := edgesOf(qb, symID)
			if err != nil {
				return a.outputError(cmd, name, err)
			}
			paths, err := s.FilePaths()
			if err != nil {
				return a.outputError(cmd, name, err)
			}

			cliEdges := make([]CLICallEdge, len(edges))
			for i, e := range edges {
				cliEdges[i] = CLICallEdge{
					CallerID:   e.CallerSymbolID,
					CallerName: lookupSymbolName(s, e.CallerSymbolID),
					CalleeID:   e.CalleeSymbolID,
					CalleeName: e.CalleeName,
					File:       paths[e.FileID],
					Line:       e.Line,
					Col:        e.Col,
				}
			}
			n := len(cliEdges)
			return a.outputResult(cmd, CLIResult{Command: name, Results: cliEdges, TotalCount: &n})
		},
	}
	cmd.Flags().Int64("symbol", 0, "symbol ID to query")
	return cmd
}

func newDiagnosticsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "diagnostics [file]",
		Short: "List stored diagnostics of one file or of the whole index",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return a.outputError(cmd, "diagnostics", err)
			}
			defer s.Close()

			file := ""
			if len(args) > 0 {
				if file, err = resolveFilePath(args[0]); err != nil {
					return a.outputError(cmd, "diagnostics", err)
				}
			}
			diags, err := spiral.NewQueryBuilder(s).Diagnostics(file)
			if err != nil {
				return a.outputError(cmd, "diagnostics", err)
			}
			paths, err := s.FilePaths()
			if err != nil {
				return a.outputError(cmd, "diagnostics", err)
			}
			out := make([]CLIDiagnostic, len(diags))
			for i, d := range diags {
				out[i] = diagnosticToCLI(paths[d.FileID], d)
			}
			n := len(out)
			return a.outputResult(cmd, CLIResult{Command: "diagnostics", Results: out, TotalCount: &n})
		},
	}
}

func newHierarchyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hierarchy [<file> <line> <col>]",
		Short: "Show the bases and subtypes of a class or interface",
		Long:  "Accepts either <file> <line> <col> positional args or --symbol <id>.",
		Args:  cobra.MaximumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return a.outputError(cmd, "hierarchy", err)
			}
			defer s.Close()

			qb := spiral.NewQueryBuilder(s)
			symID, err := resolveSymbolID(cmd, args, qb)
			if err != nil {
				return a.outputError(cmd, "hierarchy", err)
			}
			h, err := qb.TypeHierarchy(symID)
			if err != nil {
				return a.outputError(cmd, "hierarchy", err)
			}
			if h == nil {
				return a.outputError(cmd, "hierarchy", fmt.Errorf("symbol %d not found", symID))
			}

			out := CLITypeHierarchy{
				Symbol:     symbolResultToCLI(h.Symbol),
				Bases:      relationsToCLI(h.Bases),
				Subtypes:   relationsToCLI(h.Subtypes),
				Unresolved: h.Unresolved,
			}
			return a.outputResult(cmd, CLIResult{Command: "hierarchy", Results: out})
		},
	}
	cmd.Flags().Int64("symbol", 0, "symbol ID to query")
	return cmd
}

func relationsToCLI(rels []*spiral.TypeRelation) []CLITypeRelation {
	out := make([]CLITypeRelation, len(rels))
	for i, r := range rels {
		out[i] = CLITypeRelation{Symbol: symbolResultToCLI(r.Symbol), Kind: r.Kind}
	}
	return out
}
