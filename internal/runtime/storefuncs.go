package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/risor-io/risor/object"

	"github.com/lucyelle/SpiralCompiler-sub000/internal/store"
)

// Store host functions give project-wide rules read access to the index.
// Scripts never write to the Store: findings go through report().

func makeSymbolsByNameFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("symbols_by_name", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("symbols_by_name", 1, len(args))
		}
		name, err := toString(args[0])
		if err != nil {
			return object.Errorf("symbols_by_name: %v", err)
		}
		syms, queryErr := s.SymbolsByName(name)
		if queryErr != nil {
			return object.Errorf("symbols_by_name: %v", queryErr)
		}
		return symbolsToList(syms)
	})
}

func makeDiagnosticsByFileFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("diagnostics_by_file", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("diagnostics_by_file", 1, len(args))
		}
		fileID, err := toInt64(args[0])
		if err != nil {
			return object.Errorf("diagnostics_by_file: %v", err)
		}
		diags, queryErr := s.Diagnostics(fileID)
		if queryErr != nil {
			return object.Errorf("diagnostics_by_file: %v", queryErr)
		}
		results := make([]object.Object, 0, len(diags))
		for _, d := range diags {
			results = append(results, object.NewMap(map[string]object.Object{
				"file_id": object.NewInt(d.FileID),
				"message": object.NewString(d.Message),
				"source":  object.NewString(d.Source),
				"line":    object.NewInt(int64(d.StartLine)),
				"col":     object.NewInt(int64(d.StartCol)),
			}))
		}
		return object.NewList(results)
	})
}

func makeDBQueryFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("db_query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 {
			return object.Errorf("db_query: expected at least 1 argument (sql), got %d", len(args))
		}
		sqlStr, err := toString(args[0])
		if err != nil {
			return object.Errorf("db_query: %v", err)
		}

		// Only allow SELECT statements.
		trimmed := strings.TrimSpace(strings.ToUpper(sqlStr))
		if !strings.HasPrefix(trimmed, "SELECT") {
			return object.Errorf("db_query: only SELECT queries are allowed")
		}

		var queryArgs []any
		for _, arg := range args[1:] {
			switch v := arg.(type) {
			case *object.Int:
				queryArgs = append(queryArgs, v.Value())
			case *object.Float:
				queryArgs = append(queryArgs, v.Value())
			case *object.String:
				queryArgs = append(queryArgs, v.Value())
			case *object.Bool:
				queryArgs = append(queryArgs, v.Value())
			case *object.NilType:
				queryArgs = append(queryArgs, nil)
			default:
				queryArgs = append(queryArgs, fmt.Sprintf("%v", arg))
			}
		}

		rows, queryErr := s.DB().QueryContext(ctx, sqlStr, queryArgs...)
		if queryErr != nil {
			return object.Errorf("db_query: %v", queryErr)
		}
		defer rows.Close()

		cols, colErr := rows.Columns()
		if colErr != nil {
			return object.Errorf("db_query: columns: %v", colErr)
		}

		results := []object.Object{}
		for rows.Next() {
			values := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return object.Errorf("db_query: scan: %v", err)
			}
			row := make(map[string]object.Object, len(cols))
			for i, col := range cols {
				row[col] = sqlValueToObject(values[i])
			}
			results = append(results, object.NewMap(row))
		}
		if err := rows.Err(); err != nil {
			return object.Errorf("db_query: rows: %v", err)
		}
		return object.NewList(results)
	})
}

// sqlValueToObject converts a database value to a Risor object.
func sqlValueToObject(v any) object.Object {
	if v == nil {
		return object.Nil
	}
	switch val := v.(type) {
	case int64:
		return object.NewInt(val)
	case float64:
		return object.NewFloat(val)
	case string:
		return object.NewString(val)
	case bool:
		return object.NewBool(val)
	case []byte:
		return object.NewString(string(val))
	default:
		return object.NewString(fmt.Sprintf("%v", val))
	}
}

// symbolsToList converts a slice of store.Symbol to a Risor list of maps.
func symbolsToList(syms []*store.Symbol) object.Object {
	results := []object.Object{}
	for _, sym := range syms {
		m := map[string]object.Object{
			"id":         object.NewInt(sym.ID),
			"file_id":    object.NewInt(sym.FileID),
			"name":       object.NewString(sym.Name),
			"kind":       object.NewString(sym.Kind),
			"type":       object.NewString(sym.TypeText),
			"start_line": object.NewInt(int64(sym.StartLine)),
			"start_col":  object.NewInt(int64(sym.StartCol)),
			"end_line":   object.NewInt(int64(sym.EndLine)),
			"end_col":    object.NewInt(int64(sym.EndCol)),
		}
		if sym.ParentSymbolID != nil {
			m["parent_symbol_id"] = object.NewInt(*sym.ParentSymbolID)
		}
		results = append(results, object.NewMap(m))
	}
	return object.NewList(results)
}

func toInt64(obj object.Object) (int64, error) {
	if i, ok := obj.(*object.Int); ok {
		return i.Value(), nil
	}
	if f, ok := obj.(*object.Float); ok {
		return int64(f.Value()), nil
	}
	return 0, fmt.Errorf("expected int, got %s", obj.Type())
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}
