package semantics

// Intrinsic types. They are immutable and shared by every Compilation.
var (
	Int    = &BuiltInType{name: "Int"}
	Bool   = &BuiltInType{name: "Bool"}
	String = &BuiltInType{name: "String"}
	Void   = &BuiltInType{name: "Void"}

	// Error is substituted for anything that failed to resolve. Checks that
	// see it stay silent, so one mistake yields one diagnostic.
	Error = &BuiltInType{name: "<error>"}
)

// intrinsics is the view of every RootBinder. User declarations shadow it.
var intrinsics = []Symbol{
	Int,
	Bool,
	String,
	Void,
	&OverloadSymbol{name: "print", Functions: []*FunctionSymbol{
		intrinsicFunc("print", Void, Int),
		intrinsicFunc("print", Void, String),
		intrinsicFunc("print", Void, Bool),
	}},
	intrinsicFunc("len", Int, String),
	intrinsicFunc("str", String, Int),
}

func intrinsicFunc(name string, result Type, params ...Type) *FunctionSymbol {
	fn := &FunctionSymbol{name: name, result: resolvedMemo(result)}
	for i, t := range params {
		fn.params = append(fn.params, &ParameterSymbol{
			name:  string(rune('a' + i)),
			owner: fn,
			typ:   resolvedMemo(t),
		})
	}
	return fn
}

// errorFunction returns the synthetic function standing in for a call that
// matched no overload. It has the requested arity and Error everywhere.
func errorFunction(name string, arity int) *FunctionSymbol {
	fn := &FunctionSymbol{name: name, result: resolvedMemo[Type](Error), isError: true}
	for i := 0; i < arity; i++ {
		fn.params = append(fn.params, &ParameterSymbol{name: "_", owner: fn, typ: resolvedMemo[Type](Error)})
	}
	return fn
}
