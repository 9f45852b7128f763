package vm

// bootstrap.go registers the handful of primitives the interpreter itself depends on, as opposed
// to the primitives library cmd/elsie wires in for user code. %set-global! is the desugaring target
// for a top-level set! on a name the compiler cannot resolve lexically; see internal/compiler.

// setGlobalPrim implements %set-global!: rebind args[0] (a symbol, quoted by the compiler so it
// never gets evaluated as a reference) to args[1] in the bindings registry.
func setGlobalPrim(in *Interp, args []Any) (Any, error) {
	sym, val := args[0], args[1]

	if err := Check(sym, TagSym); err != nil {
		return 0, err
	}

	if err := in.DefineGlobal(sym, val); err != nil {
		return 0, err
	}

	return Unspecified, nil
}

// bootstrapPrimitives registers the interpreter-internal primitives every Interp needs regardless
// of which user-facing primitives library is loaded on top.
func (in *Interp) bootstrapPrimitives() error {
	return in.RegisterPrimitive("%set-global!", 2, false, setGlobalPrim)
}
