package vm

// errors.go collects the sentinel error values from the error taxonomy: type errors, unbound
// symbols, arity mismatches, parse errors, and unknown instructions. Every condition in this
// taxonomy aborts the interpreter; see internal/cli/cmd's repl command for where that abort happens.

import "errors"

var (
	// ErrUnbound reports a symbol with no lexical or global binding.
	ErrUnbound = errors.New("unbound symbol")

	// ErrArity reports a call or apply with the wrong number of arguments.
	ErrArity = errors.New("wrong number of arguments")

	// ErrParse reports malformed input from the reader.
	ErrParse = errors.New("parse error")

	// ErrOpcode reports an instruction the dispatch loop does not recognize — an internal
	// integrity error, since the compiler never emits one.
	ErrOpcode = errors.New("unknown instruction")
)
