package prims

import "errors"

// ErrDivByZero reports an integer division or modulo with a zero divisor. It sits alongside
// internal/vm's sentinel errors (spec.md §7's taxonomy is silent on arithmetic faults, since the
// spec leaves the concrete primitive set, and therefore its failure modes, external).
var ErrDivByZero = errors.New("division by zero")
