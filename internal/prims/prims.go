package prims

// prims.go implements the primitive library itself, each function matching a DEFSUB body in
// original_source/bone.c. RegisterAll binds every name via vm.Interp.RegisterPrimitive, which
// builds the two-instruction WRAP sub spec.md §4.10 describes.

import (
	"fmt"

	"github.com/xyproto/bone/internal/printer"
	"github.com/xyproto/bone/internal/vm"
)

// RegisterAll binds the full primitive library to in. The printer is needed only by print/say.
func RegisterAll(in *vm.Interp) error {
	p, err := printer.New(in)
	if err != nil {
		return fmt.Errorf("prims: %w", err)
	}

	regs := []struct {
		name    string
		argc    int
		hasRest bool
		fn      vm.PrimitiveFunc
	}{
		{"+", 0, true, addPrim},
		{"-", 1, true, subPrim},
		{"*", 0, true, mulPrim},
		{"/", 2, false, divPrim},
		{"mod", 2, false, modPrim},
		{"<", 2, false, ltPrim},
		{">", 2, false, gtPrim},
		{"=", 2, false, numEqPrim},
		{"zero?", 1, false, zeroPrim},

		{"cons", 2, false, consPrim},
		{"car", 1, false, carPrim},
		{"cdr", 1, false, cdrPrim},
		{"pair?", 1, false, pairPrim},
		{"null?", 1, false, nullPrim},
		{"list", 0, true, listPrim},
		{"len", 1, false, lenPrim},
		{"assoc", 2, false, assocPrim},
		{"each", 2, false, eachPrim},

		{"eq?", 2, false, eqPrim},
		{"not", 1, false, notPrim},

		{"symbol->string", 1, false, symbolToStringPrim},
		{"string->symbol", 1, false, stringToSymbolPrim},
		{"string-length", 1, false, stringLengthPrim},
		{"string-append", 0, true, stringAppendPrim},

		{"apply", 2, false, applyPrim},
	}

	for _, r := range regs {
		if err := in.RegisterPrimitive(r.name, r.argc, r.hasRest, r.fn); err != nil {
			return fmt.Errorf("prims: registering %q: %w", r.name, err)
		}
	}

	if err := in.RegisterPrimitive("print", 1, false, printPrimFunc(p)); err != nil {
		return fmt.Errorf("prims: registering %q: %w", "print", err)
	}

	if err := in.RegisterPrimitive("say", 0, true, sayPrimFunc(p)); err != nil {
		return fmt.Errorf("prims: registering %q: %w", "say", err)
	}

	return nil
}

// --- arithmetic --------------------------------------------------------------

func checkNum(v vm.Any) error { return vm.Check(v, vm.TagNum) }

func addPrim(_ *vm.Interp, args []vm.Any) (vm.Any, error) {
	var sum int32

	for _, x := range vm.Elements(args[0]) {
		if err := checkNum(x); err != nil {
			return 0, err
		}

		sum += vm.IntOf(x)
	}

	return vm.OfInt(sum), nil
}

func mulPrim(_ *vm.Interp, args []vm.Any) (vm.Any, error) {
	product := int32(1)

	for _, x := range vm.Elements(args[0]) {
		if err := checkNum(x); err != nil {
			return 0, err
		}

		product *= vm.IntOf(x)
	}

	return vm.OfInt(product), nil
}

// subPrim implements full-: unary negation with no extra arguments, else a left fold subtracting
// every rest argument from the first.
func subPrim(_ *vm.Interp, args []vm.Any) (vm.Any, error) {
	if err := checkNum(args[0]); err != nil {
		return 0, err
	}

	rest := vm.Elements(args[1])
	if len(rest) == 0 {
		return vm.OfInt(-vm.IntOf(args[0])), nil
	}

	res := vm.IntOf(args[0])

	for _, x := range rest {
		if err := checkNum(x); err != nil {
			return 0, err
		}

		res -= vm.IntOf(x)
	}

	return vm.OfInt(res), nil
}

func divPrim(_ *vm.Interp, args []vm.Any) (vm.Any, error) {
	if err := checkNum(args[0]); err != nil {
		return 0, err
	}

	if err := checkNum(args[1]); err != nil {
		return 0, err
	}

	d := vm.IntOf(args[1])
	if d == 0 {
		return 0, ErrDivByZero
	}

	return vm.OfInt(vm.IntOf(args[0]) / d), nil
}

func modPrim(_ *vm.Interp, args []vm.Any) (vm.Any, error) {
	if err := checkNum(args[0]); err != nil {
		return 0, err
	}

	if err := checkNum(args[1]); err != nil {
		return 0, err
	}

	d := vm.IntOf(args[1])
	if d == 0 {
		return 0, ErrDivByZero
	}

	return vm.OfInt(vm.IntOf(args[0]) % d), nil
}

func ltPrim(_ *vm.Interp, args []vm.Any) (vm.Any, error) {
	return numCompare(args, func(a, b int32) bool { return a < b })
}

func gtPrim(_ *vm.Interp, args []vm.Any) (vm.Any, error) {
	return numCompare(args, func(a, b int32) bool { return a > b })
}

func numEqPrim(_ *vm.Interp, args []vm.Any) (vm.Any, error) {
	return numCompare(args, func(a, b int32) bool { return a == b })
}

func numCompare(args []vm.Any, cmp func(a, b int32) bool) (vm.Any, error) {
	if err := checkNum(args[0]); err != nil {
		return 0, err
	}

	if err := checkNum(args[1]); err != nil {
		return 0, err
	}

	return vm.BoolOf(cmp(vm.IntOf(args[0]), vm.IntOf(args[1]))), nil
}

func zeroPrim(_ *vm.Interp, args []vm.Any) (vm.Any, error) {
	if err := checkNum(args[0]); err != nil {
		return 0, err
	}

	return vm.BoolOf(vm.IntOf(args[0]) == 0), nil
}

// --- pairs and lists -----------------------------------------------------------

func consPrim(in *vm.Interp, args []vm.Any) (vm.Any, error) {
	return in.Cons(args[0], args[1])
}

func carPrim(_ *vm.Interp, args []vm.Any) (vm.Any, error) {
	return vm.CheckedCar(args[0])
}

func cdrPrim(_ *vm.Interp, args []vm.Any) (vm.Any, error) {
	return vm.CheckedCdr(args[0])
}

func pairPrim(_ *vm.Interp, args []vm.Any) (vm.Any, error) {
	return vm.BoolOf(vm.IsTagged(args[0], vm.TagCons)), nil
}

func nullPrim(_ *vm.Interp, args []vm.Any) (vm.Any, error) {
	return vm.BoolOf(vm.IsNil(args[0])), nil
}

// listPrim is "id" registered under a 0-required/rest-accepting arity, so args[0] is already the
// fully assembled rest list — the call protocol built it, nothing left to do.
func listPrim(_ *vm.Interp, args []vm.Any) (vm.Any, error) {
	return args[0], nil
}

func lenPrim(_ *vm.Interp, args []vm.Any) (vm.Any, error) {
	return vm.OfInt(int32(vm.Len(args[0]))), nil
}

func assocPrim(_ *vm.Interp, args []vm.Any) (vm.Any, error) {
	return vm.Assoc(args[0], args[1]), nil
}

// eachPrim applies args[1] (a sub) to every element of args[0] in turn, one fresh single-element
// argument list per call — deliberately not the original's reused, in-place-mutated argument cell
// (see original_source/bone.c's own comment flagging that reuse as unsafe under `car!`-style
// mutation). The final result is whatever the last call produced, per spec.md §8 scenario 5.
func eachPrim(in *vm.Interp, args []vm.Any) (vm.Any, error) {
	sub := args[1]
	if err := vm.Check(sub, vm.TagSub); err != nil {
		return 0, err
	}

	result := vm.Unspecified

	for list := args[0]; vm.IsTagged(list, vm.TagCons); list = vm.Cdr(list) {
		oneArg, err := in.Active().BuildList([]vm.Any{vm.Car(list)})
		if err != nil {
			return 0, err
		}

		result, err = in.Apply(sub, oneArg)
		if err != nil {
			return 0, err
		}
	}

	return result, nil
}

// --- predicates -----------------------------------------------------------------

func eqPrim(_ *vm.Interp, args []vm.Any) (vm.Any, error) {
	return vm.BoolOf(args[0] == args[1]), nil
}

func notPrim(_ *vm.Interp, args []vm.Any) (vm.Any, error) {
	return vm.BoolOf(args[0] == vm.False), nil
}

// --- symbols and strings ---------------------------------------------------------

func symbolToStringPrim(in *vm.Interp, args []vm.Any) (vm.Any, error) {
	if err := vm.Check(args[0], vm.TagSym); err != nil {
		return 0, err
	}

	return in.Active().NewString(vm.Symtext(args[0]))
}

func stringToSymbolPrim(in *vm.Interp, args []vm.Any) (vm.Any, error) {
	if err := vm.Check(args[0], vm.TagStr); err != nil {
		return 0, err
	}

	return in.Intern(vm.String(args[0]))
}

func stringLengthPrim(_ *vm.Interp, args []vm.Any) (vm.Any, error) {
	if err := vm.Check(args[0], vm.TagStr); err != nil {
		return 0, err
	}

	return vm.OfInt(int32(len(vm.StringBytes(args[0])))), nil
}

func stringAppendPrim(in *vm.Interp, args []vm.Any) (vm.Any, error) {
	var out []byte

	for _, s := range vm.Elements(args[0]) {
		if err := vm.Check(s, vm.TagStr); err != nil {
			return 0, err
		}

		out = append(out, vm.StringBytes(s)...)
	}

	return in.Active().NewString(string(out))
}

// --- I/O ------------------------------------------------------------------------

// printPrimFunc binds a Printer into a PrimitiveFunc: print(x) writes x's readable form and
// returns single(x), a one-element list holding x, matching DEFSUB(print) exactly.
func printPrimFunc(p *printer.Printer) vm.PrimitiveFunc {
	return func(in *vm.Interp, args []vm.Any) (vm.Any, error) {
		if err := p.Fprint(in.Output(), args[0]); err != nil {
			return 0, err
		}

		return in.Cons(args[0], vm.Nil)
	}
}

// sayPrimFunc binds a Printer into say's PrimitiveFunc: every rest argument is written unquoted,
// in order; the result is the rest-argument list itself.
func sayPrimFunc(p *printer.Printer) vm.PrimitiveFunc {
	return func(in *vm.Interp, args []vm.Any) (vm.Any, error) {
		for _, x := range vm.Elements(args[0]) {
			if err := p.Fsay(in.Output(), x); err != nil {
				return 0, err
			}
		}

		return args[0], nil
	}
}

// --- control ----------------------------------------------------------------------

func applyPrim(in *vm.Interp, args []vm.Any) (vm.Any, error) {
	return in.Apply(args[0], args[1])
}
