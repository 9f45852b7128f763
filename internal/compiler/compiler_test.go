package compiler_test

import (
	"testing"

	"github.com/xyproto/bone/internal/compiler"
	"github.com/xyproto/bone/internal/vm"
)

func newInterp(t *testing.T) *vm.Interp {
	t.Helper()

	in, err := vm.New()
	if err != nil {
		t.Fatalf("vm.New: %s", err)
	}

	return in
}

func mustSym(t *testing.T, in *vm.Interp, name string) vm.Any {
	t.Helper()

	sym, err := in.Intern(name)
	if err != nil {
		t.Fatalf("Intern(%q): %s", name, err)
	}

	return sym
}

// list builds a proper list from items using the active region, the same helper shape the reader
// will eventually replace.
func list(t *testing.T, in *vm.Interp, items ...vm.Any) vm.Any {
	t.Helper()

	r := in.Active()

	v, err := r.BuildList(items)
	if err != nil {
		t.Fatalf("BuildList: %s", err)
	}

	return v
}

func eval(t *testing.T, in *vm.Interp, c *compiler.Compiler, expr vm.Any) vm.Any {
	t.Helper()

	code, err := c.Compile(expr)
	if err != nil {
		t.Fatalf("Compile: %s", err)
	}

	result, err := in.Eval(code)
	if err != nil {
		t.Fatalf("Eval: %s", err)
	}

	return result
}

func TestCompileLiteral(t *testing.T) {
	in := newInterp(t)

	c, err := compiler.New(in)
	if err != nil {
		t.Fatalf("compiler.New: %s", err)
	}

	got := eval(t, in, c, vm.OfInt(42))
	if got != vm.OfInt(42) {
		t.Fatalf("got %#v, want 42", got)
	}
}

func TestCompileQuote(t *testing.T) {
	in := newInterp(t)

	c, err := compiler.New(in)
	if err != nil {
		t.Fatalf("compiler.New: %s", err)
	}

	sQuote := mustSym(t, in, "quote")
	sFoo := mustSym(t, in, "foo")

	// 'foo reads as (quote . foo).
	expr, err := in.Cons(sQuote, sFoo)
	if err != nil {
		t.Fatalf("Cons: %s", err)
	}

	got := eval(t, in, c, expr)
	if got != sFoo {
		t.Fatalf("got %#v, want the foo symbol", got)
	}
}

func TestCompileIf(t *testing.T) {
	in := newInterp(t)

	c, err := compiler.New(in)
	if err != nil {
		t.Fatalf("compiler.New: %s", err)
	}

	sIf := mustSym(t, in, "if")

	thenBranch := list(t, in, mustSym(t, in, "quote"), mustSym(t, in, "yes"))
	elseBranch := list(t, in, mustSym(t, in, "quote"), mustSym(t, in, "no"))

	truthy := list(t, in, sIf, vm.True, thenBranch, elseBranch)
	if got := eval(t, in, c, truthy); got != mustSym(t, in, "yes") {
		t.Fatalf("truthy branch: got %#v, want yes", got)
	}

	falsy := list(t, in, sIf, vm.False, thenBranch, elseBranch)
	if got := eval(t, in, c, falsy); got != mustSym(t, in, "no") {
		t.Fatalf("falsy branch: got %#v, want no", got)
	}
}

func TestCompileIfNoElse(t *testing.T) {
	in := newInterp(t)

	c, err := compiler.New(in)
	if err != nil {
		t.Fatalf("compiler.New: %s", err)
	}

	sIf := mustSym(t, in, "if")
	expr := list(t, in, sIf, vm.False, vm.OfInt(1))

	got := eval(t, in, c, expr)
	if got != vm.Unspecified {
		t.Fatalf("got %#v, want unspecified", got)
	}
}

func TestCompileLambdaApplication(t *testing.T) {
	in := newInterp(t)

	c, err := compiler.New(in)
	if err != nil {
		t.Fatalf("compiler.New: %s", err)
	}

	sLambda := mustSym(t, in, "lambda")
	sA := mustSym(t, in, "a")

	params := list(t, in, sA)
	body := sA
	lambdaExpr := list(t, in, sLambda, params, body)

	call := list(t, in, lambdaExpr, vm.OfInt(7))

	got := eval(t, in, c, call)
	if got != vm.OfInt(7) {
		t.Fatalf("got %#v, want 7", got)
	}
}

func TestCompileClosureCapture(t *testing.T) {
	in := newInterp(t)

	c, err := compiler.New(in)
	if err != nil {
		t.Fatalf("compiler.New: %s", err)
	}

	sLambda := mustSym(t, in, "lambda")
	sA, sB := mustSym(t, in, "a"), mustSym(t, in, "b")

	// ((lambda (a) (lambda (b) a)) 9) applied to 10 should yield 9: the inner lambda's body
	// references its enclosing scope's parameter, not its own.
	inner := list(t, in, sLambda, list(t, in, sB), sA)
	outer := list(t, in, sLambda, list(t, in, sA), inner)

	makeOuter := list(t, in, outer, vm.OfInt(9))
	call := list(t, in, makeOuter, vm.OfInt(10))

	got := eval(t, in, c, call)
	if got != vm.OfInt(9) {
		t.Fatalf("got %#v, want 9", got)
	}
}

func TestCompileWith(t *testing.T) {
	in := newInterp(t)

	c, err := compiler.New(in)
	if err != nil {
		t.Fatalf("compiler.New: %s", err)
	}

	sWith := mustSym(t, in, "with")
	sX := mustSym(t, in, "x")

	binding := list(t, in, list(t, in, sX, vm.OfInt(5)))
	expr := list(t, in, sWith, binding, sX)

	got := eval(t, in, c, expr)
	if got != vm.OfInt(5) {
		t.Fatalf("got %#v, want 5", got)
	}
}

func TestCompileSetLocal(t *testing.T) {
	in := newInterp(t)

	c, err := compiler.New(in)
	if err != nil {
		t.Fatalf("compiler.New: %s", err)
	}

	sWith := mustSym(t, in, "with")
	sSet := mustSym(t, in, "set!")
	sBegin := mustSym(t, in, "begin")
	sX := mustSym(t, in, "x")

	binding := list(t, in, list(t, in, sX, vm.OfInt(1)))
	setForm := list(t, in, sSet, sX, vm.OfInt(99))
	body := list(t, in, sBegin, setForm, sX)
	expr := list(t, in, sWith, binding, body)

	got := eval(t, in, c, expr)
	if got != vm.OfInt(99) {
		t.Fatalf("got %#v, want 99", got)
	}
}

func TestCompileSetGlobal(t *testing.T) {
	in := newInterp(t)

	sG := mustSym(t, in, "g")
	if err := in.DefineGlobal(sG, vm.OfInt(1)); err != nil {
		t.Fatalf("DefineGlobal: %s", err)
	}

	c, err := compiler.New(in)
	if err != nil {
		t.Fatalf("compiler.New: %s", err)
	}

	sSet := mustSym(t, in, "set!")

	// A global reference compiles to the value bound when the form is compiled, so the new value
	// is visible to a form compiled after the set! has run.
	setForm := list(t, in, sSet, sG, vm.OfInt(2))
	eval(t, in, c, setForm)

	got := eval(t, in, c, sG)
	if got != vm.OfInt(2) {
		t.Fatalf("got %#v, want 2", got)
	}
}

func TestCompileUnboundSymbol(t *testing.T) {
	in := newInterp(t)

	c, err := compiler.New(in)
	if err != nil {
		t.Fatalf("compiler.New: %s", err)
	}

	sUnbound := mustSym(t, in, "nope")

	if _, err := c.Compile(sUnbound); err == nil {
		t.Fatalf("expected an unbound-symbol error, got nil")
	}
}

func TestCompileVariadicLambda(t *testing.T) {
	in := newInterp(t)

	c, err := compiler.New(in)
	if err != nil {
		t.Fatalf("compiler.New: %s", err)
	}

	sLambda := mustSym(t, in, "lambda")
	sRest := mustSym(t, in, "rest")

	lambdaExpr := list(t, in, sLambda, sRest, sRest)
	call := list(t, in, lambdaExpr, vm.OfInt(1), vm.OfInt(2), vm.OfInt(3))

	got := eval(t, in, c, call)
	if vm.Len(got) != 3 {
		t.Fatalf("got list of length %d, want 3", vm.Len(got))
	}
}
