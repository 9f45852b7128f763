/*
Package compiler turns one s-expression, read from source by internal/reader, into a flat bytecode
sub-code allocated in the permanent region. The walk takes three inputs matching spec.md §4.8:
the expression, a lexical environment (here a *lexScope chain), and a tail-position flag.

Special forms (quote, if, lambda, with, set!, begin) are codified in the teacher's style of one
small compiling method per form; everything else falls through to the generic application rule.
*/
package compiler

import (
	"fmt"

	"github.com/xyproto/bone/internal/vm"
)

// lexScope is one lambda's compile-time lexical environment: its parameters (argument-buffer
// slots) plus the free variables it has had to capture from an enclosing scope so far.
type lexScope struct {
	parent   *lexScope
	cb       *vm.CodeBuilder
	params   []vm.Any
	captures []vm.Any
}

// Compiler compiles s-expressions against a fixed interpreter context, caching the symbols that
// name special forms so every compile only interns them once.
type Compiler struct {
	interp *vm.Interp

	sQuote     vm.Any
	sIf        vm.Any
	sLambda    vm.Any
	sWith      vm.Any
	sSetBang   vm.Any
	sBegin     vm.Any
	sSetGlobal vm.Any
}

// New creates a compiler bound to in, interning the special-form keywords it recognizes.
func New(in *vm.Interp) (*Compiler, error) {
	c := &Compiler{interp: in}

	syms := []struct {
		name string
		dst  *vm.Any
	}{
		{"quote", &c.sQuote},
		{"if", &c.sIf},
		{"lambda", &c.sLambda},
		{"with", &c.sWith},
		{"set!", &c.sSetBang},
		{"begin", &c.sBegin},
		{"%set-global!", &c.sSetGlobal},
	}

	for _, s := range syms {
		sym, err := in.Intern(s.name)
		if err != nil {
			return nil, fmt.Errorf("compiler: interning %q: %w", s.name, err)
		}

		*s.dst = sym
	}

	return c, nil
}

// Compile compiles one top-level form, in an empty lexical environment, wrapping it with a
// trailing RET as spec.md §4.8 specifies. It returns the resulting code pointer.
func (c *Compiler) Compile(expr vm.Any) (vm.Any, error) {
	cb := vm.NewCodeBuilder(vm.Nil, 0, false)
	top := &lexScope{cb: cb}

	if err := c.compileExpr(expr, top, true); err != nil {
		return 0, err
	}

	cb.Emit(vm.RET)
	cb.SetEnvSize(len(top.captures))
	cb.SetLocalCount(0)

	return c.interp.Finalize(cb)
}

func (c *Compiler) compileExpr(expr vm.Any, scope *lexScope, tail bool) error {
	switch {
	case vm.IsTagged(expr, vm.TagNum), vm.IsTagged(expr, vm.TagStr), vm.IsTagged(expr, vm.TagUniq):
		scope.cb.Emit(vm.CONST, expr)
		return nil

	case vm.IsTagged(expr, vm.TagSym):
		return c.compileSymbolRef(expr, scope)

	case vm.IsTagged(expr, vm.TagCons):
		return c.compileForm(expr, scope, tail)

	default:
		// subs and regions are never read as literals, but are self-evaluating if they ever
		// appear (e.g. a quoted value re-used across evaluations).
		scope.cb.Emit(vm.CONST, expr)
		return nil
	}
}

func (c *Compiler) compileForm(expr vm.Any, scope *lexScope, tail bool) error {
	head := vm.Car(expr)
	rest := vm.Cdr(expr)

	if vm.IsTagged(head, vm.TagSym) {
		switch head {
		case c.sQuote:
			return c.compileQuote(rest, scope)
		case c.sIf:
			return c.compileIf(rest, scope, tail)
		case c.sLambda:
			return c.compileLambda(rest, scope)
		case c.sWith:
			return c.compileWith(rest, scope, tail)
		case c.sSetBang:
			return c.compileSet(rest, scope)
		case c.sBegin:
			return c.compileBody(vm.Elements(rest), scope, tail)
		}
	}

	if err := c.compileExpr(head, scope, false); err != nil {
		return err
	}

	return c.compileApplyArgs(vm.Elements(rest), scope, tail)
}

// compileQuote handles (quote . X), the shape the reader builds for 'X: the quoted form is the
// whole cdr.
func (c *Compiler) compileQuote(rest vm.Any, scope *lexScope) error {
	scope.cb.Emit(vm.CONST, rest)

	return nil
}

func (c *Compiler) compileIf(rest vm.Any, scope *lexScope, tail bool) error {
	elems := vm.Elements(rest)
	if len(elems) < 2 {
		return fmt.Errorf("%w: if requires a test and a then-branch", vm.ErrParse)
	}

	test, then := elems[0], elems[1]

	var elseExpr vm.Any = vm.Unspecified
	if len(elems) > 2 {
		elseExpr = elems[2]
	}

	if err := c.compileExpr(test, scope, false); err != nil {
		return err
	}

	jmpIfAt := scope.cb.Emit(vm.JMP_IF, vm.OfInt(0))

	if err := c.compileExpr(elseExpr, scope, tail); err != nil {
		return err
	}

	jmpEndAt := scope.cb.Emit(vm.JMP, vm.OfInt(0))

	thenStart := scope.cb.Len()
	scope.cb.PatchOperand(jmpIfAt, vm.OfInt(int32(thenStart-(jmpIfAt+2))))

	if err := c.compileExpr(then, scope, tail); err != nil {
		return err
	}

	endPos := scope.cb.Len()
	scope.cb.PatchOperand(jmpEndAt, vm.OfInt(int32(endPos-(jmpEndAt+2))))

	return nil
}

// parseParams splits a lambda parameter list into its fixed symbols and, if the list ends in a
// bare symbol (or is itself one), the rest parameter.
func parseParams(v vm.Any) (params []vm.Any, hasRest bool, restSym vm.Any) {
	if vm.IsTagged(v, vm.TagSym) {
		return nil, true, v
	}

	for vm.IsTagged(v, vm.TagCons) {
		params = append(params, vm.Car(v))
		v = vm.Cdr(v)
	}

	if vm.IsNil(v) {
		return params, false, 0
	}

	return params, true, v
}

func (c *Compiler) compileLambda(rest vm.Any, scope *lexScope) error {
	paramsExpr := vm.Car(rest)
	body := vm.Elements(vm.Cdr(rest))

	if len(body) == 0 {
		return fmt.Errorf("%w: lambda requires a body", vm.ErrParse)
	}

	params, hasRest, restSym := parseParams(paramsExpr)
	if hasRest {
		params = append(params, restSym)
	}

	return c.compileLambdaValue(params, hasRest, body, scope)
}

// compileLambdaValue compiles body as a fresh sub over params, then emits the enclosing
// PREPARE_SUB/ADD_ENV/MAKE_SUB sequence into scope's own code, leaving the built closure in
// last_value.
func (c *Compiler) compileLambdaValue(params []vm.Any, hasRest bool, body []vm.Any, scope *lexScope) error {
	argc := len(params)
	if hasRest {
		argc--
	}

	cb := vm.NewCodeBuilder(vm.Nil, argc, hasRest)
	child := &lexScope{parent: scope, cb: cb, params: params}

	if err := c.compileBody(body, child, true); err != nil {
		return err
	}

	cb.Emit(vm.RET)
	cb.SetEnvSize(len(child.captures))
	cb.SetLocalCount(0)

	code, err := c.interp.Finalize(cb)
	if err != nil {
		return err
	}

	scope.cb.Emit(vm.PREPARE_SUB, code)

	for _, sym := range child.captures {
		emitFetch(scope, sym)
		scope.cb.Emit(vm.ADD_ENV)
	}

	scope.cb.Emit(vm.MAKE_SUB)

	return nil
}

func (c *Compiler) compileWith(rest vm.Any, scope *lexScope, tail bool) error {
	bindingForms := vm.Elements(vm.Car(rest))
	body := vm.Elements(vm.Cdr(rest))

	names := make([]vm.Any, len(bindingForms))
	valExprs := make([]vm.Any, len(bindingForms))

	for i, b := range bindingForms {
		be := vm.Elements(b)
		if len(be) != 2 {
			return fmt.Errorf("%w: with binding must be (name val)", vm.ErrParse)
		}

		names[i], valExprs[i] = be[0], be[1]
	}

	// bone-lisp's `with` is an immediately-applied lambda: build the closure, then apply it.
	if err := c.compileLambdaValue(names, false, body, scope); err != nil {
		return err
	}

	scope.cb.Emit(vm.PREPARE_CALL)

	for _, v := range valExprs {
		if err := c.compileExpr(v, scope, false); err != nil {
			return err
		}

		scope.cb.Emit(vm.ADD_ARG)
	}

	if tail {
		scope.cb.Emit(vm.TAILCALL)
	} else {
		scope.cb.Emit(vm.CALL)
	}

	return nil
}

func (c *Compiler) compileSet(rest vm.Any, scope *lexScope) error {
	elems := vm.Elements(rest)
	if len(elems) != 2 {
		return fmt.Errorf("%w: set! requires a name and a value", vm.ErrParse)
	}

	name, valExpr := elems[0], elems[1]
	if !vm.IsTagged(name, vm.TagSym) {
		return fmt.Errorf("%w: set! target must be a symbol", vm.ErrParse)
	}

	if idx, ok := localIndex(scope, name); ok {
		if err := c.compileExpr(valExpr, scope, false); err != nil {
			return err
		}

		scope.cb.Emit(vm.SET_LOCAL, vm.OfInt(int32(idx)))
	} else {
		if err := c.compileGlobalSet(name, valExpr, scope); err != nil {
			return err
		}
	}

	scope.cb.Emit(vm.CONST, vm.Unspecified)

	return nil
}

// compileGlobalSet desugars a global set! into a call to the hidden %set-global! primitive,
// reusing the ordinary application protocol (PREPARE_CALL/ADD_ARG/CALL) so the value being
// assigned never has to share the accumulator with the callee lookup.
func (c *Compiler) compileGlobalSet(name, valExpr vm.Any, scope *lexScope) error {
	callee, ok := c.interp.LookupGlobal(c.sSetGlobal)
	if !ok {
		return fmt.Errorf("compiler: internal: %%set-global! is not registered")
	}

	scope.cb.Emit(vm.CONST, callee)
	scope.cb.Emit(vm.PREPARE_CALL)
	scope.cb.Emit(vm.CONST, name)
	scope.cb.Emit(vm.ADD_ARG)

	if err := c.compileExpr(valExpr, scope, false); err != nil {
		return err
	}

	scope.cb.Emit(vm.ADD_ARG)
	scope.cb.Emit(vm.CALL)

	return nil
}

func (c *Compiler) compileBody(forms []vm.Any, scope *lexScope, tail bool) error {
	if len(forms) == 0 {
		scope.cb.Emit(vm.CONST, vm.Unspecified)
		return nil
	}

	for i, f := range forms {
		last := i == len(forms)-1
		if err := c.compileExpr(f, scope, last && tail); err != nil {
			return err
		}
	}

	return nil
}

func (c *Compiler) compileApplyArgs(args []vm.Any, scope *lexScope, tail bool) error {
	scope.cb.Emit(vm.PREPARE_CALL)

	for _, a := range args {
		if err := c.compileExpr(a, scope, false); err != nil {
			return err
		}

		scope.cb.Emit(vm.ADD_ARG)
	}

	if tail {
		scope.cb.Emit(vm.TAILCALL)
	} else {
		scope.cb.Emit(vm.CALL)
	}

	return nil
}

func (c *Compiler) compileSymbolRef(sym vm.Any, scope *lexScope) error {
	if ensureAvailable(scope, sym) {
		emitFetch(scope, sym)
		return nil
	}

	val, ok := c.interp.LookupGlobal(sym)
	if !ok {
		return fmt.Errorf("%w: %s", vm.ErrUnbound, vm.Symtext(sym))
	}

	scope.cb.Emit(vm.CONST, val)

	return nil
}

func localIndex(scope *lexScope, sym vm.Any) (int, bool) {
	for i, p := range scope.params {
		if p == sym {
			return i, true
		}
	}

	return 0, false
}

// ensureAvailable registers sym as resolvable within s, recursing outward and recording a new
// capture on every scope between s and the one that actually owns it. It never emits an
// instruction; emitFetch does that once the bookkeeping settles.
func ensureAvailable(s *lexScope, sym vm.Any) bool {
	if s == nil {
		return false
	}

	for _, p := range s.params {
		if p == sym {
			return true
		}
	}

	for _, c := range s.captures {
		if c == sym {
			return true
		}
	}

	if !ensureAvailable(s.parent, sym) {
		return false
	}

	s.captures = append(s.captures, sym)

	return true
}

// emitFetch emits the instruction that reads sym's current value into last_value: GET_ARG if sym
// is one of s's own parameters, GET_ENV if it was captured from an enclosing scope. The symbol
// must already have been registered via ensureAvailable.
func emitFetch(s *lexScope, sym vm.Any) {
	for i, p := range s.params {
		if p == sym {
			s.cb.Emit(vm.GET_ARG, vm.OfInt(int32(i)))
			return
		}
	}

	for i, c := range s.captures {
		if c == sym {
			s.cb.Emit(vm.GET_ENV, vm.OfInt(int32(i)))
			return
		}
	}

	panic("compiler: internal: symbol not registered before fetch")
}
