package vm

// call.go implements the call protocol: building an argument buffer either all at once (Call,
// used by apply and by native Go callers) or incrementally via the staged PREPARE_CALL/ADD_ARG/
// CALL/TAILCALL instructions the dispatch loop executes.

import "fmt"

// buildArgBuffer allocates an argument buffer for sub in the active region and fills it from args,
// rejecting too few non-rest arguments, or extras when sub takes no rest parameter.
func (in *Interp) buildArgBuffer(sub Any, args []Any) (uintptr, int, error) {
	code := subAt(Addr(sub)).code
	argc := codeArgc(code)
	hasRest := codeHasRest(code)
	localc := codeLocalc(code)

	if len(args) < argc {
		return 0, 0, fmt.Errorf("%w: want at least %d, got %d", ErrArity, argc, len(args))
	}

	if !hasRest && len(args) > argc {
		return 0, 0, fmt.Errorf("%w: want %d, got %d", ErrArity, argc, len(args))
	}

	size := argc + localc
	if hasRest {
		size++
	}

	r := in.Active()

	addr, err := r.Alloc(size)
	if err != nil {
		return 0, 0, err
	}

	for i := 0; i < argc; i++ {
		writeWord(addr+uintptr(i)*wordSize, args[i])
	}

	if hasRest {
		rest, err := r.BuildList(args[argc:])
		if err != nil {
			return 0, 0, err
		}

		writeWord(addr+uintptr(argc)*wordSize, rest)
	}

	localBase := argc
	if hasRest {
		localBase++
	}

	for i := 0; i < localc; i++ {
		writeWord(addr+uintptr(localBase+i)*wordSize, Unspecified)
	}

	return addr, size, nil
}

// Call invokes sub with args, running it to completion (including any nested calls it makes) and
// returning its result.
func (in *Interp) Call(sub Any, args []Any) (Any, error) {
	if err := Check(sub, TagSub); err != nil {
		return 0, err
	}

	addr, size, err := in.buildArgBuffer(sub, args)
	if err != nil {
		return 0, err
	}

	if len(in.calls) >= maxCallDepth {
		return 0, fmt.Errorf("vm: call stack overflow (depth %d)", maxCallDepth)
	}

	depth := len(in.calls)
	in.calls = append(in.calls, callFrame{code: subAt(Addr(sub)).code, sub: sub, args: addr, argSize: size})

	return in.run(depth)
}

// Apply walks list, placing its first items as sub's non-rest arguments and bundling any
// remainder into the rest list if sub accepts one, then invokes it exactly as Call would.
func (in *Interp) Apply(sub Any, list Any) (Any, error) {
	if err := Check(sub, TagSub); err != nil {
		return 0, err
	}

	var args []Any

	for IsTagged(list, TagCons) {
		args = append(args, Car(list))
		list = Cdr(list)
	}

	return in.Call(sub, args)
}

// collectArgs gathers a WRAP instruction's native-call argument slice straight from the executing
// frame's argument buffer.
func (in *Interp) collectArgs(frame *callFrame) []Any {
	argc := codeArgc(frame.code)
	hasRest := codeHasRest(frame.code)

	args := make([]Any, 0, argc+1)
	for i := 0; i < argc; i++ {
		args = append(args, readWord(frame.args+uintptr(i)*wordSize))
	}

	if hasRest {
		args = append(args, readWord(frame.args+uintptr(argc)*wordSize))
	}

	return args
}

// prepareCall reads the callee (last_value) and pushes a new upcoming-call frame.
func (in *Interp) prepareCall() error {
	callee := in.lastValue
	if err := Check(callee, TagSub); err != nil {
		return err
	}

	code := subAt(Addr(callee)).code
	argc := codeArgc(code)
	hasRest := codeHasRest(code)
	localc := codeLocalc(code)

	size := argc + localc
	if hasRest {
		size++
	}

	r := in.Active()

	addr, err := r.Alloc(size)
	if err != nil {
		return err
	}

	if hasRest {
		writeWord(addr+uintptr(argc)*wordSize, Nil)
	}

	localBase := argc
	if hasRest {
		localBase++
	}

	for i := 0; i < localc; i++ {
		writeWord(addr+uintptr(localBase+i)*wordSize, Unspecified)
	}

	if len(in.upcoming) >= maxCallDepth {
		return fmt.Errorf("vm: upcoming-call stack overflow (depth %d)", maxCallDepth)
	}

	in.upcoming = append(in.upcoming, upcomingCall{
		sub: callee, code: code, args: addr, argSize: size, argc: argc, hasRest: hasRest,
	})

	return nil
}

// addArg appends last_value as the next argument of the top upcoming call, either into the next
// fixed slot or, once those are full, onto the rest list via precons.
func (in *Interp) addArg() error {
	top := &in.upcoming[len(in.upcoming)-1]
	v := in.lastValue

	if top.filled < top.argc {
		writeWord(top.args+uintptr(top.filled)*wordSize, v)
		top.filled++

		return nil
	}

	if !top.hasRest {
		return fmt.Errorf("%w: too many arguments", ErrArity)
	}

	cell, err := in.Active().Precons(v)
	if err != nil {
		return err
	}

	if top.restLast == 0 {
		writeWord(top.args+uintptr(top.argc)*wordSize, cell)
	} else {
		SetCdr(top.restLast, cell)
	}

	top.restLast = cell

	return nil
}

// popUpcoming pops the top upcoming call, verifying all non-rest slots were filled and closing
// off the rest list, if any.
func (in *Interp) popUpcoming() (upcomingCall, error) {
	n := len(in.upcoming)
	top := in.upcoming[n-1]
	in.upcoming = in.upcoming[:n-1]

	if top.filled < top.argc {
		return upcomingCall{}, fmt.Errorf("%w: want %d, got %d", ErrArity, top.argc, top.filled)
	}

	if top.hasRest && top.restLast != 0 {
		SetCdr(top.restLast, Nil)
	}

	return top, nil
}

// doCall finishes a staged call by pushing a new call-stack frame for the callee.
func (in *Interp) doCall() error {
	top, err := in.popUpcoming()
	if err != nil {
		return err
	}

	if len(in.calls) >= maxCallDepth {
		return fmt.Errorf("vm: call stack overflow (depth %d)", maxCallDepth)
	}

	in.calls = append(in.calls, callFrame{code: top.code, sub: top.sub, args: top.args, argSize: top.argSize})

	return nil
}

// doTailcall finishes a staged call by reusing the current call-stack frame: the call-stack depth
// reflects only non-tail calls, so tail-recursive bone programs run in bounded stack space.
func (in *Interp) doTailcall() error {
	top, err := in.popUpcoming()
	if err != nil {
		return err
	}

	frame := &in.calls[len(in.calls)-1]
	frame.code = top.code
	frame.sub = top.sub
	frame.ip = 0
	frame.args = top.args
	frame.argSize = top.argSize
	frame.tailcalls++

	return nil
}
