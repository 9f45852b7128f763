package vm

// sub.go implements sub-code (the immutable, shared header-plus-bytecode payload produced by the
// compiler) and subs (a code pointer plus an inline, per-closure environment vector).
//
// Both are laid out as plain words in region memory, like pairs and strings, rather than as Go
// structs reached through an embedded pointer: a Go pointer stored inside mmap'd memory would be
// invisible to the garbage collector, which could then collect an object still reachable only from
// inside a region. Keeping everything as addressed words sidesteps that entirely.

const codeHeaderWords = 6

// Sub-code header field offsets, in words from the code pointer's address.
const (
	codeOffName = iota
	codeOffArgc
	codeOffHasRest
	codeOffLocalc
	codeOffEnvsize
	codeOffLen
)

// CodeBuilder accumulates an instruction vector and header fields during compilation, then
// allocates the whole thing as one contiguous, immutable block in the permanent region.
type CodeBuilder struct {
	name    Any
	argc    int
	hasRest bool
	localc  int
	envsize int
	instrs  []Any
}

// NewCodeBuilder starts a builder for a sub named name (Nil for anonymous subs) accepting argc
// required arguments and, if hasRest, a rest argument.
func NewCodeBuilder(name Any, argc int, hasRest bool) *CodeBuilder {
	return &CodeBuilder{name: name, argc: argc, hasRest: hasRest}
}

// Emit appends an opcode and its operand, if it has one, to the instruction stream, returning the
// word offset the opcode was written at (useful for patching jump targets later).
func (b *CodeBuilder) Emit(op Opcode, operand ...Any) int {
	at := len(b.instrs)
	b.instrs = append(b.instrs, opWord(op))

	if hasOperand(op) {
		var v Any
		if len(operand) > 0 {
			v = operand[0]
		}

		b.instrs = append(b.instrs, v)
	}

	return at
}

// Len reports the current instruction stream length, in words.
func (b *CodeBuilder) Len() int { return len(b.instrs) }

// PatchOperand overwrites the operand word of the instruction at offset at (which must name an
// opcode with an operand) — used to back-patch forward jump offsets once their target is known.
func (b *CodeBuilder) PatchOperand(at int, v Any) {
	b.instrs[at+1] = v
}

// SetLocalCount records the number of local variable slots the sub's argument buffer must reserve
// beyond its arguments.
func (b *CodeBuilder) SetLocalCount(n int) { b.localc = n }

// SetEnvSize records how many values the sub's closures over this code must capture.
func (b *CodeBuilder) SetEnvSize(n int) { b.envsize = n }

// Finalize allocates the header and instruction vector in the permanent region and returns the
// resulting code pointer (tagged TagOther: an interpreter-internal reference, never a user value).
func (in *Interp) Finalize(b *CodeBuilder) (Any, error) {
	if err := in.PushPermanent(); err != nil {
		return 0, err
	}
	defer in.PopPermanent()

	r := in.Active()

	total := codeHeaderWords + len(b.instrs)

	addr, err := r.Alloc(total)
	if err != nil {
		return 0, err
	}

	writeWord(addr+codeOffName*wordSize, b.name)
	writeWord(addr+codeOffArgc*wordSize, OfInt(int32(b.argc)))
	writeWord(addr+codeOffHasRest*wordSize, OfInt(boolInt(b.hasRest)))
	writeWord(addr+codeOffLocalc*wordSize, OfInt(int32(b.localc)))
	writeWord(addr+codeOffEnvsize*wordSize, OfInt(int32(b.envsize)))
	writeWord(addr+codeOffLen*wordSize, OfInt(int32(len(b.instrs))))

	for i, w := range b.instrs {
		writeWord(addr+uintptr(codeHeaderWords+i)*wordSize, w)
	}

	return codeAddr(addr), nil
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}

	return 0
}

// codeAddr tags a sub-code header address. It uses TagOther, the tag the spec reserves for
// future extension: code pointers are never handed to user code as an ordinary value, only stored
// inside a sub or passed to Finalize/MakeSub.
func codeAddr(addr uintptr) Any { return TagAddr(addr, TagOther) }

func codeName(code Any) Any     { return readWord(Addr(code) + codeOffName*wordSize) }
func codeArgc(code Any) int     { return int(IntOf(readWord(Addr(code) + codeOffArgc*wordSize))) }
func codeHasRest(code Any) bool { return IntOf(readWord(Addr(code)+codeOffHasRest*wordSize)) != 0 }
func codeLocalc(code Any) int   { return int(IntOf(readWord(Addr(code) + codeOffLocalc*wordSize))) }
func codeEnvsize(code Any) int  { return int(IntOf(readWord(Addr(code) + codeOffEnvsize*wordSize))) }
func codeLen(code Any) int      { return int(IntOf(readWord(Addr(code) + codeOffLen*wordSize))) }

// codeWord reads the i'th word of a sub-code's instruction vector.
func codeWord(code Any, i int) Any {
	return readWord(Addr(code) + uintptr(codeHeaderWords+i)*wordSize)
}

// --- subs ------------------------------------------------------------------

// subHandle addresses a sub object (a code pointer plus an inline environment) already
// constructed in region memory.
type subHandle struct {
	addr uintptr
	code Any
}

// subAt reads the sub object at addr.
func subAt(addr uintptr) subHandle {
	return subHandle{addr: addr, code: readWord(addr)}
}

func (s subHandle) envSize() int { return codeEnvsize(s.code) }

func (s subHandle) envAt(i int) Any {
	return readWord(s.addr + wordSize + uintptr(i)*wordSize)
}

// makeSub allocates a sub object in r: one word for the code pointer, followed by env inline.
func (r *Region) makeSub(code Any, env []Any) (Any, error) {
	addr, err := r.Alloc(1 + len(env))
	if err != nil {
		return 0, err
	}

	writeWord(addr, code)

	for i, e := range env {
		writeWord(addr+wordSize+uintptr(i)*wordSize, e)
	}

	return TagAddr(addr, TagSub), nil
}

// SubName, SubArgc, SubHasRest, and SubEnvAt expose a sub's immutable header fields and captured
// environment, used by the printer and the VM's call protocol.
func SubName(v Any) Any       { return codeName(subAt(Addr(v)).code) }
func SubArgc(v Any) int       { return codeArgc(subAt(Addr(v)).code) }
func SubHasRest(v Any) bool   { return codeHasRest(subAt(Addr(v)).code) }
func SubEnvAt(v Any, i int) Any { return subAt(Addr(v)).envAt(i) }
