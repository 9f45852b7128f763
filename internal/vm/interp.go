package vm

// interp.go defines Interp, the single value gathering every piece of process-wide state the
// design notes call out: region stack, block cache, symbol table, binding table, call stacks, and
// last_value. Nothing here is a package-level global; every caller — reader, compiler, primitive —
// receives *Interp explicitly.

import (
	"fmt"
	"io"
	"os"

	"github.com/xyproto/bone/internal/log"
)

const maxCallDepth = 256

// PrimitiveFunc is the signature every native primitive is registered with. args holds the fixed
// arguments followed, for a rest-accepting primitive, by the (possibly nil) rest list.
type PrimitiveFunc func(in *Interp, args []Any) (Any, error)

// callFrame is one entry on the call stack: the sub currently executing, its instruction pointer,
// and its argument buffer.
type callFrame struct {
	code      Any // code pointer of the executing sub
	sub       Any // the sub value itself, for GET_ENV lookups
	ip        int // word offset into code's instruction vector
	args      uintptr
	argSize   int
	tailcalls int
}

// upcomingCall is an in-progress argument assembly, staged by PREPARE_CALL/ADD_ARG ahead of
// CALL/TAILCALL.
type upcomingCall struct {
	sub      Any
	code     Any
	args     uintptr
	argSize  int
	argc     int
	hasRest  bool
	filled   int
	restLast Any // most recently appended rest-list cell, or 0 if none yet
}

// pendingSub is an in-progress closure assembly, staged by PREPARE_SUB/ADD_ENV ahead of MAKE_SUB.
type pendingSub struct {
	code Any
	env  []Any
}

// Interp is the interpreter context: every piece of mutable state the language runtime needs,
// gathered into one value instead of scattered across package globals.
type Interp struct {
	blockFree   *block
	regionStack []*Region
	permanent   *Region

	symtab   *HashTable
	bindings *HashTable

	primitives []PrimitiveFunc

	calls        []callFrame
	upcoming     []upcomingCall
	upcomingSubs []pendingSub

	lastValue Any

	log *log.Logger
	out io.Writer
}

// Option configures an Interp during New.
type Option func(*Interp)

// WithLogger overrides the default logger.
func WithLogger(l *log.Logger) Option {
	return func(in *Interp) { in.log = l }
}

// WithOutput overrides the stream the print/say primitives write to. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(in *Interp) { in.out = w }
}

// New constructs an interpreter: a permanent region at the base of the region stack, an empty
// symbol table and bindings registry, and no live calls.
func New(opts ...Option) (*Interp, error) {
	in := &Interp{
		symtab:   NewHashTable(Any(0)),
		bindings: NewHashTable(False),
		log:      log.DefaultLogger(),
		out:      os.Stdout,
	}

	permanent, err := in.NewRegion()
	if err != nil {
		return nil, fmt.Errorf("vm: new interpreter: %w", err)
	}

	in.permanent = permanent
	if err := in.Push(permanent); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		opt(in)
	}

	if err := in.bootstrapPrimitives(); err != nil {
		return nil, err
	}

	return in, nil
}

// LastValue returns the accumulator's current contents.
func (in *Interp) LastValue() Any { return in.lastValue }

// Logger returns the interpreter's logger.
func (in *Interp) Logger() *log.Logger { return in.log }

// Output returns the stream the print/say primitives write to.
func (in *Interp) Output() io.Writer { return in.out }

// DefineGlobal binds sym to val in the permanent region's bindings registry, marking it
// BINDING_DEFINED.
func (in *Interp) DefineGlobal(sym, val Any) error {
	if err := in.PushPermanent(); err != nil {
		return err
	}
	defer in.PopPermanent()

	pair, err := in.Active().cons(BindingDefined, val)
	if err != nil {
		return err
	}

	in.bindings.Set(sym, pair)

	return nil
}

// LookupGlobal returns the value bound to sym, reporting false if it is unbound or only declared.
func (in *Interp) LookupGlobal(sym Any) (Any, bool) {
	entry, found := in.bindings.Lookup(sym)
	if !found {
		return 0, false
	}

	if Car(entry) != BindingDefined {
		return 0, false
	}

	return Cdr(entry), true
}

// RegisterPrimitive binds name to a sub whose code is the two-instruction WRAP sequence spec.md
// §4.10 describes, backed by fn. A primitive may be registered under more than one name.
func (in *Interp) RegisterPrimitive(name string, argc int, hasRest bool, fn PrimitiveFunc) error {
	sym, err := in.Intern(name)
	if err != nil {
		return err
	}

	idx := len(in.primitives)
	in.primitives = append(in.primitives, fn)

	cb := NewCodeBuilder(sym, argc, hasRest)
	cb.Emit(WRAP, OfInt(int32(idx)))

	code, err := in.Finalize(cb)
	if err != nil {
		return err
	}

	if err := in.PushPermanent(); err != nil {
		return err
	}

	sub, err := in.Active().makeSub(code, nil)

	in.PopPermanent()

	if err != nil {
		return err
	}

	return in.DefineGlobal(sym, sub)
}

// Eval wraps a compiled top-level code pointer as a zero-argument sub in the active region and
// runs it, the entry point the REPL command uses for each form it reads.
func (in *Interp) Eval(code Any) (Any, error) {
	sub, err := in.Active().makeSub(code, nil)
	if err != nil {
		return 0, err
	}

	return in.Call(sub, nil)
}
