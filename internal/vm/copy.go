package vm

// copy.go implements the structural deep copy that lets a value escape an inner region to an
// outer one. Pairs are constructed append-only (the reader and precons protocol never build
// cycles), so this recursion always terminates.

import "fmt"

// Copy performs a structural deep copy of v into dst. Pairs recurse on car and cdr; strings copy
// their underlying char-list; subs copy their environment vector (their code is immutable and
// shared, never copied). Symbols, numbers, and sentinels are returned unchanged, since they are
// either interned in the permanent region or carry no region-local state at all.
func (in *Interp) Copy(v Any, dst *Region) (Any, error) {
	switch TagOf(v) {
	case TagCons:
		if IsNil(v) {
			return v, nil
		}

		a, err := in.Copy(Car(v), dst)
		if err != nil {
			return 0, err
		}

		d, err := in.Copy(Cdr(v), dst)
		if err != nil {
			return 0, err
		}

		return dst.cons(a, d)

	case TagStr:
		chars, err := in.Copy(Unstring(v), dst)
		if err != nil {
			return 0, err
		}

		return dst.stringOfChars(chars)

	case TagSub:
		return in.copySub(v, dst)

	default: // TagSym, TagUniq, TagNum, TagReg, TagOther
		return v, nil
	}
}

// copySub copies a sub's environment vector into dst; its code pointer is shared unchanged.
func (in *Interp) copySub(v Any, dst *Region) (Any, error) {
	if err := Check(v, TagSub); err != nil {
		return 0, err
	}

	sub := subAt(Addr(v))

	env := make([]Any, sub.envSize())
	for i := range env {
		copied, err := in.Copy(sub.envAt(i), dst)
		if err != nil {
			return 0, err
		}

		env[i] = copied
	}

	return dst.makeSub(sub.code, env)
}

// CopyBack copies v from the active region into the region one level outward — the usual escape
// hatch for a call's return value before its argument/local region is freed.
func (in *Interp) CopyBack(v Any) (Any, error) {
	n := len(in.regionStack)
	if n < 2 {
		return 0, fmt.Errorf("region: no outer region to copy into")
	}

	return in.Copy(v, in.regionStack[n-2])
}
