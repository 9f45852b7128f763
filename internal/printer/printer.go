package printer

// printer.go implements print (the reader's inverse, spec.md §4.7) and say (the unquoted
// recursive form the say primitive uses). Both are grounded directly on the original
// implementation's print/say functions in original_source/bone.c, including the one place where
// spec.md's prose description and the original's actual behavior disagree: the quote family's
// sugared prefix is printed unconditionally on the cdr, not only when the cdr happens to be a
// length-one list (see scenario 6 in spec.md §8, `,@x` round-tripping exactly, which only holds
// under the unconditional reading).

import (
	"bytes"
	"fmt"
	"io"

	"github.com/xyproto/bone/internal/vm"
)

// Printer serializes values against a fixed interpreter context, needed only to recognize the
// quote-family and lambda symbols it prints with sugared syntax.
type Printer struct {
	interp *vm.Interp

	sQuote           vm.Any
	sQuasiquote      vm.Any
	sUnquote         vm.Any
	sUnquoteSplicing vm.Any
	sLambda          vm.Any
}

// New creates a Printer bound to in.
func New(interp *vm.Interp) (*Printer, error) {
	p := &Printer{interp: interp}

	syms := []struct {
		name string
		dst  *vm.Any
	}{
		{"quote", &p.sQuote},
		{"quasiquote", &p.sQuasiquote},
		{"unquote", &p.sUnquote},
		{"unquote-splicing", &p.sUnquoteSplicing},
		{"lambda", &p.sLambda},
	}

	for _, s := range syms {
		sym, err := interp.Intern(s.name)
		if err != nil {
			return nil, fmt.Errorf("printer: interning %q: %w", s.name, err)
		}

		*s.dst = sym
	}

	return p, nil
}

// Fprint writes v's readable printed form to w.
func (p *Printer) Fprint(w io.Writer, v vm.Any) error {
	switch vm.TagOf(v) {
	case vm.TagCons:
		return p.writeCons(w, v)
	case vm.TagSym:
		_, err := io.WriteString(w, vm.Symtext(v))
		return err
	case vm.TagNum:
		_, err := fmt.Fprintf(w, "%d", vm.IntOf(v))
		return err
	case vm.TagUniq:
		return p.writeUniq(w, v)
	case vm.TagStr:
		return p.writeString(w, v)
	case vm.TagReg:
		_, err := fmt.Fprintf(w, "#reg(%#x)", vm.Untag(v))
		return err
	case vm.TagSub:
		return p.writeSub(w, v)
	default:
		return fmt.Errorf("printer: unprintable value tagged %s", vm.TagOf(v))
	}
}

// Sprint returns v's printed form as a string.
func (p *Printer) Sprint(v vm.Any) string {
	var buf bytes.Buffer

	// Printing never fails once the value is well-formed; a write to a bytes.Buffer cannot fail
	// either, so the error is only reachable for a malformed internal sentinel.
	if err := p.Fprint(&buf, v); err != nil {
		return fmt.Sprintf("#<unprintable: %s>", err)
	}

	return buf.String()
}

func (p *Printer) writeUniq(w io.Writer, v vm.Any) error {
	var s string

	switch v {
	case vm.Nil:
		s = "()"
	case vm.True:
		s = "#t"
	case vm.False:
		s = "#f"
	case vm.EOF:
		s = "#{eof}"
	case vm.Unspecified:
		// Not part of the original bone-lisp sentinel family (see SPEC_FULL.md §4); printed in
		// the same opaque, non-readable style as regions and subs since nothing reads it back.
		s = "#unspecified"
	default:
		return fmt.Errorf("printer: internal sentinel %#x reached the printer", uint64(v))
	}

	_, err := io.WriteString(w, s)

	return err
}

func (p *Printer) writeString(w io.Writer, v vm.Any) error {
	if _, err := io.WriteString(w, `"`); err != nil {
		return err
	}

	for _, c := range vm.StringBytes(v) {
		var s string

		switch c {
		case '"':
			s = `\"`
		case '\\':
			s = `\\`
		case '\n':
			s = `\n`
		case '\t':
			s = `\t`
		default:
			s = string(c)
		}

		if _, err := io.WriteString(w, s); err != nil {
			return err
		}
	}

	_, err := io.WriteString(w, `"`)

	return err
}

func (p *Printer) writeSub(w io.Writer, v vm.Any) error {
	if _, err := fmt.Fprintf(w, "#sub(id=%#x name=", vm.Untag(v)); err != nil {
		return err
	}

	if err := p.Fprint(w, vm.SubName(v)); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, " argc=%d take-rest?=", vm.SubArgc(v)); err != nil {
		return err
	}

	if err := p.Fprint(w, vm.BoolOf(vm.SubHasRest(v))); err != nil {
		return err
	}

	_, err := io.WriteString(w, ")")

	return err
}

// writeCons handles the sugared forms — quote family, lambda short form — before falling
// back to ordinary parenthesized printing.
func (p *Printer) writeCons(w io.Writer, v vm.Any) error {
	if !vm.IsNil(v) {
		head := vm.Car(v)

		if vm.IsTagged(head, vm.TagSym) {
			switch head {
			case p.sQuote:
				return p.writeSugaredPrefix(w, "'", v)
			case p.sQuasiquote:
				return p.writeSugaredPrefix(w, "`", v)
			case p.sUnquote:
				return p.writeSugaredPrefix(w, ",", v)
			case p.sUnquoteSplicing:
				return p.writeSugaredPrefix(w, ",@", v)
			case p.sLambda:
				if ok, err := p.tryWriteLambdaShortForm(w, v); ok || err != nil {
					return err
				}
			}
		}
	}

	return p.writeList(w, v)
}

func (p *Printer) writeSugaredPrefix(w io.Writer, prefix string, v vm.Any) error {
	if _, err := io.WriteString(w, prefix); err != nil {
		return err
	}

	return p.Fprint(w, vm.Cdr(v))
}

// tryWriteLambdaShortForm prints `(lambda params (body))` as `| params body` when the body is a
// single list-form expression, matching the original's is_single/is_cons guard exactly. It
// reports false (with no error and no output) when the value doesn't have that shape, so the
// caller falls through to ordinary list printing.
func (p *Printer) tryWriteLambdaShortForm(w io.Writer, v vm.Any) (bool, error) {
	rest := vm.Cdr(v)
	if !vm.IsTagged(rest, vm.TagCons) {
		return false, nil
	}

	params := vm.Car(rest)
	bodyRest := vm.Cdr(rest)

	if !vm.IsTagged(bodyRest, vm.TagCons) || !vm.IsNil(vm.Cdr(bodyRest)) {
		return false, nil
	}

	body := vm.Car(bodyRest)
	if !vm.IsTagged(body, vm.TagCons) {
		return false, nil
	}

	if _, err := io.WriteString(w, "| "); err != nil {
		return true, err
	}

	if err := p.writeArgs(w, params); err != nil {
		return true, err
	}

	return true, p.Fprint(w, body)
}

// writeArgs prints a parameter list without the enclosing parens — print_args in the original —
// used only by the lambda short form.
func (p *Printer) writeArgs(w io.Writer, v vm.Any) error {
	for vm.IsTagged(v, vm.TagCons) {
		if err := p.Fprint(w, vm.Car(v)); err != nil {
			return err
		}

		if _, err := io.WriteString(w, " "); err != nil {
			return err
		}

		v = vm.Cdr(v)
	}

	if !vm.IsNil(v) {
		if _, err := io.WriteString(w, ". "); err != nil {
			return err
		}

		if err := p.Fprint(w, v); err != nil {
			return err
		}

		if _, err := io.WriteString(w, " "); err != nil {
			return err
		}
	}

	return nil
}

func (p *Printer) writeList(w io.Writer, v vm.Any) error {
	if _, err := io.WriteString(w, "("); err != nil {
		return err
	}

	first := true

	for vm.IsTagged(v, vm.TagCons) {
		if !first {
			if _, err := io.WriteString(w, " "); err != nil {
				return err
			}
		}

		first = false

		if err := p.Fprint(w, vm.Car(v)); err != nil {
			return err
		}

		v = vm.Cdr(v)
	}

	if !vm.IsNil(v) {
		if _, err := io.WriteString(w, " . "); err != nil {
			return err
		}

		if err := p.Fprint(w, v); err != nil {
			return err
		}
	}

	_, err := io.WriteString(w, ")")

	return err
}

// Fsay writes v's unquoted form to w: strings are written byte-for-byte with no delimiters, lists
// recurse element-wise, everything else falls back to Fprint.
func (p *Printer) Fsay(w io.Writer, v vm.Any) error {
	switch vm.TagOf(v) {
	case vm.TagStr:
		_, err := w.Write(vm.StringBytes(v))
		return err
	case vm.TagCons:
		for vm.IsTagged(v, vm.TagCons) {
			if err := p.Fsay(w, vm.Car(v)); err != nil {
				return err
			}

			v = vm.Cdr(v)
		}

		return nil
	default:
		return p.Fprint(w, v)
	}
}
