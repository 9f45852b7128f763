package reader

// reader.go implements the reader's token dispatch table (spec.md §4.6): whitespace and
// line-comment skipping, the quote family, string and symbol literals, the `|` lambda short form,
// and the `#t`/`#f`/`#!` family. Errors are reported as *vm.ErrParse-wrapped errors rather than the
// original implementation's abort-on-the-spot; the REPL command decides what "abort" means.

import (
	"bufio"
	"fmt"
	"io"

	"github.com/xyproto/bone/internal/vm"
)

// eof is the sentinel byte value used internally wherever the original implementation compares
// against C's EOF macro; -1 can never be a valid byte.
const eof = -1

// Reader reads one s-expression at a time from an underlying byte stream, interning symbols and
// allocating pairs/strings against a fixed interpreter context.
type Reader struct {
	interp *vm.Interp
	in     *bufio.Reader

	sDot             vm.Any
	sQuote           vm.Any
	sQuasiquote      vm.Any
	sUnquote         vm.Any
	sUnquoteSplicing vm.Any
	sLambda          vm.Any
}

// New creates a Reader bound to in, interning the handful of symbols the reader itself needs to
// recognize (the quote family, the dotted-pair marker, and lambda for the `|` short form).
func New(interp *vm.Interp, r io.Reader) (*Reader, error) {
	rd := &Reader{interp: interp, in: bufio.NewReader(r)}

	syms := []struct {
		name string
		dst  *vm.Any
	}{
		{".", &rd.sDot},
		{"quote", &rd.sQuote},
		{"quasiquote", &rd.sQuasiquote},
		{"unquote", &rd.sUnquote},
		{"unquote-splicing", &rd.sUnquoteSplicing},
		{"lambda", &rd.sLambda},
	}

	for _, s := range syms {
		sym, err := interp.Intern(s.name)
		if err != nil {
			return nil, fmt.Errorf("reader: interning %q: %w", s.name, err)
		}

		*s.dst = sym
	}

	return rd, nil
}

// Read parses and returns the next top-level form, or vm.EOF at end of input. A closing
// parenthesis with no matching open is the one error §4.6 calls out as top-level-only.
func (rd *Reader) Read() (vm.Any, error) {
	x, err := rd.read()
	if err != nil {
		return 0, err
	}

	if x == vm.ReaderListEnd {
		return 0, fmt.Errorf("%w: unexpected closing parenthesis", vm.ErrParse)
	}

	return x, nil
}

// nextByte consumes and returns the next byte, or eof at end of input.
func (rd *Reader) nextByte() (int, error) {
	b, err := rd.in.ReadByte()
	if err == io.EOF {
		return eof, nil
	} else if err != nil {
		return 0, err
	}

	return int(b), nil
}

// peekByte reports the next byte without consuming it, or eof.
func (rd *Reader) peekByte() (int, error) {
	b, err := rd.in.Peek(1)
	if err == io.EOF {
		return eof, nil
	} else if err != nil {
		return 0, err
	}

	return int(b[0]), nil
}

// findToken skips whitespace and `;`-to-end-of-line comments, returning the first byte of the
// next token (already consumed from the stream).
func (rd *Reader) findToken() (int, error) {
	for {
		c, err := rd.nextByte()
		if err != nil {
			return 0, err
		}

		switch c {
		case ';':
			if err := rd.skipLine(); err != nil {
				return 0, err
			}
		case ' ', '\t', '\n', '\f', '\r':
			// skip
		default:
			return c, nil
		}
	}
}

func (rd *Reader) skipLine() error {
	for {
		c, err := rd.nextByte()
		if err != nil {
			return err
		}

		if c == '\n' || c == eof {
			return nil
		}
	}
}

// read is the reader's main dispatch, mirroring the token table in spec.md §4.6. It may return
// vm.ReaderListEnd, a sentinel only read and readList understand, never returned from Read.
func (rd *Reader) read() (vm.Any, error) {
	c, err := rd.findToken()
	if err != nil {
		return 0, err
	}

	switch c {
	case ')':
		return vm.ReaderListEnd, nil
	case '(':
		return rd.readList()
	case '|':
		return rd.readLambdaShortForm()
	case '\'':
		return rd.readQuoteLike(rd.sQuote)
	case '`':
		return rd.readQuoteLike(rd.sQuasiquote)
	case ',':
		return rd.readUnquote()
	case '"':
		return rd.readString()
	case '#':
		return rd.readHash()
	case eof:
		return vm.EOF, nil
	default:
		return rd.readSymOrNumber(c)
	}
}

func (rd *Reader) readQuoteLike(sym vm.Any) (vm.Any, error) {
	x, err := rd.read()
	if err != nil {
		return 0, err
	}

	return rd.interp.Cons(sym, x)
}

func (rd *Reader) readUnquote() (vm.Any, error) {
	sym := rd.sUnquote

	c, err := rd.peekByte()
	if err != nil {
		return 0, err
	}

	if c == '@' {
		if _, err := rd.nextByte(); err != nil {
			return 0, err
		}

		sym = rd.sUnquoteSplicing
	}

	return rd.readQuoteLike(sym)
}

func (rd *Reader) readHash() (vm.Any, error) {
	c, err := rd.nextByte()
	if err != nil {
		return 0, err
	}

	switch c {
	case 'f':
		return vm.False, nil
	case 't':
		return vm.True, nil
	case '!':
		if err := rd.skipLine(); err != nil {
			return 0, err
		}

		return rd.read()
	default:
		return 0, fmt.Errorf("%w: invalid character after #", vm.ErrParse)
	}
}

// readList reads forms until the list-end sentinel, building the result via cons the way the
// original recursive read_list does — `(a b . c)` supported through the dotted-pair check.
func (rd *Reader) readList() (vm.Any, error) {
	x, err := rd.read()
	if err != nil {
		return 0, err
	}

	switch x {
	case vm.ReaderListEnd:
		return vm.Nil, nil
	case vm.EOF:
		return 0, fmt.Errorf("%w: end of file in list", vm.ErrParse)
	case rd.sDot:
		tail, err := rd.read()
		if err != nil {
			return 0, err
		}

		end, err := rd.read()
		if err != nil {
			return 0, err
		}

		if end != vm.ReaderListEnd {
			return 0, fmt.Errorf("%w: invalid dotted-pair form", vm.ErrParse)
		}

		return tail, nil
	}

	rest, err := rd.readList()
	if err != nil {
		return 0, err
	}

	return rd.interp.Cons(x, rest)
}

// readLambdaShortForm implements `| params... body`: atoms are collected as parameters until a
// list form is read, which becomes the (single-expression) body. A dot introduces a rest
// parameter the same way the reader's list syntax does.
func (rd *Reader) readLambdaShortForm() (vm.Any, error) {
	params, body, err := rd.lambdaParams()
	if err != nil {
		return 0, err
	}

	bodyList, err := rd.interp.Cons(body, vm.Nil)
	if err != nil {
		return 0, err
	}

	argsPair, err := rd.interp.Cons(params, bodyList)
	if err != nil {
		return 0, err
	}

	return rd.interp.Cons(rd.sLambda, argsPair)
}

func (rd *Reader) lambdaParams() (params vm.Any, body vm.Any, err error) {
	x, err := rd.read()
	if err != nil {
		return 0, 0, err
	}

	switch {
	case vm.IsTagged(x, vm.TagCons):
		return vm.Nil, x, nil

	case x == rd.sDot:
		rest, err := rd.read()
		if err != nil {
			return 0, 0, err
		}

		body, err := rd.read()
		if err != nil {
			return 0, 0, err
		}

		return rest, body, nil

	case vm.IsNil(x):
		return 0, 0, fmt.Errorf("%w: empty body expression not allowed in lambda short form", vm.ErrParse)

	case x == vm.EOF:
		return 0, 0, fmt.Errorf("%w: end of file in lambda short form", vm.ErrParse)
	}

	restParams, body, err := rd.lambdaParams()
	if err != nil {
		return 0, 0, err
	}

	cell, err := rd.interp.Cons(x, restParams)
	if err != nil {
		return 0, 0, err
	}

	return cell, body, nil
}

// readString reads a `"`-delimited literal, honoring the \\, \', \", \n, \t escapes.
func (rd *Reader) readString() (vm.Any, error) {
	var buf []byte

	for {
		c, err := rd.nextByte()
		if err != nil {
			return 0, err
		}

		switch c {
		case '"':
			return rd.interp.Active().NewString(string(buf))
		case eof:
			return 0, fmt.Errorf("%w: end of file inside of a string", vm.ErrParse)
		case '\\':
			e, err := rd.nextByte()
			if err != nil {
				return 0, err
			}

			switch e {
			case '\\', '\'', '"':
				c = e
			case 'n':
				c = '\n'
			case 't':
				c = '\t'
			case eof:
				return 0, fmt.Errorf("%w: end of file after backslash in a string", vm.ErrParse)
			default:
				return 0, fmt.Errorf("%w: invalid character after backslash in a string", vm.ErrParse)
			}
		}

		buf = append(buf, byte(c))
	}
}

// symChars is the printable-ASCII table allowed_chars computes in the original implementation:
// '!'..'~' (33-126) minus the punctuation the reader reserves for its own syntax.
var symChars = buildSymChars()

func buildSymChars() [256]bool {
	var t [256]bool
	for c := 33; c < 127; c++ {
		t[c] = true
	}

	for _, c := range []byte(` "#'(),@;[]` + "`" + `{}|`) {
		t[c] = false
	}

	return t
}

func isSymChar(c int) bool {
	if c < 0 || c > 255 {
		return c != eof
	}

	return symChars[c]
}

// readSymOrNumber collects a run of symbol characters starting with c (already consumed by
// findToken) and attempts a number parse before falling back to interning it as a symbol.
func (rd *Reader) readSymOrNumber(c int) (vm.Any, error) {
	buf := []byte{byte(c)}

	for {
		peek, err := rd.peekByte()
		if err != nil {
			return 0, err
		}

		if !isSymChar(peek) {
			break
		}

		if _, err := rd.nextByte(); err != nil {
			return 0, err
		}

		buf = append(buf, byte(peek))
	}

	if n, ok := parseNumber(buf); ok {
		return n, nil
	}

	return rd.interp.Intern(string(buf))
}

// parseNumber implements chars2num: an optional leading sign followed by one or more digits.
// "", "+", and "-" are not numbers.
func parseNumber(chars []byte) (vm.Any, bool) {
	var (
		sign  int32 = 1
		value int32
		isNum bool
	)

	for i, c := range chars {
		dig := int32(c) - '0'

		if dig < 0 || dig > 9 {
			if i != 0 {
				return 0, false
			}

			switch c {
			case '-':
				sign = -1
				continue
			case '+':
				continue
			default:
				return 0, false
			}
		}

		isNum = true
		value = value*10 + dig
	}

	if !isNum {
		return 0, false
	}

	return vm.OfInt(sign * value), true
}
