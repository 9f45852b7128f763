package reader_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/xyproto/bone/internal/printer"
	"github.com/xyproto/bone/internal/reader"
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

func readOne(t *testing.T, in *vm.Interp, src string) vm.Any {
	t.Helper()

	rd, err := reader.New(in, strings.NewReader(src))
	if err != nil {
		t.Fatalf("reader.New: %s", err)
	}

	v, err := rd.Read()
	if err != nil {
		t.Fatalf("Read(%q): %s", src, err)
	}

	return v
}

func printed(t *testing.T, in *vm.Interp, v vm.Any) string {
	t.Helper()

	p, err := printer.New(in)
	if err != nil {
		t.Fatalf("printer.New: %s", err)
	}

	return p.Sprint(v)
}

func TestReadNumber(t *testing.T) {
	in := newInterp(t)

	for _, tc := range []struct {
		src  string
		want int32
	}{
		{"42", 42},
		{"-7", -7},
		{"+3", 3},
		{"0", 0},
	} {
		got := readOne(t, in, tc.src)
		if err := vm.Check(got, vm.TagNum); err != nil {
			t.Fatalf("Read(%q): %s", tc.src, err)
		}

		if vm.IntOf(got) != tc.want {
			t.Errorf("Read(%q) = %d, want %d", tc.src, vm.IntOf(got), tc.want)
		}
	}
}

func TestReadSymbol(t *testing.T) {
	in := newInterp(t)

	got := readOne(t, in, "hello-world?")
	if err := vm.Check(got, vm.TagSym); err != nil {
		t.Fatalf("Read: %s", err)
	}

	if vm.Symtext(got) != "hello-world?" {
		t.Errorf("Symtext = %q, want %q", vm.Symtext(got), "hello-world?")
	}
}

func TestReadSignOnlySymbol(t *testing.T) {
	in := newInterp(t)

	got := readOne(t, in, "-")
	if err := vm.Check(got, vm.TagSym); err != nil {
		t.Fatalf("bare '-' should read as a symbol, not a number: %s", err)
	}
}

func TestReadList(t *testing.T) {
	in := newInterp(t)

	got := readOne(t, in, "(1 2 3)")
	if got := printed(t, in, got); got != "(1 2 3)" {
		t.Errorf("got %q, want %q", got, "(1 2 3)")
	}
}

func TestReadDottedPair(t *testing.T) {
	in := newInterp(t)

	got := readOne(t, in, "(1 . 2)")
	if got := printed(t, in, got); got != "(1 . 2)" {
		t.Errorf("got %q, want %q", got, "(1 . 2)")
	}
}

func TestReadString(t *testing.T) {
	in := newInterp(t)

	got := readOne(t, in, `"hello\nworld"`)
	if err := vm.Check(got, vm.TagStr); err != nil {
		t.Fatalf("Read: %s", err)
	}

	if got := string(vm.StringBytes(got)); got != "hello\nworld" {
		t.Errorf("got %q, want %q", got, "hello\nworld")
	}
}

func TestReadQuoteFamily(t *testing.T) {
	in := newInterp(t)

	for _, tc := range []struct{ src, want string }{
		{"'x", "'x"},
		{"`x", "`x"},
		{",x", ",x"},
		{",@x", ",@x"},
	} {
		got := readOne(t, in, tc.src)
		if got := printed(t, in, got); got != tc.want {
			t.Errorf("Read(%q) printed as %q, want %q", tc.src, got, tc.want)
		}
	}
}

func TestReadLambdaShortForm(t *testing.T) {
	in := newInterp(t)

	got := readOne(t, in, "|x (+ x 1)")
	want := "| x (+ x 1)"

	if got := printed(t, in, got); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestReadEOF(t *testing.T) {
	in := newInterp(t)

	rd, err := reader.New(in, strings.NewReader("   "))
	if err != nil {
		t.Fatalf("reader.New: %s", err)
	}

	v, err := rd.Read()
	if err != nil {
		t.Fatalf("Read: %s", err)
	}

	if v != vm.EOF {
		t.Errorf("Read on blank input = %#v, want vm.EOF", v)
	}
}

func TestReadStrayCloseParen(t *testing.T) {
	in := newInterp(t)

	rd, err := reader.New(in, strings.NewReader(")"))
	if err != nil {
		t.Fatalf("reader.New: %s", err)
	}

	_, err = rd.Read()
	if !errors.Is(err, vm.ErrParse) {
		t.Errorf("Read(\")\") error = %v, want vm.ErrParse", err)
	}
}

func TestReadSkipsComments(t *testing.T) {
	in := newInterp(t)

	got := readOne(t, in, "; a comment\n42")
	if vm.IntOf(got) != 42 {
		t.Errorf("got %d, want 42", vm.IntOf(got))
	}
}

func TestReadHashLiterals(t *testing.T) {
	in := newInterp(t)

	if got := readOne(t, in, "#t"); got != vm.True {
		t.Errorf("Read(#t) = %#v, want vm.True", got)
	}

	if got := readOne(t, in, "#f"); got != vm.False {
		t.Errorf("Read(#f) = %#v, want vm.False", got)
	}
}
