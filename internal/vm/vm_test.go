package vm

// vm_test.go exercises the invariants and round-trips spec.md §8 calls out directly against the
// tagged-word representation, the region allocator, the hash table, and symbol interning.

import (
	"math"
	"testing"
)

func newTestInterp(t *testing.T) *Interp {
	t.Helper()

	in, err := New()
	if err != nil {
		t.Fatalf("New: %s", err)
	}

	return in
}

func TestTagRoundTrip(t *testing.T) {
	t.Parallel()

	in := newTestInterp(t)

	pair, err := in.Cons(OfInt(1), Nil)
	if err != nil {
		t.Fatalf("Cons: %s", err)
	}

	for _, tc := range []struct {
		name string
		v    Any
		tag  Tag
	}{
		{"cons", pair, TagCons},
		{"nil", Nil, TagUniq},
		{"true", True, TagUniq},
		{"num", OfInt(42), TagNum},
	} {
		if got := TagOf(tc.v); got != tc.tag {
			t.Errorf("%s: TagOf = %s, want %s", tc.name, got, tc.tag)
		}

		if !IsTagged(tc.v, tc.tag) {
			t.Errorf("%s: IsTagged(%s) = false, want true", tc.name, tc.tag)
		}
	}

	// tag(untag(v), tag_of(v)) == v for heap-tagged values.
	addr := Untag(pair)
	if got := TagAddr(addr, TagOf(pair)); got != pair {
		t.Errorf("TagAddr(Untag(v), TagOf(v)) = %#x, want %#x", got, pair)
	}
}

func TestIntRoundTrip(t *testing.T) {
	t.Parallel()

	cases := []int32{0, 1, -1, 42, -42, math.MaxInt32, math.MinInt32}

	for _, n := range cases {
		got := IntOf(OfInt(n))
		if got != n {
			t.Errorf("IntOf(OfInt(%d)) = %d, want %d", n, got, n)
		}
	}
}

func TestBoolOfTruthy(t *testing.T) {
	t.Parallel()

	if !Truthy(True) {
		t.Error("True is not truthy")
	}

	if Truthy(False) {
		t.Error("False is truthy")
	}

	if !Truthy(Nil) {
		t.Error("Nil (the empty list) must be truthy; only #f is false")
	}

	if BoolOf(true) != True || BoolOf(false) != False {
		t.Error("BoolOf does not map to the expected sentinels")
	}
}

func TestCheckTypeError(t *testing.T) {
	t.Parallel()

	err := Check(OfInt(1), TagCons)
	if err == nil {
		t.Fatal("Check: want type error, got nil")
	}

	typeErr, ok := err.(*ErrType)
	if !ok {
		t.Fatalf("Check: want *ErrType, got %T", err)
	}

	if typeErr.Want != TagCons {
		t.Errorf("ErrType.Want = %s, want %s", typeErr.Want, TagCons)
	}
}

func TestRegionPushPopRestoresActive(t *testing.T) {
	t.Parallel()

	in := newTestInterp(t)

	before := in.Active()

	inner, err := in.NewRegion()
	if err != nil {
		t.Fatalf("NewRegion: %s", err)
	}

	if err := in.Push(inner); err != nil {
		t.Fatalf("Push: %s", err)
	}

	if in.Active() != inner {
		t.Fatal("Active does not reflect the just-pushed region")
	}

	popped := in.Pop()
	if popped != inner {
		t.Fatalf("Pop returned %v, want the pushed region", popped)
	}

	if in.Active() != before {
		t.Fatal("pushing then popping a region did not restore the prior active region")
	}
}

func TestRegionAllocCrossesBlocks(t *testing.T) {
	t.Parallel()

	in := newTestInterp(t)
	r := in.Active()

	wordsPerBlock := blockSize / wordSize

	// Force at least one block rollover; every value must remain independently addressable.
	var cells []Any

	for i := 0; i < wordsPerBlock+4; i++ {
		v, err := r.cons(OfInt(int32(i)), Nil)
		if err != nil {
			t.Fatalf("cons #%d: %s", i, err)
		}

		cells = append(cells, v)
	}

	for i, v := range cells {
		if got := IntOf(Car(v)); got != int32(i) {
			t.Errorf("cell %d: car = %d, want %d", i, got, i)
		}
	}
}

func TestCopyEscapesInnerRegion(t *testing.T) {
	t.Parallel()

	in := newTestInterp(t)
	outer := in.Active()

	inner, err := in.NewRegion()
	if err != nil {
		t.Fatalf("NewRegion: %s", err)
	}

	if err := in.Push(inner); err != nil {
		t.Fatalf("Push: %s", err)
	}

	list, err := inner.BuildList([]Any{OfInt(1), OfInt(2), OfInt(3)})
	if err != nil {
		t.Fatalf("BuildList: %s", err)
	}

	copied, err := in.Copy(list, outer)
	if err != nil {
		t.Fatalf("Copy: %s", err)
	}

	in.Pop()
	in.FreeRegion(inner)

	got := Elements(copied)
	if len(got) != 3 {
		t.Fatalf("copied list has %d elements, want 3", len(got))
	}

	for i, want := range []int32{1, 2, 3} {
		if IntOf(got[i]) != want {
			t.Errorf("element %d = %d, want %d", i, IntOf(got[i]), want)
		}
	}
}

func TestCopyIdempotent(t *testing.T) {
	t.Parallel()

	in := newTestInterp(t)
	r := in.Active()

	list, err := r.BuildList([]Any{OfInt(1), OfInt(2)})
	if err != nil {
		t.Fatalf("BuildList: %s", err)
	}

	once, err := in.Copy(list, r)
	if err != nil {
		t.Fatalf("Copy: %s", err)
	}

	twice, err := in.Copy(once, r)
	if err != nil {
		t.Fatalf("Copy: %s", err)
	}

	a, b := Elements(once), Elements(twice)
	if len(a) != len(b) {
		t.Fatalf("copy(copy(v)) has different length: %d vs %d", len(a), len(b))
	}

	for i := range a {
		if IntOf(a[i]) != IntOf(b[i]) {
			t.Errorf("element %d differs after second copy: %d vs %d", i, IntOf(a[i]), IntOf(b[i]))
		}
	}
}

func TestLenBoundary(t *testing.T) {
	t.Parallel()

	in := newTestInterp(t)
	r := in.Active()

	if Len(Nil) != 0 {
		t.Errorf("Len(nil) = %d, want 0", Len(Nil))
	}

	proper, err := r.BuildList([]Any{OfInt(1), OfInt(2), OfInt(3)})
	if err != nil {
		t.Fatalf("BuildList: %s", err)
	}

	if Len(proper) != 3 {
		t.Errorf("Len(proper 3-list) = %d, want 3", Len(proper))
	}

	// Improper list: (1 2 . 3) counts the two pairs, not the dotted tail.
	tail, err := r.cons(OfInt(2), OfInt(3))
	if err != nil {
		t.Fatalf("cons: %s", err)
	}

	improper, err := r.cons(OfInt(1), tail)
	if err != nil {
		t.Fatalf("cons: %s", err)
	}

	if Len(improper) != 2 {
		t.Errorf("Len(improper) = %d, want 2", Len(improper))
	}

	if _, err := CheckedCar(Nil); err == nil {
		t.Error("CheckedCar(nil) should fail with a type error")
	}
}

func TestAssoc(t *testing.T) {
	t.Parallel()

	in := newTestInterp(t)
	r := in.Active()

	k1, err := in.Intern("a")
	if err != nil {
		t.Fatalf("Intern: %s", err)
	}

	k2, err := in.Intern("b")
	if err != nil {
		t.Fatalf("Intern: %s", err)
	}

	e1, err := r.cons(k1, OfInt(1))
	if err != nil {
		t.Fatalf("cons: %s", err)
	}

	e2, err := r.cons(k2, OfInt(2))
	if err != nil {
		t.Fatalf("cons: %s", err)
	}

	alist, err := r.BuildList([]Any{e1, e2})
	if err != nil {
		t.Fatalf("BuildList: %s", err)
	}

	if got := Assoc(k2, alist); IntOf(got) != 2 {
		t.Errorf("Assoc(b) = %v, want 2", got)
	}

	k3, err := in.Intern("c")
	if err != nil {
		t.Fatalf("Intern: %s", err)
	}

	if got := Assoc(k3, alist); got != False {
		t.Errorf("Assoc(missing) = %v, want #f", got)
	}
}

func TestInternIsIdempotentAndPointerEqual(t *testing.T) {
	t.Parallel()

	in := newTestInterp(t)

	s1, err := in.Intern("hello-world")
	if err != nil {
		t.Fatalf("Intern: %s", err)
	}

	s2, err := in.Intern("hello-world")
	if err != nil {
		t.Fatalf("Intern: %s", err)
	}

	if s1 != s2 {
		t.Fatalf("intern(S) != intern(S): %#x vs %#x", s1, s2)
	}

	if Symtext(s1) != "hello-world" {
		t.Errorf("Symtext = %q, want %q", Symtext(s1), "hello-world")
	}

	// intern(symtext(S)) == S
	s3, err := in.Intern(Symtext(s1))
	if err != nil {
		t.Fatalf("Intern: %s", err)
	}

	if s3 != s1 {
		t.Error("intern(symtext(S)) != S")
	}
}

func TestInternDistinctTextsDistinctSymbols(t *testing.T) {
	t.Parallel()

	in := newTestInterp(t)

	names := []string{"foo", "bar", "baz", "quux", "a", "b", "foo-bar-baz"}

	seen := map[Any]string{}

	for _, n := range names {
		sym, err := in.Intern(n)
		if err != nil {
			t.Fatalf("Intern(%q): %s", n, err)
		}

		if existing, ok := seen[sym]; ok && existing != n {
			t.Fatalf("symbols %q and %q collided on the same value", existing, n)
		}

		seen[sym] = n
	}

	for n, want := range map[string]string{"foo": "foo", "bar": "bar"} {
		sym, err := in.Intern(n)
		if err != nil {
			t.Fatalf("Intern: %s", err)
		}

		if Symtext(sym) != want {
			t.Errorf("Symtext(intern(%q)) = %q, want %q", n, Symtext(sym), want)
		}
	}
}

func TestHashTableSetGetDelete(t *testing.T) {
	t.Parallel()

	h := NewHashTable(False)

	h.Set(OfInt(1), OfInt(100))
	h.Set(OfInt(2), OfInt(200))

	if v := h.Get(OfInt(1)); IntOf(v) != 100 {
		t.Errorf("Get(1) = %v, want 100", v)
	}

	if v := h.Get(OfInt(3)); v != False {
		t.Errorf("Get(missing) = %v, want default #f", v)
	}

	h.Delete(OfInt(1))

	if v, found := h.Lookup(OfInt(1)); found {
		t.Errorf("Lookup(deleted key) = %v, found=true, want false", v)
	}

	// A tombstoned slot must not break lookups of keys beyond it in the probe sequence.
	if v := h.Get(OfInt(2)); IntOf(v) != 200 {
		t.Errorf("Get(2) after deleting 1 = %v, want 200", v)
	}
}

func TestHashTableLoadFactorAndRehash(t *testing.T) {
	t.Parallel()

	h := NewHashTable(Any(0))

	startCap := len(h.keys)

	// Number keys: raw small words could equal the HashUnused/HashDeleted slot markers.
	const n = 200
	for i := 0; i < n; i++ {
		h.Set(OfInt(int32(i)), Any(i*2))
	}

	if h.Count() != n {
		t.Fatalf("Count() = %d, want %d", h.Count(), n)
	}

	if cap := len(h.keys); cap*loadFactorNumerator < h.count*loadFactorDenominator {
		t.Fatalf("load factor exceeded 175/256: count=%d cap=%d", h.count, cap)
	}

	if len(h.keys) == startCap {
		t.Error("capacity never grew despite inserting well past the initial capacity")
	}

	for i := 0; i < n; i++ {
		if v := h.Get(OfInt(int32(i))); v != Any(i*2) {
			t.Errorf("Get(%d) = %v, want %d", i, v, i*2)
		}
	}
}

func TestHashTableRehashCapacityFormula(t *testing.T) {
	t.Parallel()

	h := NewHashTable(Any(0))
	oldCap := len(h.keys)

	h.rehash(2*oldCap + 1)

	if len(h.keys) != 2*oldCap+1 {
		t.Errorf("rehash capacity = %d, want %d", len(h.keys), 2*oldCap+1)
	}
}

func TestSymbolTableCollisionByKeyIncrement(t *testing.T) {
	t.Parallel()

	in := newTestInterp(t)

	placeholderName := "already-here"
	placeholder, err := in.Intern(placeholderName)
	if err != nil {
		t.Fatalf("Intern: %s", err)
	}

	// Force a hash collision: make a second, distinct name's djb2 key collide with the
	// already-interned placeholder's key, simulating two distinct names sharing a hash.
	name := "collide-me"
	key := Any(djb2([]byte(name)))
	in.symtab.Set(key, placeholder)

	sym, err := in.Intern(name)
	if err != nil {
		t.Fatalf("Intern: %s", err)
	}

	if TagOf(sym) != TagSym {
		t.Fatalf("Intern returned a non-symbol: %#x", sym)
	}

	if Symtext(sym) != name {
		t.Errorf("Symtext = %q, want %q", Symtext(sym), name)
	}

	if sym == placeholder {
		t.Fatal("collision handling returned the placeholder instead of a distinct symbol")
	}

	// The placeholder must still be reachable at the original key.
	if v, found := in.symtab.Lookup(key); !found || v != placeholder {
		t.Error("collision handling clobbered the original occupant instead of probing past it")
	}
}

func TestRegionStackCapacity(t *testing.T) {
	t.Parallel()

	in := newTestInterp(t)

	// One slot is already used by the permanent region pushed in New.
	for i := 1; i < regionStackCap; i++ {
		r, err := in.NewRegion()
		if err != nil {
			t.Fatalf("NewRegion #%d: %s", i, err)
		}

		if err := in.Push(r); err != nil {
			t.Fatalf("Push #%d: %s", i, err)
		}
	}

	extra, err := in.NewRegion()
	if err != nil {
		t.Fatalf("NewRegion: %s", err)
	}

	if err := in.Push(extra); err == nil {
		t.Error("Push beyond regionStackCap should fail")
	}
}

func TestStringRoundTrip(t *testing.T) {
	t.Parallel()

	in := newTestInterp(t)
	r := in.Active()

	s, err := r.NewString("hello")
	if err != nil {
		t.Fatalf("NewString: %s", err)
	}

	if err := Check(s, TagStr); err != nil {
		t.Fatalf("Check: %s", err)
	}

	if got := String(s); got != "hello" {
		t.Errorf("String = %q, want %q", got, "hello")
	}
}
