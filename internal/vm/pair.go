package vm

// pair.go implements pairs, proper/improper lists, and the precons protocol for O(n)
// left-to-right list construction. Strings are a thin wrapper over char-lists and live here too.

// cons bump-allocates a pair (car, cdr) in r.
func (r *Region) cons(a, d Any) (Any, error) {
	addr, err := r.Alloc(2)
	if err != nil {
		return 0, err
	}

	writeWord(addr, a)
	writeWord(addr+wordSize, d)

	return TagAddr(addr, TagCons), nil
}

// Cons is the exported entry point used by the reader, the cons and print primitives, and tests: it
// allocates in the active region.
func (in *Interp) Cons(a, d Any) (Any, error) {
	return in.Active().cons(a, d)
}

// Precons allocates a pair with only the car set; the cdr is left to be finalized by SetCdr. This
// is the protocol BuildList and the VM's ADD_ARG rest-list assembly use to build lists in place,
// one element at a time, without revisiting earlier cells.
func (r *Region) Precons(a Any) (Any, error) {
	addr, err := r.Alloc(2)
	if err != nil {
		return 0, err
	}

	writeWord(addr, a)

	return TagAddr(addr, TagCons), nil
}

// Car returns the car of a pair. The caller must have already checked the tag (see CheckedCar);
// Car itself does not, matching the reader/compiler's unchecked inner loops.
func Car(v Any) Any { return readWord(Addr(v)) }

// Cdr returns the cdr of a pair.
func Cdr(v Any) Any { return readWord(Addr(v) + wordSize) }

// SetCar mutates the car slot. Nothing in the interpreter calls it; ordinary list values are
// immutable once constructed.
func SetCar(v Any, a Any) { writeWord(Addr(v), a) }

// SetCdr mutates the cdr slot.
func SetCdr(v Any, d Any) { writeWord(Addr(v)+wordSize, d) }

// CheckedCar returns the car of v, failing with a type error if v is not a pair. car(nil) fails:
// the empty list is a uniq sentinel, not a cons cell.
func CheckedCar(v Any) (Any, error) {
	if err := Check(v, TagCons); err != nil {
		return 0, err
	}

	return Car(v), nil
}

// CheckedCdr returns the cdr of v, failing with a type error if v is not a pair.
func CheckedCdr(v Any) (Any, error) {
	if err := Check(v, TagCons); err != nil {
		return 0, err
	}

	return Cdr(v), nil
}

// Len counts pairs in v until it reaches a non-pair tail (including a well-formed nil terminator).
// len(nil) == 0; an improper list's tail is not counted.
func Len(v Any) int {
	n := 0

	for IsTagged(v, TagCons) {
		n++
		v = Cdr(v)
	}

	return n
}

// Assoc linearly scans alist, a list of (key . value) pairs, for an entry whose key is bitwise
// equal to key. It returns the matching value, or #f if none is found.
func Assoc(key, alist Any) Any {
	for IsTagged(alist, TagCons) {
		entry := Car(alist)
		if IsTagged(entry, TagCons) && Car(entry) == key {
			return Cdr(entry)
		}

		alist = Cdr(alist)
	}

	return False
}

// BuildList constructs a proper list from items using the precons protocol: O(n), one pass,
// never revisiting an earlier cell.
func (r *Region) BuildList(items []Any) (Any, error) {
	if len(items) == 0 {
		return Nil, nil
	}

	head, err := r.Precons(items[0])
	if err != nil {
		return 0, err
	}

	tail := head

	for _, it := range items[1:] {
		cell, err := r.Precons(it)
		if err != nil {
			return 0, err
		}

		SetCdr(tail, cell)
		tail = cell
	}

	SetCdr(tail, Nil)

	return head, nil
}

// Elements collects a proper list's elements into a Go slice, stopping at the first non-pair
// tail (so it also tolerates improper lists, silently dropping the tail).
func Elements(v Any) []Any {
	var out []Any

	for IsTagged(v, TagCons) {
		out = append(out, Car(v))
		v = Cdr(v)
	}

	return out
}

// --- strings -----------------------------------------------------------------

// stringOfChars tags a char-list as a string.
func (r *Region) stringOfChars(chars Any) (Any, error) {
	addr, err := r.Alloc(1)
	if err != nil {
		return 0, err
	}

	writeWord(addr, chars)

	return TagAddr(addr, TagStr), nil
}

// Unstring extracts the underlying char-list from a string.
func Unstring(v Any) Any { return readWord(Addr(v)) }

// listFromBytes builds a char-list from raw bytes, each byte becoming a number value.
func (r *Region) listFromBytes(b []byte) (Any, error) {
	items := make([]Any, len(b))
	for i, c := range b {
		items[i] = OfInt(int32(c))
	}

	return r.BuildList(items)
}

// bytesFromList collects a char-list's codepoints back into bytes, for symbol interning and
// string<->[]byte conversion. Codepoints are taken modulo 256: this implementation treats
// strings as byte sequences, matching bone's "no Unicode normalization" non-goal.
func bytesFromList(v Any) []byte {
	var buf []byte

	for IsTagged(v, TagCons) {
		buf = append(buf, byte(IntOf(Car(v))))
		v = Cdr(v)
	}

	return buf
}

// NewString allocates a string containing the bytes of s in r.
func (r *Region) NewString(s string) (Any, error) {
	chars, err := r.listFromBytes([]byte(s))
	if err != nil {
		return 0, err
	}

	return r.stringOfChars(chars)
}

// StringBytes returns the raw bytes of a string value. The caller must have checked the tag.
func StringBytes(v Any) []byte {
	return bytesFromList(Unstring(v))
}

// String reports the Go string contents of a string value.
func String(v Any) string {
	return string(StringBytes(v))
}
