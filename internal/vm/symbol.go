package vm

// symbol.go implements symbol interning: a process-wide table from djb2 hash to the address of a
// canonical, NUL-terminated byte sequence allocated in the permanent region.

import "bytes"

// djb2 is Dan Bernstein's string hash, used as the symbol table's key.
func djb2(b []byte) uint32 {
	var h uint32 = 5381
	for _, c := range b {
		h = h*33 + uint32(c)
	}

	return h
}

// Intern canonicalizes name, returning a sym-tagged value such that textually equal names always
// produce the same value.
func (in *Interp) Intern(name string) (Any, error) {
	return in.intern([]byte(name))
}

// InternChars interns the byte sequence held by a char-list, the form symbols are read and
// printed through.
func (in *Interp) InternChars(chars Any) (Any, error) {
	return in.intern(bytesFromList(chars))
}

func (in *Interp) intern(name []byte) (Any, error) {
	key := Any(djb2(name))

	for {
		existing, found := in.symtab.Lookup(key)
		if !found {
			sym, err := in.newSymbol(name)
			if err != nil {
				return 0, err
			}

			in.symtab.Set(key, sym)

			return sym, nil
		}

		if bytes.Equal(symtextBytes(existing), name) {
			return existing, nil
		}

		// Same hash, different text: the symbol table never learns about string contents, so it
		// disambiguates by walking the host table's key forward and retrying.
		key++
	}
}

// newSymbol copies name plus a terminating NUL into the permanent region and tags the result.
func (in *Interp) newSymbol(name []byte) (Any, error) {
	if err := in.PushPermanent(); err != nil {
		return 0, err
	}
	defer in.PopPermanent()

	r := in.Active()

	addr, err := r.AllocBytes(len(name) + 1)
	if err != nil {
		return 0, err
	}

	for i, c := range name {
		writeByte(addr+uintptr(i), c)
	}

	writeByte(addr+uintptr(len(name)), 0)

	return TagAddr(addr, TagSym), nil
}

// symtextBytes reads a symbol's NUL-terminated byte sequence.
func symtextBytes(sym Any) []byte {
	addr := Addr(sym)

	n := 0
	for readByte(addr+uintptr(n)) != 0 {
		n++
	}

	return bytesAt(addr, n)
}

// Symtext returns a symbol's text as a Go string.
func Symtext(sym Any) string {
	return string(symtextBytes(sym))
}
