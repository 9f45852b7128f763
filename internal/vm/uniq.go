package vm

// uniq.go defines the process-wide sentinel values: nil, #t, #f, eof, and the handful of
// interpreter-internal markers used by the reader, hash table, and bindings registry.

// Sentinel payload identifiers, packed into the high bits of a TagUniq value. Each is
// process-wide and distinguishable from every other sentinel and from any heap pointer.
const (
	uniqNil uint64 = iota
	uniqTrue
	uniqFalse
	uniqEOF
	uniqUnspecified
	uniqHashUnused
	uniqHashDeleted
	uniqReaderListEnd
	uniqBindingDefined
	uniqBindingDeclared
)

func uniq(id uint64) Any { return Any(id<<tagBits | uint64(TagUniq)) }

// User-visible sentinels.
var (
	Nil         = uniq(uniqNil)         // The empty list, ().
	True        = uniq(uniqTrue)        // #t
	False       = uniq(uniqFalse)       // #f
	EOF         = uniq(uniqEOF)         // #{eof}
	Unspecified = uniq(uniqUnspecified) // the result of forms with no useful value, e.g. set!
)

// Interpreter-internal sentinels. These are never printed or read back; they mark slot states in
// the hash table, the end of a reader list, and binding status.
var (
	HashUnused      = uniq(uniqHashUnused)
	HashDeleted     = uniq(uniqHashDeleted)
	ReaderListEnd   = uniq(uniqReaderListEnd)
	BindingDefined  = uniq(uniqBindingDefined)
	BindingDeclared = uniq(uniqBindingDeclared)
)

// IsNil reports whether v is the empty list.
func IsNil(v Any) bool { return v == Nil }
