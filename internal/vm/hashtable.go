package vm

// hashtable.go implements the open-addressed hash table shared by the symbol table and the
// bindings registry. Unlike pairs and strings, tables are interpreter-internal bookkeeping, never
// referenced from user code, so they live as ordinary Go slices rather than region memory.

const (
	initialTableCap       = 17 // small odd starting capacity; grows by 2n+1 on rehash
	loadFactorNumerator   = 175
	loadFactorDenominator = 256
)

// HashTable is an open-addressed table with linear probing. Keys are compared bitwise; slot state
// is encoded in the key itself via the HashUnused and HashDeleted sentinels.
type HashTable struct {
	keys   []Any
	values []Any
	count  int
	deflt  Any
}

// NewHashTable creates an empty table whose Get returns deflt for absent keys.
func NewHashTable(deflt Any) *HashTable {
	return &HashTable{
		keys:   newSlots(initialTableCap),
		values: make([]Any, initialTableCap),
		deflt:  deflt,
	}
}

func newSlots(n int) []Any {
	s := make([]Any, n)
	for i := range s {
		s[i] = HashUnused
	}

	return s
}

// findSlot starts at key mod capacity and probes linearly: a matching key is a hit; an unused slot
// is a miss, returning the first deleted slot seen (if any) as the insertion point; a deleted slot
// is remembered and probing continues.
func (h *HashTable) findSlot(key Any) (idx int, found bool) {
	cap := len(h.keys)
	start := int(uint64(key) % uint64(cap))
	deletedIdx := -1

	for i := 0; i < cap; i++ {
		slot := (start + i) % cap

		switch h.keys[slot] {
		case HashUnused:
			if deletedIdx >= 0 {
				return deletedIdx, false
			}

			return slot, false
		case HashDeleted:
			if deletedIdx < 0 {
				deletedIdx = slot
			}
		default:
			if h.keys[slot] == key {
				return slot, true
			}
		}
	}

	return deletedIdx, false
}

// Lookup reports the value stored under key and whether it was present.
func (h *HashTable) Lookup(key Any) (Any, bool) {
	idx, found := h.findSlot(key)
	if !found {
		return h.deflt, false
	}

	return h.values[idx], true
}

// Get returns the value stored under key, or the table's default if absent.
func (h *HashTable) Get(key Any) Any {
	v, _ := h.Lookup(key)
	return v
}

// Set stores val under key, rehashing first if the insertion would exceed the load factor.
func (h *HashTable) Set(key, val Any) {
	if (h.count+1)*loadFactorDenominator > len(h.keys)*loadFactorNumerator {
		h.rehash(2*len(h.keys) + 1)
	}

	idx, found := h.findSlot(key)
	if !found {
		h.count++
	}

	h.keys[idx] = key
	h.values[idx] = val
}

// Delete removes key, marking its slot as a tombstone so later probes still find keys beyond it.
func (h *HashTable) Delete(key Any) {
	idx, found := h.findSlot(key)
	if !found {
		return
	}

	h.keys[idx] = HashDeleted
	h.values[idx] = h.deflt
	h.count--
}

// Count reports the number of live entries.
func (h *HashTable) Count() int { return h.count }

func (h *HashTable) rehash(newCap int) {
	oldKeys, oldValues := h.keys, h.values

	h.keys = newSlots(newCap)
	h.values = make([]Any, newCap)
	h.count = 0

	for i, k := range oldKeys {
		if k != HashUnused && k != HashDeleted {
			h.Set(k, oldValues[i])
		}
	}
}
