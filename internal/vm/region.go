package vm

// region.go implements the region-based memory manager: an mmap-backed block pool, a stack of
// live regions, and bump allocation within the active region. There is no garbage collector; a
// region's entire block chain is released in one pass when its scope exits.

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	wordSize       = 8    // bytes per Any
	blockSize      = 4096 // bytes per block; assumed to exceed any single allocation
	blockBatch     = 16   // blocks requested from the OS per mmap call
	regionStackCap = 64   // minimum capacity required by spec
)

// block is one fixed-size page of memory obtained from the OS via anonymous mmap. Blocks are
// threaded onto either the process-wide free list or a region's allocation chain via next; the
// link occupies no separate word, since next is a plain Go pointer instead of an in-band word the
// way the original C implementation embeds it.
type block struct {
	mem  []byte
	base uintptr
	next *block
}

// newBlockBatch mmaps blockBatch pages in one syscall and slices them into individual blocks,
// threaded into a singly-linked list via next — the free list described in spec.md §4.2.
func newBlockBatch() (*block, error) {
	size := blockSize * blockBatch

	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("region: mmap: %w", err)
	}

	var head, tail *block

	for i := 0; i < blockBatch; i++ {
		b := &block{mem: mem[i*blockSize : (i+1)*blockSize]}
		b.base = uintptr(unsafe.Pointer(&b.mem[0]))

		if head == nil {
			head = b
		} else {
			tail.next = b
		}

		tail = b
	}

	return head, nil
}

// getBlock pops a block off the process-wide free list, refilling it with a fresh mmap batch when
// empty.
func (in *Interp) getBlock() (*block, error) {
	if in.blockFree == nil {
		batch, err := newBlockBatch()
		if err != nil {
			return nil, err
		}

		in.blockFree = batch
	}

	b := in.blockFree
	in.blockFree = b.next
	b.next = nil

	return b, nil
}

// putBlock returns a single block to the free list. Freeing a whole chain is a loop of putBlock
// calls, giving the O(chain length) release spec.md requires.
func (in *Interp) putBlock(b *block) {
	b.next = in.blockFree
	in.blockFree = b
}

// Region is a scope-disciplined arena: a chain of blocks plus a bump pointer into the current
// (most recently allocated) block. Allocation never frees individual objects; the whole chain is
// released at once when the region's scope exits.
type Region struct {
	interp *Interp
	head   *block
	cur    *block
	bump   uintptr
	limit  uintptr
}

// NewRegion allocates a fresh region with one block. It does not push the region onto the active
// stack; callers do that with Push.
func (in *Interp) NewRegion() (*Region, error) {
	b, err := in.getBlock()
	if err != nil {
		return nil, err
	}

	return &Region{
		interp: in,
		head:   b,
		cur:    b,
		bump:   b.base,
		limit:  b.base + blockSize,
	}, nil
}

// Alloc bump-allocates n words in the region, taking a fresh block from the pool when the current
// one is exhausted. The returned address is 8-byte aligned, as every block base is.
func (r *Region) Alloc(n int) (uintptr, error) {
	size := uintptr(n) * wordSize

	if size > blockSize {
		return 0, fmt.Errorf("region: allocation of %d words exceeds block size", n)
	}

	if r.bump+size > r.limit {
		nb, err := r.interp.getBlock()
		if err != nil {
			return 0, err
		}

		r.cur.next = nb
		r.cur = nb
		r.bump = nb.base
		r.limit = nb.base + blockSize
	}

	addr := r.bump
	r.bump += size

	return addr, nil
}

// AllocBytes reserves n bytes (rounded up to a whole number of words, so the next allocation stays
// word-aligned) and returns the base address.
func (r *Region) AllocBytes(n int) (uintptr, error) {
	words := (n + wordSize - 1) / wordSize
	return r.Alloc(words)
}

// FreeRegion returns the region's entire block chain to the process-wide cache. No finalizers run; the
// memory is simply made available for reuse by the next NewRegion/Alloc.
func (in *Interp) FreeRegion(r *Region) {
	b := r.head

	for b != nil {
		next := b.next
		in.putBlock(b)
		b = next
	}

	r.head, r.cur = nil, nil
}

// --- word and byte access -------------------------------------------------

// readWord loads the Any stored at addr. addr must have been returned by Alloc (or an offset
// within such an allocation) on a region whose blocks are still live.
func readWord(addr uintptr) Any {
	return Any(*(*uint64)(unsafe.Pointer(addr))) //nolint:gosec
}

// writeWord stores v at addr.
func writeWord(addr uintptr, v Any) {
	*(*uint64)(unsafe.Pointer(addr)) = uint64(v) //nolint:gosec
}

// readByte loads a single byte at addr.
func readByte(addr uintptr) byte {
	return *(*byte)(unsafe.Pointer(addr)) //nolint:gosec
}

// writeByte stores a single byte at addr.
func writeByte(addr uintptr, b byte) {
	*(*byte)(unsafe.Pointer(addr)) = b //nolint:gosec
}

// bytesAt views n bytes starting at addr as a Go byte slice. The slice aliases region memory
// directly; callers must not retain it past the region's lifetime.
func bytesAt(addr uintptr, n int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), n) //nolint:gosec
}

// --- region stack ----------------------------------------------------------

// Push makes r the active region. It fails if the stack is already at its capacity.
func (in *Interp) Push(r *Region) error {
	if len(in.regionStack) >= regionStackCap {
		return fmt.Errorf("region: stack overflow (capacity %d)", regionStackCap)
	}

	in.regionStack = append(in.regionStack, r)

	return nil
}

// Pop removes and returns the active region, restoring the region beneath it to active. It does
// not free the popped region's blocks; call FreeRegion for that.
func (in *Interp) Pop() *Region {
	n := len(in.regionStack)
	r := in.regionStack[n-1]
	in.regionStack = in.regionStack[:n-1]

	return r
}

// Active returns the currently active region.
func (in *Interp) Active() *Region {
	return in.regionStack[len(in.regionStack)-1]
}

// PushPermanent makes the permanent region active, saving whatever was active before. Symbols,
// bindings, and compiled sub-code are allocated under this discipline: push permanent, allocate,
// pop.
func (in *Interp) PushPermanent() error {
	return in.Push(in.permanent)
}

// PopPermanent restores the region that was active before the matching PushPermanent.
func (in *Interp) PopPermanent() {
	in.Pop()
}
