/*
Package vm implements the runtime for bone, a small region-allocated Lisp.

With the teacher project in mind, the design of this virtual machine mimics the shape of a
fetch-decode-execute CPU even though there's no hardware underneath: a bytecode dispatch loop reads
one instruction at a time from a sub's code, decodes its operands, and executes it against the
interpreter's registers and stacks. Where the teacher had a CPU with general-purpose registers and
memory-mapped devices, this package has an accumulator, a call stack, and a memory manager built from
mmap'd pages.

# Values #

Every runtime value is a single 64-bit word (an Any) carrying a 3-bit type tag in its low bits. Tags
classify the word as a pair, a symbol, a sentinel, a string, a region handle, a sub(routine), a
number, or a reserved eighth case. Heap-resident values — pairs, strings, symbols, subs — are
addresses into region-managed memory, always 8-byte aligned so the tag bits are free to use; they
are read and written with unsafe.Pointer arithmetic over byte slices returned by mmap, exactly the
way the teacher's memory controller mediates access to the LC-3's address space.

# Regions #

There is no garbage collector. Instead, there is a stack of regions, each a chain of fixed-size,
mmap'd blocks, pushed and popped explicitly by the caller (Push, Pop, FreeRegion). The call protocol
does not push a region of its own: calls and let bindings allocate in whichever region is active.
Freeing a region returns its blocks to a process-wide cache in one pass; nothing is traced, and
nothing can form a cycle because allocation is strictly append-only.

# Virtual machine #

The VM executes a flat instruction vector per sub, using an accumulator register (lastValue), a call
stack of bounded depth, and a second "upcoming call" stack for in-progress argument assembly. Tail
calls reuse the current call-stack frame rather than growing it, so tail-recursive bone programs run
in bounded native stack space.
*/
package vm
