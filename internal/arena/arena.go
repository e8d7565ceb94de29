// Package arena provides the allocator behind the skiplist. Records are
// immutable and never deleted, so the allocator never frees anything
// individually: it is a single position moving forward through one
// contiguous region, and the whole region goes back to the OS at once
// when the store shuts down.
package arena

import (
	"errors"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

var ErrArenaFull = errors.New("allocation failed because arena is full")

// Arena hands out offsets into its region rather than pointers; an offset
// fits in one word, which is what lets the skiplist publish links with a
// single atomic store. Offset zero is reserved as the arena's nil.
type Arena struct {
	position atomic.Uintptr
	buffer   []byte
	mapped   bool
	closed   sync.Once
}

// New returns an arena with capacity usable bytes plus a reserve tail.
// The reserve absorbs the declared-unused tail of boundary allocations
// (see Allocate); the skiplist sizes it for its truncated node towers.
//
// The region is mapped anonymously from the OS so the records it holds
// never burden the garbage collector, and pages are only faulted in as
// the position reaches them. If the kernel refuses the mapping the arena
// falls back to a heap slice.
func New(capacity, reserve uint) *Arena {
	a := &Arena{mapped: true}

	// Offset 0 is the arena's nil.
	a.position.Store(1)

	// Round the mapping up to whole pages; a partial page would be
	// consumed anyway.
	pageSize := uint(unix.Getpagesize())
	size := (capacity + reserve + pageSize - 1) &^ (pageSize - 1)

	buf, err := unix.Mmap(-1, 0, int(size),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANON|unix.MAP_PRIVATE,
	)
	if err != nil {
		buf = make([]byte, size)
		a.mapped = false
	}
	a.buffer = buf

	return a
}

// Allocate reserves size bytes at the given alignment and returns their
// offset. The caller may declare that an object cast over the allocation
// extends unused bytes past its end without those bytes ever being
// accessed; the bound below keeps that extent inside the buffer, which is
// what the reserve tail passed to New is for.
//
// The position advances by CAS. The store's executor is the only writer
// in deployment, so the loop is uncontended there; it stays a CAS so the
// skiplist's insert path is still correct when tests drive it from many
// goroutines.
func (a *Arena) Allocate(size, unused, alignment uint) (uint, error) {
	for {
		position := uint(a.position.Load())
		offset := (position + alignment - 1) &^ (alignment - 1)
		end := offset + size
		if end+unused > uint(len(a.buffer)) {
			return 0, ErrArenaFull
		}
		if a.position.CompareAndSwap(uintptr(position), uintptr(end)) {
			return offset, nil
		}
	}
}

// Bytes returns the allocation at offset as a slice whose capacity is
// capped at size, so the caller cannot write into a neighboring
// allocation. Offset zero yields nil.
func (a *Arena) Bytes(offset, size uint) []byte {
	if offset == 0 {
		return nil
	}
	return a.buffer[offset : offset+size : offset+size]
}

// Pointer turns an offset back into an address. Offset zero is nil.
func (a *Arena) Pointer(offset uint) unsafe.Pointer {
	if offset == 0 {
		return nil
	}
	return unsafe.Pointer(&a.buffer[offset])
}

// Offset is the inverse of Pointer.
func (a *Arena) Offset(ptr unsafe.Pointer) uint {
	if ptr == nil {
		return 0
	}
	return uint(uintptr(ptr) - uintptr(unsafe.Pointer(&a.buffer[0])))
}

// Size returns the number of bytes handed out so far.
func (a *Arena) Size() uint {
	return uint(a.position.Load()) - 1
}

// Close returns the region to the OS. Every offset and pointer into the
// arena is invalid afterwards.
func (a *Arena) Close() error {
	var err error
	a.closed.Do(func() {
		if a.mapped {
			err = unix.Munmap(a.buffer)
		}
	})
	return err
}
