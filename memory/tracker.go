package memory

import (
	cbridge "github.com/wippyai/cbridge"
	"github.com/wippyai/cbridge/errors"
)

// Tracker allocates buffers from an address space and tracks every live
// buffer so pointers can be mapped back to the allocation they point
// into. It belongs to a single environment and is driven by one logical
// thread of control.
type Tracker struct {
	space cbridge.AddressSpace
	live  map[uint64]*Buffer // keyed by start address
}

func NewTracker(space cbridge.AddressSpace) *Tracker {
	return &Tracker{
		space: space,
		live:  make(map[uint64]*Buffer),
	}
}

// Space returns the underlying address space.
func (t *Tracker) Space() cbridge.AddressSpace { return t.space }

// Allocate reserves size bytes of owned, zeroed native memory. The
// returned buffer starts with one owning reference.
func (t *Tracker) Allocate(size uint32) (*Buffer, error) {
	if size == 0 {
		size = 1 // distinct address for zero-sized objects
	}
	addr, err := t.space.Alloc(size)
	if err != nil {
		return nil, errors.AllocationFailed(size, err)
	}
	b := &Buffer{tracker: t, addr: addr, size: size, owned: true, refs: 1}
	t.live[addr] = b
	return b, nil
}

// Wrap adopts externally managed memory as a borrowed buffer. The same
// address wraps to the same buffer while it stays live.
func (t *Tracker) Wrap(addr uint64, size uint32) *Buffer {
	if b, ok := t.live[addr]; ok && b.size >= size {
		return b.Retain()
	}
	b := &Buffer{tracker: t, addr: addr, size: size, refs: 1}
	t.live[addr] = b
	return b
}

// Find locates the live buffer containing addr and the offset within it.
func (t *Tracker) Find(addr uint64) (Location, bool) {
	for _, b := range t.live {
		if b.Contains(addr) {
			return Location{Buf: b, Off: uint32(addr - b.addr)}, true
		}
	}
	return Location{}, false
}

// LiveCount reports the number of tracked buffers, for leak checks.
func (t *Tracker) LiveCount() int { return len(t.live) }

// Close releases every still-live buffer. Owned buffers are freed;
// borrowed wrappers are dropped.
func (t *Tracker) Close() error {
	var firstErr error
	for _, b := range t.live {
		b.refs = 1 // force the final reference
		if err := b.Release(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (t *Tracker) forget(b *Buffer) {
	if t.live[b.addr] == b {
		delete(t.live, b.addr)
	}
}
