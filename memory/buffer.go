package memory

import (
	"github.com/wippyai/cbridge/errors"
)

// Releasable is implemented by values a Buffer can pin: the pin is
// released when the buffer's last owning reference goes away.
type Releasable interface {
	Release() error
}

// Buffer is contiguous raw storage in the native address space. An owned
// buffer was allocated by the tracker and is freed exactly once when its
// owning-reference count reaches zero. A borrowed buffer wraps externally
// managed memory (a loaded module's global) and is never freed here.
type Buffer struct {
	tracker  *Tracker
	addr     uint64
	size     uint32
	owned    bool
	refs     int
	released bool
	pins     []Releasable
}

func (b *Buffer) Addr() uint64 { return b.addr }

func (b *Buffer) Size() uint32 { return b.size }

func (b *Buffer) Owned() bool { return b.owned }

func (b *Buffer) Released() bool { return b.released }

// Contains reports whether addr falls inside the buffer's extent.
func (b *Buffer) Contains(addr uint64) bool {
	return addr >= b.addr && addr < b.addr+uint64(b.size)
}

// Retain adds an owning reference.
func (b *Buffer) Retain() *Buffer {
	b.refs++
	return b
}

// Release drops an owning reference. When the count reaches zero an owned
// buffer is freed (exactly once) and every pinned dependency is released.
func (b *Buffer) Release() error {
	if b.released {
		return errors.InvalidInput(errors.PhaseAccess, "buffer released twice")
	}
	b.refs--
	if b.refs > 0 {
		return nil
	}

	b.released = true
	b.tracker.forget(b)
	if b.owned {
		b.tracker.space.Free(b.addr)
	}

	var firstErr error
	for _, pin := range b.pins {
		// Tracker.Close sweeps in map order, so a pinned dependency may
		// already be gone when its owner goes.
		if dep, ok := pin.(*Buffer); ok && dep.released {
			continue
		}
		if err := pin.Release(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	b.pins = nil
	return firstErr
}

// Pin keeps dep alive for as long as this buffer is. Taking the address
// of a value pins the value's buffer to the pointer cell, so an object
// about to be auto-released stays reachable through the derived pointer.
func (b *Buffer) Pin(dep Releasable) {
	b.pins = append(b.pins, dep)
}

// Location is an offset into a Buffer. Locations derived from member or
// element access keep a non-owning reference to the parent buffer, never
// separate ownership.
type Location struct {
	Buf *Buffer
	Off uint32
}

func (l Location) Addr() uint64 { return l.Buf.addr + uint64(l.Off) }

// Add derives a location deeper into the same buffer.
func (l Location) Add(delta uint32) Location {
	return Location{Buf: l.Buf, Off: l.Off + delta}
}

// CheckExtent fails when [Off, Off+size) leaves the buffer. Navigation
// uses it everywhere except the explicit unsafe pointer-arithmetic path.
func (l Location) CheckExtent(size uint32) error {
	if uint64(l.Off)+uint64(size) > uint64(l.Buf.size) {
		return errors.New(errors.PhaseAccess, errors.KindOutOfBounds).
			Detail("offset %d size %d exceeds buffer of %d bytes", l.Off, size, l.Buf.size).
			Build()
	}
	return nil
}
