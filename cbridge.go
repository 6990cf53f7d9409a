package cbridge

import "errors"

// Memory is byte-addressable storage inside a native address space.
// Addresses are opaque to the core; only the owning AddressSpace can
// interpret them.
type Memory interface {
	Read(addr uint64, length uint32) ([]byte, error)
	Write(addr uint64, data []byte) error
}

// CallbackFunc handles a native-to-host call. It receives the address of
// the packed parameter block and the address of the return slot (0 for
// void). A non-nil error is tunnelled back through the native frames as a
// host fault.
type CallbackFunc func(argsAddr, retAddr uint64) error

// AddressSpace is the narrow surface the core consumes from an execution
// backend (a loaded native module). Implementations live in the engine
// package; the core never assumes anything about how native code runs.
//
// An AddressSpace is bound to a single environment and must only be used
// from that environment's single logical thread of control.
type AddressSpace interface {
	Memory

	// Alloc reserves length bytes of zeroed native memory and returns its
	// address. Free releases an allocation made by Alloc; freeing the same
	// address twice is a caller error.
	Alloc(length uint32) (uint64, error)
	Free(addr uint64)

	// SymbolAddr resolves a global variable or function by name.
	// SymbolName is the reverse lookup; ok is false for anonymous memory.
	SymbolAddr(name string) (uint64, error)
	SymbolName(addr uint64) (string, bool)

	// DefineSymbol installs or replaces a symbol binding. The runtime uses
	// it to point unresolved symbols at mock stub trampolines.
	DefineSymbol(name string, addr uint64) error

	// Invoke calls native code at fnAddr with the given packed parameter
	// block and return slot. sig identifies the C signature so backends
	// with per-signature call bridges can pick the right one. Invoke
	// establishes an unwind barrier: if a host callable invoked underneath
	// it fails, Invoke returns ErrFaultPending and the intermediate native
	// frames are abandoned without cleanup.
	Invoke(fnAddr uint64, sig string, argsAddr, retAddr uint64) error

	// NewCallback creates a native-callable trampoline for fn and returns
	// its address. The trampoline stays valid until ReleaseCallback.
	NewCallback(sig string, fn CallbackFunc) (uint64, error)
	ReleaseCallback(addr uint64)

	Close() error
}

// ErrFaultPending is returned by AddressSpace.Invoke when a host callable
// failed underneath the native call. The bridge replaces it with the
// original host failure; callers outside the bridge should never see it.
var ErrFaultPending = errors.New("host fault pending on native call stack")
