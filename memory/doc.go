// Package memory implements the memory and ownership tracker: raw buffer
// allocation against an address space, owned/borrowed distinction,
// reference-counted release, and dependency pinning so that taking the
// address of a value keeps the value alive while the pointer can still
// reach it.
package memory
