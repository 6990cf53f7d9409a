// Package engine provides the execution backends behind the AddressSpace
// interface.
//
// WasmSpace runs a compiled wasm32 artifact through wazero: linear memory
// is the data segment, the artifact's malloc/free exports back
// allocation, and the __cbridge_* exports carry calls in both directions
// with the packed parameter block convention. Host faults travel as
// status codes: the dispatch import reports the fault, the artifact
// unwinds its native frames, and __cbridge_invoke returns the
// fault-pending status.
//
// LocalSpace simulates the same contract in process: a byte slice for
// data, Go functions for code, and a panic-based non-local unwind
// standing in for the artifact's longjmp. It backs tests and mock-only
// environments.
package engine
