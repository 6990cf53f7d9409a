// Package ctype implements the type registry: canonical C type
// descriptors, memoized derivation of pointer/array/function types, and
// ABI layout computation for structs and unions.
//
// Descriptors are canonical per Registry: deriving pointer-of T twice
// returns the same instance, so descriptors compare with ==. Layout
// follows native ABI rules: member offsets round up to the member's
// alignment (clamped by the struct packing), and the struct's size rounds
// up to its alignment. Requesting the layout of a forward-declared type
// fails with an incomplete_type error; completing it later through
// DefineStruct updates every descriptor already derived from it.
package ctype
