// Package transcode implements the conversion engine between Go values
// and raw C bytes.
//
// # Value Surface
//
// Each type kind maps to a decoded Go form and accepts a set of encoded
// shapes:
//
//	Kind       Decodes to        Encodes from
//	────────────────────────────────────────────────────────────
//	bool       bool              bool, integers
//	int        int64 / uint64    integers, bool, 1-char string
//	pointer    uint64 (address)  integers (addresses)
//	func       uint64 (address)  integers (addresses)
//	array      []any             []any, []byte, string (char[])
//	struct     map[string]any    map[string]any, []any (positional)
//	union      map[string]any    map[string]any, []any
//
// Pointer assignment from proxies and Go slices is resolved one layer up,
// in the proxy package, because it may allocate.
//
// # Cast Strengths
//
// ImplicitCast is the assignment matrix (no narrowing, no unrelated
// pointer reinterpretation except via void*); ExplicitCast permits any
// byte-level-safe reinterpretation, including pointer/integer and
// unrelated pointer/pointer conversion.
//
// Both supported execution backends are little-endian; the codec is fixed
// to little-endian byte order.
package transcode
