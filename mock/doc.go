// Package mock substitutes host handlers for unresolved native symbols.
//
// A declared function with no native implementation is bound to a stub
// that dispatches through a Table on every call. Handlers can be swapped
// mid-session; a call that reaches a symbol with no handler fails with an
// unresolved_symbol error naming the function instead of faulting the
// native side.
package mock
