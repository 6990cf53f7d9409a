// Package runtime assembles one working environment: a schema resolved
// into a type registry, an address space with a bound symbol table, an
// allocation tracker, the call bridge and the mock dispatch table.
//
// Declared functions the native side implements become callable function
// proxies; the rest are stubbed through the mock table and fail with
// unresolved_symbol until a handler is installed. Globals missing from
// the native symbol table get host-backed storage, so an environment can
// run entirely on mocks.
//
// An environment is single-threaded by construction: one logical thread
// of control drives calls in and out, matching the native side's stack
// discipline.
package runtime
