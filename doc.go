// Package cbridge lets Go code manipulate native C data objects (scalars,
// pointers, arrays, structs/unions, function pointers) as if native memory
// were Go objects, while enforcing C type and layout rules and tracking the
// lifetime of every allocation it creates.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct
// responsibilities:
//
//	cbridge/       Root package with the Memory and AddressSpace interfaces
//	├── runtime/   Environment: binds a schema and a loaded module together
//	├── schema/    Type schema consumed from the external declaration parser
//	├── ctype/     Type registry: descriptors, derivation, ABI layout
//	├── memory/    Buffer allocation, ownership and reference counting
//	├── transcode/ Encoding/decoding between Go values and raw C bytes
//	├── proxy/     Typed handles over native memory with C navigation
//	├── bridge/    Bidirectional native<->host function-call bridge
//	├── mock/      Replaceable handlers for unresolved native symbols
//	├── engine/    Execution backends (wazero wasm32, local simulator)
//	└── errors/    Structured error types for debugging
//
// # Quick Start
//
// Load a schema and a native artifact, then poke at C objects:
//
//	env, err := runtime.New(sch, space)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer env.Close()
//
//	p, _ := env.New(env.Registry().ArrayOf(env.Registry().MustInt("int", 32, true), 4), nil)
//	elem, _ := p.Index(2)
//	_ = elem.SetVal(42)
//
//	env.Mock("write_port", func(args []*proxy.Proxy) (any, error) {
//	    v, _ := args[0].Val()
//	    return v, nil
//	})
//	out, err := env.MustFunc("run_driver").Call(3)
//
// # Concurrency
//
// One environment owns one native call stack and must be driven by a single
// logical thread of control. Re-entrant native->host->native chains are
// supported to arbitrary depth; concurrent use of one environment from
// multiple goroutines is not. This is a hard precondition, not a runtime
// check.
//
// # Memory Model
//
// Buffers allocated by the environment are owned and freed exactly once
// when their last owning reference is released. Memory wrapped from a
// loaded module's globals is borrowed and never freed by this library.
// Proxies derived by member access, indexing, dereference or address-of
// borrow their parent's buffer; the parent must outlive them.
package cbridge
