// Package proxy exposes typed handles onto native memory.
//
// A Proxy pairs a type descriptor with a location inside a tracked
// buffer. Navigation (Member, Index, Deref) derives borrowing proxies
// that share the parent's buffer; allocation (NewRoot, Adr, Cast,
// pointer-from-slice assignment) creates owning proxies whose buffers are
// freed when released. Address-of pins the pointee's buffer to the
// pointer cell, so derived pointers keep their target alive.
//
// Value access goes through the conversion engine: Val decodes into Go
// form, SetVal encodes with implicit-assignment rules plus the
// proxy-level extensions (proxy operands, slice-to-pointer allocation,
// callable binding). Cast applies explicit-cast rules and yields a new
// owned proxy.
//
// Proxies only borrow their environment through the Env interface; the
// environment owns the registry, tracker, codec and call bridge.
package proxy
