// Package bridge crosses the host/native call boundary.
//
// Both directions use the same packed parameter block: arguments laid out
// contiguously at their natural alignment, identified by the function
// type's canonical signature string. Outbound, Call converts arguments
// with implicit-assignment rules, packs them, and invokes through the
// address space; inbound, a Binding trampoline unpacks the block into
// typed proxies and runs the bound host callable.
//
// Host errors cannot cross native stack frames directly. A callable that
// fails parks its error on the bridge's FaultStack, the address space
// unwinds the native frames with a pending-fault status, and the
// originating Call returns the parked error unchanged. With nested
// callbacks the innermost fault wins.
package bridge
