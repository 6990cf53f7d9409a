package proxy

import (
	"github.com/wippyai/cbridge/ctype"
	"github.com/wippyai/cbridge/memory"
	"github.com/wippyai/cbridge/transcode"
)

// HostFunc is a host callable exposed to native code. Arguments arrive as
// proxies typed per the bound signature; the returned value is encoded
// into the declared return type with implicit-assignment rules.
type HostFunc func(args []*Proxy) (any, error)

// Env is the proxy layer's non-owning association back to its
// environment. The environment owns the registry, tracker, codec and
// bridge; proxies only borrow them, which keeps the callback bridge free
// of reference cycles with the environment.
type Env interface {
	Registry() *ctype.Registry
	Tracker() *memory.Tracker
	Codec() *transcode.Codec

	// CallNative invokes native code at addr with the given signature.
	CallNative(addr uint64, ft *ctype.Func, args []any) (any, error)

	// BindCallable wraps a host callable as a native trampoline and
	// returns its address. The environment owns the binding.
	BindCallable(fn HostFunc, ft *ctype.Func) (uint64, error)
}

// Proxy pairs a type descriptor with a memory location. It is the only
// externally visible handle onto native data. A root proxy (created by
// allocation) owns its buffer; a derived proxy (member, element,
// dereference, address-of) borrows it and must not outlive the parent.
type Proxy struct {
	env   Env
	typ   ctype.Type
	loc   memory.Location
	owned bool
}

// New wraps an existing location as a derived (borrowing) proxy.
func New(env Env, t ctype.Type, loc memory.Location) *Proxy {
	return &Proxy{env: env, typ: t, loc: loc}
}

// NewRoot allocates an owned buffer sized to t, optionally encodes an
// initial value, and returns the owning proxy. A nil init leaves the
// type's null value (freshly allocated native memory is zeroed).
func NewRoot(env Env, t ctype.Type, init any) (*Proxy, error) {
	lay, err := t.Layout()
	if err != nil {
		return nil, err
	}
	buf, err := env.Tracker().Allocate(lay.Size)
	if err != nil {
		return nil, err
	}
	p := &Proxy{env: env, typ: t, loc: memory.Location{Buf: buf}, owned: true}
	if init != nil {
		if err := p.SetVal(init); err != nil {
			buf.Release()
			return nil, err
		}
	}
	return p, nil
}

func (p *Proxy) Type() ctype.Type { return p.typ }

func (p *Proxy) Loc() memory.Location { return p.loc }

// Addr is the native address of the proxied value.
func (p *Proxy) Addr() uint64 { return p.loc.Addr() }

// Owned reports whether this proxy owns its buffer.
func (p *Proxy) Owned() bool { return p.owned }

// Sizeof is the byte size of the proxied type.
func (p *Proxy) Sizeof() (uint32, error) {
	lay, err := p.typ.Layout()
	if err != nil {
		return 0, err
	}
	return lay.Size, nil
}

// Bytes reads the raw storage of the proxied value.
func (p *Proxy) Bytes() ([]byte, error) {
	lay, err := p.typ.Layout()
	if err != nil {
		return nil, err
	}
	return p.env.Tracker().Space().Read(p.Addr(), lay.Size)
}

// Release drops a root proxy's owning reference; the buffer is freed when
// the last owner lets go. Releasing a derived proxy is a no-op: borrowers
// never deallocate their parent.
func (p *Proxy) Release() error {
	if !p.owned {
		return nil
	}
	p.owned = false
	return p.loc.Buf.Release()
}
