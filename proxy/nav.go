package proxy

import (
	"github.com/wippyai/cbridge/ctype"
	"github.com/wippyai/cbridge/errors"
	"github.com/wippyai/cbridge/memory"
)

// Adr takes the address of the proxied value: it allocates a pointer
// cell, stores the address, and pins this proxy's buffer to the cell so
// the pointee stays alive for as long as the pointer does.
func (p *Proxy) Adr() (*Proxy, error) {
	pt := p.env.Registry().PointerTo(p.typ)
	cell, err := NewRoot(p.env, pt, p.Addr())
	if err != nil {
		return nil, err
	}
	cell.loc.Buf.Pin(p.loc.Buf.Retain())
	return cell, nil
}

// Deref follows a pointer to its pointee. The result shares the pointee's
// buffer when the address falls inside a tracked allocation; an address
// outside every tracked buffer is wrapped as borrowed memory. A null
// pointer does not dereference.
func (p *Proxy) Deref() (*Proxy, error) {
	pt, ok := p.typ.(*ctype.Pointer)
	if !ok {
		return nil, accessMismatch(p.typ, "dereference of non-pointer")
	}
	addr, err := p.addrValue()
	if err != nil {
		return nil, err
	}
	if addr == 0 {
		return nil, errors.New(errors.PhaseAccess, errors.KindOutOfBounds).
			CType(p.typ.String()).
			Detail("null pointer dereference").
			Build()
	}
	return p.proxyAt(pt.Elem(), addr)
}

// Index navigates to element i. Array indexes are bounds-checked against
// the declared length; pointer indexes are unchecked C pointer
// arithmetic, including negative offsets.
func (p *Proxy) Index(i int) (*Proxy, error) {
	switch tt := p.typ.(type) {
	case *ctype.Array:
		if i < 0 || uint32(i) >= tt.Len() {
			return nil, errors.OutOfBounds(errors.PhaseAccess, nil, i, int(tt.Len()))
		}
		el, err := tt.Elem().Layout()
		if err != nil {
			return nil, err
		}
		loc := p.loc.Add(uint32(i) * el.Size)
		if err := loc.CheckExtent(el.Size); err != nil {
			return nil, err
		}
		return New(p.env, tt.Elem(), loc), nil

	case *ctype.Pointer:
		el, err := tt.Elem().Layout()
		if err != nil {
			return nil, err
		}
		base, err := p.addrValue()
		if err != nil {
			return nil, err
		}
		addr := uint64(int64(base) + int64(i)*int64(el.Size))
		return p.proxyAt(tt.Elem(), addr)
	}
	return nil, accessMismatch(p.typ, "index of non-indexable type")
}

// Member navigates to a named struct or union member.
func (p *Proxy) Member(name string) (*Proxy, error) {
	st, ok := p.typ.(*ctype.Struct)
	if !ok {
		return nil, accessMismatch(p.typ, "member access on non-struct")
	}
	if _, err := st.Layout(); err != nil {
		return nil, err
	}
	m, ok := st.Member(name)
	if !ok {
		return nil, errors.UnknownMember(errors.PhaseAccess, []string{st.String()}, name)
	}
	ml, err := m.Type.Layout()
	if err != nil {
		return nil, err
	}
	loc := p.loc.Add(m.Offset)
	if err := loc.CheckExtent(ml.Size); err != nil {
		return nil, err
	}
	return New(p.env, m.Type, loc), nil
}

// proxyAt wraps native memory at addr as a derived proxy of type t,
// reusing the covering tracked buffer when one exists.
func (p *Proxy) proxyAt(t ctype.Type, addr uint64) (*Proxy, error) {
	lay, err := t.Layout()
	if err != nil {
		return nil, err
	}
	if loc, ok := p.env.Tracker().Find(addr); ok {
		if err := loc.CheckExtent(lay.Size); err == nil {
			return New(p.env, t, loc), nil
		}
	}
	buf := p.env.Tracker().Wrap(addr, lay.Size)
	return New(p.env, t, memory.Location{Buf: buf}), nil
}

// addrValue reads the stored address of a pointer or function-pointer
// proxy.
func (p *Proxy) addrValue() (uint64, error) {
	v, err := p.env.Codec().Decode(p.typ, p.Addr())
	if err != nil {
		return 0, err
	}
	return v.(uint64), nil
}

func accessMismatch(t ctype.Type, detail string) error {
	return errors.New(errors.PhaseAccess, errors.KindTypeMismatch).
		CType(t.String()).
		Detail("%s", detail).
		Build()
}
