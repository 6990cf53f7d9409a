package proxy

import (
	"reflect"

	"github.com/wippyai/cbridge/ctype"
	"github.com/wippyai/cbridge/errors"
	"github.com/wippyai/cbridge/transcode"
)

// Val reads the proxied value into its decoded Go form.
func (p *Proxy) Val() (any, error) {
	return p.env.Codec().Decode(p.typ, p.Addr())
}

// SetVal writes val into the proxied storage with implicit-assignment
// rules. Accepted shapes on top of the codec's value surface:
//
//   - another proxy of the same or implicitly castable type (arrays decay
//     to a pointer of their element type)
//   - a Go slice or string assigned to a pointer, which allocates a
//     pointee array, copies the elements and pins it to the pointer cell
//   - a HostFunc assigned to a function-pointer slot, which binds a
//     native trampoline
func (p *Proxy) SetVal(val any) error {
	switch v := val.(type) {
	case *Proxy:
		return p.setFromProxy(v)
	case HostFunc:
		return p.setCallable(v)
	case func(args []*Proxy) (any, error):
		return p.setCallable(v)
	}

	if pt, ok := p.typ.(*ctype.Pointer); ok {
		switch val.(type) {
		case []any, []byte, string:
			return p.setPointee(pt, val)
		}
	}
	return p.env.Codec().Encode(p.typ, p.Addr(), val)
}

func (p *Proxy) setFromProxy(src *Proxy) error {
	if err := transcode.ImplicitCast(p.typ, src.typ); err != nil {
		return err
	}

	// Array operand decays to the address of its first element.
	if _, isPtr := p.typ.(*ctype.Pointer); isPtr {
		if _, isArr := src.typ.(*ctype.Array); isArr {
			if err := p.env.Codec().Encode(p.typ, p.Addr(), src.Addr()); err != nil {
				return err
			}
			p.loc.Buf.Pin(src.loc.Buf.Retain())
			return nil
		}
	}

	if p.typ == src.typ {
		raw, err := src.Bytes()
		if err != nil {
			return err
		}
		return p.env.Tracker().Space().Write(p.Addr(), raw)
	}

	v, err := src.Val()
	if err != nil {
		return err
	}
	return p.env.Codec().Encode(p.typ, p.Addr(), v)
}

// setPointee auto-allocates the pointed-to data for a slice or string
// assigned to a pointer slot. The allocation is pinned to the pointer
// cell and freed with it.
func (p *Proxy) setPointee(pt *ctype.Pointer, val any) error {
	reg := p.env.Registry()

	elem := pt.Elem()
	if elem.Kind() == ctype.KindVoid {
		elem = reg.Char() // byte-wise store through void*
	}

	var n uint32
	switch v := val.(type) {
	case []any:
		n = uint32(len(v))
	case []byte:
		n = uint32(len(v))
	case string:
		n = uint32(len(v)) + 1 // terminator
	}
	if n == 0 {
		n = 1
	}

	arr, err := NewRoot(p.env, reg.ArrayOf(elem, n), val)
	if err != nil {
		return err
	}
	if err := p.env.Codec().Encode(p.typ, p.Addr(), arr.Addr()); err != nil {
		arr.Release()
		return err
	}
	// Ownership of the pointee moves to the pointer cell.
	arr.owned = false
	p.loc.Buf.Pin(arr.loc.Buf)
	return nil
}

func (p *Proxy) setCallable(fn HostFunc) error {
	ft, ok := p.typ.(*ctype.Func)
	if !ok {
		pt, isPtr := p.typ.(*ctype.Pointer)
		if isPtr {
			ft, ok = pt.Elem().(*ctype.Func)
		}
		if !ok {
			return accessMismatch(p.typ, "callable assigned to non-function slot")
		}
	}
	addr, err := p.env.BindCallable(fn, ft)
	if err != nil {
		return err
	}
	return p.env.Codec().Encode(p.typ, p.Addr(), addr)
}

// Cast reinterprets the proxied value as type t by explicit-cast rules
// and returns a new owned proxy of t. Integer casts wrap modulo the
// target width; same-size aggregates are reinterpreted byte for byte;
// arrays decay to their address when cast to a scalar.
func (p *Proxy) Cast(t ctype.Type) (*Proxy, error) {
	if err := transcode.ExplicitCast(t, p.typ); err != nil {
		return nil, err
	}

	if t.Kind().IsScalar() {
		var v any
		if p.typ.Kind() == ctype.KindArray {
			v = p.Addr()
		} else {
			dv, err := p.Val()
			if err != nil {
				return nil, err
			}
			v = dv
		}
		wrapped, err := transcode.WrapScalar(t, v)
		if err != nil {
			return nil, err
		}
		return NewRoot(p.env, t, wrapped)
	}

	out, err := NewRoot(p.env, t, nil)
	if err != nil {
		return nil, err
	}
	raw, err := p.Bytes()
	if err != nil {
		out.Release()
		return nil, err
	}
	if err := p.env.Tracker().Space().Write(out.Addr(), raw); err != nil {
		out.Release()
		return nil, err
	}
	return out, nil
}

// Eq compares the proxied value against other. Proxy operands must have
// the same or implicitly castable types; plain Go integers and bools
// compare against scalar proxies only (a pointer compares against an
// integer address, most usefully 0 for null checks). Mismatched operand
// types fail rather than comparing unequal.
func (p *Proxy) Eq(other any) (bool, error) {
	if o, ok := other.(*Proxy); ok {
		if transcode.ImplicitCast(p.typ, o.typ) != nil &&
			transcode.ImplicitCast(o.typ, p.typ) != nil {
			return false, accessMismatch(p.typ, "comparison with incompatible type "+o.typ.String())
		}
		a, err := p.Val()
		if err != nil {
			return false, err
		}
		b, err := o.Val()
		if err != nil {
			return false, err
		}
		if eq, ok := numericEqual(a, b); ok {
			return eq, nil
		}
		return reflect.DeepEqual(a, b), nil
	}

	if !p.typ.Kind().IsScalar() {
		return false, accessMismatch(p.typ, "comparison with non-proxy value")
	}
	a, err := p.Val()
	if err != nil {
		return false, err
	}
	eq, ok := numericEqual(a, other)
	if !ok {
		return false, accessMismatch(p.typ, "comparison with non-numeric value")
	}
	return eq, nil
}

// Add returns a new proxy offset by n: integer arithmetic for integer
// scalars (wrapping at the type width), element-stride pointer arithmetic
// for pointers, and array-to-pointer decay for arrays.
func (p *Proxy) Add(n int) (*Proxy, error) {
	switch tt := p.typ.(type) {
	case *ctype.Int:
		v, err := p.Val()
		if err != nil {
			return nil, err
		}
		var u uint64
		switch raw := v.(type) {
		case int64:
			u = uint64(raw) + uint64(int64(n))
		case uint64:
			u = raw + uint64(int64(n))
		}
		wrapped, err := transcode.WrapScalar(tt, u)
		if err != nil {
			return nil, err
		}
		return NewRoot(p.env, tt, wrapped)

	case *ctype.Pointer:
		el, err := tt.Elem().Layout()
		if err != nil {
			return nil, err
		}
		base, err := p.addrValue()
		if err != nil {
			return nil, err
		}
		addr := uint64(int64(base) + int64(n)*int64(el.Size))
		return NewRoot(p.env, tt, addr)

	case *ctype.Array:
		el, err := tt.Elem().Layout()
		if err != nil {
			return nil, err
		}
		pt := p.env.Registry().PointerTo(tt.Elem())
		addr := uint64(int64(p.Addr()) + int64(n)*int64(el.Size))
		cell, err := NewRoot(p.env, pt, addr)
		if err != nil {
			return nil, err
		}
		cell.loc.Buf.Pin(p.loc.Buf.Retain())
		return cell, nil
	}
	return nil, accessMismatch(p.typ, "arithmetic on non-arithmetic type")
}

// Sub subtracts either an integer offset (returning a shifted proxy) or a
// same-type pointer proxy (returning the element distance as int64).
func (p *Proxy) Sub(other any) (any, error) {
	if o, ok := other.(*Proxy); ok {
		pt, pok := p.typ.(*ctype.Pointer)
		if !pok || p.typ != o.typ {
			return nil, accessMismatch(p.typ, "pointer difference needs two pointers of one type")
		}
		el, err := pt.Elem().Layout()
		if err != nil {
			return nil, err
		}
		a, err := p.addrValue()
		if err != nil {
			return nil, err
		}
		b, err := o.addrValue()
		if err != nil {
			return nil, err
		}
		return (int64(a) - int64(b)) / int64(el.Size), nil
	}

	n, ok := transcode.ToInt64(other)
	if !ok {
		return nil, accessMismatch(p.typ, "subtraction with non-numeric value")
	}
	return p.Add(int(-n))
}

// Call invokes the proxied function (a function symbol or a stored
// function pointer) with implicit argument conversion.
func (p *Proxy) Call(args ...any) (any, error) {
	ft, ok := p.typ.(*ctype.Func)
	if !ok {
		if pt, isPtr := p.typ.(*ctype.Pointer); isPtr {
			ft, ok = pt.Elem().(*ctype.Func)
		}
		if !ok {
			return nil, errors.New(errors.PhaseCall, errors.KindTypeMismatch).
				CType(p.typ.String()).
				Detail("call of non-function").
				Build()
		}
	}
	addr, err := p.addrValue()
	if err != nil {
		return nil, err
	}
	if addr == 0 {
		return nil, errors.InvalidInput(errors.PhaseCall, "call through null function pointer")
	}
	return p.env.CallNative(addr, ft, args)
}

// CStr reads a NUL-terminated byte string: through a char pointer it
// follows the stored address, on a char array it reads in place up to the
// terminator or the declared length.
func (p *Proxy) CStr() (string, error) {
	space := p.env.Tracker().Space()

	switch tt := p.typ.(type) {
	case *ctype.Pointer:
		base, err := p.addrValue()
		if err != nil {
			return "", err
		}
		var out []byte
		for i := uint64(0); ; i++ {
			raw, err := space.Read(base+i, 1)
			if err != nil {
				return "", err
			}
			if raw[0] == 0 {
				return string(out), nil
			}
			out = append(out, raw[0])
		}

	case *ctype.Array:
		raw, err := space.Read(p.Addr(), tt.Len())
		if err != nil {
			return "", err
		}
		for i, b := range raw {
			if b == 0 {
				return string(raw[:i]), nil
			}
		}
		return string(raw), nil
	}
	return "", accessMismatch(p.typ, "c-string read on non-char storage")
}

// SetCStr writes s plus a terminator: bounds-checked into a char array,
// unchecked through a char pointer into the pointee.
func (p *Proxy) SetCStr(s string) error {
	switch tt := p.typ.(type) {
	case *ctype.Array:
		if uint32(len(s))+1 > tt.Len() {
			return errors.LengthMismatch(errors.PhaseEncode, nil, len(s)+1, int(tt.Len()))
		}
		return p.env.Codec().Encode(p.typ, p.Addr(), s)

	case *ctype.Pointer:
		base, err := p.addrValue()
		if err != nil {
			return err
		}
		return p.env.Tracker().Space().Write(base, append([]byte(s), 0))
	}
	return accessMismatch(p.typ, "c-string write on non-char storage")
}

// numericEqual compares two decoded values numerically. The second return
// reports whether both operands were numeric at all.
func numericEqual(a, b any) (bool, bool) {
	ai, aok := transcode.ToInt64(a)
	bi, bok := transcode.ToInt64(b)
	if aok && bok {
		return ai == bi, true
	}
	au, auok := transcode.ToUint64(a)
	bu, buok := transcode.ToUint64(b)
	if auok && buok {
		return au == bu, true
	}
	// Mixed sign ranges that reach here (negative vs above MaxInt64)
	// cannot be equal.
	if (aok || auok) && (bok || buok) {
		return false, true
	}
	return false, false
}
