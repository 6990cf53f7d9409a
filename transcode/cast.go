package transcode

import (
	"github.com/wippyai/cbridge/ctype"
	"github.com/wippyai/cbridge/errors"
)

// ImplicitCast decides whether a value of type src may be assigned to a
// slot of type dst without an explicit cast. The matrix is deliberately
// narrow: no narrowing scalar conversions, no pointer reinterpretation
// across unrelated element types except to or from void*, arrays decay
// to pointers of the same element type, function pointers only match
// their exact signature.
func ImplicitCast(dst, src ctype.Type) error {
	if dst == src {
		return nil
	}

	switch d := dst.(type) {
	case *ctype.Int:
		switch s := src.(type) {
		case *ctype.Int:
			if d.Bits() >= s.Bits() {
				return nil
			}
			return castMismatch(dst, src, "narrowing conversion")
		case *ctype.Bool:
			return nil
		}

	case *ctype.Bool:
		// int -> bool would silently collapse values; require a cast.

	case *ctype.Pointer:
		switch s := src.(type) {
		case *ctype.Pointer:
			if pointeeCompatible(d.Elem(), s.Elem()) {
				return nil
			}
			return castMismatch(dst, src, "unrelated element types")
		case *ctype.Array:
			if pointeeCompatible(d.Elem(), s.Elem()) {
				return nil
			}
			return castMismatch(dst, src, "unrelated element types")
		}

	case *ctype.Func:
		// Exact signature only, handled by the identity check above.
	}

	return castMismatch(dst, src, "")
}

// ExplicitCast decides whether a value of type src may be reinterpreted
// as dst by an explicit cast. Any byte-level-safe reinterpretation is
// allowed: every scalar combination (including pointer-to-pointer across
// unrelated element types and pointer-to-integer both ways) and
// same-size aggregates.
func ExplicitCast(dst, src ctype.Type) error {
	if dst == src {
		return nil
	}

	if isScalar(dst) && isScalar(src) {
		return nil
	}
	if isScalar(dst) && src.Kind() == ctype.KindArray {
		return nil // array decays to its address
	}

	dl, err := dst.Layout()
	if err != nil {
		return err
	}
	sl, err := src.Layout()
	if err != nil {
		return err
	}
	if dl.Size == sl.Size {
		return nil
	}
	return castMismatch(dst, src, "sizes differ")
}

// WrapScalar normalizes val for an explicit scalar cast: integers wrap
// modulo the target width instead of overflowing.
func WrapScalar(t ctype.Type, val any) (any, error) {
	it, ok := t.(*ctype.Int)
	if !ok {
		return val, nil
	}

	var u uint64
	if v, vok := ToInt64(val); vok {
		u = uint64(v)
	} else if v, vok := ToUint64(val); vok {
		u = v
	} else {
		return nil, errors.TypeMismatch(errors.PhaseCast, nil, "", t.String())
	}

	if it.Bits() < 64 {
		u &= (uint64(1) << it.Bits()) - 1
	}
	if it.Signed() {
		return signExtend(u, it.Bits()), nil
	}
	return u, nil
}

func pointeeCompatible(d, s ctype.Type) bool {
	if d == s {
		return true
	}
	_, dVoid := d.(*ctype.Void)
	_, sVoid := s.(*ctype.Void)
	return dVoid || sVoid
}

func isScalar(t ctype.Type) bool { return t.Kind().IsScalar() }

func castMismatch(dst, src ctype.Type, reason string) error {
	b := errors.New(errors.PhaseCast, errors.KindTypeMismatch).CType(dst.String())
	if reason != "" {
		b.Detail("cannot convert %s: %s", src, reason)
	} else {
		b.Detail("cannot convert %s", src)
	}
	return b.Build()
}
