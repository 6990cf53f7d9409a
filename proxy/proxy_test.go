package proxy_test

import (
	"reflect"
	"testing"

	"github.com/wippyai/cbridge/ctype"
	"github.com/wippyai/cbridge/engine"
	"github.com/wippyai/cbridge/errors"
	"github.com/wippyai/cbridge/runtime"
	"github.com/wippyai/cbridge/schema"
)

func newEnv(t *testing.T) (*runtime.Environment, *engine.LocalSpace) {
	t.Helper()
	space := engine.NewLocalSpace()
	env, err := runtime.New(&schema.Schema{}, space)
	if err != nil {
		t.Fatalf("runtime.New: %v", err)
	}
	t.Cleanup(func() { env.Close() })
	return env, space
}

func TestValSetVal(t *testing.T) {
	env, _ := newEnv(t)
	i32 := env.Registry().MustInt("int", 32, true)

	p, err := env.New(i32, 41)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	v, err := p.Val()
	if err != nil {
		t.Fatalf("Val: %v", err)
	}
	if v != int64(41) {
		t.Errorf("Val = %v, want 41", v)
	}

	if err := p.SetVal(-7); err != nil {
		t.Fatalf("SetVal: %v", err)
	}
	if v, _ := p.Val(); v != int64(-7) {
		t.Errorf("Val after SetVal = %v, want -7", v)
	}
}

func TestMemberAccess(t *testing.T) {
	env, _ := newEnv(t)
	reg := env.Registry()
	st, err := reg.DefineStruct("pt", false, 0, []ctype.MemberDef{
		{Name: "x", Type: reg.MustInt("int", 32, true)},
		{Name: "y", Type: reg.MustInt("int", 32, true)},
	})
	if err != nil {
		t.Fatalf("DefineStruct: %v", err)
	}

	p, err := env.New(st, map[string]any{"x": 3, "y": 4})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	y, err := p.Member("y")
	if err != nil {
		t.Fatalf("Member: %v", err)
	}
	if v, _ := y.Val(); v != int64(4) {
		t.Errorf("y = %v, want 4", v)
	}
	if err := y.SetVal(40); err != nil {
		t.Fatalf("SetVal member: %v", err)
	}
	whole, _ := p.Val()
	if !reflect.DeepEqual(whole, map[string]any{"x": int64(3), "y": int64(40)}) {
		t.Errorf("whole = %v", whole)
	}

	_, err = p.Member("z")
	if e, ok := err.(*errors.Error); !ok || e.Kind != errors.KindUnknownMember {
		t.Errorf("Member(z) error = %v, want unknown_member", err)
	}
}

func TestArrayIndexBounds(t *testing.T) {
	env, _ := newEnv(t)
	reg := env.Registry()
	arr := reg.ArrayOf(reg.MustInt("int", 32, true), 3)

	p, err := env.New(arr, []any{10, 20, 30})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	el, err := p.Index(2)
	if err != nil {
		t.Fatalf("Index(2): %v", err)
	}
	if v, _ := el.Val(); v != int64(30) {
		t.Errorf("a[2] = %v, want 30", v)
	}

	// One past the end: declared length 3 makes index 3 invalid.
	_, err = p.Index(3)
	if e, ok := err.(*errors.Error); !ok || e.Kind != errors.KindOutOfBounds {
		t.Errorf("Index(3) error = %v, want out_of_bounds", err)
	}
	if _, err := p.Index(-1); err == nil {
		t.Error("negative array index succeeded")
	}
}

func TestAdrDeref(t *testing.T) {
	env, _ := newEnv(t)
	i32 := env.Registry().MustInt("int", 32, true)

	p, err := env.New(i32, 123)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ptr, err := p.Adr()
	if err != nil {
		t.Fatalf("Adr: %v", err)
	}
	if v, _ := ptr.Val(); v != p.Addr() {
		t.Errorf("pointer value = %v, want %#x", v, p.Addr())
	}

	back, err := ptr.Deref()
	if err != nil {
		t.Fatalf("Deref: %v", err)
	}
	if v, _ := back.Val(); v != int64(123) {
		t.Errorf("*&p = %v, want 123", v)
	}

	// Writes through the dereferenced proxy land in the original object.
	if err := back.SetVal(456); err != nil {
		t.Fatalf("SetVal through deref: %v", err)
	}
	if v, _ := p.Val(); v != int64(456) {
		t.Errorf("p = %v after write through pointer, want 456", v)
	}
}

func TestAdrPinsPointee(t *testing.T) {
	env, space := newEnv(t)
	i32 := env.Registry().MustInt("int", 32, true)

	p, err := env.New(i32, 9)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ptr, err := p.Adr()
	if err != nil {
		t.Fatalf("Adr: %v", err)
	}

	live := space.LiveAllocs()
	if err := p.Release(); err != nil {
		t.Fatalf("Release pointee: %v", err)
	}
	if space.LiveAllocs() != live {
		t.Error("pointee freed while a derived pointer was live")
	}

	through, err := ptr.Deref()
	if err != nil {
		t.Fatalf("Deref after release: %v", err)
	}
	if v, _ := through.Val(); v != int64(9) {
		t.Errorf("value through pointer = %v, want 9", v)
	}

	if err := ptr.Release(); err != nil {
		t.Fatalf("Release pointer: %v", err)
	}
	if got := space.LiveAllocs(); got != live-2 {
		t.Errorf("live allocations = %d after releasing both, want %d", got, live-2)
	}
}

func TestNullDeref(t *testing.T) {
	env, _ := newEnv(t)
	pt := env.Registry().PointerTo(env.Registry().MustInt("int", 32, true))

	p, err := env.New(pt, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Deref(); err == nil {
		t.Error("null pointer dereference succeeded")
	}
}

func TestPointerFromSlice(t *testing.T) {
	env, _ := newEnv(t)
	reg := env.Registry()
	pt := reg.PointerTo(reg.MustInt("int", 32, true))

	p, err := env.New(pt, []any{5, 6, 7})
	if err != nil {
		t.Fatalf("New from slice: %v", err)
	}

	// Pointer indexing walks the auto-allocated pointee array.
	for i, want := range []int64{5, 6, 7} {
		el, err := p.Index(i)
		if err != nil {
			t.Fatalf("Index(%d): %v", i, err)
		}
		if v, _ := el.Val(); v != want {
			t.Errorf("p[%d] = %v, want %d", i, v, want)
		}
	}
}

func TestCStr(t *testing.T) {
	env, _ := newEnv(t)
	reg := env.Registry()

	arr, err := env.New(reg.ArrayOf(reg.Char(), 16), "hello")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s, err := arr.CStr()
	if err != nil {
		t.Fatalf("CStr: %v", err)
	}
	if s != "hello" {
		t.Errorf("CStr = %q, want %q", s, "hello")
	}

	if err := arr.SetCStr("bye"); err != nil {
		t.Fatalf("SetCStr: %v", err)
	}
	if s, _ := arr.CStr(); s != "bye" {
		t.Errorf("CStr after SetCStr = %q", s)
	}

	// Through a char pointer.
	charp := reg.PointerTo(reg.Char())
	p, err := env.New(charp, "world")
	if err != nil {
		t.Fatalf("New char*: %v", err)
	}
	if s, _ := p.CStr(); s != "world" {
		t.Errorf("char* CStr = %q, want %q", s, "world")
	}

	// Too long for the declared array length.
	short, _ := env.New(reg.ArrayOf(reg.Char(), 3), nil)
	if err := short.SetCStr("abc"); err == nil {
		t.Error("SetCStr without room for the terminator succeeded")
	}
}

func TestEq(t *testing.T) {
	env, _ := newEnv(t)
	reg := env.Registry()
	i32 := reg.MustInt("int", 32, true)

	a, _ := env.New(i32, 5)
	b, _ := env.New(i32, 5)
	c, _ := env.New(i32, 6)

	if eq, err := a.Eq(b); err != nil || !eq {
		t.Errorf("a == b: %v, %v", eq, err)
	}
	if eq, _ := a.Eq(c); eq {
		t.Error("5 == 6")
	}
	if eq, err := a.Eq(5); err != nil || !eq {
		t.Errorf("a == 5: %v, %v", eq, err)
	}

	// Null checks compare pointers against plain integers.
	pt := reg.PointerTo(i32)
	null, _ := env.New(pt, nil)
	if eq, err := null.Eq(0); err != nil || !eq {
		t.Errorf("null == 0: %v, %v", eq, err)
	}

	// Unrelated pointer types do not compare.
	other, _ := env.New(reg.PointerTo(reg.Char()), nil)
	if _, err := null.Eq(other); err == nil {
		t.Error("comparison across unrelated pointer types succeeded")
	}
}

func TestPointerArithmetic(t *testing.T) {
	env, _ := newEnv(t)
	reg := env.Registry()
	arr, err := env.New(reg.ArrayOf(reg.MustInt("int", 32, true), 4), []any{0, 10, 20, 30})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	base, err := arr.Add(0) // decay to pointer
	if err != nil {
		t.Fatalf("decay: %v", err)
	}
	third, err := base.Add(2)
	if err != nil {
		t.Fatalf("Add(2): %v", err)
	}
	el, err := third.Deref()
	if err != nil {
		t.Fatalf("Deref: %v", err)
	}
	if v, _ := el.Val(); v != int64(20) {
		t.Errorf("*(p+2) = %v, want 20", v)
	}

	diff, err := third.Sub(base)
	if err != nil {
		t.Fatalf("Sub: %v", err)
	}
	if diff != int64(2) {
		t.Errorf("pointer difference = %v, want 2", diff)
	}
}

func TestCast(t *testing.T) {
	env, _ := newEnv(t)
	reg := env.Registry()
	i32 := reg.MustInt("int", 32, true)
	u8 := reg.MustInt("unsigned char", 8, false)

	p, err := env.New(i32, 0x1234)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Explicit narrowing wraps instead of overflowing.
	narrow, err := p.Cast(u8)
	if err != nil {
		t.Fatalf("Cast: %v", err)
	}
	if v, _ := narrow.Val(); v != uint64(0x34) {
		t.Errorf("(unsigned char)0x1234 = %v, want 0x34", v)
	}

	// Implicit assignment of the same conversion is rejected.
	slot, _ := env.New(u8, nil)
	if err := slot.SetVal(p); err == nil {
		t.Error("implicit narrowing assignment succeeded")
	}

	// Pointer/integer reinterpretation both ways.
	pt := reg.PointerTo(i32)
	u64 := reg.MustInt("unsigned long long", 64, false)
	asInt, err := p.Adr()
	if err != nil {
		t.Fatalf("Adr: %v", err)
	}
	num, err := asInt.Cast(u64)
	if err != nil {
		t.Fatalf("pointer to integer cast: %v", err)
	}
	back, err := num.Cast(pt)
	if err != nil {
		t.Fatalf("integer to pointer cast: %v", err)
	}
	through, err := back.Deref()
	if err != nil {
		t.Fatalf("Deref: %v", err)
	}
	if v, _ := through.Val(); v != int64(0x1234) {
		t.Errorf("round-tripped pointer reads %v, want 0x1234", v)
	}
}
