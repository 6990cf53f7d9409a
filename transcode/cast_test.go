package transcode_test

import (
	"testing"

	"github.com/wippyai/cbridge/ctype"
	"github.com/wippyai/cbridge/transcode"
)

func TestImplicitCast(t *testing.T) {
	reg := ctype.NewRegistry()
	i8 := reg.Char()
	i32 := reg.MustInt("int", 32, true)
	u32 := reg.MustInt("unsigned int", 32, false)
	voidp := reg.PointerTo(reg.Void())
	i32p := reg.PointerTo(i32)
	i8p := reg.PointerTo(i8)
	i32a := reg.ArrayOf(i32, 4)
	fn := reg.Func(i32, i32)
	fn2 := reg.Func(nil, i32)

	tests := []struct {
		name     string
		dst, src ctype.Type
		ok       bool
	}{
		{"identity", i32, i32, true},
		{"widening", i32, i8, true},
		{"narrowing", i8, i32, false},
		{"same width sign change", u32, i32, true},
		{"bool to int", i32, reg.Bool(), true},
		{"int to bool", reg.Bool(), i32, false},
		{"pointer identity", i32p, i32p, true},
		{"pointer to void pointer", voidp, i32p, true},
		{"void pointer to pointer", i32p, voidp, true},
		{"unrelated pointers", i32p, i8p, false},
		{"array decay", i32p, i32a, true},
		{"array decay unrelated", i8p, i32a, false},
		{"int from pointer", i32, i32p, false},
		{"func exact", fn, fn, true},
		{"func signature mismatch", fn, fn2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := transcode.ImplicitCast(tt.dst, tt.src)
			if (err == nil) != tt.ok {
				t.Errorf("ImplicitCast(%s <- %s) = %v, want ok=%v", tt.dst, tt.src, err, tt.ok)
			}
		})
	}
}

func TestExplicitCast(t *testing.T) {
	reg := ctype.NewRegistry()
	i8 := reg.Char()
	i32 := reg.MustInt("int", 32, true)
	u64 := reg.MustInt("unsigned long long", 64, false)
	i32p := reg.PointerTo(i32)
	i8p := reg.PointerTo(i8)
	i32a := reg.ArrayOf(i32, 2)
	pair, err := reg.DefineStruct("pair", false, 0, []ctype.MemberDef{
		{Name: "a", Type: i32}, {Name: "b", Type: i32},
	})
	if err != nil {
		t.Fatalf("DefineStruct: %v", err)
	}

	tests := []struct {
		name     string
		dst, src ctype.Type
		ok       bool
	}{
		{"narrowing scalar", i8, i32, true},
		{"unrelated pointers", i8p, i32p, true},
		{"pointer to integer", u64, i32p, true},
		{"integer to pointer", i32p, u64, true},
		{"array decays to scalar", u64, i32a, true},
		{"same size aggregates", pair, i32a, true},
		{"size mismatch aggregates", pair, reg.ArrayOf(i32, 3), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := transcode.ExplicitCast(tt.dst, tt.src)
			if (err == nil) != tt.ok {
				t.Errorf("ExplicitCast(%s <- %s) = %v, want ok=%v", tt.dst, tt.src, err, tt.ok)
			}
		})
	}
}

func TestWrapScalar(t *testing.T) {
	reg := ctype.NewRegistry()

	tests := []struct {
		name string
		typ  ctype.Type
		in   any
		out  any
	}{
		{"wraps high bits signed", reg.Char(), 0x1FF, int64(-1)},
		{"wraps high bits unsigned", reg.MustInt("unsigned char", 8, false), 0x1FF, uint64(0xFF)},
		{"negative to unsigned", reg.MustInt("unsigned int", 32, false), -1, uint64(0xFFFFFFFF)},
		{"in range unchanged", reg.MustInt("int", 32, true), 42, int64(42)},
		{"non-integer target passes through", reg.PointerTo(reg.Void()), uint64(8), uint64(8)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := transcode.WrapScalar(tt.typ, tt.in)
			if err != nil {
				t.Fatalf("WrapScalar: %v", err)
			}
			if got != tt.out {
				t.Errorf("WrapScalar(%v) = %v (%T), want %v (%T)", tt.in, got, got, tt.out, tt.out)
			}
		})
	}
}

func TestNumericCoercion(t *testing.T) {
	if v, ok := transcode.ToInt64("Z"); !ok || v != 90 {
		t.Errorf(`ToInt64("Z") = %d, %v`, v, ok)
	}
	if _, ok := transcode.ToInt64("ZZ"); ok {
		t.Error("multi-character string coerced to integer")
	}
	if v, ok := transcode.ToUint64(true); !ok || v != 1 {
		t.Errorf("ToUint64(true) = %d, %v", v, ok)
	}
	if _, ok := transcode.ToUint64(-3); ok {
		t.Error("negative value coerced to uint64")
	}
	if v, ok := transcode.ToInt64(float64(41)); !ok || v != 41 {
		t.Errorf("ToInt64(41.0) = %d, %v", v, ok)
	}
	if _, ok := transcode.ToInt64(41.5); ok {
		t.Error("fractional float coerced to integer")
	}
}
