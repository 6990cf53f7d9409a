package ctype

import (
	"testing"

	"github.com/wippyai/cbridge/errors"
)

func TestDerivationIdentity(t *testing.T) {
	r := NewRegistry()
	intT := r.MustInt("int", 32, true)

	if r.PointerTo(intT) != r.PointerTo(intT) {
		t.Error("PointerTo returned distinct descriptors for the same base")
	}
	if r.ArrayOf(intT, 4) != r.ArrayOf(intT, 4) {
		t.Error("ArrayOf returned distinct descriptors for the same base and length")
	}
	if r.ArrayOf(intT, 4) == r.ArrayOf(intT, 5) {
		t.Error("ArrayOf conflated different lengths")
	}
	if r.Func(intT, intT) != r.Func(intT, intT) {
		t.Error("Func returned distinct descriptors for the same signature")
	}
	if r.MustInt("int", 32, true) != intT {
		t.Error("Int returned a second descriptor for the same name and width")
	}

	// Two integer types may share a C name at different widths; the
	// function types built from them render identically but stay distinct.
	wide := r.MustInt("int", 64, true)
	narrow32 := r.Func(intT, intT)
	narrow64 := r.Func(intT, wide)
	if narrow32.Signature() != narrow64.Signature() {
		t.Fatalf("signatures diverged: %q vs %q", narrow32.Signature(), narrow64.Signature())
	}
	if narrow32 == narrow64 {
		t.Error("Func conflated parameter types that share a C name")
	}
}

func TestStructLayout(t *testing.T) {
	r := NewRegistry()
	char := r.Char()
	int32T := r.MustInt("int", 32, true)
	int64T := r.MustInt("long long", 64, true)

	tests := []struct {
		name    string
		packing uint32
		members []MemberDef
		offsets []uint32
		size    uint32
		align   uint32
	}{
		{
			name:    "char then int",
			members: []MemberDef{{"c", char}, {"i", int32T}},
			offsets: []uint32{0, 4},
			size:    8,
			align:   4,
		},
		{
			name:    "int then char pads tail",
			members: []MemberDef{{"i", int32T}, {"c", char}},
			offsets: []uint32{0, 4},
			size:    8,
			align:   4,
		},
		{
			name:    "packing clamps member alignment",
			packing: 1,
			members: []MemberDef{{"c", char}, {"i", int32T}},
			offsets: []uint32{0, 1},
			size:    5,
			align:   1,
		},
		{
			name:    "wide member",
			members: []MemberDef{{"c", char}, {"l", int64T}},
			offsets: []uint32{0, 8},
			size:    16,
			align:   8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := r.DefineStruct("s_"+tt.name, false, tt.packing, tt.members)
			if err != nil {
				t.Fatalf("DefineStruct: %v", err)
			}
			lay, err := st.Layout()
			if err != nil {
				t.Fatalf("Layout: %v", err)
			}
			if lay.Size != tt.size || lay.Align != tt.align {
				t.Errorf("layout = {%d, %d}, want {%d, %d}", lay.Size, lay.Align, tt.size, tt.align)
			}
			for i, m := range st.Members() {
				if m.Offset != tt.offsets[i] {
					t.Errorf("member %s at offset %d, want %d", m.Name, m.Offset, tt.offsets[i])
				}
			}
		})
	}
}

func TestUnionLayout(t *testing.T) {
	r := NewRegistry()
	st, err := r.DefineStruct("u", true, 0, []MemberDef{
		{"c", r.Char()},
		{"i", r.MustInt("int", 32, true)},
	})
	if err != nil {
		t.Fatalf("DefineStruct: %v", err)
	}
	lay, err := st.Layout()
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if lay.Size != 4 || lay.Align != 4 {
		t.Errorf("union layout = {%d, %d}, want {4, 4}", lay.Size, lay.Align)
	}
	for _, m := range st.Members() {
		if m.Offset != 0 {
			t.Errorf("union member %s at offset %d, want 0", m.Name, m.Offset)
		}
	}
}

func TestOpaqueStruct(t *testing.T) {
	r := NewRegistry()
	st, err := r.DeclareStruct("opaque", false)
	if err != nil {
		t.Fatalf("DeclareStruct: %v", err)
	}

	if _, err := st.Layout(); err == nil {
		t.Fatal("Layout on an opaque struct succeeded")
	} else if e, ok := err.(*errors.Error); !ok || e.Kind != errors.KindIncompleteType {
		t.Errorf("Layout error kind = %v, want incomplete_type", err)
	}

	// Pointers to the opaque type are usable before completion.
	pt := r.PointerTo(st)
	if _, err := pt.Layout(); err != nil {
		t.Errorf("pointer to opaque struct has no layout: %v", err)
	}

	// Completing in place is observed through already-derived types.
	if _, err := r.DefineStruct("opaque", false, 0, []MemberDef{{"x", r.Char()}}); err != nil {
		t.Fatalf("DefineStruct completion: %v", err)
	}
	if !st.Complete() {
		t.Error("original descriptor not completed in place")
	}
}

func TestStructRedefinition(t *testing.T) {
	r := NewRegistry()
	members := []MemberDef{{"x", r.Char()}}

	first, err := r.DefineStruct("point", false, 0, members)
	if err != nil {
		t.Fatalf("DefineStruct: %v", err)
	}

	same, err := r.DefineStruct("point", false, 0, members)
	if err != nil {
		t.Fatalf("identical redefinition rejected: %v", err)
	}
	if same != first {
		t.Error("identical redefinition produced a new descriptor")
	}

	_, err = r.DefineStruct("point", false, 0, []MemberDef{{"y", r.Char()}})
	if e, ok := err.(*errors.Error); !ok || e.Kind != errors.KindTypeConflict {
		t.Errorf("incompatible redefinition error = %v, want type_conflict", err)
	}

	if _, err := r.DeclareStruct("point", true); err == nil {
		t.Error("redeclaration with a different tag kind succeeded")
	}
}

func TestCDefRendering(t *testing.T) {
	r := NewRegistry()
	intT := r.MustInt("int", 32, true)

	tests := []struct {
		t    Type
		ref  string
		want string
	}{
		{intT, "x", "int x"},
		{r.PointerTo(intT), "p", "int *p"},
		{r.ArrayOf(intT, 3), "a", "int a[3]"},
		{r.PointerTo(r.ArrayOf(intT, 3)), "p", "int (*p)[3]"},
		{r.ArrayOf(r.PointerTo(intT), 3), "a", "int *a[3]"},
		{r.Func(intT, intT, r.PointerTo(r.Char())), "f", "int f(int p0, char *p1)"},
		{r.PointerTo(r.Func(nil)), "f", "void (*f)(void)"},
	}
	for _, tt := range tests {
		if got := tt.t.CDef(tt.ref); got != tt.want {
			t.Errorf("CDef(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}
