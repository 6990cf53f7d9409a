package ctype

import (
	"testing"

	"github.com/wippyai/cbridge/schema"
)

func intSpec(bits uint32, signed bool) *schema.TypeSpec {
	return &schema.TypeSpec{Kind: "int", Bits: bits, Signed: signed}
}

func TestResolveIdempotent(t *testing.T) {
	r := NewRegistry()

	spec := &schema.TypeSpec{Kind: "pointer", Elem: intSpec(32, true)}
	a, err := r.Resolve(spec)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	b, err := r.Resolve(spec)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if a != b {
		t.Error("structurally identical specs resolved to distinct descriptors")
	}
}

func TestLoadSchema(t *testing.T) {
	sch := &schema.Schema{
		Types: []*schema.TypeDecl{
			{Name: "handle", Spec: intSpec(32, false)},
			{Name: "node", Spec: &schema.TypeSpec{
				Kind: "struct",
				Members: []*schema.MemberSpec{
					{Name: "value", Type: intSpec(32, true)},
					{Name: "next", Type: &schema.TypeSpec{
						Kind: "pointer",
						Elem: &schema.TypeSpec{Kind: "named", Name: "node"},
					}},
				},
			}},
		},
		Funcs: []*schema.FuncDecl{
			{Name: "get", Type: &schema.TypeSpec{
				Kind:   "func",
				Return: intSpec(32, true),
				Params: []*schema.TypeSpec{{Kind: "named", Name: "handle"}},
			}},
		},
	}

	r := NewRegistry()
	if err := r.Load(sch); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if _, ok := r.Typedef("handle"); !ok {
		t.Error("typedef handle not registered")
	}

	node, ok := r.Struct("node")
	if !ok {
		t.Fatal("struct node not registered")
	}
	lay, err := node.Layout()
	if err != nil {
		t.Fatalf("node layout: %v", err)
	}
	if lay.Size != 16 {
		t.Errorf("node size = %d, want 16", lay.Size)
	}
	next, _ := node.Member("next")
	if pt, ok := next.Type.(*Pointer); !ok || pt.Elem() != Type(node) {
		t.Error("self-referential member does not point at its own struct")
	}
}

func TestResolveEnum(t *testing.T) {
	r := NewRegistry()
	got, err := r.Resolve(&schema.TypeSpec{Kind: "enum", Name: "color"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	it, ok := got.(*Int)
	if !ok || it.Bits() != 32 || !it.Signed() {
		t.Errorf("enum resolved to %v, want signed 32-bit int", got)
	}
}

func TestResolveUnknownNamed(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Resolve(&schema.TypeSpec{Kind: "named", Name: "nope"}); err == nil {
		t.Error("unknown named type resolved")
	}
}
