package ctype

import (
	"strconv"
	"strings"

	"github.com/wippyai/cbridge/errors"
)

// Layout is the ABI placement of a type: total byte size and alignment.
type Layout struct {
	Size  uint32
	Align uint32
}

// Type is a canonical C type descriptor. Descriptors are created and
// memoized by a Registry; within one registry, structural equality and
// pointer identity coincide, so descriptors compare with ==.
type Type interface {
	Kind() Kind

	// Layout fails with an incomplete_type error if the type (or a member
	// reached through it) is not fully defined yet.
	Layout() (Layout, error)

	// Null is the type's null/default value in decoded Go form.
	Null() any

	// CDef renders the C definition with ref as the declared name, e.g.
	// Pointer(Int("int")).CDef("x") == "int *x".
	CDef(ref string) string

	String() string

	// precedence orders declarator binding for CDef parenthesization.
	precedence() int
}

// Void is the C void type. It has no layout; it only appears behind
// pointers and as an absent function return.
type Void struct{}

func (*Void) Kind() Kind { return KindVoid }

func (*Void) Layout() (Layout, error) {
	return Layout{}, errors.IncompleteType("void")
}

func (*Void) Null() any { return nil }

func (*Void) CDef(ref string) string { return joinDef("void", ref) }

func (t *Void) String() string { return t.CDef("") }

func (*Void) precedence() int { return 0 }

// Bool is the C _Bool type.
type Bool struct{}

func (*Bool) Kind() Kind { return KindBool }

func (*Bool) Layout() (Layout, error) { return Layout{Size: 1, Align: 1}, nil }

func (*Bool) Null() any { return false }

func (*Bool) CDef(ref string) string { return joinDef("_Bool", ref) }

func (t *Bool) String() string { return t.CDef("") }

func (*Bool) precedence() int { return 0 }

// Int is a C integer scalar of a given width and signedness. Enums and
// character types are Ints with a suitable C name.
type Int struct {
	name   string
	bits   uint32
	signed bool
}

func (t *Int) Kind() Kind { return KindInt }

func (t *Int) Layout() (Layout, error) {
	return Layout{Size: t.bits / 8, Align: t.bits / 8}, nil
}

func (t *Int) Null() any {
	if t.signed {
		return int64(0)
	}
	return uint64(0)
}

func (t *Int) Bits() uint32 { return t.bits }

func (t *Int) Signed() bool { return t.signed }

func (t *Int) Name() string { return t.name }

func (t *Int) CDef(ref string) string { return joinDef(t.name, ref) }

func (t *Int) String() string { return t.CDef("") }

func (*Int) precedence() int { return 0 }

// Pointer points at a single element type. Its size is the registry's
// pointer width.
type Pointer struct {
	elem Type
	size uint32
}

func (t *Pointer) Kind() Kind { return KindPointer }

func (t *Pointer) Layout() (Layout, error) {
	return Layout{Size: t.size, Align: t.size}, nil
}

func (t *Pointer) Null() any { return uint64(0) }

func (t *Pointer) Elem() Type { return t.elem }

func (t *Pointer) CDef(ref string) string {
	inner := "*" + ref
	if t.elem.precedence() > t.precedence() {
		inner = "(" + inner + ")"
	}
	return t.elem.CDef(inner)
}

func (t *Pointer) String() string { return t.CDef("") }

func (*Pointer) precedence() int { return 10 }

// Array is a fixed-length sequence of a single element type.
type Array struct {
	elem Type
	n    uint32
}

func (t *Array) Kind() Kind { return KindArray }

func (t *Array) Layout() (Layout, error) {
	el, err := t.elem.Layout()
	if err != nil {
		return Layout{}, err
	}
	return Layout{Size: el.Size * t.n, Align: el.Align}, nil
}

func (t *Array) Null() any {
	vals := make([]any, t.n)
	for i := range vals {
		vals[i] = t.elem.Null()
	}
	return vals
}

func (t *Array) Elem() Type { return t.elem }

func (t *Array) Len() uint32 { return t.n }

func (t *Array) CDef(ref string) string {
	inner := ref + "[" + strconv.FormatUint(uint64(t.n), 10) + "]"
	if t.elem.precedence() > t.precedence() {
		inner = "(" + inner + ")"
	}
	return t.elem.CDef(inner)
}

func (t *Array) String() string { return t.CDef("") }

func (*Array) precedence() int { return 20 }

// Member is a named field of a struct or union at a resolved offset.
type Member struct {
	Name   string
	Type   Type
	Offset uint32
}

// Struct is a C struct or union. It may be declared opaque first and
// completed later; layout requests before completion fail.
type Struct struct {
	name     string
	union    bool
	packing  uint32
	members  []Member
	byName   map[string]int
	layout   Layout
	complete bool
	anon     bool
}

func (t *Struct) Kind() Kind {
	if t.union {
		return KindUnion
	}
	return KindStruct
}

func (t *Struct) Layout() (Layout, error) {
	if !t.complete {
		return Layout{}, errors.IncompleteType(t.CDef(""))
	}
	return t.layout, nil
}

func (t *Struct) Null() any {
	if !t.complete {
		return nil
	}
	null := make(map[string]any, len(t.members))
	for _, m := range t.members {
		null[m.Name] = m.Type.Null()
	}
	return null
}

func (t *Struct) Name() string { return t.name }

func (t *Struct) Union() bool { return t.union }

func (t *Struct) Packing() uint32 { return t.packing }

func (t *Struct) Complete() bool { return t.complete }

func (t *Struct) Members() []Member { return t.members }

// Member resolves a declared member by name.
func (t *Struct) Member(name string) (Member, bool) {
	i, ok := t.byName[name]
	if !ok {
		return Member{}, false
	}
	return t.members[i], true
}

func (t *Struct) CDef(ref string) string {
	tag := "struct"
	if t.union {
		tag = "union"
	}
	if !t.anon {
		tag += " " + t.name
	}
	return joinDef(tag, ref)
}

// CDefFull renders the definition with the full member list.
func (t *Struct) CDefFull(ref string) string {
	var b strings.Builder
	b.WriteString(t.CDef(""))
	b.WriteString(" {\n")
	for _, m := range t.members {
		b.WriteByte('\t')
		b.WriteString(m.Type.CDef(m.Name))
		b.WriteString(";\n")
	}
	b.WriteByte('}')
	if ref != "" {
		b.WriteByte(' ')
		b.WriteString(ref)
	}
	return b.String()
}

func (t *Struct) String() string { return t.CDef("") }

func (*Struct) precedence() int { return 0 }

// Func is a function-pointer type: it describes the signature and its
// stored representation is a pointer-sized code address.
type Func struct {
	ret    Type // nil means void
	params []Type
	size   uint32
}

func (t *Func) Kind() Kind { return KindFunc }

func (t *Func) Layout() (Layout, error) {
	return Layout{Size: t.size, Align: t.size}, nil
}

func (t *Func) Null() any { return uint64(0) }

func (t *Func) Return() Type { return t.ret }

func (t *Func) Params() []Type { return t.params }

func (t *Func) CDef(ref string) string {
	params := make([]string, len(t.params))
	for i, p := range t.params {
		params[i] = p.CDef("p" + strconv.Itoa(i))
	}
	if len(params) == 0 {
		params = []string{"void"}
	}
	decl := ref + "(" + strings.Join(params, ", ") + ")"
	if t.ret == nil {
		return joinDef("void", decl)
	}
	return t.ret.CDef(decl)
}

// Signature is the canonical identification string for this function
// type, used to select per-signature call bridges.
func (t *Func) Signature() string { return t.CDef("f") }

func (t *Func) String() string { return t.CDef("") }

func (*Func) precedence() int { return 20 }

func joinDef(base, ref string) string {
	if ref == "" {
		return base
	}
	return base + " " + ref
}
