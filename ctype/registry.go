package ctype

import (
	"fmt"
	"strconv"

	"github.com/wippyai/cbridge/errors"
)

const defaultPacking = 8

// DefaultPointerSize is used when a registry is created without an
// explicit pointer width.
const DefaultPointerSize = 8

// MemberDef declares one struct/union member before layout.
type MemberDef struct {
	Name string
	Type Type
}

// Registry is the arena of canonical type descriptors for one
// environment. Resolve and the derivation operators are idempotent: two
// structurally identical requests return the same descriptor instance, so
// descriptors compare with ==. A registry is owned by a single
// environment and is not safe for concurrent use.
type Registry struct {
	ptrSize uint32

	void  *Void
	boolt *Bool

	ints     map[intKey]*Int
	ptrs     map[Type]*Pointer
	arrays   map[arrayKey]*Array
	structs  map[string]*Struct
	funcs    map[string]*Func
	typedefs map[string]Type

	nextAnon int
}

// Typedef looks up a named (typedef'd) type loaded from a schema.
func (r *Registry) Typedef(name string) (Type, bool) {
	t, ok := r.typedefs[name]
	return t, ok
}

type intKey struct {
	name   string
	bits   uint32
	signed bool
}

type arrayKey struct {
	elem Type
	n    uint32
}

// Option configures a Registry.
type Option func(*Registry)

// WithPointerSize sets the pointer width in bytes (4 or 8).
func WithPointerSize(size uint32) Option {
	return func(r *Registry) { r.ptrSize = size }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		ptrSize: DefaultPointerSize,
		void:    &Void{},
		boolt:   &Bool{},
		ints:    make(map[intKey]*Int),
		ptrs:    make(map[Type]*Pointer),
		arrays:  make(map[arrayKey]*Array),
		structs: make(map[string]*Struct),
		funcs:   make(map[string]*Func),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PointerSize returns the pointer width in bytes.
func (r *Registry) PointerSize() uint32 { return r.ptrSize }

// Void returns the void descriptor.
func (r *Registry) Void() *Void { return r.void }

// Bool returns the _Bool descriptor.
func (r *Registry) Bool() *Bool { return r.boolt }

// Int returns the canonical integer descriptor for the given C name,
// width and signedness.
func (r *Registry) Int(name string, bits uint32, signed bool) (*Int, error) {
	switch bits {
	case 8, 16, 32, 64:
	default:
		return nil, errors.InvalidInput(errors.PhaseResolve,
			fmt.Sprintf("unsupported integer width %d", bits))
	}
	key := intKey{name: name, bits: bits, signed: signed}
	if t, ok := r.ints[key]; ok {
		return t, nil
	}
	t := &Int{name: name, bits: bits, signed: signed}
	r.ints[key] = t
	return t, nil
}

// MustInt is Int for known-good widths; it panics on invalid input.
func (r *Registry) MustInt(name string, bits uint32, signed bool) *Int {
	t, err := r.Int(name, bits, signed)
	if err != nil {
		panic(err)
	}
	return t
}

// Char returns the canonical "char" descriptor.
func (r *Registry) Char() *Int { return r.MustInt("char", 8, true) }

// PointerTo derives the pointer type of base, memoized per base.
func (r *Registry) PointerTo(base Type) *Pointer {
	if t, ok := r.ptrs[base]; ok {
		return t
	}
	t := &Pointer{elem: base, size: r.ptrSize}
	r.ptrs[base] = t
	return t
}

// ArrayOf derives the array type of base with the given length, memoized
// per (base, length).
func (r *Registry) ArrayOf(base Type, n uint32) *Array {
	key := arrayKey{elem: base, n: n}
	if t, ok := r.arrays[key]; ok {
		return t
	}
	t := &Array{elem: base, n: n}
	r.arrays[key] = t
	return t
}

// Func derives the function-pointer type with the given return type (nil
// for void) and parameter types. The memo keys on descriptor identity,
// not the rendered signature: two integer types sharing a C name stay
// distinct here.
func (r *Registry) Func(ret Type, params ...Type) *Func {
	key := fmt.Sprintf("%p", ret)
	for _, p := range params {
		key += fmt.Sprintf(",%p", p)
	}
	if existing, ok := r.funcs[key]; ok {
		return existing
	}
	t := &Func{ret: ret, params: params, size: r.ptrSize}
	r.funcs[key] = t
	return t
}

// DeclareStruct registers an opaque (forward-declared) struct or union.
// If the name is already known the existing descriptor is returned,
// complete or not: an opaque declaration never displaces a full one.
func (r *Registry) DeclareStruct(name string, union bool) (*Struct, error) {
	if name == "" {
		return r.newAnonStruct(union), nil
	}
	if t, ok := r.structs[name]; ok {
		if t.union != union {
			return nil, errors.TypeConflict(name, "redeclared with a different tag kind")
		}
		return t, nil
	}
	t := &Struct{name: name, union: union, packing: defaultPacking}
	r.structs[name] = t
	return t, nil
}

// DefineStruct registers a complete struct or union definition. An
// existing opaque descriptor with the same name is completed in place so
// types already derived from it observe the definition. A structurally
// identical redefinition returns the existing descriptor; an incompatible
// one fails with type_conflict.
func (r *Registry) DefineStruct(name string, union bool, packing uint32, members []MemberDef) (*Struct, error) {
	if packing == 0 {
		packing = defaultPacking
	}

	t, err := r.DeclareStruct(name, union)
	if err != nil {
		return nil, err
	}

	if t.complete {
		if !r.sameDefinition(t, packing, members) {
			return nil, errors.TypeConflict(t.CDef(""), "incompatible redefinition")
		}
		return t, nil
	}

	raw := make([]Member, len(members))
	seen := make(map[string]bool, len(members))
	for i, m := range members {
		if seen[m.Name] {
			return nil, errors.TypeConflict(t.CDef(""), fmt.Sprintf("duplicate member %q", m.Name))
		}
		seen[m.Name] = true
		raw[i] = Member{Name: m.Name, Type: m.Type}
	}

	placed, layout, err := computeLayout(raw, packing, union)
	if err != nil {
		return nil, err
	}

	t.packing = packing
	t.members = placed
	t.byName = make(map[string]int, len(placed))
	for i, m := range placed {
		t.byName[m.Name] = i
	}
	t.layout = layout
	t.complete = true
	return t, nil
}

// Struct looks up a named struct or union.
func (r *Registry) Struct(name string) (*Struct, bool) {
	t, ok := r.structs[name]
	return t, ok
}

func (r *Registry) newAnonStruct(union bool) *Struct {
	r.nextAnon++
	return &Struct{
		name:    "__anonymous_" + strconv.Itoa(r.nextAnon) + "__",
		union:   union,
		packing: defaultPacking,
		anon:    true,
	}
}

func (r *Registry) sameDefinition(t *Struct, packing uint32, members []MemberDef) bool {
	if t.packing != packing || len(t.members) != len(members) {
		return false
	}
	for i, m := range members {
		if t.members[i].Name != m.Name || t.members[i].Type != m.Type {
			return false
		}
	}
	return true
}
