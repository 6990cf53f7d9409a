package ctype

import (
	"fmt"

	"github.com/wippyai/cbridge/errors"
	"github.com/wippyai/cbridge/schema"
)

// Load resolves every declaration of a schema into the registry, in
// order. Construction-time failures (layout, conflicts) abort the load.
func (r *Registry) Load(sch *schema.Schema) error {
	for _, decl := range sch.Types {
		if _, err := r.resolveDecl(decl); err != nil {
			return err
		}
	}
	for _, fn := range sch.Funcs {
		if _, err := r.Resolve(fn.Type); err != nil {
			return err
		}
	}
	for _, v := range sch.Vars {
		if _, err := r.Resolve(v.Type); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) resolveDecl(decl *schema.TypeDecl) (Type, error) {
	spec := decl.Spec
	if spec == nil {
		return nil, errors.InvalidInput(errors.PhaseResolve,
			fmt.Sprintf("type %q has no spec", decl.Name))
	}

	// Tagged types resolve under their own tag name; anything else is a
	// typedef of the resolved spec.
	if spec.Kind == "struct" || spec.Kind == "union" {
		if spec.Name == "" {
			spec.Name = decl.Name
		}
		return r.Resolve(spec)
	}

	t, err := r.Resolve(spec)
	if err != nil {
		return nil, err
	}
	if existing, ok := r.typedefs[decl.Name]; ok {
		if existing != t {
			return nil, errors.TypeConflict(decl.Name, "typedef redefined to a different type")
		}
		return existing, nil
	}
	if r.typedefs == nil {
		r.typedefs = make(map[string]Type)
	}
	r.typedefs[decl.Name] = t
	return t, nil
}

// Resolve returns the canonical descriptor for a structural type spec.
// It is idempotent: structurally identical specs resolve to the same
// instance.
func (r *Registry) Resolve(spec *schema.TypeSpec) (Type, error) {
	if spec == nil {
		return nil, errors.InvalidInput(errors.PhaseResolve, "nil type spec")
	}

	switch spec.Kind {
	case "void":
		return r.Void(), nil

	case "bool":
		return r.Bool(), nil

	case "int":
		name := spec.Name
		if name == "" {
			name = defaultIntName(spec.Bits, spec.Signed)
		}
		return r.Int(name, spec.Bits, spec.Signed)

	case "enum":
		name := spec.Name
		if name == "" {
			name = "int"
		}
		return r.Int(name, 32, true)

	case "pointer":
		elem, err := r.Resolve(spec.Elem)
		if err != nil {
			return nil, err
		}
		return r.PointerTo(elem), nil

	case "array":
		elem, err := r.Resolve(spec.Elem)
		if err != nil {
			return nil, err
		}
		return r.ArrayOf(elem, spec.Len), nil

	case "struct", "union":
		union := spec.Kind == "union"
		if spec.Members == nil {
			return r.DeclareStruct(spec.Name, union)
		}
		// Pre-declare the tag so self-referential members resolve against
		// the opaque descriptor, completed in place below.
		if spec.Name != "" {
			if _, err := r.DeclareStruct(spec.Name, union); err != nil {
				return nil, err
			}
		}
		members := make([]MemberDef, len(spec.Members))
		for i, m := range spec.Members {
			mt, err := r.Resolve(m.Type)
			if err != nil {
				return nil, err
			}
			members[i] = MemberDef{Name: m.Name, Type: mt}
		}
		return r.DefineStruct(spec.Name, union, spec.Packing, members)

	case "func":
		var ret Type
		if spec.Return != nil && spec.Return.Kind != "void" {
			var err error
			ret, err = r.Resolve(spec.Return)
			if err != nil {
				return nil, err
			}
		}
		params := make([]Type, len(spec.Params))
		for i, p := range spec.Params {
			pt, err := r.Resolve(p)
			if err != nil {
				return nil, err
			}
			params[i] = pt
		}
		return r.Func(ret, params...), nil

	case "named":
		if t, ok := r.typedefs[spec.Name]; ok {
			return t, nil
		}
		if t, ok := r.structs[spec.Name]; ok {
			return t, nil
		}
		return nil, errors.NotFound(errors.PhaseResolve, "type", spec.Name)

	default:
		return nil, errors.InvalidInput(errors.PhaseResolve,
			fmt.Sprintf("unknown type kind %q", spec.Kind))
	}
}

func defaultIntName(bits uint32, signed bool) string {
	switch bits {
	case 8:
		if signed {
			return "char"
		}
		return "unsigned char"
	case 16:
		if signed {
			return "short"
		}
		return "unsigned short"
	case 64:
		if signed {
			return "long long"
		}
		return "unsigned long long"
	default:
		if signed {
			return "int"
		}
		return "unsigned int"
	}
}
