package schema

// Merge combines schemas from several translation units into one. Later
// schemas never displace earlier declarations of the same name, with one
// deliberate exception: a struct/union definition carrying a full member
// list takes precedence over an opaque declaration of the same type, no
// matter which side it arrives on. Structural conflicts between two
// complete definitions are left to the type registry, which fails
// resolution with type_conflict.
func Merge(schemas ...*Schema) (*Schema, error) {
	merged := &Schema{FormatVersion: FormatVersion}

	types := make(map[string]int)
	funcs := make(map[string]bool)
	vars := make(map[string]bool)
	consts := make(map[string]bool)
	defined := make(map[string]bool)

	for _, s := range schemas {
		if err := s.checkVersion(); err != nil {
			return nil, err
		}
		if merged.Name == "" {
			merged.Name = s.Name
		}

		for _, decl := range s.Types {
			if i, ok := types[decl.Name]; ok {
				if opaqueTag(merged.Types[i].Spec) && !opaqueTag(decl.Spec) {
					merged.Types[i] = decl
				}
				continue
			}
			types[decl.Name] = len(merged.Types)
			merged.Types = append(merged.Types, decl)
		}

		for _, fn := range s.Funcs {
			if !funcs[fn.Name] {
				funcs[fn.Name] = true
				merged.Funcs = append(merged.Funcs, fn)
			}
		}
		for _, v := range s.Vars {
			if !vars[v.Name] {
				vars[v.Name] = true
				merged.Vars = append(merged.Vars, v)
			}
		}
		for _, c := range s.Constants {
			if !consts[c.Name] {
				consts[c.Name] = true
				merged.Constants = append(merged.Constants, c)
			}
		}
		for _, name := range s.Defined {
			if !defined[name] {
				defined[name] = true
				merged.Defined = append(merged.Defined, name)
			}
		}
	}

	return merged, nil
}

func opaqueTag(spec *TypeSpec) bool {
	if spec == nil {
		return true
	}
	if spec.Kind != "struct" && spec.Kind != "union" {
		return false
	}
	return spec.Members == nil
}
