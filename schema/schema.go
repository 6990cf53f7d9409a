package schema

import (
	"encoding/json"
	"fmt"

	"github.com/coreos/go-semver/semver"

	"github.com/wippyai/cbridge/errors"
)

// FormatVersion is the schema format this library produces and consumes.
// Schemas with a different major version are rejected.
const FormatVersion = "1.0.0"

// Schema is the ordered type schema delivered by the external declaration
// parser for one translation unit: named types, function signatures,
// global variables, named constants, and the set of symbols the unit
// actually implements. Everything referenced but not implemented needs a
// mock handler before it is called.
type Schema struct {
	FormatVersion string      `json:"format_version"`
	Name          string      `json:"name,omitempty"`
	Types         []*TypeDecl `json:"types,omitempty"`
	Funcs         []*FuncDecl `json:"funcs,omitempty"`
	Vars          []*VarDecl  `json:"vars,omitempty"`
	Constants     []*Constant `json:"constants,omitempty"`
	Defined       []string    `json:"defined,omitempty"`
}

// TypeDecl names a type: a struct/union definition (possibly opaque) or a
// typedef of any other spec.
type TypeDecl struct {
	Name string    `json:"name"`
	Spec *TypeSpec `json:"spec"`
}

// FuncDecl declares a function symbol with its signature.
type FuncDecl struct {
	Name string    `json:"name"`
	Type *TypeSpec `json:"type"` // Kind "func"
}

// VarDecl declares a global variable symbol.
type VarDecl struct {
	Name string    `json:"name"`
	Type *TypeSpec `json:"type"`
}

// Constant is a named compile-time constant (enum member or macro).
type Constant struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// TypeSpec is the structural description of one C type. Kinds: "void",
// "bool", "int", "enum", "pointer", "array", "struct", "union", "func",
// and "named" (reference to a typedef or tagged type by name).
type TypeSpec struct {
	Kind    string        `json:"kind"`
	Name    string        `json:"name,omitempty"`
	Bits    uint32        `json:"bits,omitempty"`
	Signed  bool          `json:"signed,omitempty"`
	Len     uint32        `json:"len,omitempty"`
	Packing uint32        `json:"packing,omitempty"`
	Elem    *TypeSpec     `json:"elem,omitempty"`
	Members []*MemberSpec `json:"members,omitempty"` // nil on struct/union means opaque
	Return  *TypeSpec     `json:"return,omitempty"`  // nil on func means void
	Params  []*TypeSpec   `json:"params,omitempty"`
}

// MemberSpec declares one struct/union member.
type MemberSpec struct {
	Name string    `json:"name"`
	Type *TypeSpec `json:"type"`
}

// Decode parses a schema from the external parser's JSON output.
func Decode(data []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidInput, err, "parse schema")
	}
	if err := s.checkVersion(); err != nil {
		return nil, err
	}
	return &s, nil
}

// DefinedSet returns the implemented-symbol set.
func (s *Schema) DefinedSet() map[string]bool {
	set := make(map[string]bool, len(s.Defined))
	for _, name := range s.Defined {
		set[name] = true
	}
	return set
}

// Unresolved lists every declared function that the schema's translation
// units do not implement, in declaration order.
func (s *Schema) Unresolved() []string {
	defined := s.DefinedSet()
	var missing []string
	for _, fn := range s.Funcs {
		if !defined[fn.Name] {
			missing = append(missing, fn.Name)
		}
	}
	return missing
}

func (s *Schema) checkVersion() error {
	if s.FormatVersion == "" {
		return nil // older parsers omit it; treat as current
	}
	have, err := semver.NewVersion(s.FormatVersion)
	if err != nil {
		return errors.InvalidInput(errors.PhaseLoad,
			fmt.Sprintf("bad schema format version %q: %v", s.FormatVersion, err))
	}
	want := semver.New(FormatVersion)
	if have.Major != want.Major {
		return errors.InvalidInput(errors.PhaseLoad,
			fmt.Sprintf("schema format version %s is incompatible with %s", have, want))
	}
	return nil
}
