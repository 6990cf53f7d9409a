package ctype

type Kind uint8

const (
	KindVoid Kind = iota
	KindBool
	KindInt
	KindPointer
	KindArray
	KindStruct
	KindUnion
	KindFunc
)

var kindNames = [...]string{
	KindVoid:    "void",
	KindBool:    "bool",
	KindInt:     "int",
	KindPointer: "pointer",
	KindArray:   "array",
	KindStruct:  "struct",
	KindUnion:   "union",
	KindFunc:    "func",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsScalar reports whether values of this kind fit in a single machine
// word and convert to/from plain Go integers.
func (k Kind) IsScalar() bool {
	switch k {
	case KindBool, KindInt, KindPointer, KindFunc:
		return true
	default:
		return false
	}
}
