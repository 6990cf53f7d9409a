package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseResolve Phase = "resolve" // schema resolution
	PhaseLayout  Phase = "layout"  // ABI layout computation
	PhaseEncode  Phase = "encode"  // Go to C bytes
	PhaseDecode  Phase = "decode"  // C bytes to Go
	PhaseCast    Phase = "cast"    // implicit/explicit conversion
	PhaseAccess  Phase = "access"  // proxy navigation
	PhaseCall    Phase = "call"    // native call bridging
	PhaseMock    Phase = "mock"    // mock dispatch
	PhaseLoad    Phase = "load"    // module/symbol binding
)

// Kind categorizes the error
type Kind string

const (
	KindTypeConflict     Kind = "type_conflict"     // incompatible redefinition of a named type
	KindIncompleteType   Kind = "incomplete_type"   // layout requested on an opaque type
	KindTypeMismatch     Kind = "type_mismatch"     // operator/cast/assignment across incompatible types
	KindLengthMismatch   Kind = "length_mismatch"   // sequence length vs declared array length
	KindOutOfBounds      Kind = "out_of_bounds"     // array index outside declared length
	KindUnknownMember    Kind = "unknown_member"    // no such struct/union member
	KindUnresolvedSymbol Kind = "unresolved_symbol" // call reached a symbol with no handler
	KindHostFault        Kind = "host_fault"        // host failure captured under native frames
	KindOverflow         Kind = "overflow"
	KindWriteProtect     Kind = "write_protect"
	KindAllocation       Kind = "allocation"
	KindNotFound         Kind = "not_found"
	KindInvalidInput     Kind = "invalid_input"
)

// Error is the structured error type used throughout the library
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	GoType string
	CType  string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.CType != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.CType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", C type ")
			b.WriteString(e.CType)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("C type ")
			b.WriteString(e.CType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.CType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the access path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// CType sets the C type definition
func (b *Builder) CType(t string) *Builder {
	b.err.CType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// TypeConflict reports an incompatible redefinition of a named type
func TypeConflict(name, detail string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindTypeConflict,
		CType:  name,
		Detail: detail,
	}
}

// IncompleteType reports a layout request against an opaque type
func IncompleteType(cType string) *Error {
	return &Error{
		Phase:  PhaseLayout,
		Kind:   KindIncompleteType,
		CType:  cType,
		Detail: "type is not fully defined",
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, goType, cType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Path:   path,
		GoType: goType,
		CType:  cType,
	}
}

// LengthMismatch reports a sequence length that does not fit the array
func LengthMismatch(phase Phase, path []string, got, want int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindLengthMismatch,
		Path:   path,
		Detail: fmt.Sprintf("sequence of length %d does not fit array of length %d", got, want),
		Value:  got,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// UnknownMember creates an unknown struct/union member error
func UnknownMember(phase Phase, path []string, member string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnknownMember,
		Path:   path,
		Detail: fmt.Sprintf("unknown member %q", member),
	}
}

// UnresolvedSymbol reports a call that reached a symbol with no handler
func UnresolvedSymbol(symbol string) *Error {
	return &Error{
		Phase:  PhaseMock,
		Kind:   KindUnresolvedSymbol,
		Detail: fmt.Sprintf("symbol %q is not implemented and has no mock handler", symbol),
		Value:  symbol,
	}
}

// HostFault wraps a non-error host failure captured under native frames.
// Host failures that already are errors are re-raised unchanged instead.
func HostFault(v any) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindHostFault,
		Detail: fmt.Sprintf("host callable panicked: %v", v),
		Value:  v,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, targetType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Path:   path,
		CType:  targetType,
		Detail: fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:  value,
	}
}

// WriteProtect reports a write through a const-qualified type
func WriteProtect(path []string, cType string) *Error {
	return &Error{
		Phase:  PhaseEncode,
		Kind:   KindWriteProtect,
		Path:   path,
		CType:  cType,
		Detail: "memory is const-qualified",
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(size uint32, cause error) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes", size),
		Cause:  cause,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// UnresolvedSymbolsError is reported after binding a loaded module to list
// every external symbol that will need a mock handler before it is called.
// It is informational: an unused unresolved symbol is harmless.
type UnresolvedSymbolsError struct {
	Symbols []string
}

func (e *UnresolvedSymbolsError) Error() string {
	if len(e.Symbols) == 0 {
		return "[load] unresolved_symbol: no symbols specified"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%d native symbol(s) need mock handlers:\n", len(e.Symbols)))
	for _, sym := range e.Symbols {
		b.WriteString("  - ")
		b.WriteString(sym)
		b.WriteByte('\n')
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Is reports whether target matches this error type
func (e *UnresolvedSymbolsError) Is(target error) bool {
	_, ok := target.(*UnresolvedSymbolsError)
	return ok
}
