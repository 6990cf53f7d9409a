// Package errors provides structured error types for the cbridge library.
//
// Errors are categorized by Phase (where the error occurred) and Kind
// (error category). The Error type includes rich context: access path,
// Go/C type names, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseEncode, errors.KindTypeMismatch).
//		Path("msg", "len").
//		GoType("string").
//		CType("unsigned int").
//		Detail("cannot convert string to integer").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.TypeMismatch(errors.PhaseEncode, path, "string", "unsigned int")
//	err := errors.OutOfBounds(errors.PhaseAccess, path, 10, 5)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
