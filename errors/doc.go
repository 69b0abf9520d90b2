// Package errors provides structured error types for wasmbind.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). Declarations that cannot cross the boundary surface at build
// time as one of three kinds:
//
//	KindSchema     unsupported type shape or reference nesting
//	KindArity      more than one output on a signature
//	KindReference  Record(name) absent from the registry
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseEncode, errors.KindTypeMismatch).
//		Path("point", "x").
//		GoType("string").
//		TypeName("i32").
//		Build()
//
// Or the convenience constructors:
//
//	err := errors.Arity("split", 2)
//	err := errors.Reference(errors.PhaseCompile, path, "point")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
