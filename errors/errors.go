package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseParse    Phase = "parse"    // interface description parsing
	PhaseCompile  Phase = "compile"  // schema → codec plans
	PhaseValidate Phase = "validate" // declaration checks
	PhaseEncode   Phase = "encode"   // Go → linear memory / slots
	PhaseDecode   Phase = "decode"   // linear memory / slots → Go
	PhaseEmbed    Phase = "embed"    // schema sections
	PhaseRuntime  Phase = "runtime"  // module execution
)

// Kind categorizes the error
type Kind string

const (
	// KindSchema: the declaration uses a type shape the protocol cannot carry.
	KindSchema Kind = "schema"
	// KindArity: a signature declares more than one output.
	KindArity Kind = "arity"
	// KindReference: a Record(name) does not resolve in the registry.
	KindReference Kind = "reference"

	KindUnsupported   Kind = "unsupported"
	KindTypeMismatch  Kind = "type_mismatch"
	KindOutOfBounds   Kind = "out_of_bounds"
	KindInvalidData   Kind = "invalid_data"
	KindInvalidUTF8   Kind = "invalid_utf8"
	KindAllocation    Kind = "allocation"
	KindOverflow      Kind = "overflow"
	KindNotFound      Kind = "not_found"
	KindDuplicate     Kind = "duplicate"
	KindOrdering      Kind = "ordering"
	KindInvalidInput  Kind = "invalid_input"
	KindInstantiation Kind = "instantiation"
	KindTrap          Kind = "trap"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	GoType   string
	TypeName string
	Detail   string
	Path     []string
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

	hasTypes := e.GoType != "" || e.TypeName != ""
	if hasTypes {
		b.WriteString(": ")
		switch {
		case e.GoType != "" && e.TypeName != "":
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", declared type ")
			b.WriteString(e.TypeName)
		case e.GoType != "":
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		default:
			b.WriteString("declared type ")
			b.WriteString(e.TypeName)
		}
	}

	if e.Detail != "" {
		if hasTypes {
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

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// TypeName sets the declared type name
func (b *Builder) TypeName(t string) *Builder {
	b.err.TypeName = t
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

// Build-time taxonomy

// Schema creates an error for a declaration the protocol cannot carry.
func Schema(path []string, typeName, detail string) *Error {
	return &Error{
		Phase:    PhaseValidate,
		Kind:     KindSchema,
		Path:     path,
		TypeName: typeName,
		Detail:   detail,
	}
}

// Arity creates an error for a signature with more than one output.
func Arity(function string, outputs int) *Error {
	return &Error{
		Phase:  PhaseValidate,
		Kind:   KindArity,
		Path:   []string{function},
		Detail: fmt.Sprintf("%d outputs declared, at most 1 is supported", outputs),
		Value:  outputs,
	}
}

// Reference creates an error for a record name absent from the registry.
func Reference(phase Phase, path []string, record string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindReference,
		Path:     path,
		TypeName: record,
		Detail:   fmt.Sprintf("record %q is not registered", record),
	}
}

// IsSchema reports whether err carries KindSchema
func IsSchema(err error) bool { return HasKind(err, KindSchema) }

// IsArity reports whether err carries KindArity
func IsArity(err error) bool { return HasKind(err, KindArity) }

// IsReference reports whether err carries KindReference
func IsReference(err error) bool { return HasKind(err, KindReference) }

// HasKind reports whether err, or any *Error in its Cause chain, has kind.
func HasKind(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Cause
	}
	return false
}

// Convenience constructors for common error patterns

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, goType, typeName string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindTypeMismatch,
		Path:     path,
		GoType:   goType,
		TypeName: typeName,
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(phase Phase, path []string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Path:   path,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, align uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// OutOfBounds creates an out of bounds memory access error
func OutOfBounds(phase Phase, path []string, offset, length uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("access of %d bytes at offset %d is out of bounds", length, offset),
		Value:  offset,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, target string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindOverflow,
		Path:     path,
		TypeName: target,
		Detail:   fmt.Sprintf("value %v overflows %s", value, target),
		Value:    value,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
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

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Duplicate creates an error for a name declared twice
func Duplicate(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDuplicate,
		Detail: fmt.Sprintf("%s %q declared more than once", what, name),
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

// Ordering creates an error for a call issued before the previous result was released
func Ordering(pending int) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindOrdering,
		Detail: fmt.Sprintf("previous result not released (%d objects pending)", pending),
		Value:  pending,
	}
}

// Instantiation creates an instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindInstantiation,
		Detail: "instantiate module",
		Cause:  cause,
	}
}

// Trap creates an error for a guest call that did not return normally
func Trap(function string, cause error) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindTrap,
		Path:   []string{function},
		Detail: "call failed",
		Cause:  cause,
	}
}

// ParseFailed creates a parsing error
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidData,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}
