// Package outcome defines the error taxonomy and the Result envelope returned
// by every invocation.
package outcome

import (
	"errors"
	"fmt"
	"maps"

	"github.com/roach88/servactory/internal/ir"
)

// AttributeError is the shared shape of the three validation errors.
type AttributeError struct {
	Service   string
	Attribute string
	Message   string
	Meta      map[string]any
}

// Error implements the error interface.
func (e *AttributeError) Error() string {
	return e.Message
}

// InputError reports bad caller-supplied input or misuse of the input namespace.
type InputError struct{ AttributeError }

// InternalError reports an internal attribute violating its declaration.
type InternalError struct{ AttributeError }

// OutputError reports an output attribute violating its declaration.
type OutputError struct{ AttributeError }

// NewAttributeError returns the typed error of namespace ns.
func NewAttributeError(ns ir.Namespace, service, attribute, message string, meta map[string]any) error {
	base := AttributeError{Service: service, Attribute: attribute, Message: message, Meta: meta}
	switch ns {
	case ir.NamespaceInternal:
		return &InternalError{base}
	case ir.NamespaceOutput:
		return &OutputError{base}
	default:
		return &InputError{base}
	}
}

// AsAttributeError extracts a validation error and its namespace.
// Uses errors.As to handle wrapped errors.
func AsAttributeError(err error) (*AttributeError, ir.Namespace, bool) {
	var ie *InputError
	if errors.As(err, &ie) {
		return &ie.AttributeError, ir.NamespaceInput, true
	}
	var ne *InternalError
	if errors.As(err, &ne) {
		return &ne.AttributeError, ir.NamespaceInternal, true
	}
	var oe *OutputError
	if errors.As(err, &oe) {
		return &oe.AttributeError, ir.NamespaceOutput, true
	}
	return nil, "", false
}

// IsInputError returns true if err is or wraps an InputError.
func IsInputError(err error) bool {
	var e *InputError
	return errors.As(err, &e)
}

// IsInternalError returns true if err is or wraps an InternalError.
func IsInternalError(err error) bool {
	var e *InternalError
	return errors.As(err, &e)
}

// IsOutputError returns true if err is or wraps an OutputError.
func IsOutputError(err error) bool {
	var e *OutputError
	return errors.As(err, &e)
}

// Failure types with built-in meaning.
const (
	TypeBase = "base"
	// TypeAll selects every failure in Result.OnFailure. No failure ever has
	// this type.
	TypeAll = "all"
)

// Failure is an explicit business-logic failure.
type Failure struct {
	Type    string
	Message string
	Meta    map[string]any
	Cause   error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	return f.Message
}

// Unwrap returns the error the failure was built from, if any.
func (f *Failure) Unwrap() error {
	return f.Cause
}

// Clone returns a copy of the failure with its own Meta map. Nested meta
// values are shared.
func (f *Failure) Clone() *Failure {
	if f == nil {
		return nil
	}
	c := *f
	c.Meta = maps.Clone(f.Meta)
	return &c
}

// IsType reports whether the failure has exactly type t. It is always false
// for TypeAll.
func (f *Failure) IsType(t string) bool {
	return t != TypeAll && f.Type == t
}

// IsBase reports whether the failure is of type "base".
func (f *Failure) IsBase() bool { return f.IsType(TypeBase) }

// IsInput reports whether the failure wraps an input validation error.
func (f *Failure) IsInput() bool { return f.IsType(string(ir.NamespaceInput)) }

// IsInternal reports whether the failure wraps an internal validation error.
func (f *Failure) IsInternal() bool { return f.IsType(string(ir.NamespaceInternal)) }

// IsOutput reports whether the failure wraps an output validation error.
func (f *Failure) IsOutput() bool { return f.IsType(string(ir.NamespaceOutput)) }

// NewFailure returns a base failure. Empty typ means "base".
func NewFailure(typ, message string, meta map[string]any) *Failure {
	if typ == "" {
		typ = TypeBase
	}
	return &Failure{Type: typ, Message: message, Meta: meta}
}

// AsFailure extracts a Failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// IsFailure returns true if err is or wraps a Failure.
func IsFailure(err error) bool {
	_, ok := AsFailure(err)
	return ok
}

// ToFailure converts an expected error into a Failure. Validation errors
// become failures typed after their namespace with the attribute in meta.
// It returns false for unexpected errors.
func ToFailure(err error) (*Failure, bool) {
	if f, ok := AsFailure(err); ok {
		return f, true
	}
	if ae, ns, ok := AsAttributeError(err); ok {
		meta := map[string]any{"attribute": ae.Attribute}
		for k, v := range ae.Meta {
			meta[k] = v
		}
		return &Failure{Type: string(ns), Message: ae.Message, Meta: meta, Cause: err}, true
	}
	return nil, false
}

// IsExpected reports whether err belongs to the expected taxonomy: a
// validation error or a Failure. Definition errors are never expected.
func IsExpected(err error) bool {
	if err == nil || IsDefinitionError(err) {
		return false
	}
	_, ok := ToFailure(err)
	return ok
}

// DefinitionCode categorizes definition errors.
type DefinitionCode string

const (
	ErrCodeReserved          DefinitionCode = "RESERVED_NAME"
	ErrCodeDuplicate         DefinitionCode = "DUPLICATE_ATTRIBUTE"
	ErrCodeConflict          DefinitionCode = "NAMESPACE_CONFLICT"
	ErrCodeRequiredDefault   DefinitionCode = "REQUIRED_VS_DEFAULT"
	ErrCodeUnknownOption     DefinitionCode = "UNKNOWN_OPTION"
	ErrCodeUnsupportedOption DefinitionCode = "UNSUPPORTED_OPTION"
	ErrCodeInvalidOption     DefinitionCode = "INVALID_OPTION"
	ErrCodeInvalidPipeline   DefinitionCode = "INVALID_PIPELINE"
	ErrCodeUnbound           DefinitionCode = "UNBOUND_NAME"
)

// DefinitionError is raised while a service is built, before any invocation.
type DefinitionError struct {
	Service   string
	Namespace ir.Namespace
	Attribute string
	Code      DefinitionCode
	Message   string
}

// Error implements the error interface.
func (e *DefinitionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the namespace's typed error carrying the same message, so
// errors.As(err, &*InputError) matches input definition errors.
func (e *DefinitionError) Unwrap() error {
	if e.Namespace == "" {
		return nil
	}
	return NewAttributeError(e.Namespace, e.Service, e.Attribute, e.Message, nil)
}

// IsDefinitionError returns true if err is or wraps a DefinitionError.
func IsDefinitionError(err error) bool {
	var e *DefinitionError
	return errors.As(err, &e)
}

// IsDefinitionCode returns true if err is a DefinitionError with code.
func IsDefinitionCode(err error, code DefinitionCode) bool {
	var e *DefinitionError
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
