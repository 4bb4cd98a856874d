// Package typesys defines the capability interface the extractor walks.
//
// A Provider exposes the declared types of one unit (a Go package, a set of
// registered runtime types). Implementations live in the reflectprovider and
// srcprovider subpackages; the extractor depends only on the interfaces here.
package typesys

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a type the way the snapshot flags do
type Kind int

const (
	// KindOther - named types that are neither structs, enums nor interfaces
	KindOther Kind = iota

	// KindClass - reference types with identity
	KindClass

	// KindStruct - value aggregates
	KindStruct

	// KindEnum - integer types with a closed set of named constants
	KindEnum

	// KindInterface - method sets
	KindInterface
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindStruct:
		return "struct"
	case KindEnum:
		return "enum"
	case KindInterface:
		return "interface"
	default:
		return "other"
	}
}

// Ref names a type used by a member: a field type, a return type, a parameter type.
type Ref interface {
	Name() string
	FullName() string
	GenericArgs() []Ref
}

// Field is a field declared directly on a type
type Field struct {
	Name     string
	Type     Ref
	Public   bool
	Static   bool
	ReadOnly bool
}

// Param is a method parameter
type Param struct {
	Name string
	Type Ref
}

// Method is a method declared directly on a type. Return is nil for methods
// without a result. SpecialName marks property accessors.
type Method struct {
	Name        string
	Return      Ref
	Public      bool
	Static      bool
	SpecialName bool
	Params      []Param
}

// Property is a named value exposed through accessor methods
type Property struct {
	Name     string
	Type     Ref
	CanRead  bool
	CanWrite bool
}

// Type is one declared type. Member accessors may fail independently of each other.
type Type interface {
	Name() string
	FullName() string
	Namespace() string
	Base() Ref
	Kind() Kind
	Fields() ([]Field, error)
	Methods() ([]Method, error)
	Properties() ([]Property, error)
}

// Provider enumerates the declared types of a single unit.
//
// Types may return a non-empty slice together with a *PartialEnumerationError
// when only some of the unit's types could be resolved. Any other error means
// nothing was enumerated.
type Provider interface {
	UnitName() string
	Types(ctx context.Context) ([]Type, error)
}

// PartialEnumerationError reports types the host could not resolve
type PartialEnumerationError struct {
	Unit     string
	Resolved int
	Errs     []error
}

func (e *PartialEnumerationError) Error() string {
	msgs := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("unit %s: resolved %d types, %d failed: %s",
		e.Unit, e.Resolved, len(e.Errs), strings.Join(msgs, "; "))
}

func (e *PartialEnumerationError) Unwrap() []error {
	return e.Errs
}

// IsPartialEnumeration checks if an error is a PartialEnumerationError
func IsPartialEnumeration(err error) bool {
	var e *PartialEnumerationError
	return errors.As(err, &e)
}
