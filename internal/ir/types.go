package ir

import (
	"math/big"
	"reflect"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// TypeTag is an accepted type for an attribute or a collection element.
// Two tags are the same tag when their names are equal.
type TypeTag struct {
	Name   string
	match  func(v any) bool
	goType reflect.Type
}

// NewTypeTag creates a tag named name that accepts values for which match
// returns true.
func NewTypeTag(name string, match func(v any) bool) TypeTag {
	return TypeTag{Name: name, match: match}
}

// TypeOf creates a tag accepting any value assignable to T. Interface types
// accept every implementation.
func TypeOf[T any]() TypeTag {
	rt := reflect.TypeOf((*T)(nil)).Elem()
	return TypeTag{
		Name:   rt.String(),
		goType: rt,
		match: func(v any) bool {
			if v == nil {
				return false
			}
			return reflect.TypeOf(v).AssignableTo(rt)
		},
	}
}

// Matches reports whether v is an instance of the tag.
func (t TypeTag) Matches(v any) bool {
	if t.match == nil {
		return false
	}
	return t.match(v)
}

// GoType returns the Go type of a tag created with TypeOf, nil otherwise.
func (t TypeTag) GoType() reflect.Type { return t.goType }

// String returns the tag name.
func (t TypeTag) String() string { return t.Name }

// Built-in type tags.
var (
	String   = NewTypeTag("String", func(v any) bool { _, ok := v.(string); return ok })
	Integer  = NewTypeTag("Integer", isInteger)
	Float    = NewTypeTag("Float", isFloat)
	Rational = NewTypeTag("Rational", func(v any) bool { r, ok := v.(*big.Rat); return ok && r != nil })
	Decimal  = NewTypeTag("Decimal", isDecimal)
	Numeric  = NewTypeTag("Numeric", func(v any) bool { return isInteger(v) || isFloat(v) || isDecimal(v) || Rational.Matches(v) })
	Boolean  = NewTypeTag("Boolean", func(v any) bool { _, ok := v.(bool); return ok })
	Array    = NewTypeTag("Array", func(v any) bool { return kindOf(v) == reflect.Slice || kindOf(v) == reflect.Array })
	Hash     = NewTypeTag("Hash", func(v any) bool { return kindOf(v) == reflect.Map })
	Time     = NewTypeTag("Time", func(v any) bool { _, ok := v.(time.Time); return ok })
	Duration = NewTypeTag("Duration", func(v any) bool { _, ok := v.(time.Duration); return ok })
	Nil      = NewTypeTag("Nil", func(v any) bool { return IsNil(v) })
	Any      = NewTypeTag("Any", func(any) bool { return true })
)

// nameOrder is the lookup order used by TypeName; more specific tags first.
var nameOrder = []TypeTag{Nil, String, Boolean, Integer, Float, Rational, Decimal, Duration, Time, Hash, Array}

// Builtins returns every built-in tag keyed by name.
func Builtins() map[string]TypeTag {
	out := make(map[string]TypeTag, len(nameOrder)+2)
	for _, t := range nameOrder {
		out[t.Name] = t
	}
	out[Numeric.Name] = Numeric
	out[Any.Name] = Any
	return out
}

// TypeName returns the display name of v's type: a built-in tag name when one
// matches, otherwise the Go type name.
func TypeName(v any) string {
	for _, t := range nameOrder {
		if t.Matches(v) {
			return t.Name
		}
	}
	return reflect.TypeOf(v).String()
}

// TypeNames joins tag names with ", ".
func TypeNames(tags []TypeTag) string {
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.Name
	}
	return strings.Join(names, ", ")
}

// MatchesAny reports whether v is an instance of at least one tag.
func MatchesAny(tags []TypeTag, v any) bool {
	for _, t := range tags {
		if t.Matches(v) {
			return true
		}
	}
	return false
}

// IsNil reports whether v is nil or a nil pointer, map, slice or interface.
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func kindOf(v any) reflect.Kind {
	if IsNil(v) {
		return reflect.Invalid
	}
	return reflect.TypeOf(v).Kind()
}

func isInteger(v any) bool {
	switch n := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case *big.Int:
		return n != nil
	}
	return false
}

func isFloat(v any) bool {
	switch v.(type) {
	case float32, float64:
		return true
	}
	return false
}

func isDecimal(v any) bool {
	switch d := v.(type) {
	case *apd.Decimal:
		return d != nil
	case apd.Decimal:
		return true
	}
	return false
}
