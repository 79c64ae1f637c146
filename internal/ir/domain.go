package ir

import (
	"fmt"
	"strings"
)

// Domain is the set of allowed values of an inclusion rule.
type Domain interface {
	Contains(v any) bool
	String() string
	domain()
}

// Set is a discrete list of allowed values.
type Set []any

func (Set) domain() {}

// Contains reports whether v equals one of the listed values.
func (s Set) Contains(v any) bool {
	for _, allowed := range s {
		if ValuesEqual(allowed, v) {
			return true
		}
	}
	return false
}

func (s Set) String() string {
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = FormatValue(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Range is a bounded, half-bounded or exclusive interval.
type Range struct {
	Min          any
	Max          any
	HasMin       bool
	HasMax       bool
	ExclusiveMax bool
}

func (Range) domain() {}

// Contains reports whether v lies within the range. Values not comparable
// with the bounds are outside.
func (r Range) Contains(v any) bool {
	if r.HasMin {
		c, ok := Compare(v, r.Min)
		if !ok || c < 0 {
			return false
		}
	}
	if r.HasMax {
		c, ok := Compare(v, r.Max)
		if !ok || c > 0 || (r.ExclusiveMax && c == 0) {
			return false
		}
	}
	return true
}

func (r Range) String() string {
	var b strings.Builder
	if r.HasMin {
		b.WriteString(FormatValue(r.Min))
	}
	if r.ExclusiveMax {
		b.WriteString("...")
	} else {
		b.WriteString("..")
	}
	if r.HasMax {
		b.WriteString(FormatValue(r.Max))
	}
	return b.String()
}

// In returns a discrete domain.
func In(values ...any) Domain {
	return Set(values)
}

// Between returns the inclusive range min..max.
func Between(min, max any) Domain {
	return Range{Min: min, Max: max, HasMin: true, HasMax: true}
}

// BetweenExclusive returns the range min...max excluding max.
func BetweenExclusive(min, max any) Domain {
	return Range{Min: min, Max: max, HasMin: true, HasMax: true, ExclusiveMax: true}
}

// AtLeast returns the unbounded range min..
func AtLeast(min any) Domain {
	return Range{Min: min, HasMin: true}
}

// AtMost returns the unbounded range ..max
func AtMost(max any) Domain {
	return Range{Max: max, HasMax: true}
}

// FormatValue renders a value for messages: strings quoted, nil as "nil".
func FormatValue(v any) string {
	if IsNil(v) {
		return "nil"
	}
	switch x := v.(type) {
	case string:
		return fmt.Sprintf("%q", x)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}
