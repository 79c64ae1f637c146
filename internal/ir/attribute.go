package ir

import "fmt"

// DefaultValue is a static value or a function evaluated once per invocation.
type DefaultValue struct {
	value any
	fn    func() any
}

// StaticDefault returns a default holding v.
func StaticDefault(v any) *DefaultValue {
	return &DefaultValue{value: v}
}

// LazyDefault returns a default computed by fn on each invocation.
func LazyDefault(fn func() any) *DefaultValue {
	return &DefaultValue{fn: fn}
}

// Resolve returns the effective default value.
func (d *DefaultValue) Resolve() any {
	if d == nil {
		return nil
	}
	if d.fn != nil {
		return d.fn()
	}
	return d.value
}

// IsLazy reports whether the default is computed.
func (d *DefaultValue) IsLazy() bool {
	return d != nil && d.fn != nil
}

// Attribute is one declared slot of a service. It is built once by the
// service builder and never mutated afterwards.
type Attribute struct {
	Service   string
	Namespace Namespace
	Name      string
	Position  int

	// Types is empty when type checking is disabled.
	Types    []TypeTag
	Required bool
	Default  *DefaultValue

	Inclusion *Inclusion
	Must      []*Must
	// Rules are the remaining rules in declaration order.
	Rules []Rule
}

// HasDefault reports whether a default was declared.
func (a *Attribute) HasDefault() bool {
	return a.Default != nil
}

// Optional reports whether the attribute may be omitted by the caller.
func (a *Attribute) Optional() bool {
	return a.Namespace == NamespaceInput && !a.Required
}

// HasType reports whether tag is among the declared types.
func (a *Attribute) HasType(tag TypeTag) bool {
	for _, t := range a.Types {
		if t.Name == tag.Name {
			return true
		}
	}
	return false
}

// Label renders "Input `name`" for messages.
func (a *Attribute) Label() string {
	return fmt.Sprintf("%s `%s`", Capitalize(string(a.Namespace)), a.Name)
}

// AllRules returns inclusion, must and the remaining rules in check order.
func (a *Attribute) AllRules() []Rule {
	out := make([]Rule, 0, len(a.Must)+len(a.Rules)+1)
	if a.Inclusion != nil {
		out = append(out, a.Inclusion)
	}
	for _, m := range a.Must {
		out = append(out, m)
	}
	return append(out, a.Rules...)
}

// Capitalize upper-cases the first ASCII letter of s.
func Capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
