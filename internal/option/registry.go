// Package option maps option keywords used in attribute declarations onto
// the built-in rule kinds.
//
// A Registry is an explicit object: hosts build one at startup (usually from
// Default), rename or add vocabulary, and hand it to the framework. There is
// no package-level mutable state.
package option

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sync"

	"github.com/roach88/servactory/internal/ir"
)

// BuildFunc expands an option value into a rule. keyword is the name the
// option was declared with.
type BuildFunc func(keyword string, v ir.OptionValue, r *Registry) (ir.Rule, error)

// Helper is a registered option keyword.
type Helper struct {
	Name  string
	Kind  ir.RuleKind
	Build BuildFunc
}

// FormatFunc validates a string against a named format.
type FormatFunc func(s string) bool

// ErrUnknownOption is returned when a keyword has no helper in a namespace.
var ErrUnknownOption = errors.New("unknown option")

// Registry holds option helpers per namespace, named format validators and
// named type tags. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	helpers map[ir.Namespace]map[string]Helper
	formats map[string]FormatFunc
	types   map[string]ir.TypeTag
}

// NewRegistry returns a registry with no helpers or formats and the
// built-in type tags.
func NewRegistry() *Registry {
	r := &Registry{
		helpers: make(map[ir.Namespace]map[string]Helper, len(ir.Namespaces)),
		formats: make(map[string]FormatFunc),
		types:   ir.Builtins(),
	}
	for _, ns := range ir.Namespaces {
		r.helpers[ns] = make(map[string]Helper)
	}
	return r
}

// Register adds a helper to namespace ns.
func (r *Registry) Register(ns ir.Namespace, h Helper) error {
	if !ns.Valid() {
		return fmt.Errorf("register %q: unknown namespace %q", h.Name, ns)
	}
	if h.Name == "" || h.Build == nil {
		return fmt.Errorf("register %q: helper needs a name and a build function", h.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.helpers[ns][h.Name]; exists {
		return fmt.Errorf("register %q: already registered for %s", h.Name, ns)
	}
	r.helpers[ns][h.Name] = h
	return nil
}

// RegisterAll adds a helper to every namespace.
func (r *Registry) RegisterAll(h Helper) error {
	for _, ns := range ir.Namespaces {
		if err := r.Register(ns, h); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the helper registered under name in ns.
func (r *Registry) Lookup(ns ir.Namespace, name string) (Helper, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.helpers[ns][name]
	return h, ok
}

// Rename moves a helper to a new keyword within ns. The old keyword stops
// being accepted.
func (r *Registry) Rename(ns ir.Namespace, from, to string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.helpers[ns][from]
	if !ok {
		return fmt.Errorf("rename %q: %w in %s", from, ErrUnknownOption, ns)
	}
	if _, exists := r.helpers[ns][to]; exists {
		return fmt.Errorf("rename %q: %q already registered for %s", from, to, ns)
	}
	delete(r.helpers[ns], from)
	h.Name = to
	r.helpers[ns][to] = h
	return nil
}

// Alias registers alias as a second keyword for an existing helper in ns.
func (r *Registry) Alias(ns ir.Namespace, alias, existing string) error {
	h, ok := r.Lookup(ns, existing)
	if !ok {
		return fmt.Errorf("alias %q: %w %q in %s", alias, ErrUnknownOption, existing, ns)
	}
	h.Name = alias
	return r.Register(ns, h)
}

// Names returns the registered keywords of ns, sorted.
func (r *Registry) Names(ns ir.Namespace) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.helpers[ns]))
	for name := range r.helpers[ns] {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Expand builds the rule for keyword in ns.
func (r *Registry) Expand(ns ir.Namespace, keyword string, v ir.OptionValue) (ir.Rule, error) {
	h, ok := r.Lookup(ns, keyword)
	if !ok {
		return nil, fmt.Errorf("%q: %w", keyword, ErrUnknownOption)
	}
	return h.Build(keyword, v, r)
}

// RegisterFormat adds or replaces a named format validator.
func (r *Registry) RegisterFormat(name string, fn FormatFunc) error {
	if name == "" || fn == nil {
		return fmt.Errorf("register format %q: needs a name and a function", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.formats[name] = fn
	return nil
}

// RegisterPattern adds or replaces a format validated by a regular expression.
func (r *Registry) RegisterPattern(name string, pattern *regexp.Regexp) error {
	if pattern == nil {
		return fmt.Errorf("register format %q: nil pattern", name)
	}
	return r.RegisterFormat(name, pattern.MatchString)
}

// Format returns the validator of a named format.
func (r *Registry) Format(name string) (FormatFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.formats[name]
	return fn, ok
}

// RegisterType makes a type tag available by name to declarative definitions.
func (r *Registry) RegisterType(tag ir.TypeTag) error {
	if tag.Name == "" {
		return errors.New("register type: empty name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[tag.Name] = tag
	return nil
}

// Type resolves a type tag by name.
func (r *Registry) Type(name string) (ir.TypeTag, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

// Default returns a registry with the built-in helpers registered for every
// namespace and the built-in formats.
func Default() *Registry {
	r := NewRegistry()
	for _, h := range builtinHelpers() {
		if err := r.RegisterAll(h); err != nil {
			panic(err) // Built-in helper names are unique
		}
	}
	for name, fn := range builtinFormats() {
		r.formats[name] = fn
	}
	return r
}
