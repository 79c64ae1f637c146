// Package workspace holds the per-invocation values of the three attribute
// namespaces.
//
// A Workspace is created for exactly one invocation and is never shared.
// Inputs are populated once and are read-only afterwards; every write to an
// internal or output attribute runs the full validation chain before the
// value is committed.
package workspace

import (
	"errors"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/servactory/internal/ir"
	"github.com/roach88/servactory/internal/messages"
	"github.com/roach88/servactory/internal/outcome"
	"github.com/roach88/servactory/internal/validation"
)

var errAlreadyPopulated = errors.New("workspace: inputs already populated")

// Workspace stores attribute values for one invocation. It is not safe for
// concurrent use.
type Workspace struct {
	service    string
	decls      *ir.Declarations
	validator  *validation.Validator
	catalog    *messages.Catalog
	predicates bool
	populated  bool
	values     map[ir.Namespace]map[string]any
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithPredicates enables the Has presence accessor.
func WithPredicates(enabled bool) Option {
	return func(w *Workspace) { w.predicates = enabled }
}

// New creates an empty workspace over the service's declarations.
func New(service string, decls *ir.Declarations, v *validation.Validator, catalog *messages.Catalog, opts ...Option) *Workspace {
	w := &Workspace{
		service:   service,
		decls:     decls,
		validator: v,
		catalog:   catalog,
		values: map[ir.Namespace]map[string]any{
			ir.NamespaceInput:    {},
			ir.NamespaceInternal: {},
			ir.NamespaceOutput:   {},
		},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Populate fills the inputs from args merged with the declared defaults.
//
// Keys that match no declared input are rejected before anything is
// validated. Inputs are then validated in declaration order and the first
// failure is returned. Populate may only be called once.
func (w *Workspace) Populate(args map[string]any) error {
	if w.populated {
		return errAlreadyPopulated
	}

	var unexpected []string
	for key := range args {
		if _, ok := w.decls.Lookup(ir.NamespaceInput, key); !ok {
			unexpected = append(unexpected, key)
		}
	}
	if len(unexpected) > 0 {
		slices.Sort(unexpected)
		joined := strings.Join(unexpected, ", ")
		return w.fail(ir.NamespaceInput, "", "unexpected", map[string]any{"unexpected": unexpected}, joined)
	}

	inputs := make(map[string]any, w.decls.Len(ir.NamespaceInput))
	for _, attr := range w.decls.List(ir.NamespaceInput) {
		value := args[attr.Name]
		if ir.IsNil(value) && attr.HasDefault() {
			value = attr.Default.Resolve()
		}
		checked, err := w.validator.Check(attr, value)
		if err != nil {
			return err
		}
		inputs[attr.Name] = checked
	}

	w.values[ir.NamespaceInput] = inputs
	w.populated = true
	return nil
}

// Get returns the value of a declared attribute.
func (w *Workspace) Get(ns ir.Namespace, name string) (any, error) {
	if _, ok := w.decls.Lookup(ns, name); !ok {
		return nil, w.fail(ns, name, "undefined_getter", nil)
	}
	v, ok := w.values[ns][name]
	if !ok && ns != ir.NamespaceInput {
		return nil, w.fail(ns, name, "unset", nil)
	}
	return v, nil
}

// Set validates and commits an internal or output value. A failed write
// leaves the previous value untouched.
func (w *Workspace) Set(ns ir.Namespace, name string, value any) error {
	attr, ok := w.decls.Lookup(ns, name)
	switch {
	case ns == ir.NamespaceInput && ok:
		return w.fail(ns, name, "immutable", nil)
	case !ok:
		return w.fail(ns, name, "undefined_setter", nil)
	}

	checked, err := w.validator.Check(attr, value)
	if err != nil {
		return err
	}
	w.values[ns][name] = checked
	return nil
}

// Has reports whether a declared attribute holds a truthy value. It fails
// when presence accessors are disabled.
func (w *Workspace) Has(ns ir.Namespace, name string) (bool, error) {
	if !w.predicates {
		return false, w.fail(ns, name, "predicate_disabled", nil)
	}
	if _, ok := w.decls.Lookup(ns, name); !ok {
		return false, w.fail(ns, name, "undefined_getter", nil)
	}
	return ir.Truthy(w.values[ns][name]), nil
}

// IsSet reports whether a value was assigned to name.
func (w *Workspace) IsSet(ns ir.Namespace, name string) bool {
	_, ok := w.values[ns][name]
	return ok
}

// Values returns a copy of the assigned values of a namespace.
func (w *Workspace) Values(ns ir.Namespace) map[string]any {
	return maps.Clone(w.values[ns])
}

// Service returns the name of the owning service.
func (w *Workspace) Service() string { return w.service }

// Attribute returns the declaration of name in ns.
func (w *Workspace) Attribute(ns ir.Namespace, name string) (*ir.Attribute, bool) {
	return w.decls.Lookup(ns, name)
}

// Inputs returns the read-only input view.
func (w *Workspace) Inputs() View { return View{ws: w, ns: ir.NamespaceInput} }

// Internals returns the internal attribute view.
func (w *Workspace) Internals() View { return View{ws: w, ns: ir.NamespaceInternal} }

// Outputs returns the output attribute view.
func (w *Workspace) Outputs() View { return View{ws: w, ns: ir.NamespaceOutput} }

func (w *Workspace) fail(ns ir.Namespace, name, variant string, meta map[string]any, extra ...string) error {
	msg := w.catalog.Render(ns, messages.RuleWorkspace, variant, w.service, name, extra...)
	return outcome.NewAttributeError(ns, w.service, name, msg, meta)
}

// View scopes workspace access to one namespace.
type View struct {
	ws *Workspace
	ns ir.Namespace
}

// Namespace returns the namespace of the view.
func (v View) Namespace() ir.Namespace { return v.ns }

// Get reads name.
func (v View) Get(name string) (any, error) { return v.ws.Get(v.ns, name) }

// Set writes name.
func (v View) Set(name string, value any) error { return v.ws.Set(v.ns, name, value) }

// Has is the presence accessor of name.
func (v View) Has(name string) (bool, error) { return v.ws.Has(v.ns, name) }

// Names lists the declared names of the namespace in declaration order.
func (v View) Names() []string {
	attrs := v.ws.decls.List(v.ns)
	names := make([]string, len(attrs))
	for i, a := range attrs {
		names[i] = a.Name
	}
	return names
}

// Values returns a copy of the assigned values.
func (v View) Values() map[string]any { return v.ws.Values(v.ns) }
