// Package validation runs an attribute's rule chain against a value.
//
// The order is fixed: required, type, inclusion, must, then the remaining
// rules in declaration order. The first failing check wins; no errors are
// aggregated.
package validation

import (
	"fmt"
	"reflect"

	"github.com/roach88/servactory/internal/ir"
	"github.com/roach88/servactory/internal/messages"
	"github.com/roach88/servactory/internal/option"
	"github.com/roach88/servactory/internal/outcome"
)

// Validator checks values against attribute declarations. It holds no
// per-invocation state and is safe for concurrent use.
type Validator struct {
	registry *option.Registry
	catalog  *messages.Catalog
}

// New creates a Validator resolving formats through registry and rendering
// default messages through catalog.
func New(registry *option.Registry, catalog *messages.Catalog) *Validator {
	return &Validator{registry: registry, catalog: catalog}
}

// Check validates value for attr and returns the value to commit. The
// returned value differs from the argument only when a schema rule filled in
// defaults. Errors are *outcome.InputError, *outcome.InternalError or
// *outcome.OutputError depending on the attribute's namespace.
func (v *Validator) Check(attr *ir.Attribute, value any) (any, error) {
	if attr.Namespace == ir.NamespaceInput && attr.Required {
		if !ir.IsPresent(value) {
			return nil, v.fail(attr, nil, value, "required", "default", nil)
		}
		if attr.HasType(ir.Array) && ir.HasBlankElement(value) {
			return nil, v.fail(attr, nil, value, "required", "for_array", nil)
		}
	}

	// Absent optional input without a default: nothing else applies.
	if attr.Optional() && ir.IsNil(value) {
		return value, nil
	}

	if len(attr.Types) > 0 && !ir.MatchesAny(attr.Types, value) {
		return nil, v.fail(attr, nil, value, "type", "default", map[string]any{"expected": ir.TypeNames(attr.Types), "given": ir.TypeName(value)},
			ir.TypeNames(attr.Types), ir.TypeName(value))
	}

	if attr.Inclusion != nil {
		if err := v.checkInclusion(attr, attr.Inclusion, value); err != nil {
			return nil, err
		}
	}

	for _, m := range attr.Must {
		if err := v.checkMust(attr, m, value); err != nil {
			return nil, err
		}
	}

	for _, rule := range attr.Rules {
		var err error
		switch r := rule.(type) {
		case *ir.Inclusion:
			err = v.checkInclusion(attr, r, value)
		case *ir.Must:
			err = v.checkMust(attr, r, value)
		case *ir.MultipleOf:
			err = v.checkMultipleOf(attr, r, value)
		case *ir.Format:
			err = v.checkFormat(attr, r, value)
		case *ir.ConsistsOf:
			err = v.checkConsistsOf(attr, r, value)
		case *ir.Schema:
			value, err = v.checkSchema(attr, r, value)
		case *ir.Target:
			err = v.checkTarget(attr, r, value)
		case *ir.Equal:
			err = v.checkEqual(attr, r, value)
		default:
			err = fmt.Errorf("unsupported rule kind %q", rule.Kind())
		}
		if err != nil {
			return nil, err
		}
	}
	return value, nil
}

func (v *Validator) checkInclusion(attr *ir.Attribute, r *ir.Inclusion, value any) error {
	if r.In == nil {
		return v.fail(attr, nil, value, "inclusion", "misconfigured", map[string]any{"option": r.Option()})
	}
	if !r.In.Contains(value) {
		return v.fail(attr, r, value, "inclusion", "default", map[string]any{"option": r.Option()},
			r.In.String(), ir.FormatValue(value))
	}
	return nil
}

func (v *Validator) checkMust(attr *ir.Attribute, m *ir.Must, value any) error {
	ok, reason, perr := callPredicate(m, value, attr)
	if perr != nil {
		// The raw panic never escapes; it becomes a syntax error on the rule.
		return v.fail(attr, nil, value, "must", "syntax_error", map[string]any{"code": m.Code, "error": perr.Error()},
			m.Code, perr.Error())
	}
	if ok {
		return nil
	}
	meta := map[string]any{"code": m.Code}
	if reason != "" {
		meta["reason"] = reason
		return v.failWith(attr, m, value, m.Code, reason, "must", "with_reason", meta, ir.Humanize(m.Code), reason)
	}
	return v.failWith(attr, m, value, m.Code, "", "must", "default", meta, ir.Humanize(m.Code))
}

func callPredicate(m *ir.Must, value any, attr *ir.Attribute) (ok bool, reason string, err error) {
	if m.Is == nil {
		return false, "", fmt.Errorf("predicate is not defined")
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%v", p)
		}
	}()
	ok, reason = m.Is(value, attr)
	return ok, reason, nil
}

func (v *Validator) checkMultipleOf(attr *ir.Attribute, r *ir.MultipleOf, value any) error {
	ok, valid := ir.IsMultipleOf(value, r.Of)
	if !valid {
		return v.fail(attr, r, value, "multiple_of", "blank", nil, ir.FormatValue(r.Of), ir.FormatValue(value))
	}
	if !ok {
		return v.fail(attr, r, value, "multiple_of", "default", nil, ir.FormatValue(r.Of), ir.FormatValue(value))
	}
	return nil
}

func (v *Validator) checkFormat(attr *ir.Attribute, r *ir.Format, value any) error {
	fn, known := v.registry.Format(r.Name)
	if !known {
		return v.fail(attr, nil, value, "format", "unknown", map[string]any{"format": r.Name}, r.Name)
	}
	s, ok := value.(string)
	if !ok {
		return v.fail(attr, nil, value, "format", "wrong_type", map[string]any{"format": r.Name}, r.Name)
	}
	if !fn(s) {
		return v.fail(attr, r, value, "format", "default", map[string]any{"format": r.Name}, r.Name)
	}
	return nil
}

func (v *Validator) checkConsistsOf(attr *ir.Attribute, r *ir.ConsistsOf, value any) error {
	if r.Disabled {
		return nil
	}
	rv := reflect.ValueOf(value)
	if ir.IsNil(value) || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return v.fail(attr, nil, value, "consists_of", "not_collection", nil, ir.TypeName(value))
	}
	for i := 0; i < rv.Len(); i++ {
		elem := rv.Index(i).Interface()
		if !ir.MatchesAny(r.Types, elem) {
			meta := map[string]any{"index": i, "expected": ir.TypeNames(r.Types), "given": ir.TypeName(elem)}
			return v.fail(attr, r, elem, "consists_of", "wrong_element_type", meta, ir.TypeNames(r.Types), ir.TypeName(elem))
		}
	}
	return nil
}

func (v *Validator) checkTarget(attr *ir.Attribute, r *ir.Target, value any) error {
	allowed := ir.Set(r.Allowed)
	if !allowed.Contains(value) {
		return v.fail(attr, r, value, "target", "default", nil, allowed.String(), ir.FormatValue(value))
	}
	return nil
}

func (v *Validator) checkEqual(attr *ir.Attribute, r *ir.Equal, value any) error {
	if !ir.ValuesEqual(r.Expected, value) {
		return v.fail(attr, r, value, "eq", "default", nil, ir.FormatValue(r.Expected), ir.FormatValue(value))
	}
	return nil
}

func (v *Validator) fail(attr *ir.Attribute, rule ir.Rule, value any, ruleName, variant string, meta map[string]any, extra ...string) error {
	code := ""
	if rule != nil {
		code = rule.Option()
	}
	return v.failWith(attr, rule, value, code, "", ruleName, variant, meta, extra...)
}

// failWith renders the rule's custom message when it has one, the catalog
// template otherwise.
func (v *Validator) failWith(attr *ir.Attribute, rule ir.Rule, value any, code, reason, ruleName, variant string, meta map[string]any, extra ...string) error {
	var msg string
	if rule != nil && !rule.Msg().IsZero() {
		msg = rule.Msg().Render(ir.MessageContext{
			Service:   attr.Service,
			Namespace: attr.Namespace,
			Attribute: attr.Name,
			Value:     value,
			Option:    rule.Option(),
			Code:      code,
			Reason:    reason,
			Meta:      meta,
		})
	} else {
		msg = v.catalog.Render(attr.Namespace, ruleName, variant, attr.Service, attr.Name, extra...)
	}
	return outcome.NewAttributeError(attr.Namespace, attr.Service, attr.Name, msg, meta)
}
