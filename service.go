package servactory

import (
	"context"
	"fmt"

	"github.com/roach88/servactory/internal/engine"
	"github.com/roach88/servactory/internal/ir"
	"github.com/roach88/servactory/internal/outcome"
)

// Service is a built service definition. It is immutable and safe for
// concurrent invocations; every call gets its own workspace.
type Service struct {
	name      string
	fw        *Framework
	decls     *ir.Declarations
	pipeline  *engine.Pipeline
	exts      []Extension
	observers []Observer
	runner    *engine.Runner
}

// Name returns the service name.
func (s *Service) Name() string { return s.name }

// Call invokes the service. Expected failures (validation errors and
// business failures) are returned as a failure Result with a nil error.
// Unexpected errors abort the call and are returned unchanged.
func (s *Service) Call(ctx context.Context, args map[string]any) (*Result, error) {
	return s.runner.Run(ctx, args)
}

// CallStrict invokes the service and returns every failure as an error.
// Validation failures come back as their typed error (*InputError, ...),
// business failures as the *Failure itself. All errors pass through the
// configured error mapper.
func (s *Service) CallStrict(ctx context.Context, args map[string]any) (*Result, error) {
	res, err := s.runner.Run(ctx, args)
	if err != nil {
		return nil, s.fw.mapper(err)
	}
	if res.IsFailure() {
		return nil, s.fw.mapper(strictError(res.Err()))
	}
	return res, nil
}

func strictError(f *outcome.Failure) error {
	if f.Cause != nil {
		if _, _, ok := outcome.AsAttributeError(f.Cause); ok {
			return f.Cause
		}
	}
	return f
}

// ValidateInputs checks args against the input declarations without running
// any action.
func (s *Service) ValidateInputs(args map[string]any) error {
	return s.runner.Validate(args)
}

// Info describes the service. It is rebuilt from the live declarations on
// every call and never triggers an invocation.
func (s *Service) Info() Info {
	return ir.Info{
		Service:   s.name,
		Inputs:    s.decls.DescribeNamespace(ir.NamespaceInput),
		Internals: s.decls.DescribeNamespace(ir.NamespaceInternal),
		Outputs:   s.decls.DescribeNamespace(ir.NamespaceOutput),
		Stages:    s.runner.Pipeline().Describe(),
	}
}

// Attribute returns a declared attribute.
func (s *Service) Attribute(ns string, name string) (*Attribute, bool) {
	n, err := ir.ParseNamespace(ns)
	if err != nil {
		return nil, false
	}
	return s.decls.Lookup(n, name)
}

// Get reads name from v and asserts its type. A nil value yields the zero
// value of T.
func Get[T any](v View, name string) (T, error) {
	var zero T
	raw, err := v.Get(name)
	if err != nil {
		return zero, err
	}
	if raw == nil {
		return zero, nil
	}
	t, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("%s `%s` holds %T, not %T", v.Namespace(), name, raw, zero)
	}
	return t, nil
}
