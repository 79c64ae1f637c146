package servactory

import (
	"errors"
	"fmt"

	"github.com/roach88/servactory/internal/compiler"
	"github.com/roach88/servactory/internal/ir"
	"github.com/roach88/servactory/internal/outcome"
)

// Bindings connect the names used in CUE definitions to Go code.
type Bindings struct {
	Actions    map[string]ActionFunc
	Wrappers   map[string]Wrapper
	Rollbacks  map[string]Rollback
	Conditions map[string]func(*Context) bool
	Predicates map[string]Predicate

	// Placeholders resolves missing names instead of failing: actions do
	// nothing, wrappers call through, rollbacks return the error, conditions
	// are false and predicates pass. Tooling uses it to inspect definitions
	// without their Go code.
	Placeholders bool
}

var (
	placeholderAction    ActionFunc = func(*Context) error { return nil }
	placeholderWrapper   Wrapper    = func(_ *Context, run func() error) error { return run() }
	placeholderRollback  Rollback   = func(_ *Context, cause error) error { return cause }
	placeholderCondition            = func(*Context) bool { return false }
	placeholderPredicate Predicate  = func(any, *Attribute) (bool, string) { return true, "" }
)

// LoadDir loads the CUE definitions in dir and builds every declared
// service, parents before children. All load and validation errors are
// returned joined; the first binding or declaration error stops the build.
func (f *Framework) LoadDir(dir string, b Bindings) (map[string]*Service, error) {
	result, errs := compiler.LoadDir(dir, compiler.LoadModeCollectAll)
	return f.buildDefs(result, errs, b)
}

// LoadString is like LoadDir for in-memory CUE source.
func (f *Framework) LoadString(src string, b Bindings) (map[string]*Service, error) {
	result, errs := compiler.LoadString(src, compiler.LoadModeCollectAll)
	return f.buildDefs(result, errs, b)
}

func (f *Framework) buildDefs(result *compiler.LoadResult, errs []error, b Bindings) (map[string]*Service, error) {
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if verrs := compiler.Validate(result.Services); len(verrs) > 0 {
		joined := make([]error, len(verrs))
		for i, e := range verrs {
			joined[i] = e
		}
		return nil, errors.Join(joined...)
	}

	services := make(map[string]*Service, len(result.Services))
	var build func(def *compiler.ServiceDef) error
	build = func(def *compiler.ServiceDef) error {
		if _, done := services[def.Name]; done {
			return nil
		}
		var parent *Service
		if def.Extends != "" {
			pdef, _ := result.Service(def.Extends)
			if err := build(pdef); err != nil {
				return err
			}
			parent = services[def.Extends]
		}
		svc, err := f.compile(def, parent, b)
		if err != nil {
			return err
		}
		services[def.Name] = svc
		return nil
	}

	for i := range result.Services {
		if err := build(&result.Services[i]); err != nil {
			return nil, err
		}
	}
	return services, nil
}

// binder resolves names for one service and keeps the first failure.
type binder struct {
	fw      *Framework
	service string
	b       Bindings
	err     error
}

func (bd *binder) unbound(kind, name string) {
	if bd.err == nil {
		bd.err = &outcome.DefinitionError{
			Service: bd.service,
			Code:    outcome.ErrCodeUnbound,
			Message: fmt.Sprintf("[%s] Unbound %s `%s`", bd.service, kind, name),
		}
	}
}

func lookup[V any](bd *binder, m map[string]V, kind, name string, placeholder V) V {
	v, ok := m[name]
	if !ok {
		if bd.b.Placeholders {
			return placeholder
		}
		bd.unbound(kind, name)
	}
	return v
}

func (bd *binder) condition(name string) Condition {
	return When(lookup(bd, bd.b.Conditions, "condition", name, placeholderCondition))
}

func (bd *binder) types(names []string) []TypeTag {
	tags := make([]TypeTag, 0, len(names))
	for _, n := range names {
		tag, ok := bd.fw.registry.Type(n)
		if !ok {
			bd.unbound("type", n)
			continue
		}
		tags = append(tags, tag)
	}
	return tags
}

func (bd *binder) schema(defs []compiler.SchemaFieldDef) []SchemaField {
	fields := make([]SchemaField, 0, len(defs))
	for _, d := range defs {
		sf := ir.Key(d.Name, bd.types(d.Types)...)
		switch {
		case d.HasDefault:
			sf = sf.WithDefault(d.Default)
		case !d.Required:
			sf = sf.Optional()
		}
		if len(d.Fields) > 0 {
			sf = sf.Nested(bd.schema(d.Fields)...)
		}
		fields = append(fields, sf)
	}
	return fields
}

func (bd *binder) attrOptions(a compiler.AttributeDef) []AttrOption {
	var opts []AttrOption
	if len(a.Types) > 0 {
		opts = append(opts, Type(bd.types(a.Types)...))
	}
	if a.Required != nil {
		opts = append(opts, Required(*a.Required))
	}
	if a.HasDefault {
		opts = append(opts, Default(a.Default))
	}
	if a.Inclusion != nil {
		opts = append(opts, Inclusion(In(a.Inclusion...)))
	}
	for _, name := range a.Must {
		opts = append(opts, Must(name, lookup(bd, bd.b.Predicates, "predicate", name, placeholderPredicate)))
	}
	if a.Schema != nil {
		opts = append(opts, Schema(bd.schema(a.Schema)...))
	}
	for _, o := range a.Options {
		if o.Message != "" {
			opts = append(opts, Opt(o.Keyword, WithMessage(o.Value, Text(o.Message))))
			continue
		}
		opts = append(opts, Opt(o.Keyword, o.Value))
	}
	return opts
}

func (bd *binder) stage(def compiler.StageDef) func(s *StageBuilder) {
	return func(s *StageBuilder) {
		if def.Position > 0 {
			s.Position(def.Position)
		}
		if def.WrapIn != "" {
			s.WrapIn(lookup(bd, bd.b.Wrappers, "wrapper", def.WrapIn, placeholderWrapper))
		}
		if def.Rollback != "" {
			s.Rollback(lookup(bd, bd.b.Rollbacks, "rollback", def.Rollback, placeholderRollback))
		}
		if def.OnlyIf != "" {
			s.OnlyIf(bd.condition(def.OnlyIf))
		}
		if def.OnlyUnless != "" {
			s.OnlyUnless(bd.condition(def.OnlyUnless))
		}
		for _, a := range def.Actions {
			var opts []ActionOption
			if a.Position > 0 {
				opts = append(opts, Position(a.Position))
			}
			if a.If != "" {
				opts = append(opts, If(bd.condition(a.If)))
			}
			if a.Unless != "" {
				opts = append(opts, Unless(bd.condition(a.Unless)))
			}
			s.Make(a.Name, lookup(bd, bd.b.Actions, "action", a.Name, placeholderAction), opts...)
		}
	}
}

// compile builds one definition through the Builder.
func (f *Framework) compile(def *compiler.ServiceDef, parent *Service, b Bindings) (*Service, error) {
	bd := &binder{fw: f, service: def.Name, b: b}
	bld := f.Define(def.Name)
	if parent != nil {
		bld.Inherit(parent)
	}

	for _, a := range def.Inputs {
		bld.Input(a.Name, bd.attrOptions(a)...)
	}
	for _, a := range def.Internals {
		bld.Internal(a.Name, bd.attrOptions(a)...)
	}
	for _, a := range def.Outputs {
		bld.Output(a.Name, bd.attrOptions(a)...)
	}
	for _, s := range def.Stages {
		bld.Stage(bd.stage(s))
	}
	if def.Entry != "" {
		bld.Entry(lookup(bd, b.Actions, "action", def.Entry, placeholderAction))
	}

	if bd.err != nil {
		return nil, bd.err
	}
	return bld.Build()
}
