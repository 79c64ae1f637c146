package servactory

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/servactory/internal/engine"
	"github.com/roach88/servactory/internal/ir"
	"github.com/roach88/servactory/internal/messages"
	"github.com/roach88/servactory/internal/option"
	"github.com/roach88/servactory/internal/outcome"
)

// Builder declares a service. Declaration errors are collected and the
// first one is returned by Build; builder methods never panic.
type Builder struct {
	fw        *Framework
	name      string
	decls     *ir.Declarations
	inherited map[ir.Namespace]map[string]bool
	stages    []*engine.Stage
	entry     engine.ActionFunc
	rescue    []engine.RescueHandler
	exts      []Extension
	observers []Observer
	declared  bool
	err       error
}

func newBuilder(fw *Framework, name string) *Builder {
	return &Builder{
		fw:        fw,
		name:      name,
		decls:     ir.NewDeclarations(),
		inherited: map[ir.Namespace]map[string]bool{},
	}
}

// Input declares an input attribute.
func (b *Builder) Input(name string, opts ...AttrOption) *Builder {
	b.declare(ir.NamespaceInput, name, opts)
	return b
}

// Internal declares an internal attribute.
func (b *Builder) Internal(name string, opts ...AttrOption) *Builder {
	b.declare(ir.NamespaceInternal, name, opts)
	return b
}

// Output declares an output attribute.
func (b *Builder) Output(name string, opts ...AttrOption) *Builder {
	b.declare(ir.NamespaceOutput, name, opts)
	return b
}

func (b *Builder) declare(ns ir.Namespace, name string, opts []AttrOption) {
	if b.err != nil {
		return
	}
	b.declared = true

	attr, err := b.buildAttribute(ns, name, opts)
	if err != nil {
		b.err = err
		return
	}

	if other, ok := exclusive(ns); ok {
		if _, taken := b.decls.Lookup(other, name); taken {
			b.err = b.definitionError(ns, name, outcome.ErrCodeConflict, "conflict", string(other))
			return
		}
	}

	if existing, ok := b.decls.Lookup(ns, name); ok {
		if !b.inherited[ns][name] {
			b.err = b.definitionError(ns, name, outcome.ErrCodeDuplicate, "duplicate")
			return
		}
		attr.Position = existing.Position
		b.decls.Replace(attr)
		delete(b.inherited[ns], name)
		return
	}
	attr.Position = b.decls.Len(ns) + 1
	b.decls.Add(attr)
}

// exclusive returns the namespace that may not share names with ns.
func exclusive(ns ir.Namespace) (ir.Namespace, bool) {
	switch ns {
	case ir.NamespaceInternal:
		return ir.NamespaceOutput, true
	case ir.NamespaceOutput:
		return ir.NamespaceInternal, true
	}
	return "", false
}

func (b *Builder) buildAttribute(ns ir.Namespace, name string, opts []AttrOption) (*ir.Attribute, error) {
	spec := &attrSpec{}
	for _, o := range opts {
		o(spec)
	}

	if ir.IsReserved(ns, name) {
		return nil, b.definitionError(ns, name, outcome.ErrCodeReserved, "reserved")
	}
	if spec.as != "" {
		return nil, b.definitionError(ns, name, outcome.ErrCodeUnsupportedOption, "unsupported_option", "as")
	}

	attr := &ir.Attribute{
		Service:   b.name,
		Namespace: ns,
		Name:      name,
		Types:     spec.types,
		Inclusion: spec.inclusion,
		Must:      spec.must,
	}

	if ns == ir.NamespaceInput {
		attr.Required = true
		switch {
		case spec.def != nil && spec.required != nil && *spec.required:
			return nil, b.definitionError(ns, name, outcome.ErrCodeRequiredDefault, "required_vs_default")
		case spec.def != nil:
			attr.Required = false
			attr.Default = spec.def
		case spec.required != nil:
			attr.Required = *spec.required
		}
	} else {
		if spec.required != nil {
			return nil, b.definitionError(ns, name, outcome.ErrCodeUnsupportedOption, "unsupported_option", "required")
		}
		if spec.def != nil {
			return nil, b.definitionError(ns, name, outcome.ErrCodeUnsupportedOption, "unsupported_option", "default")
		}
	}

	for _, o := range spec.options {
		rule, err := b.fw.registry.Expand(ns, o.keyword, o.value)
		switch {
		case errors.Is(err, option.ErrUnknownOption):
			return nil, b.definitionError(ns, name, outcome.ErrCodeUnknownOption, "unknown_option", o.keyword)
		case err != nil:
			return nil, b.definitionError(ns, name, outcome.ErrCodeInvalidOption, "invalid_option", o.keyword, err.Error())
		}
		attr.Rules = append(attr.Rules, rule)
	}
	return attr, nil
}

func (b *Builder) definitionError(ns ir.Namespace, name string, code outcome.DefinitionCode, variant string, extra ...string) error {
	return &outcome.DefinitionError{
		Service:   b.name,
		Namespace: ns,
		Attribute: name,
		Code:      code,
		Message:   b.fw.catalog.Render(ns, messages.RuleDefinition, variant, b.name, name, extra...),
	}
}

func (b *Builder) pipelineError(format string, args ...any) {
	if b.err == nil {
		b.err = &outcome.DefinitionError{
			Service: b.name,
			Code:    outcome.ErrCodeInvalidPipeline,
			Message: fmt.Sprintf("[%s] ", b.name) + fmt.Sprintf(format, args...),
		}
	}
}

// ActionOption configures an action.
type ActionOption func(*engine.Action)

// Position overrides the action's position. For a top-level Make it sets
// the position of the implicit stage.
func Position(n int) ActionOption {
	return func(a *engine.Action) { a.Position = n }
}

// If runs the action only when c allows it.
func If(c Condition) ActionOption {
	return func(a *engine.Action) { a.Condition = andCondition(a.Condition, c) }
}

// Unless skips the action when c allows it.
func Unless(c Condition) ActionOption {
	return func(a *engine.Action) { a.Condition = andCondition(a.Condition, c.Negate()) }
}

func andCondition(prev, next Condition) Condition {
	if !prev.IsSet() {
		return next
	}
	return engine.When(func(c *Context) bool { return prev.Allows(c) && next.Allows(c) })
}

func (b *Builder) newAction(name string, fn ActionFunc, position int, opts []ActionOption) *engine.Action {
	if fn == nil {
		b.pipelineError("action `%s` has no function", name)
	}
	a := &engine.Action{Name: name, Func: fn, Position: position}
	for _, o := range opts {
		o(a)
	}
	return a
}

func (b *Builder) nextStagePosition() int {
	pos := 0
	for _, s := range b.stages {
		pos = max(pos, s.Position)
	}
	return pos + 1
}

// Make adds an action in a stage of its own.
func (b *Builder) Make(name string, fn ActionFunc, opts ...ActionOption) *Builder {
	pos := b.nextStagePosition()
	a := b.newAction(name, fn, pos, opts)
	b.stages = append(b.stages, &engine.Stage{Position: a.Position, Actions: []*engine.Action{a}})
	return b
}

// Shortcut adds the action "<prefix>_<name>". prefix must be one of the
// configured action shortcuts.
func (b *Builder) Shortcut(prefix, name string, fn ActionFunc, opts ...ActionOption) *Builder {
	if !slices.Contains(b.fw.cfg.ActionShortcuts, prefix) {
		b.pipelineError("unknown action shortcut `%s`", prefix)
		return b
	}
	return b.Make(prefix+"_"+name, fn, opts...)
}

// Alias adds an action through a configured alias of Make.
func (b *Builder) Alias(alias, name string, fn ActionFunc, opts ...ActionOption) *Builder {
	if !slices.Contains(b.fw.cfg.ActionAliases, alias) {
		b.pipelineError("unknown action alias `%s`", alias)
		return b
	}
	return b.Make(name, fn, opts...)
}

// Stage adds a stage declared by fn.
func (b *Builder) Stage(fn func(s *StageBuilder)) *Builder {
	sb := &StageBuilder{b: b, stage: &engine.Stage{Position: b.nextStagePosition()}}
	fn(sb)
	b.stages = append(b.stages, sb.stage)
	return b
}

// Entry sets the function run when the service declares no actions.
func (b *Builder) Entry(fn ActionFunc) *Builder {
	b.entry = fn
	return b
}

// RescueFrom registers a rescue handler. Later handlers are tried first.
func (b *Builder) RescueFrom(h RescueHandler) *Builder {
	if h == nil {
		b.pipelineError("nil rescue handler")
		return b
	}
	b.rescue = append(b.rescue, h)
	return b
}

// Use adds extensions wrapping every invocation of the service.
func (b *Builder) Use(exts ...Extension) *Builder {
	b.exts = append(b.exts, exts...)
	return b
}

// Observe adds observers wrapping every invocation of the service,
// including input population.
func (b *Builder) Observe(obs ...Observer) *Builder {
	b.observers = append(b.observers, obs...)
	return b
}

// Inherit copies the declarations and pipeline of parent. It must be called
// before anything else is declared. Inherited attributes may be redeclared
// once; new stages follow the parent's.
func (b *Builder) Inherit(parent *Service) *Builder {
	if b.err != nil {
		return b
	}
	if parent == nil {
		b.pipelineError("cannot inherit from a nil service")
		return b
	}
	if b.declared || len(b.stages) > 0 {
		b.pipelineError("Inherit must be called before any declaration")
		return b
	}
	b.decls = parent.decls.Clone(b.name)
	for _, ns := range ir.Namespaces {
		b.inherited[ns] = map[string]bool{}
		for _, a := range b.decls.List(ns) {
			b.inherited[ns][a.Name] = true
		}
	}
	b.stages = slices.Clone(parent.pipeline.Stages)
	b.entry = parent.pipeline.Entry
	b.rescue = slices.Clone(parent.pipeline.Rescue)
	b.exts = slices.Clone(parent.exts)
	b.observers = slices.Clone(parent.observers)
	return b
}

// Build validates the declaration and returns the immutable service.
func (b *Builder) Build() (*Service, error) {
	if b.err == nil {
		b.checkPipeline()
	}
	if b.err != nil {
		return nil, b.err
	}

	p := &engine.Pipeline{Stages: b.stages, Entry: b.entry, Rescue: b.rescue}
	svc := &Service{
		name:      b.name,
		fw:        b.fw,
		decls:     b.decls,
		pipeline:  p,
		exts:      b.exts,
		observers: b.observers,
	}
	exts := append(slices.Clone(b.fw.extensions), b.exts...)
	obs := append(slices.Clone(b.fw.observers), b.observers...)
	svc.runner = engine.NewRunner(b.name, b.decls, p, b.fw.validator, b.fw.catalog,
		engine.WithLogger(b.fw.logger),
		engine.WithIDGenerator(b.fw.ids),
		engine.WithPredicates(b.fw.cfg.PredicateMethods),
		engine.WithExtensions(exts...),
		engine.WithObservers(obs...),
	)
	return svc, nil
}

// MustBuild is like Build but panics on error.
func (b *Builder) MustBuild() *Service {
	svc, err := b.Build()
	if err != nil {
		panic(err)
	}
	return svc
}

func (b *Builder) checkPipeline() {
	if len(b.stages) == 0 && b.entry == nil {
		b.pipelineError("service declares no actions and no entry")
		return
	}
	for _, s := range b.stages {
		if len(s.Actions) == 0 {
			b.pipelineError("stage %d declares no actions", s.Position)
			return
		}
		if s.Rollback != nil && s.Wrapper == nil {
			b.pipelineError("stage %d declares a rollback without wrap_in", s.Position)
			return
		}
	}
}

// StageBuilder declares one stage.
type StageBuilder struct {
	b     *Builder
	stage *engine.Stage
}

// Make adds an action to the stage.
func (s *StageBuilder) Make(name string, fn ActionFunc, opts ...ActionOption) *StageBuilder {
	a := s.b.newAction(name, fn, len(s.stage.Actions)+1, opts)
	s.stage.Actions = append(s.stage.Actions, a)
	return s
}

// Shortcut adds the action "<prefix>_<name>" to the stage.
func (s *StageBuilder) Shortcut(prefix, name string, fn ActionFunc, opts ...ActionOption) *StageBuilder {
	if !slices.Contains(s.b.fw.cfg.ActionShortcuts, prefix) {
		s.b.pipelineError("unknown action shortcut `%s`", prefix)
		return s
	}
	return s.Make(prefix+"_"+name, fn, opts...)
}

// Alias adds an action through a configured alias.
func (s *StageBuilder) Alias(alias, name string, fn ActionFunc, opts ...ActionOption) *StageBuilder {
	if !slices.Contains(s.b.fw.cfg.ActionAliases, alias) {
		s.b.pipelineError("unknown action alias `%s`", alias)
		return s
	}
	return s.Make(name, fn, opts...)
}

// Position overrides the stage position.
func (s *StageBuilder) Position(n int) *StageBuilder {
	s.stage.Position = n
	return s
}

// WrapIn runs the stage's actions through w.
func (s *StageBuilder) WrapIn(w Wrapper) *StageBuilder {
	s.stage.Wrapper = w
	return s
}

// Rollback handles errors raised inside the wrapped stage.
func (s *StageBuilder) Rollback(r Rollback) *StageBuilder {
	s.stage.Rollback = r
	return s
}

// OnlyIf runs the stage only when c allows it.
func (s *StageBuilder) OnlyIf(c Condition) *StageBuilder {
	s.stage.Condition = andCondition(s.stage.Condition, c)
	return s
}

// OnlyUnless skips the stage when c allows it.
func (s *StageBuilder) OnlyUnless(c Condition) *StageBuilder {
	s.stage.Condition = andCondition(s.stage.Condition, c.Negate())
	return s
}
