package engine

import (
	"cmp"
	"slices"

	"github.com/roach88/servactory/internal/ir"
	"github.com/roach88/servactory/internal/outcome"
)

// ActionFunc is one step of a service.
type ActionFunc func(c *Context) error

// Wrapper runs a stage's actions through run, e.g. inside a transaction.
type Wrapper func(c *Context, run func() error) error

// Rollback handles the error of a wrapped stage. Its return value replaces
// the error; nil lets the pipeline continue with the next stage.
type Rollback func(c *Context, cause error) error

// RescueHandler converts a matching action error into a failure.
type RescueHandler func(c *Context, err error) (*outcome.Failure, bool)

// Extension wraps the whole pipeline after the inputs are populated. next
// runs the pipeline (and any inner extensions).
type Extension func(c *Context, next func() error) error

// Observer wraps input population and the pipeline, so it also sees calls
// rejected by input validation. Observers run outside every extension.
// Inputs may be unset while an observer runs.
type Observer func(c *Context, next func() error) error

// Condition decides whether a stage or action runs. The zero Condition
// always allows.
type Condition struct {
	set    bool
	static bool
	fn     func(*Context) bool
	negate bool
}

// Static returns a condition with a fixed verdict.
func Static(v bool) Condition {
	return Condition{set: true, static: v}
}

// When returns a condition evaluated against the invocation.
func When(fn func(*Context) bool) Condition {
	return Condition{set: true, fn: fn}
}

// Negate inverts the condition (the "unless" form).
func (c Condition) Negate() Condition {
	c.negate = !c.negate
	return c
}

// IsSet reports whether the condition was declared.
func (c Condition) IsSet() bool { return c.set }

// Allows evaluates the condition.
func (c Condition) Allows(ctx *Context) bool {
	if !c.set {
		return true
	}
	v := c.static
	if c.fn != nil {
		v = c.fn(ctx)
	}
	return v != c.negate
}

// Action is a named step of a stage.
type Action struct {
	Name      string
	Position  int
	Func      ActionFunc
	Condition Condition
}

// Stage is an ordered group of actions.
type Stage struct {
	Position  int
	Actions   []*Action
	Condition Condition
	Wrapper   Wrapper
	Rollback  Rollback
}

// Pipeline is the executable plan of a service. It is built once and
// shared read-only by all invocations.
type Pipeline struct {
	Stages []*Stage
	// Entry runs when there are no stages.
	Entry ActionFunc
	// Rescue handlers in registration order; matched newest first.
	Rescue []RescueHandler
}

// Sorted returns a copy with stages and actions in execution order.
// Position ties keep declaration order.
func (p *Pipeline) Sorted() *Pipeline {
	out := &Pipeline{Entry: p.Entry, Rescue: slices.Clone(p.Rescue)}
	for _, s := range p.Stages {
		cp := *s
		cp.Actions = slices.Clone(s.Actions)
		slices.SortStableFunc(cp.Actions, func(a, b *Action) int { return cmp.Compare(a.Position, b.Position) })
		out.Stages = append(out.Stages, &cp)
	}
	slices.SortStableFunc(out.Stages, func(a, b *Stage) int { return cmp.Compare(a.Position, b.Position) })
	return out
}

// Describe builds the introspection view of the stages.
func (p *Pipeline) Describe() []ir.StageInfo {
	out := make([]ir.StageInfo, 0, len(p.Stages))
	for _, s := range p.Stages {
		si := ir.StageInfo{
			Position:    s.Position,
			Conditional: s.Condition.IsSet(),
			Wrapped:     s.Wrapper != nil,
			Rollback:    s.Rollback != nil,
			Actions:     make([]ir.ActionInfo, 0, len(s.Actions)),
		}
		for _, a := range s.Actions {
			si.Actions = append(si.Actions, ir.ActionInfo{Name: a.Name, Position: a.Position, Conditional: a.Condition.IsSet()})
		}
		out = append(out, si)
	}
	return out
}
