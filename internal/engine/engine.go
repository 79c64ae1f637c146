package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/roach88/servactory/internal/ir"
	"github.com/roach88/servactory/internal/messages"
	"github.com/roach88/servactory/internal/outcome"
	"github.com/roach88/servactory/internal/validation"
	"github.com/roach88/servactory/internal/workspace"
)

// EntryName is the action name reported for the entry fallback.
const EntryName = "call"

// Runner executes invocations of one service. It holds only read-only
// state, so one Runner serves concurrent invocations.
//
// INVARIANTS:
//   - the pipeline is sorted once at construction and never changes
//   - every invocation gets its own Context and Workspace
type Runner struct {
	service     string
	decls       *ir.Declarations
	outputNames []string
	pipeline    *Pipeline
	validator   *validation.Validator
	catalog     *messages.Catalog
	logger      *zap.Logger
	ids         IDGenerator
	predicates  bool
	extensions  []Extension
	observers   []Observer
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithIDGenerator sets the invocation ID source. The default is UUIDv7.
func WithIDGenerator(g IDGenerator) RunnerOption {
	return func(r *Runner) {
		if g != nil {
			r.ids = g
		}
	}
}

// WithPredicates enables presence accessors on the workspace.
func WithPredicates(enabled bool) RunnerOption {
	return func(r *Runner) { r.predicates = enabled }
}

// WithExtensions appends extensions. The first one is the outermost.
func WithExtensions(exts ...Extension) RunnerOption {
	return func(r *Runner) { r.extensions = append(r.extensions, exts...) }
}

// WithObservers appends observers. The first one is the outermost.
func WithObservers(obs ...Observer) RunnerOption {
	return func(r *Runner) { r.observers = append(r.observers, obs...) }
}

// NewRunner creates a runner over the service's declarations and pipeline.
func NewRunner(service string, decls *ir.Declarations, p *Pipeline, v *validation.Validator, catalog *messages.Catalog, opts ...RunnerOption) *Runner {
	r := &Runner{
		service:   service,
		decls:     decls,
		pipeline:  p.Sorted(),
		validator: v,
		catalog:   catalog,
		logger:    zap.NewNop(),
		ids:       UUIDv7Generator{},
	}
	for _, a := range decls.List(ir.NamespaceOutput) {
		r.outputNames = append(r.outputNames, a.Name)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Pipeline returns the sorted pipeline.
func (r *Runner) Pipeline() *Pipeline { return r.pipeline }

// Run performs one invocation.
//
// Validation errors and failures are expected: they come back as a failure
// Result with a nil error. Any other error aborts the invocation and is
// returned as is, with a nil Result.
func (r *Runner) Run(ctx context.Context, args map[string]any) (*outcome.Result, error) {
	id := r.ids.Generate()
	ws := r.newWorkspace()
	c := NewContext(ctx, r.service, id, ws, r.logger)
	c.Record(outcome.EventStarted, "")

	err := r.observe(c, func() error {
		if err := ws.Populate(args); err != nil {
			return err
		}
		return r.chain(c)()
	})()
	return r.finish(c, err)
}

// Validate populates a throwaway workspace from args and reports the first
// input error. No action runs.
func (r *Runner) Validate(args map[string]any) error {
	return r.newWorkspace().Populate(args)
}

func (r *Runner) newWorkspace() *workspace.Workspace {
	return workspace.New(r.service, r.decls, r.validator, r.catalog, workspace.WithPredicates(r.predicates))
}

func (r *Runner) chain(c *Context) func() error {
	next := func() error { return r.execute(c) }
	for i := len(r.extensions) - 1; i >= 0; i-- {
		ext, inner := r.extensions[i], next
		next = func() error { return ext(c, inner) }
	}
	return next
}

func (r *Runner) observe(c *Context, next func() error) func() error {
	for i := len(r.observers) - 1; i >= 0; i-- {
		obs, inner := r.observers[i], next
		next = func() error { return obs(c, inner) }
	}
	return next
}

func (r *Runner) finish(c *Context, err error) (*outcome.Result, error) {
	c.stage, c.action = 0, ""
	if err == nil {
		c.Record(outcome.EventCompleted, "")
		c.logger.Info("service call completed", zap.Bool("success", true))
		return outcome.NewSuccess(r.service, c.invocationID, r.outputNames, c.ws.Values(ir.NamespaceOutput), c.trace.snapshot()), nil
	}

	f, ok := outcome.ToFailure(err)
	if !ok {
		c.logger.Error("service call aborted", zap.Error(err))
		return nil, err
	}
	c.Record(outcome.EventFailed, f.Type)
	c.logger.Info("service call completed",
		zap.Bool("success", false),
		zap.String("failure_type", f.Type),
		zap.String("message", f.Message),
	)
	return outcome.NewFailureResult(r.service, c.invocationID, f, c.trace.snapshot()), nil
}

func (r *Runner) execute(c *Context) error {
	p := r.pipeline
	if len(p.Stages) == 0 {
		if p.Entry == nil {
			return &RuntimeError{Code: ErrCodeNoActions, Message: "service has no actions and no entry", Service: r.service, InvocationID: c.invocationID}
		}
		return r.runAction(c, &Action{Name: EntryName, Func: p.Entry})
	}

	for _, s := range p.Stages {
		c.stage, c.action = s.Position, ""
		if !s.Condition.Allows(c) {
			c.Record(outcome.EventStageSkipped, "")
			c.Logger().Debug("stage skipped")
			continue
		}
		c.Record(outcome.EventStageStarted, "")
		if err := r.runStage(c, s); err != nil {
			return err
		}
		if c.succeeded {
			c.Record(outcome.EventSucceededEarly, "")
			c.Logger().Debug("service succeeded early")
			return nil
		}
	}
	return nil
}

func (r *Runner) runStage(c *Context, s *Stage) error {
	run := func() error {
		for _, a := range s.Actions {
			c.action = a.Name
			if !a.Condition.Allows(c) {
				c.Record(outcome.EventActionSkipped, "")
				c.Logger().Debug("action skipped")
				continue
			}
			if err := r.runAction(c, a); err != nil {
				return err
			}
			if c.succeeded {
				return nil
			}
		}
		return nil
	}
	if s.Wrapper == nil {
		return run()
	}

	err := s.Wrapper(c, run)
	if err == nil {
		return nil
	}
	if s.Rollback != nil {
		c.Record(outcome.EventRolledBack, err.Error())
		c.Logger().Debug("stage rolled back", zap.Error(err))
		return s.Rollback(c, err)
	}
	if outcome.IsExpected(err) {
		return err
	}
	return &outcome.Failure{
		Type:    outcome.TypeBase,
		Message: err.Error(),
		Meta:    map[string]any{"original_exception": err.Error()},
		Cause:   err,
	}
}

func (r *Runner) runAction(c *Context, a *Action) error {
	c.action = a.Name
	if a.Func == nil {
		return &RuntimeError{Code: ErrCodeMissingAction, Message: "action has no function", Service: r.service, InvocationID: c.invocationID, Action: a.Name}
	}

	err := a.Func(c)
	if err == nil {
		c.Record(outcome.EventActionCompleted, "")
		return nil
	}
	c.Record(outcome.EventActionFailed, err.Error())
	if outcome.IsExpected(err) {
		return err
	}

	rescue := r.pipeline.Rescue
	for i := len(rescue) - 1; i >= 0; i-- {
		f, ok := rescue[i](c, err)
		if !ok || f == nil {
			continue
		}
		if f.Cause == nil {
			f = f.Clone()
			f.Cause = err
		}
		c.Record(outcome.EventRescued, f.Type)
		return f
	}
	return err
}
