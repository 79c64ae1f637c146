package engine

import (
	"context"
	"maps"

	"go.uber.org/zap"

	"github.com/roach88/servactory/internal/ir"
	"github.com/roach88/servactory/internal/outcome"
	"github.com/roach88/servactory/internal/workspace"
)

// Context is the per-invocation state handed to actions, conditions,
// wrappers, rollbacks and extensions. It must not escape the invocation.
type Context struct {
	ctx          context.Context
	service      string
	invocationID string
	ws           *workspace.Workspace
	logger       *zap.Logger
	trace        traceLog

	stage     int
	action    string
	succeeded bool
}

// NewContext creates the context of one invocation.
func NewContext(ctx context.Context, service, invocationID string, ws *workspace.Workspace, logger *zap.Logger) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Context{
		ctx:          ctx,
		service:      service,
		invocationID: invocationID,
		ws:           ws,
		logger:       logger.With(zap.String("service", service), zap.String("invocation_id", invocationID)),
	}
}

// Context returns the caller's context.Context.
func (c *Context) Context() context.Context { return c.ctx }

// SetContext replaces the context.Context seen by later actions.
// Extensions use it to attach spans or deadlines. A nil ctx is ignored.
func (c *Context) SetContext(ctx context.Context) {
	if ctx != nil {
		c.ctx = ctx
	}
}

// Service returns the name of the invoked service.
func (c *Context) Service() string { return c.service }

// InvocationID returns the unique ID of this invocation.
func (c *Context) InvocationID() string { return c.invocationID }

// Logger returns a logger annotated with the service, invocation and the
// current stage and action.
func (c *Context) Logger() *zap.Logger {
	l := c.logger
	if c.stage > 0 {
		l = l.With(zap.Int("stage", c.stage))
	}
	if c.action != "" {
		l = l.With(zap.String("action", c.action))
	}
	return l
}

// Workspace returns the attribute storage of the invocation.
func (c *Context) Workspace() *workspace.Workspace { return c.ws }

// Inputs returns the read-only input view.
func (c *Context) Inputs() workspace.View { return c.ws.Inputs() }

// Internals returns the internal attribute view.
func (c *Context) Internals() workspace.View { return c.ws.Internals() }

// Outputs returns the output attribute view.
func (c *Context) Outputs() workspace.View { return c.ws.Outputs() }

// Stage returns the position of the running stage, 0 outside stages.
func (c *Context) Stage() int { return c.stage }

// Action returns the name of the running action.
func (c *Context) Action() string { return c.action }

// Succeed marks the invocation successful. The runner stops after the
// current action returns; the action should return nil right away.
func (c *Context) Succeed() { c.succeeded = true }

// Succeeded reports whether Succeed was called.
func (c *Context) Succeeded() bool { return c.succeeded }

// Record appends an event to the invocation trace.
func (c *Context) Record(kind outcome.EventKind, detail string) {
	c.trace.append(outcome.Event{
		Kind:   kind,
		Stage:  c.stage,
		Action: c.action,
		Detail: detail,
	})
}

// Trace returns a copy of the events recorded so far.
func (c *Context) Trace() []outcome.Event {
	return c.trace.snapshot()
}

// FailOption customizes a failure raised by Fail.
type FailOption func(*outcome.Failure)

// FailType sets the failure type. The default is "base".
func FailType(t string) FailOption {
	return func(f *outcome.Failure) {
		if t != "" {
			f.Type = t
		}
	}
}

// FailMeta attaches structured metadata.
func FailMeta(meta map[string]any) FailOption {
	return func(f *outcome.Failure) { f.Meta = maps.Clone(meta) }
}

// Fail returns a business failure for the action to return.
func (c *Context) Fail(message string, opts ...FailOption) error {
	f := outcome.NewFailure(outcome.TypeBase, message, nil)
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FailInput returns an input error on attr.
func (c *Context) FailInput(attr, message string) error {
	return outcome.NewAttributeError(ir.NamespaceInput, c.service, attr, message, nil)
}

// FailInternal returns an internal error on attr.
func (c *Context) FailInternal(attr, message string) error {
	return outcome.NewAttributeError(ir.NamespaceInternal, c.service, attr, message, nil)
}

// FailOutput returns an output error on attr.
func (c *Context) FailOutput(attr, message string) error {
	return outcome.NewAttributeError(ir.NamespaceOutput, c.service, attr, message, nil)
}

// FailResult propagates the failure of a nested service result. It returns
// nil when r succeeded.
func (c *Context) FailResult(r *outcome.Result) error {
	if r == nil || r.IsSuccess() {
		return nil
	}
	f := *r.Err()
	f.Meta = maps.Clone(f.Meta)
	return &f
}
