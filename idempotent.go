package servactory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/servactory/internal/ir"
	"github.com/roach88/servactory/internal/outcome"
)

// Journal stores the outputs of successful invocations by key.
// *store.Journal implements it.
type Journal interface {
	Lookup(ctx context.Context, service, key string) (map[string]any, bool, error)
	Record(ctx context.Context, service, key, invocationID string, outputs map[string]any) error
}

// KeyFunc derives the idempotency key of an invocation. An empty key
// disables journaling for that invocation.
type KeyFunc func(c *Context) (string, error)

// InputsKey keys invocations by the canonical hash of their inputs.
func InputsKey(c *Context) (string, error) {
	return ir.InputsHash(c.Service(), c.Inputs().Values())
}

// Idempotent returns an extension that replays the recorded outputs of a
// repeated key instead of running the pipeline. Replayed outputs are
// assigned through the output view and validated again. A nil keyFn uses
// InputsKey.
//
// Only successful invocations are recorded, and only when every output
// decodes back to the same value; otherwise the next call runs the pipeline
// again. A failure to record is logged and does not fail the call.
func Idempotent(j Journal, keyFn KeyFunc) Extension {
	if keyFn == nil {
		keyFn = InputsKey
	}
	return func(c *Context, next func() error) error {
		key, err := keyFn(c)
		if err != nil {
			return fmt.Errorf("idempotency key: %w", err)
		}
		if key == "" {
			return next()
		}

		outputs, ok, err := j.Lookup(c.Context(), c.Service(), key)
		if err != nil {
			return fmt.Errorf("journal lookup: %w", err)
		}
		if ok {
			c.Record(outcome.EventReplayed, key)
			return replay(c, outputs)
		}

		if err := next(); err != nil {
			return err
		}
		outputs = c.Outputs().Values()
		if name, ok := unreplayable(c, outputs); ok {
			c.Logger().Debug("outputs not journaled", zap.String("key", key), zap.String("output", name))
			return nil
		}
		if err := j.Record(c.Context(), c.Service(), key, c.InvocationID(), outputs); err != nil {
			c.Logger().Warn("journal record failed", zap.String("key", key), zap.Error(err))
		}
		return nil
	}
}

// unreplayable returns the first output that would not come back from the
// journal as the same value.
func unreplayable(c *Context, outputs map[string]any) (string, bool) {
	ws := c.Workspace()
	for _, name := range ir.SortedKeys(outputs) {
		attr, ok := ws.Attribute(ir.NamespaceOutput, name)
		if !ok || !attr.RoundTrips(outputs[name]) {
			return name, true
		}
	}
	return "", false
}

func replay(c *Context, outputs map[string]any) error {
	ws := c.Workspace()
	for _, name := range ir.SortedKeys(outputs) {
		v := outputs[name]
		if attr, ok := ws.Attribute(ir.NamespaceOutput, name); ok {
			v = attr.Restore(v)
		}
		if err := c.Outputs().Set(name, v); err != nil {
			return err
		}
	}
	return nil
}
