package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/servactory/internal/engine"
)

// TracerName is the instrumentation name of the spans.
const TracerName = "github.com/roach88/servactory"

// Tracing returns an observer that wraps each call in a span named after
// the service. A nil provider uses the global one.
func Tracing(tp trace.TracerProvider) engine.Observer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	tracer := tp.Tracer(TracerName)

	return func(c *engine.Context, next func() error) error {
		ctx, span := tracer.Start(c.Context(), c.Service(),
			trace.WithAttributes(
				attribute.String("servactory.service", c.Service()),
				attribute.String("servactory.invocation_id", c.InvocationID()),
			),
		)
		defer span.End()

		parent := c.Context()
		c.SetContext(ctx)
		err := next()
		c.SetContext(parent)

		result, typ := classify(err)
		span.SetAttributes(attribute.String("servactory.outcome", result))
		switch result {
		case OutcomeFailure:
			span.SetAttributes(attribute.String("servactory.failure_type", typ))
			span.SetStatus(codes.Error, err.Error())
		case OutcomeError:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		default:
			span.SetStatus(codes.Ok, "")
		}
		return err
	}
}
