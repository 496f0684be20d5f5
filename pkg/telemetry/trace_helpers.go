package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer returns a named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	if name == "" {
		name = "kash"
	}
	return otel.Tracer(name)
}

// WithSpan runs f inside a span, recording the error and span status
// from its return value.
func WithSpan(ctx context.Context, name string, f func(ctx context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := Tracer("").Start(ctx, name, trace.WithAttributes(attrs...))
	defer span.End()

	if err := f(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}
