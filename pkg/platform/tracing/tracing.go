// Package tracing wraps the global OpenTelemetry tracer for service spans.
// Without a configured provider the spans are no-ops.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	dErrors "carbonmint/pkg/domain-errors"
)

const instrumentation = "carbonmint"

// Tracer returns the named tracer from the global provider.
func Tracer(component string) trace.Tracer {
	return otel.Tracer(instrumentation + "/" + component)
}

// Start opens a span named op.
func Start(ctx context.Context, tracer trace.Tracer, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, op, trace.WithAttributes(attrs...))
}

// End records err on span, tagging it with its domain code, and closes it.
// Expected rejections are marked with their code but leave the span status
// unset; only internal failures mark the span as errored.
func End(span trace.Span, err error) {
	defer span.End()
	if err == nil {
		return
	}
	code := dErrors.CodeOf(err)
	span.SetAttributes(attribute.String("error.code", string(code)))
	if code.Category() == dErrors.CategoryInternal {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(code))
	}
}
