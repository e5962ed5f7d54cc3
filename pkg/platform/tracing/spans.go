// Package tracing starts the spans emitted around verification processing.
// Without a configured provider the global no-op tracer is used.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "veriflow"

// StartProcessSpan starts a span covering one verification request.
func StartProcessSpan(ctx context.Context, requestID, clientID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "verification.process",
		trace.WithAttributes(
			attribute.String("verification.request_id", requestID),
			attribute.String("verification.client_id", clientID),
		),
	)
}

// StartDispatchSpan starts a span for the vendor fan-out of a request.
func StartDispatchSpan(ctx context.Context, mode string, candidates int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "verification.dispatch",
		trace.WithAttributes(
			attribute.String("dispatch.mode", mode),
			attribute.Int("dispatch.candidates", candidates),
		),
	)
}

// StartVendorSpan starts a span for a single vendor attempt.
func StartVendorSpan(ctx context.Context, vendorID string, attempt int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "vendor.submit",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("vendor.id", vendorID),
			attribute.Int("vendor.attempt", attempt),
		),
	)
}

// EndWithOutcome records the outcome attributes and ends span.
func EndWithOutcome(span trace.Span, success bool, failure string) {
	span.SetAttributes(attribute.Bool("outcome.success", success))
	if !success && failure != "" {
		span.SetAttributes(attribute.String("outcome.failure", failure))
		span.SetStatus(codes.Error, failure)
	}
	span.End()
}
