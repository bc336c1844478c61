package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "agentcoord"

// StartOpSpan starts a span for a coordinator operation.
func StartOpSpan(ctx context.Context, op, requestID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, op,
		trace.WithAttributes(
			attribute.String("request.id", requestID),
		),
	)
}

// StartAssignSpan starts a span for a task assignment attempt.
func StartAssignSpan(ctx context.Context, requestID, agentID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "assign",
		trace.WithAttributes(
			attribute.String("request.id", requestID),
			attribute.String("agent.id", agentID),
		),
	)
}
