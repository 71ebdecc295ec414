package logger

import (
	"context"
	"strings"

	obscontext "github.com/smallbiznis/membership/internal/observability/context"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// FromContext returns the global logger enriched with request-scoped fields.
func FromContext(ctx context.Context) *zap.Logger {
	return WithContext(ctx, zap.L())
}

// WithContext enriches the provided logger with correlation fields.
func WithContext(ctx context.Context, base *zap.Logger) *zap.Logger {
	if ctx == nil || base == nil {
		return base
	}

	fields := []zap.Field{
		zap.String("request_id", obscontext.RequestIDFromContext(ctx)),
		zap.String("actor_id", obscontext.ActorIDFromContext(ctx)),
	}
	fields = append(fields, traceFieldsFromContext(ctx)...)

	return base.With(fields...)
}

// WithSubscription tags a logger with a subscription's natural key.
func WithSubscription(log *zap.Logger, id int64, gateway, environment, transactionID string) *zap.Logger {
	if log == nil {
		return nil
	}
	return log.With(
		zap.Int64("subscription_id", id),
		zap.String("gateway", strings.TrimSpace(gateway)),
		zap.String("gateway_environment", strings.TrimSpace(environment)),
		zap.String("subscription_transaction_id", strings.TrimSpace(transactionID)),
	)
}

func traceFieldsFromContext(ctx context.Context) []zap.Field {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return []zap.Field{
			zap.String("trace_id", ""),
			zap.String("span_id", ""),
		}
	}
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}
