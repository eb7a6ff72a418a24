package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Request attributes carried in the context and stamped on its logger
const (
	KeyRequestID = "request_id"
	KeyUserID    = "user_id"
	KeyCompanyID = "company_id"
)

type loggerKey struct{}

type fieldKey string

// WithContext attaches l to ctx
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// FromContext returns the attached logger or a no-op one
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// WithField records key=value in ctx and adds it to the context logger
func WithField(ctx context.Context, key, value string) context.Context {
	ctx = context.WithValue(ctx, fieldKey(key), value)
	return WithContext(ctx, FromContext(ctx).With(zap.String(key, value)))
}

// Field reads a value stored by WithField
func Field(ctx context.Context, key string) string {
	v, _ := ctx.Value(fieldKey(key)).(string)
	return v
}

// L is FromContext plus trace_id and span_id of the active span.
//
//	logger.L(ctx).Info("Bill issued", zap.String("bill_number", n))
func L(ctx context.Context) *zap.Logger {
	l := FromContext(ctx)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		l = l.With(zap.Stringer("trace_id", sc.TraceID()), zap.Stringer("span_id", sc.SpanID()))
	}
	return l
}
