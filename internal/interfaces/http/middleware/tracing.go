// Package middleware provides the gin middleware chain of the portal API.
package middleware

import (
	"net/http"
	"slices"

	"github.com/freightport/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig configures Tracing.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
	// SkipPaths are exact request paths left untraced, e.g. health checks.
	SkipPaths []string
}

// Tracing starts a server span per request through otelgin. The span is
// named after the route pattern.
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	skip := slices.Clone(cfg.SkipPaths)
	return otelgin.Middleware(cfg.ServiceName, otelgin.WithFilter(func(r *http.Request) bool {
		return !slices.Contains(skip, r.URL.Path)
	}))
}

// SpanEnricher tags the request span with the request id and the caller and
// flags 5xx responses. Mount it after the JWT middleware.
func SpanEnricher() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}
		span.SetAttributes(callerAttributes(c)...)

		c.Next()

		if status := c.Writer.Status(); status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		if last := c.Errors.Last(); last != nil {
			span.RecordError(last.Err)
		}
	}
}

func callerAttributes(c *gin.Context) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if id := GetRequestID(c); id != "" {
		attrs = append(attrs, attribute.String("request_id", id))
	}
	actor, ok := GetActor(c)
	if !ok {
		return attrs
	}
	attrs = append(attrs,
		telemetry.AttrUserID.String(actor.UserID.String()),
		attribute.String("role", string(actor.Role)))
	if actor.CompanyID != nil {
		attrs = append(attrs, telemetry.AttrCompanyID.String(actor.CompanyID.String()))
	}
	return attrs
}
