package middleware

import (
	"context"
	"strings"

	"github.com/freightport/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
)

// Profiling tags the request goroutine with pyroscope labels: method, route,
// the resource the route belongs to and the caller's role. Requests on
// unmatched routes and the infrastructure endpoints are left unlabeled.
func Profiling(enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" || route == "/health" || route == "/metrics" || strings.HasPrefix(route, docsPrefix) {
			c.Next()
			return
		}

		labels := map[string]string{
			telemetry.LabelMethod: c.Request.Method,
			telemetry.LabelRoute:  route,
		}
		if resource := resourceOf(route); resource != "" {
			labels[telemetry.LabelResource] = resource
		}
		if actor, ok := GetActor(c); ok {
			labels[telemetry.LabelRole] = strings.ToLower(string(actor.Role))
		}

		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

// resourceOf returns the first path segment after the API version:
// "/api/v1/tracking/shipments/:id" gives "tracking".
func resourceOf(route string) string {
	segments := strings.Split(strings.Trim(route, "/"), "/")
	for _, s := range segments {
		if s == "api" || isVersionSegment(s) {
			continue
		}
		if strings.HasPrefix(s, ":") || strings.HasPrefix(s, "*") {
			return ""
		}
		return s
	}
	return ""
}

func isVersionSegment(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
