package middleware

import (
	"errors"
	"time"

	"github.com/freightport/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Upper buckets are sized for Excel exports and bill PDFs.
var responseSizeBuckets = []float64{1e2, 1e3, 1e4, 1e5, 1e6, 5e6}

type httpInstruments struct {
	requests *telemetry.Counter
	latency  *telemetry.Histogram
	size     *telemetry.Histogram
	inFlight metric.Int64UpDownCounter
}

func newHTTPInstruments(meter metric.Meter) (*httpInstruments, error) {
	var (
		in   httpInstruments
		errs []error
		err  error
	)
	in.requests, err = telemetry.NewCounter(meter, "http_server_request_total", "Portal API requests served", "{request}")
	errs = append(errs, err)
	in.latency, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_duration_seconds",
		Description: "Portal API latency",
		Unit:        "s",
		Boundaries:  telemetry.HTTPDurationBuckets,
	})
	errs = append(errs, err)
	in.size, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_response_size_bytes",
		Description: "Portal API response body size",
		Unit:        "By",
		Boundaries:  responseSizeBuckets,
	})
	errs = append(errs, err)
	in.inFlight, err = meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("Portal API requests in flight"),
		metric.WithUnit("{request}"))
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &in, nil
}

// HTTPMetrics counts requests by route, status class and caller role, and
// records latency and response size by route. Company ids are never used as
// labels. A nil meter, or one that cannot build the instruments, turns the
// middleware into a pass-through.
func HTTPMetrics(meter metric.Meter) gin.HandlerFunc {
	var in *httpInstruments
	if meter != nil {
		in, _ = newHTTPInstruments(meter)
	}
	if in == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		began := time.Now()
		in.inFlight.Add(ctx, 1)
		defer in.inFlight.Add(ctx, -1)

		c.Next()

		route := routeLabels(c)
		status := c.Writer.Status()
		in.requests.Inc(ctx, append(route,
			telemetry.AttrHTTPStatusCode.Int(status),
			attribute.String("status_class", StatusClass(status)),
			attribute.String("role", callerRole(c)),
		)...)
		in.latency.RecordDuration(ctx, time.Since(began), route...)
		if n := c.Writer.Size(); n > 0 {
			in.size.Record(ctx, float64(n), route...)
		}
	}
}

func routeLabels(c *gin.Context) []attribute.KeyValue {
	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	return []attribute.KeyValue{
		telemetry.AttrHTTPMethod.String(c.Request.Method),
		telemetry.AttrHTTPRoute.String(route),
	}
}

func callerRole(c *gin.Context) string {
	if actor, ok := GetActor(c); ok {
		return string(actor.Role)
	}
	return "anonymous"
}

// StatusClass buckets a status code as "2xx" through "5xx", or "other".
func StatusClass(status int) string {
	if status < 200 || status > 599 {
		return "other"
	}
	return string(rune('0'+status/100)) + "xx"
}
