package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/freightport/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func findMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m
			}
		}
	}
	t.Fatalf("metric %s not recorded", name)
	return metricdata.Metrics{}
}

func TestHTTPMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if c.GetHeader("X-Test-Staff") != "" {
			c.Set(ActorKey, shared.Actor{UserID: uuid.New(), Role: shared.RoleOperator})
		}
	}, HTTPMetrics(mp.Meter("test")))
	r.GET("/api/v1/orders/:id", func(c *gin.Context) { c.String(http.StatusOK, "order") })

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+uuid.NewString(), nil)
	req.Header.Set("X-Test-Staff", "1")
	r.ServeHTTP(httptest.NewRecorder(), req)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	total := findMetric(t, reader, "http_server_request_total")
	sum, ok := total.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 2)

	byRoute := map[string]metricdata.DataPoint[int64]{}
	for _, dp := range sum.DataPoints {
		route, _ := dp.Attributes.Value(attribute.Key("http.route"))
		byRoute[route.AsString()] = dp
	}
	order := byRoute["/api/v1/orders/:id"]
	role, _ := order.Attributes.Value("role")
	class, _ := order.Attributes.Value("status_class")
	assert.Equal(t, "OPERATOR", role.AsString())
	assert.Equal(t, "2xx", class.AsString())
	_, hasCompany := order.Attributes.Value("company_id")
	assert.False(t, hasCompany)

	unmatched := byRoute["unmatched"]
	role, _ = unmatched.Attributes.Value("role")
	assert.Equal(t, "anonymous", role.AsString())

	findMetric(t, reader, "http_server_request_duration_seconds")
}

func TestHTTPMetrics_NilMeter(t *testing.T) {
	w := httptest.NewRecorder()
	newEngine(HTTPMetrics(nil)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", StatusClass(201))
	assert.Equal(t, "3xx", StatusClass(304))
	assert.Equal(t, "4xx", StatusClass(422))
	assert.Equal(t, "5xx", StatusClass(502))
	assert.Equal(t, "other", StatusClass(101))
}
