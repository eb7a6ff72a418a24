package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	up   = PingFunc(func(context.Context) error { return nil })
	down = PingFunc(func(context.Context) error { return errors.New("dial tcp 10.0.0.7:6379: connection refused") })
)

func systemRouter(h *SystemHandler) *gin.Engine {
	r := gin.New()
	r.GET("/health", h.Health)
	r.GET("/ping", h.Ping)
	r.GET("/system/info", h.GetSystemInfo)
	return r
}

func TestNewSystemHandler_Defaults(t *testing.T) {
	h := NewSystemHandler("", HealthCheck{Name: "database"})
	assert.Equal(t, "dev", h.version)
	assert.Empty(t, h.checks, "nil pingers are dropped")
}

func TestSystemHandler_Health(t *testing.T) {
	cases := []struct {
		name       string
		checks     []HealthCheck
		wantCode   int
		wantStatus string
		wantChecks map[string]string
	}{
		{"nothing to check", nil, http.StatusOK, "ok", map[string]string{}},
		{"all up", []HealthCheck{{"database", up}, {"redis", up}}, http.StatusOK, "ok",
			map[string]string{"database": "ok", "redis": "ok"}},
		{"redis down", []HealthCheck{{"database", up}, {"redis", down}}, http.StatusServiceUnavailable, "degraded",
			map[string]string{"database": "ok", "redis": "dial tcp 10.0.0.7:6379: connection refused"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := do(t, systemRouter(NewSystemHandler("1.4.0", tc.checks...)), http.MethodGet, "/health", nil)
			require.Equal(t, tc.wantCode, resp.Code)

			var body HealthResponse
			require.NoError(t, json.Unmarshal(resp.Body, &body))
			assert.Equal(t, tc.wantStatus, body.Status)
			assert.Equal(t, tc.wantChecks, body.Checks)
			assert.NotEmpty(t, body.Uptime)
		})
	}
}

func TestSystemHandler_HealthChecksShareDeadline(t *testing.T) {
	deadlines := make(chan time.Time, 2)
	check := PingFunc(func(ctx context.Context) error {
		d, _ := ctx.Deadline()
		deadlines <- d
		return nil
	})
	do(t, systemRouter(NewSystemHandler("", HealthCheck{"database", check}, HealthCheck{"redis", check})), http.MethodGet, "/health", nil)

	first, second := <-deadlines, <-deadlines
	require.False(t, first.IsZero())
	assert.Equal(t, first, second)
	assert.WithinDuration(t, time.Now().Add(healthCheckTimeout), first, time.Second)
}

func TestSystemHandler_InfoAndPing(t *testing.T) {
	r := systemRouter(NewSystemHandler("1.4.0"))

	var info SystemInfoResponse
	resp := do(t, r, http.MethodGet, "/system/info", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	resp.decode(t, &info)
	assert.Equal(t, "Freightport API", info.Name)
	assert.Equal(t, "1.4.0", info.Version)
	assert.NotEmpty(t, info.GoVersion)

	var pong PingResponse
	resp = do(t, r, http.MethodGet, "/ping", nil)
	resp.decode(t, &pong)
	assert.Equal(t, "pong", pong.Message)
	_, err := time.Parse(time.RFC3339, pong.Timestamp)
	assert.NoError(t, err)
}
