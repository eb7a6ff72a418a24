package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestSecure_Defaults(t *testing.T) {
	h := send(newEngine(Secure()), http.MethodGet, nil).Header()

	assert.Equal(t, "DENY", h.Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", h.Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", h.Get("Referrer-Policy"))
	assert.Contains(t, h.Get("Content-Security-Policy"), "frame-ancestors 'none'")
	assert.Contains(t, h.Get("Permissions-Policy"), "camera=()")
	assert.Empty(t, h.Get("Strict-Transport-Security"))
}

func TestSecureWithConfig_HSTS(t *testing.T) {
	cfg := DefaultSecurityConfig()
	cfg.HSTSEnabled = true
	cfg.HSTSMaxAge = 86400

	h := send(newEngine(SecureWithConfig(cfg)), http.MethodGet, nil).Header()
	assert.Equal(t, "max-age=86400; includeSubDomains", h.Get("Strict-Transport-Security"))

	cfg.HSTSIncludeSubdomains = false
	h = send(newEngine(SecureWithConfig(cfg)), http.MethodGet, nil).Header()
	assert.Equal(t, "max-age=86400", h.Get("Strict-Transport-Security"))
}

func TestSecure_DocsSkipCSP(t *testing.T) {
	r := gin.New()
	r.Use(Secure())
	r.GET("/swagger/*any", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	assert.Empty(t, w.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestRequestID(t *testing.T) {
	var seen string
	r := gin.New()
	r.Use(RequestID())
	r.GET("/test", func(c *gin.Context) {
		seen = GetRequestID(c)
		c.Status(http.StatusOK)
	})

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"generated when absent", "", false},
		{"caller id kept", "booking-7f3a", true},
		{"oversized id replaced", strings.Repeat("z", maxRequestIDLen+1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hdr []string
			if tt.incoming != "" {
				hdr = []string{RequestIDHeader, tt.incoming}
			}
			w := send(r, http.MethodGet, nil, hdr...)

			if tt.keep {
				assert.Equal(t, tt.incoming, seen)
			} else {
				assert.Len(t, seen, 36)
			}
			assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
		})
	}
}
