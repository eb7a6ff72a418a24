package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// CORSConfig lists the origins, methods and headers the portal front-ends may use.
type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// DefaultCORSConfig allows no origin. Cross-origin callers get no CORS
// headers until AllowOrigins is configured.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowHeaders:     []string{"Authorization", "Content-Type", "Accept", "Origin", "Cache-Control", RequestIDHeader},
		ExposeHeaders:    []string{RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

// CORS applies DefaultCORSConfig.
func CORS() gin.HandlerFunc {
	return CORSWithConfig(DefaultCORSConfig())
}

type corsHeaders struct {
	methods string
	headers string
	expose  string
	maxAge  string
}

// CORSWithConfig echoes a listed Origin back, or "*" when the list holds a
// wildcard. Credentials are never allowed together with "*". Preflight
// requests end with 204 whether or not the origin matched.
func CORSWithConfig(cfg CORSConfig) gin.HandlerFunc {
	fixed := corsHeaders{
		methods: strings.Join(cfg.AllowMethods, ", "),
		headers: strings.Join(cfg.AllowHeaders, ", "),
		expose:  strings.Join(cfg.ExposeHeaders, ", "),
	}
	if cfg.MaxAge > 0 {
		fixed.maxAge = strconv.FormatInt(int64(cfg.MaxAge/time.Second), 10)
	}
	match := originMatcher(cfg.AllowOrigins)

	return func(c *gin.Context) {
		if allow, ok := match(c.GetHeader("Origin")); ok {
			fixed.write(c.Writer.Header(), allow, cfg.AllowCredentials && allow != "*")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func originMatcher(origins []string) func(string) (string, bool) {
	if slices.Contains(origins, "*") {
		return func(string) (string, bool) { return "*", true }
	}
	set := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		set[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(origin string) (string, bool) {
		if origin == "" {
			return "", false
		}
		_, ok := set[origin]
		return origin, ok
	}
}

func (f corsHeaders) write(h http.Header, origin string, credentials bool) {
	h.Set("Access-Control-Allow-Origin", origin)
	h.Add("Vary", "Origin")
	if credentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	for name, value := range map[string]string{
		"Access-Control-Allow-Methods":  f.methods,
		"Access-Control-Allow-Headers":  f.headers,
		"Access-Control-Expose-Headers": f.expose,
		"Access-Control-Max-Age":        f.maxAge,
	} {
		if value != "" {
			h.Set(name, value)
		}
	}
}
