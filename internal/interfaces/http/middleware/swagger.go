package middleware

import (
	"net/http"
	"net/netip"
	"strings"

	"github.com/freightport/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// DocsGuard protects the API documentation. Disabled docs answer 404;
// with an allow list only matching client IPs get through.
func DocsGuard(enabled bool, allowed []string) gin.HandlerFunc {
	prefixes := ParseIPAllowList(allowed)

	return func(c *gin.Context) {
		if !enabled {
			c.AbortWithStatusJSON(http.StatusNotFound, dto.Fail(
				dto.ErrCodeNotFound, "API documentation is not available", GetRequestID(c)))
			return
		}
		if len(prefixes) > 0 && !IPAllowed(c.ClientIP(), prefixes) {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.Fail(
				dto.ErrCodeForbidden, "Access to API documentation is restricted", GetRequestID(c)))
			return
		}
		c.Next()
	}
}

// ParseIPAllowList accepts single addresses and CIDR ranges. Malformed
// entries are skipped.
func ParseIPAllowList(entries []string) []netip.Prefix {
	var out []netip.Prefix
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if strings.Contains(e, "/") {
			if p, err := netip.ParsePrefix(e); err == nil {
				out = append(out, p.Masked())
			}
			continue
		}
		if addr, err := netip.ParseAddr(e); err == nil {
			out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
		}
	}
	return out
}

// IPAllowed reports whether ip falls in one of the prefixes
func IPAllowed(ip string, prefixes []netip.Prefix) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
