package middleware

// SecurityHeaders hardens console API responses and sets their cache policy.
// Console reads may be stored by the moderator's browser but must be
// revalidated (lists and histories carry ETags); mutations are never stored.

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Cache-Control values.
const (
	cacheRevalidate = "private, no-cache"
	cacheNoStore    = "no-store"
)

// SecurityOptions configures SecurityHeaders.
type SecurityOptions struct {
	EnableHSTS   bool          // only when traffic is HTTPS end-to-end
	HSTSMaxAge   time.Duration // defaults to 180 days
	NoStore      bool          // no-store on every response, console reads included
	EnablePolicy bool          // Permissions-Policy and X-Permitted-Cross-Domain-Policies
}

// SecurityHeaders sets nosniff, frame denial and no-referrer on every
// response, the console cache policy, the optional browser policies, HSTS for
// HTTPS requests when enabled, and exposes X-Request-ID to browser clients.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := int(opt.HSTSMaxAge.Seconds())
	if maxAge <= 0 {
		maxAge = int((180 * 24 * time.Hour).Seconds())
	}
	hsts := "max-age=" + strconv.Itoa(maxAge) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()

		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}

		switch cachePolicy(c.Request.Method, RouteOf(c), opt.NoStore) {
		case cacheNoStore:
			h.Set("Cache-Control", cacheNoStore)
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		case cacheRevalidate:
			h.Set("Cache-Control", cacheRevalidate)
		}

		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}

		if h.Get(requestIDHeader) != "" {
			const hdr = "Access-Control-Expose-Headers"
			cur := h.Get(hdr)
			if cur == "" {
				h.Set(hdr, requestIDHeader)
			} else if !strings.Contains(cur, requestIDHeader) {
				h.Set(hdr, cur+", "+requestIDHeader)
			}
		}

		c.Next()
	}
}

// cachePolicy picks the Cache-Control value for a request, or "" to leave it
// unset (routes outside the console API, unless noStore).
func cachePolicy(method string, r Route, noStore bool) string {
	switch {
	case noStore:
		return cacheNoStore
	case r.Kind == "":
		return ""
	case method == http.MethodGet || method == http.MethodHead:
		return cacheRevalidate
	default:
		return cacheNoStore
	}
}

// isHTTPS reports whether the request arrived over TLS directly or through a
// proxy that set X-Forwarded-Proto: https.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
