package middleware

import (
	"github.com/gin-gonic/gin"
)

// Security header constants
const (
	HeaderXFrameOptions         = "X-Frame-Options"
	HeaderXContentTypeOptions   = "X-Content-Type-Options"
	HeaderReferrerPolicy        = "Referrer-Policy"
	HeaderPermissionsPolicy     = "Permissions-Policy"
	HeaderContentSecurityPolicy = "Content-Security-Policy"
	HeaderCacheControl          = "Cache-Control"
	HeaderStrictTransport       = "Strict-Transport-Security"
)

// DefaultSecurityHeaders are applied to every response. Session API
// responses carry per-client state, so nothing may be cached.
var DefaultSecurityHeaders = map[string]string{
	HeaderXFrameOptions:         "DENY",
	HeaderXContentTypeOptions:   "nosniff",
	HeaderReferrerPolicy:        "no-referrer",
	HeaderPermissionsPolicy:     "geolocation=(), microphone=(), camera=()",
	HeaderContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
	HeaderCacheControl:          "no-store",
}

// SecurityHeadersMiddleware adds security headers to responses. HSTS is only
// sent when the server terminates TLS itself.
func SecurityHeadersMiddleware(tls bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		for header, value := range DefaultSecurityHeaders {
			c.Header(header, value)
		}
		if tls {
			c.Header(HeaderStrictTransport, "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
