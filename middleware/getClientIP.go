package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// ClientIP returns the caller address, honouring proxy headers.
func ClientIP(c *gin.Context) string {
	return getClientIP(c)
}

func getClientIP(c *gin.Context) string {
	// X-Forwarded-For may hold a comma-separated chain; the first hop is the client.
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 && strings.TrimSpace(ips[0]) != "" {
			return strings.TrimSpace(ips[0])
		}
	}

	if xri := c.GetHeader("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip := c.Request.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		return host
	}
	return ip
}
