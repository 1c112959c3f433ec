package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// CtxRealIPKey holds the resolved client address in the Gin context.
const CtxRealIPKey = "real_ip"

// RealIP resolves the client address once per request. With trustForwarded
// the proxy headers win, in this order:
// 1) CF-Connecting-IP
// 2) X-Forwarded-For (left-most parsable entry)
// Otherwise, or when neither header parses, the TCP peer address is used.
// Only enable trustForwarded behind a proxy that overwrites these headers;
// rate-limit keys and the private-range bypass depend on this value.
func RealIP(trustForwarded bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := ""
		if trustForwarded {
			ip = forwardedIP(c)
		}
		if ip == "" {
			ip = peerIP(c)
		}
		c.Set(CtxRealIPKey, ip)
		c.Next()
	}
}

func forwardedIP(c *gin.Context) string {
	if cf := net.ParseIP(strings.TrimSpace(c.GetHeader("CF-Connecting-IP"))); cf != nil {
		return cf.String()
	}
	for _, part := range strings.Split(c.GetHeader("X-Forwarded-For"), ",") {
		if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
			return ip.String()
		}
	}
	return ""
}

func peerIP(c *gin.Context) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(c.Request.RemoteAddr))
	if err != nil {
		host = c.Request.RemoteAddr
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.String()
	}
	return ""
}
