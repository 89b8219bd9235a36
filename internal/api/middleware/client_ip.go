package middleware

import (
	"context"
	"net"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Nevern1y/Whity-sub000/pkg/ctxmeta"
)

const (
	headerXRealIP       = "X-Real-IP"
	headerXForwardedFor = "X-Forwarded-For"
	headerXClientIP     = "X-Client-IP"
)

// GetClientIP 从 Gin Context 中获取客户端真实 IP
// 优先级：X-Real-IP > X-Forwarded-For > X-Client-IP > RemoteAddr
func GetClientIP(c *gin.Context) string {
	// 1. 优先使用网关设置的真实 IP
	if ip := c.GetHeader(headerXRealIP); ip != "" {
		return strings.TrimSpace(ip)
	}

	// 2. 使用 X-Forwarded-For（代理链），取第一个 IP（原始客户端）
	if xff := c.GetHeader(headerXForwardedFor); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	// 3. 使用客户端传入的 IP（需验证格式）
	if ip := c.GetHeader(headerXClientIP); ip != "" {
		if net.ParseIP(ip) != nil {
			return ip
		}
	}

	// 4. 使用 Gin 的 ClientIP 方法（包含 RemoteAddr 逻辑）
	return c.ClientIP()
}

// ClientIPMiddleware 注入 IP 到 Context
func ClientIPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := GetClientIP(c)

		// 注入到 Gin Context
		c.Set(ctxmeta.KeyClientIP, ip)

		// 注入到 request context（传递给下游）
		ctx := c.Request.Context()
		ctx = context.WithValue(ctx, ctxmeta.KeyClientIP, ip)
		*c.Request = *c.Request.WithContext(ctx)

		c.Next()
	}
}
