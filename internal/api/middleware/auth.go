package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Nevern1y/Whity-sub000/consts"
	"github.com/Nevern1y/Whity-sub000/pkg/ctxmeta"
	"github.com/Nevern1y/Whity-sub000/pkg/result"
	"github.com/Nevern1y/Whity-sub000/pkg/util"
)

// JWTAuthMiddleware JWT 认证中间件
// 从请求头中提取 Token 并验证，验证通过后将用户信息存入 Context
func JWTAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. 从 Header 中获取 Authorization
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			// 客户端请求错误,属于正常业务流程,不记录日志
			result.Fail(c, consts.CodeUnauthorized)
			c.Abort()
			return
		}

		// 2. 验证格式: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			result.Fail(c, consts.CodeUnauthorized)
			c.Abort()
			return
		}

		// 3. 解析并验证 Token
		claims, err := util.ParseToken(parts[1])
		if err != nil {
			// Token 无效或过期,属于正常业务流程,不记录日志
			result.Fail(c, consts.CodeInvalidToken)
			c.Abort()
			return
		}

		// 4. 将用户信息存入 Context，供后续 Handler 使用
		c.Set(ctxmeta.KeyUserUUID, claims.UserUUID)
		c.Set(ctxmeta.KeyDeviceID, claims.DeviceID)

		c.Next()
	}
}

// GetUserUUID 从 Context 中获取当前登录用户的 UUID
func GetUserUUID(c *gin.Context) (string, bool) {
	userUUID, exists := c.Get(ctxmeta.KeyUserUUID)
	if !exists {
		return "", false
	}
	uuid, ok := userUUID.(string)
	return uuid, ok
}

// GetDeviceID 从 Context 中获取当前设备 ID
func GetDeviceID(c *gin.Context) (string, bool) {
	deviceID, exists := c.Get(ctxmeta.KeyDeviceID)
	if !exists {
		return "", false
	}
	id, ok := deviceID.(string)
	return id, ok
}
