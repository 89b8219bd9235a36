package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/Nevern1y/Whity-sub000/consts"
	"github.com/Nevern1y/Whity-sub000/pkg/logger"
	"github.com/Nevern1y/Whity-sub000/pkg/result"
)

// GinRecovery 恢复 panic 并记录堆栈。
// stack=true 时把完整堆栈写入日志，响应体只返回通用内部错误。
func GinRecovery(stack bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				ctx := NewContextWithGin(c)
				if stack {
					logger.Error(ctx, "请求处理 panic",
						logger.Any("panic", err),
						logger.String("path", c.Request.URL.Path),
						logger.String("stack", string(debug.Stack())),
					)
				} else {
					logger.Error(ctx, "请求处理 panic",
						logger.Any("panic", err),
						logger.String("path", c.Request.URL.Path),
					)
				}
				if !c.Writer.Written() {
					result.Result(c, http.StatusInternalServerError, nil, "", consts.CodeInternalError)
				}
				c.Abort()
			}
		}()
		c.Next()
	}
}
