package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Nevern1y/Whity-sub000/internal/api/middleware"
	v1 "github.com/Nevern1y/Whity-sub000/internal/api/v1"
	"github.com/Nevern1y/Whity-sub000/internal/realtime/handler"
	"github.com/Nevern1y/Whity-sub000/pkg/util"
)

// Handlers 路由依赖的处理器集合（依赖注入）
type Handlers struct {
	WS           *handler.WSHandler
	Friendship   *v1.FriendshipHandler
	Message      *v1.MessageHandler
	Notification *v1.NotificationHandler
	Presence     *v1.PresenceHandler
	RateLimiter  *middleware.RedisRateLimiter
}

// InitRouter 初始化路由
func InitRouter(h *Handlers) *gin.Engine {
	r := gin.New()

	// 恢复中间件
	r.Use(middleware.GinRecovery(true))

	// 追踪中间件 (生成 trace_id)
	r.Use(util.TraceLogger())

	// 客户端 IP 中间件
	r.Use(middleware.ClientIPMiddleware())

	// 日志中间件
	r.Use(middleware.GinLogger())

	// Prometheus 监控中间件
	r.Use(middleware.PrometheusMiddleware())

	// 跨域中间件
	r.Use(middleware.CorsMiddleware())

	// 健康检查（无需认证）
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	// Prometheus 指标暴露接口
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket 接入点：认证走 query 参数，不经过 JWT 中间件
	r.GET("/ws", h.WS.ServeWS)

	// API 路由组（全部需要认证）
	api := r.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware())
	api.Use(middleware.UserRateLimitMiddleware(h.RateLimiter))
	{
		// 好友关系
		api.POST("/friendships", h.Friendship.Request)
		api.POST("/friendships/:id/respond", h.Friendship.Respond)
		api.DELETE("/friendships/:id", h.Friendship.Remove)
		api.GET("/friends", h.Friendship.ListFriends)

		// 私信
		api.POST("/messages", h.Message.Send)
		api.GET("/messages", h.Message.History)

		// 站内通知
		api.GET("/notifications", h.Notification.List)
		api.GET("/notifications/unread-count", h.Notification.UnreadCount)
		api.POST("/notifications/read-all", h.Notification.MarkAllRead)
		api.POST("/notifications/:id/read", h.Notification.MarkRead)
		api.DELETE("/notifications/:id", h.Notification.Delete)
		api.DELETE("/notifications", h.Notification.Clear)

		// 在线状态
		api.GET("/presence/:uuid", h.Presence.Get)
	}

	return r
}
