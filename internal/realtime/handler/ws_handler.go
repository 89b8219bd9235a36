package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Nevern1y/Whity-sub000/config"
	"github.com/Nevern1y/Whity-sub000/internal/realtime"
	"github.com/Nevern1y/Whity-sub000/internal/realtime/manager"
	"github.com/Nevern1y/Whity-sub000/internal/realtime/router"
	"github.com/Nevern1y/Whity-sub000/pkg/ctxmeta"
	"github.com/Nevern1y/Whity-sub000/pkg/logger"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// 当前阶段默认放开来源校验，方便本地多端调试（Web/Electron/移动端模拟器）。
	// 生产环境建议按域名白名单收紧校验策略。
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// WSHandler 负责处理 /ws 接入请求。
// 职责边界：
// - 处理 Gin/HTTP 层参数、升级与错误响应；
// - 调用 Authenticator 完成鉴权；
// - 调用 Hub 维护连接生命周期，上行帧全部交给 Router。
type WSHandler struct {
	cfg    config.RealtimeConfig
	hub    *realtime.Hub
	auth   *Authenticator
	router *router.Router
}

// NewWSHandler 创建 WebSocket 入口处理器。
func NewWSHandler(cfg config.RealtimeConfig, hub *realtime.Hub, auth *Authenticator, eventRouter *router.Router) *WSHandler {
	return &WSHandler{
		cfg:    cfg,
		hub:    hub,
		auth:   auth,
		router: eventRouter,
	}
}

// ServeWS 处理 WebSocket 握手与接入。
// 执行流程：
// 1. 从 query 中读取 token/device_id，并获取 client_ip。
// 2. 调用 auth.Authenticate 做鉴权。
// 3. 构建连接级 context（注入 trace/user/device/ip）。
// 4. 完成协议升级并进入连接处理主循环。
func (h *WSHandler) ServeWS(c *gin.Context) {
	token := c.Query("token")
	deviceID := c.Query("device_id")
	clientIP := c.ClientIP()

	session, err := h.auth.Authenticate(c.Request.Context(), token, deviceID, clientIP)
	if err != nil {
		h.writeAuthError(c, err)
		return
	}

	connCtx := context.Background()
	if traceID := ctxmeta.TraceIDFromGin(c); traceID != "" {
		connCtx = ctxmeta.WithTraceID(connCtx, traceID)
	}
	connCtx = ctxmeta.WithUserUUID(connCtx, session.UserUUID)
	connCtx = ctxmeta.WithDeviceID(connCtx, session.DeviceID)
	connCtx = ctxmeta.WithClientIP(connCtx, session.ClientIP)

	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn(connCtx, "WebSocket 升级失败",
			logger.ErrorField("error", err),
		)
		return
	}

	h.handleConnection(connCtx, conn, session)
}

// handleConnection 承载单个连接的完整生命周期。
// 关键语义：
// - 同设备重复连接时，用新连接替换旧连接（Hub 内处理）；
// - 接入时自动加入个人房间并触发上线迁移；
// - 读超时取心跳间隔的两倍，超时未收到任何帧即判定失活断开。
func (h *WSHandler) handleConnection(ctx context.Context, conn *websocket.Conn, session *Session) {
	client := manager.NewClient(conn, session.UserUUID, session.DeviceID, manager.ClientOptions{
		SendQueueSize: h.cfg.SendQueueSize,
		InboundRate:   h.cfg.InboundRate,
		InboundBurst:  h.cfg.InboundBurst,
		ReadTimeout:   2 * h.cfg.HeartbeatInterval,
	})

	h.hub.OnConnect(ctx, client)
	logger.Info(ctx, "WebSocket 连接已建立",
		logger.String("user_uuid", session.UserUUID),
		logger.String("device_id", session.DeviceID),
		logger.String("client_ip", session.ClientIP),
		logger.Int("online_count", h.hub.Registry().Count()),
	)

	client.Run(ctx, func(raw []byte) {
		h.router.Handle(client, raw)
	}, func() {
		h.hub.OnDisconnect(ctx, client)
		logger.Info(ctx, "WebSocket 连接已断开",
			logger.String("user_uuid", session.UserUUID),
			logger.String("device_id", session.DeviceID),
			logger.Int("online_count", h.hub.Registry().Count()),
		)
	})
}

// writeAuthError 将鉴权错误映射为 HTTP 握手阶段错误响应。
// 说明：握手前还未升级为 WebSocket，因此用 HTTP JSON 返回更直观。
func (h *WSHandler) writeAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrTokenRequired), errors.Is(err, ErrDeviceIDRequired):
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": err.Error(),
		})
	case errors.Is(err, ErrTokenInvalid):
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    http.StatusUnauthorized,
			"message": "token invalid or expired",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "internal error",
		})
	}
}
