package v1

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Nevern1y/Whity-sub000/consts"
	"github.com/Nevern1y/Whity-sub000/internal/api/middleware"
	"github.com/Nevern1y/Whity-sub000/internal/realtime"
	"github.com/Nevern1y/Whity-sub000/pkg/result"
)

// PresenceHandler 在线状态查询处理器
type PresenceHandler struct {
	hub *realtime.Hub
}

// NewPresenceHandler 创建在线状态处理器
func NewPresenceHandler(hub *realtime.Hub) *PresenceHandler {
	return &PresenceHandler{hub: hub}
}

// presenceResp 在线状态响应
type presenceResp struct {
	UserUuid     string `json:"user_uuid"`
	Online       bool   `json:"online"`
	LastActiveAt string `json:"last_active_at,omitempty"`
}

// Get 查询指定用户的在线状态
// @Summary 查询用户在线状态
// @Tags 在线状态接口
// @Param uuid path string true "用户 uuid"
// @Success 200 {object} presenceResp
// @Router /api/v1/presence/{uuid} [get]
func (h *PresenceHandler) Get(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	if _, ok := middleware.GetUserUUID(c); !ok {
		result.Fail(c, consts.CodeUnauthorized)
		return
	}

	targetUuid := c.Param("uuid")
	if targetUuid == "" {
		result.Fail(c, consts.CodeParamError)
		return
	}

	// 1. 本实例注册表是权威；命中即在线
	// 2. 未命中时查 Redis 镜像，覆盖连在其他实例上的用户
	online := h.hub.Registry().IsOnline(targetUuid)
	lastActive := h.hub.Registry().LastActiveAt(targetUuid)
	if !online {
		online = h.hub.Mirror().IsOnline(ctx, targetUuid)
	}
	if lastActive.IsZero() {
		lastActive = h.hub.Mirror().UserLastActiveAt(ctx, targetUuid)
	}

	resp := &presenceResp{
		UserUuid: targetUuid,
		Online:   online,
	}
	if !lastActive.IsZero() {
		resp.LastActiveAt = lastActive.Format(time.RFC3339)
	}
	result.Success(c, resp)
}
