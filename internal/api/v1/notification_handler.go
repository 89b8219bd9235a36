package v1

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Nevern1y/Whity-sub000/consts"
	"github.com/Nevern1y/Whity-sub000/internal/api/middleware"
	"github.com/Nevern1y/Whity-sub000/internal/service"
	"github.com/Nevern1y/Whity-sub000/pkg/result"
)

// NotificationHandler 站内通知处理器
type NotificationHandler struct {
	notificationSvc service.INotificationService
}

// NewNotificationHandler 创建站内通知处理器
func NewNotificationHandler(notificationSvc service.INotificationService) *NotificationHandler {
	return &NotificationHandler{notificationSvc: notificationSvc}
}

// List 分页查询通知
// @Summary 分页查询通知列表
// @Tags 通知接口
// @Param only_unread query bool false "仅未读"
// @Param page query int false "页码"
// @Param page_size query int false "页大小"
// @Success 200 {object} dto.NotificationPage
// @Router /api/v1/notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	userUuid, ok := middleware.GetUserUUID(c)
	if !ok {
		result.Fail(c, consts.CodeUnauthorized)
		return
	}

	onlyUnread := c.Query("only_unread") == "true"
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "0"))

	notifications, err := h.notificationSvc.List(ctx, userUuid, onlyUnread, page, pageSize)
	if err != nil {
		failWith(c, ctx, err, "查询通知列表失败")
		return
	}
	result.Success(c, notifications)
}

// MarkRead 标记单条已读
// @Summary 标记通知已读（幂等）
// @Tags 通知接口
// @Param id path string true "通知 ID"
// @Success 200
// @Router /api/v1/notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	userUuid, ok := middleware.GetUserUUID(c)
	if !ok {
		result.Fail(c, consts.CodeUnauthorized)
		return
	}

	notificationId, err := parsePathID(c)
	if err != nil {
		result.Fail(c, consts.CodeParamError)
		return
	}

	if err := h.notificationSvc.MarkRead(ctx, userUuid, notificationId); err != nil {
		failWith(c, ctx, err, "标记已读失败")
		return
	}
	result.Success(c, nil)
}

// MarkAllRead 全部标记已读
// @Summary 全部通知标记已读
// @Tags 通知接口
// @Success 200
// @Router /api/v1/notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	userUuid, ok := middleware.GetUserUUID(c)
	if !ok {
		result.Fail(c, consts.CodeUnauthorized)
		return
	}

	if err := h.notificationSvc.MarkAllRead(ctx, userUuid); err != nil {
		failWith(c, ctx, err, "全部已读失败")
		return
	}
	result.Success(c, nil)
}

// Delete 删除单条通知
// @Summary 删除通知
// @Tags 通知接口
// @Param id path string true "通知 ID"
// @Success 200
// @Router /api/v1/notifications/{id} [delete]
func (h *NotificationHandler) Delete(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	userUuid, ok := middleware.GetUserUUID(c)
	if !ok {
		result.Fail(c, consts.CodeUnauthorized)
		return
	}

	notificationId, err := parsePathID(c)
	if err != nil {
		result.Fail(c, consts.CodeParamError)
		return
	}

	if err := h.notificationSvc.Delete(ctx, userUuid, notificationId); err != nil {
		failWith(c, ctx, err, "删除通知失败")
		return
	}
	result.Success(c, nil)
}

// Clear 清空全部通知
// @Summary 清空通知
// @Tags 通知接口
// @Success 200
// @Router /api/v1/notifications [delete]
func (h *NotificationHandler) Clear(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	userUuid, ok := middleware.GetUserUUID(c)
	if !ok {
		result.Fail(c, consts.CodeUnauthorized)
		return
	}

	if err := h.notificationSvc.Clear(ctx, userUuid); err != nil {
		failWith(c, ctx, err, "清空通知失败")
		return
	}
	result.Success(c, nil)
}

// UnreadCount 未读数
// @Summary 查询未读通知数
// @Tags 通知接口
// @Success 200 {object} map[string]int64
// @Router /api/v1/notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	userUuid, ok := middleware.GetUserUUID(c)
	if !ok {
		result.Fail(c, consts.CodeUnauthorized)
		return
	}

	count, err := h.notificationSvc.UnreadCount(ctx, userUuid)
	if err != nil {
		failWith(c, ctx, err, "查询未读数失败")
		return
	}
	result.Success(c, gin.H{"unread_count": count})
}
