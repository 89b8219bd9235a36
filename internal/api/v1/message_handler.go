package v1

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Nevern1y/Whity-sub000/consts"
	"github.com/Nevern1y/Whity-sub000/internal/api/middleware"
	"github.com/Nevern1y/Whity-sub000/internal/dto"
	"github.com/Nevern1y/Whity-sub000/internal/service"
	"github.com/Nevern1y/Whity-sub000/pkg/result"
)

// MessageHandler 私信处理器
type MessageHandler struct {
	messageSvc service.IMessageService
}

// NewMessageHandler 创建私信处理器
func NewMessageHandler(messageSvc service.IMessageService) *MessageHandler {
	return &MessageHandler{messageSvc: messageSvc}
}

// Send 发送私信
// @Summary 发送私信
// @Tags 私信接口
// @Accept json
// @Produce json
// @Param request body dto.SendMessageReq true "消息参数"
// @Success 201 {object} dto.Message
// @Router /api/v1/messages [post]
func (h *MessageHandler) Send(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	userUuid, ok := middleware.GetUserUUID(c)
	if !ok {
		result.Fail(c, consts.CodeUnauthorized)
		return
	}

	var req dto.SendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		result.Fail(c, consts.CodeParamError)
		return
	}

	message, err := h.messageSvc.Send(ctx, userUuid, req.ReceiverUuid, req.Content)
	if err != nil {
		failWith(c, ctx, err, "发送私信失败")
		return
	}
	result.Created(c, message)
}

// History 拉取与指定对端的历史消息
// @Summary 拉取历史消息（倒序游标分页）
// @Tags 私信接口
// @Param peer query string true "对端用户 uuid"
// @Param cursor query string false "上一页返回的游标，为空从最新开始"
// @Param page_size query int false "页大小"
// @Success 200 {object} dto.MessagePage
// @Router /api/v1/messages [get]
func (h *MessageHandler) History(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	userUuid, ok := middleware.GetUserUUID(c)
	if !ok {
		result.Fail(c, consts.CodeUnauthorized)
		return
	}

	peerUuid := c.Query("peer")
	if peerUuid == "" {
		result.Fail(c, consts.CodeParamError)
		return
	}
	cursor := c.Query("cursor")
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "0"))

	page, err := h.messageSvc.FetchPage(ctx, userUuid, peerUuid, cursor, pageSize)
	if err != nil {
		failWith(c, ctx, err, "拉取历史消息失败")
		return
	}
	result.Success(c, page)
}
