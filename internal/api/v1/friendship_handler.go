package v1

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Nevern1y/Whity-sub000/consts"
	"github.com/Nevern1y/Whity-sub000/internal/api/middleware"
	"github.com/Nevern1y/Whity-sub000/internal/dto"
	"github.com/Nevern1y/Whity-sub000/internal/service"
	"github.com/Nevern1y/Whity-sub000/pkg/errs"
	"github.com/Nevern1y/Whity-sub000/pkg/logger"
	"github.com/Nevern1y/Whity-sub000/pkg/result"
)

// FriendshipHandler 好友关系处理器
type FriendshipHandler struct {
	friendSvc service.IFriendshipService
}

// NewFriendshipHandler 创建好友关系处理器
func NewFriendshipHandler(friendSvc service.IFriendshipService) *FriendshipHandler {
	return &FriendshipHandler{friendSvc: friendSvc}
}

// Request 发起好友申请
// @Summary 发起好友申请
// @Tags 好友接口
// @Accept json
// @Produce json
// @Param request body dto.SendFriendRequestReq true "申请参数"
// @Success 201 {object} dto.Friendship
// @Router /api/v1/friendships [post]
func (h *FriendshipHandler) Request(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	userUuid, ok := middleware.GetUserUUID(c)
	if !ok {
		result.Fail(c, consts.CodeUnauthorized)
		return
	}

	var req dto.SendFriendRequestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		// 参数错误由客户端输入导致,属于正常业务流程,不记录日志
		result.Fail(c, consts.CodeParamError)
		return
	}

	friendship, err := h.friendSvc.Request(ctx, userUuid, req.TargetUuid)
	if err != nil {
		failWith(c, ctx, err, "发起好友申请失败")
		return
	}
	result.Created(c, friendship)
}

// Respond 处理好友申请
// @Summary 接受或拒绝好友申请
// @Tags 好友接口
// @Param id path string true "申请 ID"
// @Param request body dto.RespondFriendRequestReq true "处理参数"
// @Success 200 {object} dto.Friendship
// @Router /api/v1/friendships/{id}/respond [post]
func (h *FriendshipHandler) Respond(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	userUuid, ok := middleware.GetUserUUID(c)
	if !ok {
		result.Fail(c, consts.CodeUnauthorized)
		return
	}

	friendshipId, err := parsePathID(c)
	if err != nil {
		result.Fail(c, consts.CodeParamError)
		return
	}
	var req dto.RespondFriendRequestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		result.Fail(c, consts.CodeBodyError)
		return
	}

	friendship, err := h.friendSvc.Respond(ctx, userUuid, friendshipId, req.Accept)
	if err != nil {
		failWith(c, ctx, err, "处理好友申请失败")
		return
	}
	result.Success(c, friendship)
}

// Remove 解除好友关系
// @Summary 解除好友关系
// @Tags 好友接口
// @Param id path string true "关系 ID"
// @Success 200
// @Router /api/v1/friendships/{id} [delete]
func (h *FriendshipHandler) Remove(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	userUuid, ok := middleware.GetUserUUID(c)
	if !ok {
		result.Fail(c, consts.CodeUnauthorized)
		return
	}

	friendshipId, err := parsePathID(c)
	if err != nil {
		result.Fail(c, consts.CodeParamError)
		return
	}

	if err := h.friendSvc.Remove(ctx, userUuid, friendshipId); err != nil {
		failWith(c, ctx, err, "解除好友关系失败")
		return
	}
	result.Success(c, nil)
}

// ListFriends 查询好友列表
// @Summary 查询当前好友列表
// @Tags 好友接口
// @Success 200 {array} dto.Friend
// @Router /api/v1/friends [get]
func (h *FriendshipHandler) ListFriends(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)
	userUuid, ok := middleware.GetUserUUID(c)
	if !ok {
		result.Fail(c, consts.CodeUnauthorized)
		return
	}

	friends, err := h.friendSvc.ListFriends(ctx, userUuid)
	if err != nil {
		failWith(c, ctx, err, "查询好友列表失败")
		return
	}
	result.Success(c, friends)
}

// parsePathID 解析路径中的数字 ID
func parsePathID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

// failWith 统一失败出口：服务端错误记日志，业务错误按码返回
func failWith(c *gin.Context, ctx context.Context, err error, msg string) {
	code := errs.CodeOf(err)
	if code == consts.CodeInternalError || code == consts.CodeServiceUnavailable {
		logger.Error(ctx, msg, logger.ErrorField("error", err))
	}
	result.Fail(c, code)
}
