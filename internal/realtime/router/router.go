package router

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/Nevern1y/Whity-sub000/consts"
	"github.com/Nevern1y/Whity-sub000/internal/observability/metrics"
	"github.com/Nevern1y/Whity-sub000/internal/realtime"
	"github.com/Nevern1y/Whity-sub000/internal/realtime/event"
	"github.com/Nevern1y/Whity-sub000/internal/realtime/manager"
	"github.com/Nevern1y/Whity-sub000/internal/service"
	"github.com/Nevern1y/Whity-sub000/model"
	"github.com/Nevern1y/Whity-sub000/pkg/ctxmeta"
	"github.com/Nevern1y/Whity-sub000/pkg/errs"
	"github.com/Nevern1y/Whity-sub000/pkg/logger"
	"github.com/Nevern1y/Whity-sub000/pkg/util"
)

// Router 入站事件路由。
// 职责：
// - 解析信封并按类型分发到业务服务；
// - 身份以连接握手时的认证结果为准，负载永远不携带发送方身份；
// - 处理结果只回执给来源连接，业务产生的扇出由服务层经 Hub 完成。
type Router struct {
	hub        *realtime.Hub
	friendSvc  service.IFriendshipService
	messageSvc service.IMessageService
}

// NewRouter 创建事件路由实例。
func NewRouter(hub *realtime.Hub, friendSvc service.IFriendshipService, messageSvc service.IMessageService) *Router {
	return &Router{
		hub:        hub,
		friendSvc:  friendSvc,
		messageSvc: messageSvc,
	}
}

// Handle 处理一条来自客户端的原始帧。
// 每帧独立生成 trace_id，贯穿后续的业务调用与异步扇出。
func (r *Router) Handle(client *manager.Client, raw []byte) {
	ctx := context.Background()
	ctx = ctxmeta.WithTraceID(ctx, util.NewUUID())
	ctx = ctxmeta.WithUserUUID(ctx, client.UserUUID())
	ctx = ctxmeta.WithDeviceID(ctx, client.DeviceID())

	// 上行限速：超限帧丢弃并回执错误
	if !client.Allow() {
		metrics.EventsInboundTotal.WithLabelValues("unknown", "rate_limited").Inc()
		r.replyError(client, 0, errs.New(consts.CodeTooManyRequests))
		return
	}

	var envelope event.Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		metrics.EventsInboundTotal.WithLabelValues("unknown", "error").Inc()
		r.replyError(client, 0, errs.Wrap(consts.CodeBodyError, err))
		return
	}

	err := r.dispatch(ctx, client, &envelope)
	result := "ok"
	if err != nil {
		result = "error"
		r.replyError(client, envelope.Seq, err)
	}
	metrics.EventsInboundTotal.WithLabelValues(envelope.Type, result).Inc()
}

// dispatch 按事件类型分发。返回的错误只回执给来源连接。
func (r *Router) dispatch(ctx context.Context, client *manager.Client, envelope *event.Envelope) error {
	switch envelope.Type {
	case event.TypeHeartbeat:
		r.hub.OnHeartbeat(ctx, client)
		r.reply(client, event.TypeHeartbeatAck, envelope.Seq, nil)
		return nil

	case event.TypeJoinRoom:
		var payload event.JoinRoomPayload
		if err := decode(envelope.Data, &payload); err != nil {
			return err
		}
		if err := r.authorizeRoom(client, payload.RoomKey); err != nil {
			return err
		}
		r.hub.Rooms().Join(payload.RoomKey, client)
		r.replyAck(client, envelope, nil)
		return nil

	case event.TypeLeaveRoom:
		var payload event.LeaveRoomPayload
		if err := decode(envelope.Data, &payload); err != nil {
			return err
		}
		r.hub.Rooms().Leave(payload.RoomKey, client)
		r.replyAck(client, envelope, nil)
		return nil

	case event.TypeSendFriendRequest:
		var payload event.SendFriendRequestPayload
		if err := decode(envelope.Data, &payload); err != nil {
			return err
		}
		friendship, err := r.friendSvc.Request(ctx, client.UserUUID(), payload.TargetUuid)
		if err != nil {
			return err
		}
		r.replyAck(client, envelope, friendship)
		return nil

	case event.TypeRespondFriendRequest:
		var payload event.RespondFriendRequestPayload
		if err := decode(envelope.Data, &payload); err != nil {
			return err
		}
		friendshipId, err := parseID(payload.FriendshipId)
		if err != nil {
			return err
		}
		friendship, err := r.friendSvc.Respond(ctx, client.UserUUID(), friendshipId, payload.Accept)
		if err != nil {
			return err
		}
		r.replyAck(client, envelope, friendship)
		return nil

	case event.TypeRemoveFriend:
		var payload event.RemoveFriendPayload
		if err := decode(envelope.Data, &payload); err != nil {
			return err
		}
		friendshipId, err := parseID(payload.FriendshipId)
		if err != nil {
			return err
		}
		if err := r.friendSvc.Remove(ctx, client.UserUUID(), friendshipId); err != nil {
			return err
		}
		r.replyAck(client, envelope, nil)
		return nil

	case event.TypeSendMessage:
		var payload event.SendMessagePayload
		if err := decode(envelope.Data, &payload); err != nil {
			return err
		}
		message, err := r.messageSvc.Send(ctx, client.UserUUID(), payload.ReceiverUuid, payload.Content)
		if err != nil {
			return err
		}
		r.replyAck(client, envelope, message)
		return nil

	case event.TypeFetchMessages:
		var payload event.FetchMessagesPayload
		if err := decode(envelope.Data, &payload); err != nil {
			return err
		}
		page, err := r.messageSvc.FetchPage(ctx, client.UserUUID(), payload.PeerUuid, payload.Cursor, payload.PageSize)
		if err != nil {
			return err
		}
		r.reply(client, event.TypeMessagePage, envelope.Seq, event.MessagePagePayload{
			PeerUuid: payload.PeerUuid,
			Page:     page,
		})
		return nil

	default:
		logger.Warn(ctx, "未知的入站事件类型", logger.String("type", envelope.Type))
		return errs.New(consts.CodeParamError)
	}
}

// authorizeRoom 校验连接是否有权加入房间。
// 个人房间只允许本人，私聊房间要求本人是配对一方。
func (r *Router) authorizeRoom(client *manager.Client, roomKey string) error {
	if roomKey == "" {
		return errs.New(consts.CodeParamError)
	}
	if roomKey == client.UserUUID() {
		return nil
	}
	if a, b, ok := model.PairKeyOf(roomKey); ok {
		if a == client.UserUUID() || b == client.UserUUID() {
			return nil
		}
	}
	return errs.New(consts.CodePermissionDeny)
}

// reply 向来源连接回写一帧，写队列满时静默丢弃（连接层自会处理慢连接）。
func (r *Router) reply(client *manager.Client, typ string, seq int64, payload any) {
	envelope, err := event.Marshal(typ, seq, payload)
	if err != nil {
		return
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		return
	}
	client.Enqueue(raw)
}

// replyAck 回执成功结果，data 为可选的操作产物。
func (r *Router) replyAck(client *manager.Client, inbound *event.Envelope, data any) {
	type ackBody struct {
		Type string `json:"type"`
		Data any    `json:"data,omitempty"`
	}
	r.reply(client, event.TypeAck, inbound.Seq, ackBody{Type: inbound.Type, Data: data})
}

// replyError 把业务错误转换为错误帧回执给来源连接。
func (r *Router) replyError(client *manager.Client, seq int64, err error) {
	code := errs.CodeOf(err)
	r.reply(client, event.TypeError, seq, event.ErrorPayload{
		Code:    code,
		Message: consts.GetMessage(code),
	})
}

func decode(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return errs.New(consts.CodeParamError)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errs.Wrap(consts.CodeBodyError, err)
	}
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.New(consts.CodeParamError)
	}
	return id, nil
}
