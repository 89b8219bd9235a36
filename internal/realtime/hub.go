package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Nevern1y/Whity-sub000/internal/observability/metrics"
	"github.com/Nevern1y/Whity-sub000/internal/realtime/bus"
	"github.com/Nevern1y/Whity-sub000/internal/realtime/event"
	"github.com/Nevern1y/Whity-sub000/internal/realtime/manager"
	"github.com/Nevern1y/Whity-sub000/internal/realtime/presence"
	"github.com/Nevern1y/Whity-sub000/pkg/logger"
)

// FriendLister 提供好友 uuid 集合，用于在线状态定向广播。
// 由好友服务实现；Hub 与服务层互相依赖，通过 SetFriendLister 注入打破环。
type FriendLister interface {
	FriendUuids(ctx context.Context, userUuid string) ([]string, error)
}

// Hub 实时中枢：组合连接注册表、房间、跨进程总线与在线状态镜像。
// 所有出站事件都经 Hub 扇出：先投递本进程连接，再发布到总线，
// 由持有相关连接的其他进程在本地二次投递。
type Hub struct {
	registry     *manager.Registry
	rooms        *manager.RoomManager
	eventBus     *bus.Bus
	mirror       *presence.Mirror
	friendLister FriendLister
}

// NewHub 创建实时中枢。eventBus、mirror 可为 nil（单进程/无 Redis 模式）。
func NewHub(registry *manager.Registry, rooms *manager.RoomManager, eventBus *bus.Bus, mirror *presence.Mirror) *Hub {
	return &Hub{
		registry: registry,
		rooms:    rooms,
		eventBus: eventBus,
		mirror:   mirror,
	}
}

// SetFriendLister 注入好友查询实现，必须在接入第一条连接前调用。
func (h *Hub) SetFriendLister(lister FriendLister) {
	h.friendLister = lister
}

// Registry 暴露连接注册表，供 handler 与在线状态查询使用。
func (h *Hub) Registry() *manager.Registry { return h.registry }

// Rooms 暴露房间管理器，供路由处理 join/leave。
func (h *Hub) Rooms() *manager.RoomManager { return h.rooms }

// Mirror 暴露在线状态镜像，供 HTTP 层查询。
func (h *Hub) Mirror() *presence.Mirror { return h.mirror }

// ==================== 事件扇出（实现 service.Emitter） ====================

// EmitToUser 投递到用户个人房间：本地直发 + 总线复制。
func (h *Hub) EmitToUser(ctx context.Context, userUuid string, ev *event.Envelope) {
	raw := encodeEnvelope(ctx, ev)
	if raw == nil {
		return
	}
	h.registry.SendToUser(userUuid, raw)
	metrics.FanoutDeliveriesTotal.WithLabelValues(bus.ScopeUser).Inc()

	h.eventBus.Publish(ctx, bus.ScopeUser, userUuid, ev)
	if h.eventBus != nil {
		metrics.BusMessagesTotal.WithLabelValues("out").Inc()
	}
}

// EmitToRoom 投递到房间全部成员：本地直发 + 总线复制。
func (h *Hub) EmitToRoom(ctx context.Context, roomKey string, ev *event.Envelope) {
	raw := encodeEnvelope(ctx, ev)
	if raw == nil {
		return
	}
	h.rooms.Broadcast(roomKey, raw)
	metrics.FanoutDeliveriesTotal.WithLabelValues(bus.ScopeRoom).Inc()

	h.eventBus.Publish(ctx, bus.ScopeRoom, roomKey, ev)
	if h.eventBus != nil {
		metrics.BusMessagesTotal.WithLabelValues("out").Inc()
	}
}

// HandleRemote 处理总线上其他进程发布的事件：只做本地投递，不再回写总线。
func (h *Hub) HandleRemote(ctx context.Context, scope, target string, ev *event.Envelope) {
	raw := encodeEnvelope(ctx, ev)
	if raw == nil {
		return
	}
	metrics.BusMessagesTotal.WithLabelValues("in").Inc()

	switch scope {
	case bus.ScopeUser:
		h.registry.SendToUser(target, raw)
	case bus.ScopeRoom:
		h.rooms.Broadcast(target, raw)
	default:
		logger.Warn(ctx, "未知的扇出范围", logger.String("scope", scope))
	}
}

// StartBus 启动总线消费循环（总线关闭时立即返回）。
func (h *Hub) StartBus(ctx context.Context) error {
	return h.eventBus.Start(ctx, h.HandleRemote)
}

// ==================== 连接生命周期 ====================

// OnConnect 接入一条新连接。
// 流程：
// 1. 注册连接，同设备旧连接被关闭；
// 2. 自动加入个人房间（room_key = user_uuid）；
// 3. 写在线状态镜像；
// 4. 首条连接触发上线广播，推送给全部在线好友。
func (h *Hub) OnConnect(ctx context.Context, client *manager.Client) {
	replaced, becameOnline := h.registry.Register(client)
	if replaced != nil {
		replaced.Close()
	}

	h.rooms.Join(client.UserUUID(), client)
	h.mirror.MarkOnline(ctx, client.UserUUID(), client.DeviceID())

	metrics.ConnectionsActive.Set(float64(h.registry.Count()))
	metrics.OnlineUsers.Set(float64(h.registry.OnlineUserCount()))

	if becameOnline {
		h.broadcastPresence(ctx, client.UserUUID(), true)
	}

	logger.Info(ctx, "连接接入",
		logger.String("user_uuid", client.UserUUID()),
		logger.String("device_id", client.DeviceID()),
		logger.Bool("became_online", becameOnline),
	)
}

// OnDisconnect 连接断开时的清理。
// 流程：退出全部房间 -> 注销连接 -> 更新镜像 -> 最后一条连接触发下线广播。
func (h *Hub) OnDisconnect(ctx context.Context, client *manager.Client) {
	h.rooms.LeaveAll(client)
	becameOffline := h.registry.Unregister(client)

	metrics.ConnectionsActive.Set(float64(h.registry.Count()))
	metrics.OnlineUsers.Set(float64(h.registry.OnlineUserCount()))

	if becameOffline {
		h.mirror.MarkOffline(ctx, client.UserUUID(), client.DeviceID(), client.LastActiveAt())
		h.broadcastPresence(ctx, client.UserUUID(), false)
	} else {
		h.mirror.MarkOnline(ctx, client.UserUUID(), client.DeviceID())
	}

	logger.Info(ctx, "连接断开",
		logger.String("user_uuid", client.UserUUID()),
		logger.String("device_id", client.DeviceID()),
		logger.Bool("became_offline", becameOffline),
	)
}

// OnHeartbeat 心跳续期在线状态镜像。
func (h *Hub) OnHeartbeat(ctx context.Context, client *manager.Client) {
	h.mirror.Refresh(ctx, client.UserUUID(), client.DeviceID())
}

// broadcastPresence 把在线状态变化定向推送给用户的全部好友。
// 好友列表查询失败只记日志，状态变化本身已在内存与镜像中生效。
func (h *Hub) broadcastPresence(ctx context.Context, userUuid string, online bool) {
	if h.friendLister == nil {
		return
	}

	lastActive := h.registry.LastActiveAt(userUuid)
	if lastActive.IsZero() {
		lastActive = time.Now()
	}
	ev := event.MustMarshal(event.TypePresenceChanged, event.PresenceChangedPayload{
		UserUuid:     userUuid,
		Online:       online,
		LastActiveAt: lastActive.UnixMilli(),
	})

	friends, err := h.friendLister.FriendUuids(ctx, userUuid)
	if err != nil {
		logger.Warn(ctx, "在线状态广播好友查询失败",
			logger.String("user_uuid", userUuid),
			logger.ErrorField("error", err),
		)
		return
	}
	for _, friend := range friends {
		h.EmitToUser(ctx, friend, ev)
	}
}

// Shutdown 优雅关闭：断开全部连接并关闭总线。
func (h *Hub) Shutdown(ctx context.Context) {
	h.registry.Shutdown()
	if err := h.eventBus.Close(); err != nil {
		logger.Error(ctx, "事件总线关闭失败", logger.ErrorField("error", err))
	}
	metrics.ConnectionsActive.Set(0)
	metrics.OnlineUsers.Set(0)
}

func encodeEnvelope(ctx context.Context, ev *event.Envelope) []byte {
	raw, err := json.Marshal(ev)
	if err != nil {
		logger.Error(ctx, "事件信封序列化失败", logger.ErrorField("error", err))
		return nil
	}
	return raw
}
