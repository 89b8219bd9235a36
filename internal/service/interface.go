package service

import (
	"context"

	"github.com/Nevern1y/Whity-sub000/internal/dto"
	"github.com/Nevern1y/Whity-sub000/internal/realtime/event"
	"github.com/Nevern1y/Whity-sub000/model"
)

// ==================== 协作方接口 ====================

// Emitter 事件扇出接口，由实时中枢实现。
// 业务层只声明"向谁发什么"，不关心连接与跨进程投递细节，
// HTTP 与 WebSocket 两条入口走同一套扇出逻辑。
type Emitter interface {
	// EmitToUser 投递到用户个人房间（该用户的全部活跃连接）
	EmitToUser(ctx context.Context, userUuid string, ev *event.Envelope)
	// EmitToRoom 投递到指定房间的全部成员连接
	EmitToRoom(ctx context.Context, roomKey string, ev *event.Envelope)
}

// NopEmitter 空扇出实现，离线任务或测试场景使用
type NopEmitter struct{}

func (NopEmitter) EmitToUser(ctx context.Context, userUuid string, ev *event.Envelope) {}
func (NopEmitter) EmitToRoom(ctx context.Context, roomKey string, ev *event.Envelope)  {}

// UserResolver 用户存在性校验。
// 用户主数据在平台主站，本服务只需要存在性判断；
// 生产环境注入主站适配器，默认实现全部放行。
type UserResolver interface {
	Exists(ctx context.Context, userUuid string) (bool, error)
}

// AllowAllResolver 放行所有用户
type AllowAllResolver struct{}

func (AllowAllResolver) Exists(ctx context.Context, userUuid string) (bool, error) {
	return true, nil
}

// ==================== 业务接口 ====================

// IFriendshipService 好友关系状态机
type IFriendshipService interface {
	// Request 发起好友申请：NONE -> PENDING
	Request(ctx context.Context, senderUuid, targetUuid string) (*dto.Friendship, error)
	// Respond 处理好友申请：PENDING -> ACCEPTED / REJECTED，仅接收方可操作
	Respond(ctx context.Context, responderUuid string, friendshipId int64, accept bool) (*dto.Friendship, error)
	// Remove 解除好友关系：ACCEPTED -> NONE，关系双方任一可操作
	Remove(ctx context.Context, actorUuid string, friendshipId int64) error
	// ListFriends 查询当前好友列表
	ListFriends(ctx context.Context, userUuid string) ([]*dto.Friend, error)
	// FriendUuids 返回好友 uuid 集合，供在线状态广播使用
	FriendUuids(ctx context.Context, userUuid string) ([]string, error)
	// IsAccepted 判断两人是否为已确认好友
	IsAccepted(ctx context.Context, a, b string) (bool, error)
}

// IMessageService 私信收发与历史分页
type IMessageService interface {
	// Send 发送私信，仅限已确认好友
	Send(ctx context.Context, senderUuid, receiverUuid, content string) (*dto.Message, error)
	// FetchPage 拉取与 peer 的历史消息，按时间倒序，cursor 为空表示从最新开始
	FetchPage(ctx context.Context, requesterUuid, peerUuid, cursor string, pageSize int) (*dto.MessagePage, error)
}

// INotificationService 站内通知
type INotificationService interface {
	// Notify 创建通知并实时推送给目标用户
	Notify(ctx context.Context, userUuid, typ, title, content, link string) (*dto.Notification, error)
	// List 分页查询通知
	List(ctx context.Context, userUuid string, onlyUnread bool, page, pageSize int) (*dto.NotificationPage, error)
	// MarkRead 标记单条已读（幂等）
	MarkRead(ctx context.Context, userUuid string, notificationId int64) error
	// MarkAllRead 全部标记已读
	MarkAllRead(ctx context.Context, userUuid string) error
	// Delete 删除单条通知
	Delete(ctx context.Context, userUuid string, notificationId int64) error
	// Clear 清空全部通知
	Clear(ctx context.Context, userUuid string) error
	// UnreadCount 未读数
	UnreadCount(ctx context.Context, userUuid string) (int64, error)
}

// 编译期接口断言
var (
	_ IFriendshipService   = (*FriendshipService)(nil)
	_ IMessageService      = (*MessageService)(nil)
	_ INotificationService = (*NotificationService)(nil)
	_ UserResolver         = (*AllowAllResolver)(nil)
	_ Emitter              = (*NopEmitter)(nil)
)

// pairRoomKey 两人私聊房间键，与好友关系 pair_key 同构
func pairRoomKey(a, b string) string {
	return model.PairKey(a, b)
}
