package repository

import (
	"context"

	"github.com/Nevern1y/Whity-sub000/model"
)

// IFriendshipRepository 好友关系数据访问层接口
type IFriendshipRepository interface {
	// GetByPair 获取无序对当前存活的关系记录，不存在返回 ErrRecordNotFound
	GetByPair(ctx context.Context, a, b string) (*model.Friendship, error)
	// GetByID 按 ID 获取存活记录，不存在返回 ErrRecordNotFound
	GetByID(ctx context.Context, id int64) (*model.Friendship, error)
	// UpsertPending 写入待处理申请；软删除旧行会被复活并重置为新方向
	UpsertPending(ctx context.Context, friendship *model.Friendship) (*model.Friendship, error)
	// UpdateStatusCAS 按前置状态条件更新状态，返回是否真正发生了更新
	UpdateStatusCAS(ctx context.Context, id int64, fromStatus, toStatus int8) (bool, error)
	// SoftDelete 软删除指定状态的记录，状态不符或不存在返回 ErrRecordNotFound
	SoftDelete(ctx context.Context, id int64, requireStatus int8) error
	// ListAcceptedOf 列出用户全部已同意的关系
	ListAcceptedOf(ctx context.Context, userUUID string) ([]*model.Friendship, error)
}

// IMessageRepository 私信数据访问层接口
type IMessageRepository interface {
	// Create 持久化一条消息
	Create(ctx context.Context, message *model.Message) error
	// ListByPairBefore 按 id 倒序取一页消息；beforeID=0 表示从最新开始
	ListByPairBefore(ctx context.Context, pairKey string, beforeID int64, limit int) ([]*model.Message, error)
}

// INotificationRepository 通知数据访问层接口
type INotificationRepository interface {
	// Create 写入通知并维护未读计数
	Create(ctx context.Context, notification *model.Notification) error
	// ListByUser 按创建时间倒序分页
	ListByUser(ctx context.Context, userUUID string, onlyUnread bool, page, pageSize int) ([]*model.Notification, int64, error)
	// MarkRead 标记单条已读，非本人或不存在返回 ErrRecordNotFound
	MarkRead(ctx context.Context, userUUID string, id int64) error
	// MarkAllRead 标记全部已读，返回受影响行数
	MarkAllRead(ctx context.Context, userUUID string) (int64, error)
	// Delete 删除单条，非本人或不存在返回 ErrRecordNotFound
	Delete(ctx context.Context, userUUID string, id int64) error
	// Clear 删除用户全部通知，返回删除行数
	Clear(ctx context.Context, userUUID string) (int64, error)
	// GetUnreadCount 获取未读数量
	GetUnreadCount(ctx context.Context, userUUID string) (int64, error)
}
