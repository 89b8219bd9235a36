package repository

import (
	"context"
	"strconv"

	"github.com/Nevern1y/Whity-sub000/consts/redisKey"
	"github.com/Nevern1y/Whity-sub000/model"
	"github.com/Nevern1y/Whity-sub000/pkg/async"
	"github.com/Nevern1y/Whity-sub000/pkg/logger"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// notificationRepositoryImpl 通知数据访问层实现
type notificationRepositoryImpl struct {
	db          *gorm.DB
	redisClient *redis.Client
}

// NewNotificationRepository 创建通知仓储实例
func NewNotificationRepository(db *gorm.DB, redisClient *redis.Client) INotificationRepository {
	return &notificationRepositoryImpl{db: db, redisClient: redisClient}
}

// Create 写入通知并维护未读计数
// 计数写失败只记日志，读接口会回源 MySQL 自愈。
func (r *notificationRepositoryImpl) Create(ctx context.Context, notification *model.Notification) error {
	if err := r.db.WithContext(ctx).Create(notification).Error; err != nil {
		return WrapDBError(err)
	}

	if r.redisClient != nil {
		notifyKey := rediskey.NotifyUnreadKey(notification.UserUuid)
		pipe := r.redisClient.Pipeline()
		pipe.Incr(ctx, notifyKey)
		pipe.Expire(ctx, notifyKey, rediskey.NotifyUnreadTTL)
		if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
			LogRedisError(ctx, err)
		}
	}

	return nil
}

// ListByUser 按创建时间倒序分页
func (r *notificationRepositoryImpl) ListByUser(ctx context.Context, userUUID string, onlyUnread bool, page, pageSize int) ([]*model.Notification, int64, error) {
	// 兜底分页参数
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("user_uuid = ?", userUUID)
	if onlyUnread {
		query = query.Where("is_read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, WrapDBError(err)
	}

	var notifications []*model.Notification
	if err := query.
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&notifications).
		Error; err != nil {
		return nil, 0, WrapDBError(err)
	}

	return notifications, total, nil
}

// MarkRead 标记单条已读
// WHERE user_uuid 同时充当归属校验，越权与不存在统一归为 ErrRecordNotFound。
func (r *notificationRepositoryImpl) MarkRead(ctx context.Context, userUUID string, id int64) error {
	result := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("id = ? AND user_uuid = ? AND is_read = ?", id, userUUID, false).
		Update("is_read", true)
	if result.Error != nil {
		return WrapDBError(result.Error)
	}
	if result.RowsAffected == 0 {
		// 可能已读（幂等成功）也可能不存在，按存在性再判一次
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&model.Notification{}).
			Where("id = ? AND user_uuid = ?", id, userUUID).
			Count(&count).Error; err != nil {
			return WrapDBError(err)
		}
		if count == 0 {
			return ErrRecordNotFound
		}
		return nil
	}

	r.decrUnreadAsync(ctx, userUUID, 1)
	return nil
}

// MarkAllRead 标记全部已读
func (r *notificationRepositoryImpl) MarkAllRead(ctx context.Context, userUUID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("user_uuid = ? AND is_read = ?", userUUID, false).
		Update("is_read", true)
	if result.Error != nil {
		return 0, WrapDBError(result.Error)
	}

	r.clearUnreadAsync(ctx, userUUID)
	return result.RowsAffected, nil
}

// Delete 删除单条
func (r *notificationRepositoryImpl) Delete(ctx context.Context, userUUID string, id int64) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_uuid = ?", id, userUUID).
		Delete(&model.Notification{})
	if result.Error != nil {
		return WrapDBError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}

	// 删除未读通知会影响计数，直接清掉缓存让读接口回源重建
	r.clearUnreadAsync(ctx, userUUID)
	return nil
}

// Clear 删除用户全部通知
func (r *notificationRepositoryImpl) Clear(ctx context.Context, userUUID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_uuid = ?", userUUID).
		Delete(&model.Notification{})
	if result.Error != nil {
		return 0, WrapDBError(result.Error)
	}

	r.clearUnreadAsync(ctx, userUUID)
	return result.RowsAffected, nil
}

// GetUnreadCount 获取未读数量
// 采用 Cache-Aside：优先查 Redis 计数器，未命中回源 MySQL 并写回。
func (r *notificationRepositoryImpl) GetUnreadCount(ctx context.Context, userUUID string) (int64, error) {
	if userUUID == "" {
		return 0, nil
	}

	if r.redisClient != nil {
		notifyKey := rediskey.NotifyUnreadKey(userUUID)
		val, err := r.redisClient.Get(ctx, notifyKey).Result()
		if err == nil {
			count, convErr := strconv.ParseInt(val, 10, 64)
			if convErr == nil {
				if count < 0 {
					count = 0
				}
				return count, nil
			}
			logger.Warn(ctx, "未读数量解析失败",
				logger.String("value", val),
				logger.ErrorField("error", convErr),
			)
		} else if err != redis.Nil {
			LogRedisError(ctx, err)
		}
	}

	// 回源 MySQL
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("user_uuid = ? AND is_read = ?", userUUID, false).
		Count(&count).Error
	if err != nil {
		return 0, WrapDBError(err)
	}

	// 异步写回缓存
	if r.redisClient != nil {
		total := count
		async.RunSafe(ctx, func(runCtx context.Context) {
			notifyKey := rediskey.NotifyUnreadKey(userUUID)
			if err := r.redisClient.Set(runCtx, notifyKey, total, getRandomExpireTime(rediskey.NotifyUnreadTTL)).Err(); err != nil {
				LogRedisError(runCtx, err)
			}
		}, 0)
	}

	return count, nil
}

// decrUnreadAsync 异步递减未读计数
func (r *notificationRepositoryImpl) decrUnreadAsync(ctx context.Context, userUUID string, delta int64) {
	if r.redisClient == nil {
		return
	}
	async.RunSafe(ctx, func(runCtx context.Context) {
		notifyKey := rediskey.NotifyUnreadKey(userUUID)
		if err := r.redisClient.DecrBy(runCtx, notifyKey, delta).Err(); err != nil && err != redis.Nil {
			LogRedisError(runCtx, err)
		}
	}, 0)
}

// clearUnreadAsync 异步删除未读计数缓存
func (r *notificationRepositoryImpl) clearUnreadAsync(ctx context.Context, userUUID string) {
	if r.redisClient == nil {
		return
	}
	async.RunSafe(ctx, func(runCtx context.Context) {
		notifyKey := rediskey.NotifyUnreadKey(userUUID)
		if err := r.redisClient.Del(runCtx, notifyKey).Err(); err != nil && err != redis.Nil {
			LogRedisError(runCtx, err)
		}
	}, 0)
}
