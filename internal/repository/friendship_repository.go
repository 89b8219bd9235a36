package repository

import (
	"context"
	"time"

	"github.com/Nevern1y/Whity-sub000/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// friendshipRepositoryImpl 好友关系数据访问层实现
type friendshipRepositoryImpl struct {
	db *gorm.DB
}

// NewFriendshipRepository 创建好友关系仓储实例
func NewFriendshipRepository(db *gorm.DB) IFriendshipRepository {
	return &friendshipRepositoryImpl{db: db}
}

// GetByPair 获取无序对当前存活的关系记录
func (r *friendshipRepositoryImpl) GetByPair(ctx context.Context, a, b string) (*model.Friendship, error) {
	var friendship model.Friendship
	err := r.db.WithContext(ctx).
		Where("pair_key = ? AND deleted_at IS NULL", model.PairKey(a, b)).
		First(&friendship).Error
	if err != nil {
		return nil, WrapDBError(err)
	}
	return &friendship, nil
}

// GetByID 按 ID 获取存活记录
func (r *friendshipRepositoryImpl) GetByID(ctx context.Context, id int64) (*model.Friendship, error) {
	var friendship model.Friendship
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&friendship).Error
	if err != nil {
		return nil, WrapDBError(err)
	}
	return &friendship, nil
}

// UpsertPending 写入待处理申请（Upsert 策略）
// 使用 INSERT ON DUPLICATE KEY UPDATE：
//   - 原子性：不存在"查不到然后插入报错"的时间差
//   - 稳健：pair_key 冲突时复活软删除的旧行，重置为新方向的 PENDING
//
// 注意：复活旧行时主键保持旧值，因此最后按 pair_key 回读一次拿到规范记录。
// 前置状态检查（存活行拒绝重复申请）由 service 层负责。
func (r *friendshipRepositoryImpl) UpsertPending(ctx context.Context, friendship *model.Friendship) (*model.Friendship, error) {
	now := time.Now()
	friendship.PairKey = model.PairKey(friendship.SenderUuid, friendship.ReceiverUuid)
	friendship.Status = model.FriendshipPending
	friendship.CreatedAt = now
	friendship.UpdatedAt = now

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "pair_key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"sender_uuid":   friendship.SenderUuid,
			"receiver_uuid": friendship.ReceiverUuid,
			"status":        model.FriendshipPending,
			"deleted_at":    nil, // 【关键】恢复软删除
			"created_at":    now,
			"updated_at":    now,
		}),
	}).Create(friendship).Error
	if err != nil {
		return nil, WrapDBError(err)
	}

	return r.GetByPair(ctx, friendship.SenderUuid, friendship.ReceiverUuid)
}

// UpdateStatusCAS 按前置状态条件更新状态
// WHERE status=from 作为守门员，RowsAffected=0 表示状态早已变更（幂等语义）。
func (r *friendshipRepositoryImpl) UpdateStatusCAS(ctx context.Context, id int64, fromStatus, toStatus int8) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Friendship{}).
		Where("id = ? AND status = ? AND deleted_at IS NULL", id, fromStatus).
		Updates(map[string]interface{}{
			"status":     toStatus,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, WrapDBError(result.Error)
	}
	return result.RowsAffected > 0, nil
}

// SoftDelete 软删除指定状态的记录
func (r *friendshipRepositoryImpl) SoftDelete(ctx context.Context, id int64, requireStatus int8) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&model.Friendship{}).
		Where("id = ? AND status = ? AND deleted_at IS NULL", id, requireStatus).
		Updates(map[string]interface{}{
			"deleted_at": gorm.DeletedAt{Time: now, Valid: true},
			"updated_at": now,
		})
	if result.Error != nil {
		return WrapDBError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// ListAcceptedOf 列出用户全部已同意的关系
// 双向都要查：用户可能是申请方也可能是接收方。
func (r *friendshipRepositoryImpl) ListAcceptedOf(ctx context.Context, userUUID string) ([]*model.Friendship, error) {
	var friendships []*model.Friendship
	err := r.db.WithContext(ctx).
		Where("(sender_uuid = ? OR receiver_uuid = ?) AND status = ? AND deleted_at IS NULL",
			userUUID, userUUID, model.FriendshipAccepted).
		Order("updated_at DESC, id DESC").
		Find(&friendships).Error
	if err != nil {
		return nil, WrapDBError(err)
	}
	return friendships, nil
}
