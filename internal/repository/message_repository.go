package repository

import (
	"context"

	"github.com/Nevern1y/Whity-sub000/model"

	"gorm.io/gorm"
)

// messageRepositoryImpl 私信数据访问层实现
type messageRepositoryImpl struct {
	db *gorm.DB
}

// NewMessageRepository 创建私信仓储实例
func NewMessageRepository(db *gorm.DB) IMessageRepository {
	return &messageRepositoryImpl{db: db}
}

// Create 持久化一条消息
func (r *messageRepositoryImpl) Create(ctx context.Context, message *model.Message) error {
	message.PairKey = model.PairKey(message.SenderUuid, message.ReceiverUuid)
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return WrapDBError(err)
	}
	return nil
}

// ListByPairBefore 按 id 倒序取一页消息
// 雪花 id 单调递增，id 序即时间序；beforeID 作为游标天然避免
// OFFSET 翻页在新消息插入时的重复/漏读问题。
func (r *messageRepositoryImpl) ListByPairBefore(ctx context.Context, pairKey string, beforeID int64, limit int) ([]*model.Message, error) {
	if limit <= 0 {
		limit = 20
	}

	query := r.db.WithContext(ctx).
		Where("pair_key = ?", pairKey)
	if beforeID > 0 {
		query = query.Where("id < ?", beforeID)
	}

	var messages []*model.Message
	err := query.
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, WrapDBError(err)
	}
	return messages, nil
}
