package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// 好友关系状态。
const (
	FriendshipPending  int8 = 0 // 待处理
	FriendshipAccepted int8 = 1 // 已同意
	FriendshipRejected int8 = 2 // 已拒绝
)

// Friendship 维护一对用户之间唯一的好友关系记录。
// 约束：pair_key 唯一索引保证同一无序对至多一条记录；删除好友走软删除，
// 再次申请时通过 Upsert 复活同一行（与 user_relation 的恢复策略一致）。
type Friendship struct {
	Id           int64          `gorm:"column:id;primaryKey;comment:雪花id"`
	SenderUuid   string         `gorm:"column:sender_uuid;type:char(20);not null;index;comment:申请方uuid"`
	ReceiverUuid string         `gorm:"column:receiver_uuid;type:char(20);not null;index;comment:接收方uuid"`
	PairKey      string         `gorm:"column:pair_key;type:char(41);not null;uniqueIndex:uidx_pair;comment:无序对键 sortedJoin(a,b)"`
	Status       int8           `gorm:"column:status;not null;default:0;comment:状态 0.待处理 1.已同意 2.已拒绝"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt    gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (Friendship) TableName() string { return "friendship" }

// PairKey 计算无序用户对的规范键。
// 两个方向得到同一个值，房间名与唯一索引共用这一个事实来源。
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

// PairKeyOf 拆出无序对键中的两个用户。
func PairKeyOf(pairKey string) (string, string, bool) {
	parts := strings.SplitN(pairKey, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
