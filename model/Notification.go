package model

import "time"

// 通知类型。
const (
	NotifyTypeCourse        = "course"         // 课程动态
	NotifyTypeAchievement   = "achievement"    // 成就达成
	NotifyTypeMessage       = "message"        // 新私信
	NotifyTypeFriendRequest = "friend_request" // 好友申请
	NotifyTypeSystem        = "system"         // 系统通知
)

// Notification 站内通知。
// 只有 is_read 一个可变字段，删除为物理删除（清空操作需要真正释放空间）。
type Notification struct {
	Id        int64     `gorm:"column:id;primaryKey;comment:雪花id"`
	UserUuid  string    `gorm:"column:user_uuid;type:char(20);not null;index:idx_user_created,priority:1;comment:接收人uuid"`
	Type      string    `gorm:"column:type;type:varchar(32);not null;comment:通知类型"`
	Title     string    `gorm:"column:title;type:varchar(128);not null;comment:标题"`
	Content   string    `gorm:"column:content;type:varchar(512);comment:正文"`
	Link      string    `gorm:"column:link;type:varchar(256);comment:跳转链接"`
	IsRead    bool      `gorm:"column:is_read;not null;default:false;index;comment:是否已读"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index:idx_user_created,priority:2"`
}

func (Notification) TableName() string { return "notification" }
