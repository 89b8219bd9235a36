package dto

import (
	"strconv"

	"github.com/Nevern1y/Whity-sub000/model"
)

// Notification 通知对外表示。
type Notification struct {
	Id        string `json:"notification_id"`
	UserUuid  string `json:"user_uuid"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Link      string `json:"link,omitempty"`
	IsRead    bool   `json:"is_read"`
	CreatedAt int64  `json:"created_at"` // unix 毫秒
}

// ConvertNotification model -> dto
func ConvertNotification(m *model.Notification) *Notification {
	if m == nil {
		return nil
	}
	return &Notification{
		Id:        strconv.FormatInt(m.Id, 10),
		UserUuid:  m.UserUuid,
		Type:      m.Type,
		Title:     m.Title,
		Content:   m.Content,
		Link:      m.Link,
		IsRead:    m.IsRead,
		CreatedAt: m.CreatedAt.UnixMilli(),
	}
}

// NotificationPage 通知分页结果。
type NotificationPage struct {
	Notifications []*Notification `json:"notifications"`
	Total         int64           `json:"total"`
	UnreadCount   int64           `json:"unread_count"`
}
