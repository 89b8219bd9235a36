package dto

import (
	"strconv"

	"github.com/Nevern1y/Whity-sub000/model"
)

// Message 私信对外表示。
type Message struct {
	Id           string `json:"message_id"`
	SenderUuid   string `json:"sender_uuid"`
	ReceiverUuid string `json:"receiver_uuid"`
	Content      string `json:"content"`
	CreatedAt    int64  `json:"created_at"` // unix 毫秒
}

// ConvertMessage model -> dto
func ConvertMessage(m *model.Message) *Message {
	if m == nil {
		return nil
	}
	return &Message{
		Id:           strconv.FormatInt(m.Id, 10),
		SenderUuid:   m.SenderUuid,
		ReceiverUuid: m.ReceiverUuid,
		Content:      m.Content,
		CreatedAt:    m.CreatedAt.UnixMilli(),
	}
}

// MessagePage 一页历史消息。
// Messages 按时间倒序（最新在前）；NextCursor 为空表示已取完。
type MessagePage struct {
	Messages   []*Message `json:"messages"`
	NextCursor string     `json:"next_cursor"`
}
