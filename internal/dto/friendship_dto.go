package dto

import (
	"strconv"

	"github.com/Nevern1y/Whity-sub000/model"
)

// Friendship 好友关系对外表示。
// 状态以字符串输出，客户端不感知内部数值。
type Friendship struct {
	Id           string `json:"friendship_id"`
	SenderUuid   string `json:"sender_uuid"`
	ReceiverUuid string `json:"receiver_uuid"`
	Status       string `json:"status"`
	CreatedAt    int64  `json:"created_at"` // unix 毫秒
	UpdatedAt    int64  `json:"updated_at"` // unix 毫秒
}

// FriendshipStatusText 状态数值转文案
func FriendshipStatusText(status int8) string {
	switch status {
	case model.FriendshipPending:
		return "pending"
	case model.FriendshipAccepted:
		return "accepted"
	case model.FriendshipRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// ConvertFriendship model -> dto
func ConvertFriendship(m *model.Friendship) *Friendship {
	if m == nil {
		return nil
	}
	return &Friendship{
		Id:           strconv.FormatInt(m.Id, 10),
		SenderUuid:   m.SenderUuid,
		ReceiverUuid: m.ReceiverUuid,
		Status:       FriendshipStatusText(m.Status),
		CreatedAt:    m.CreatedAt.UnixMilli(),
		UpdatedAt:    m.UpdatedAt.UnixMilli(),
	}
}

// Friend 好友列表条目：对端视角。
type Friend struct {
	PeerUuid     string `json:"peer_uuid"`
	FriendshipId string `json:"friendship_id"`
	Since        int64  `json:"since"` // 成为好友时间，unix 毫秒
}

// ConvertFriend 以 userUUID 的视角转换好友条目
func ConvertFriend(m *model.Friendship, userUUID string) *Friend {
	if m == nil {
		return nil
	}
	peer := m.SenderUuid
	if peer == userUUID {
		peer = m.ReceiverUuid
	}
	return &Friend{
		PeerUuid:     peer,
		FriendshipId: strconv.FormatInt(m.Id, 10),
		Since:        m.UpdatedAt.UnixMilli(),
	}
}
