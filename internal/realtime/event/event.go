package event

import (
	"encoding/json"

	"github.com/Nevern1y/Whity-sub000/internal/dto"
)

// ==================== 事件类型 ====================

// 入站事件（客户端 -> 服务端）
const (
	TypeJoinRoom             = "join_room"
	TypeLeaveRoom            = "leave_room"
	TypeSendFriendRequest    = "send_friend_request"
	TypeRespondFriendRequest = "respond_friend_request"
	TypeRemoveFriend         = "remove_friend"
	TypeSendMessage          = "send_message"
	TypeFetchMessages        = "fetch_messages"
	TypeHeartbeat            = "heartbeat"
)

// 出站事件（服务端 -> 客户端）
const (
	TypePresenceChanged        = "presence_changed"
	TypeFriendRequestReceived  = "friend_request_received"
	TypeFriendRequestResponded = "friend_request_responded"
	TypeFriendshipRemoved      = "friendship_removed"
	TypeNewMessage             = "new_message"
	TypeMessagePage            = "message_page"
	TypeNotificationCreated    = "notification_created"
	TypeAck                    = "ack"
	TypeError                  = "error"
	TypeHeartbeatAck           = "heartbeat_ack"
)

// ==================== 信封 ====================

// Envelope 统一事件信封，所有帧都带显式类型标签。
// Seq 由客户端携带，服务端在 ack/error 中原样回传用于关联请求。
type Envelope struct {
	Type string          `json:"type"`
	Seq  int64           `json:"seq,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Marshal 构造带负载的信封
func Marshal(typ string, seq int64, payload any) (*Envelope, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return &Envelope{Type: typ, Seq: seq, Data: raw}, nil
}

// MustMarshal 服务端内部构造出站事件，负载均为本包定义的结构体，
// 序列化失败属编程错误，直接 panic。
func MustMarshal(typ string, payload any) *Envelope {
	e, err := Marshal(typ, 0, payload)
	if err != nil {
		panic(err)
	}
	return e
}

// ==================== 入站负载 ====================

type JoinRoomPayload struct {
	RoomKey string `json:"room_key"`
}

type LeaveRoomPayload struct {
	RoomKey string `json:"room_key"`
}

type SendFriendRequestPayload struct {
	TargetUuid string `json:"target_uuid"`
}

type RespondFriendRequestPayload struct {
	FriendshipId string `json:"friendship_id"`
	Accept       bool   `json:"accept"`
}

type RemoveFriendPayload struct {
	FriendshipId string `json:"friendship_id"`
}

type SendMessagePayload struct {
	ReceiverUuid string `json:"receiver_uuid"`
	Content      string `json:"content"`
}

type FetchMessagesPayload struct {
	PeerUuid string `json:"peer_uuid"`
	Cursor   string `json:"cursor,omitempty"`
	PageSize int    `json:"page_size,omitempty"`
}

// ==================== 出站负载 ====================

type PresenceChangedPayload struct {
	UserUuid     string `json:"user_uuid"`
	Online       bool   `json:"online"`
	LastActiveAt int64  `json:"last_active_at"` // unix 毫秒
}

type FriendRequestReceivedPayload struct {
	Friendship *dto.Friendship `json:"friendship"`
}

type FriendRequestRespondedPayload struct {
	Friendship *dto.Friendship `json:"friendship"`
}

type FriendshipRemovedPayload struct {
	FriendshipId string `json:"friendship_id"`
	PeerUuid     string `json:"peer_uuid"`
}

type NewMessagePayload struct {
	Message *dto.Message `json:"message"`
}

type MessagePagePayload struct {
	PeerUuid string           `json:"peer_uuid"`
	Page     *dto.MessagePage `json:"page"`
}

type NotificationCreatedPayload struct {
	Notification *dto.Notification `json:"notification"`
}

type AckPayload struct {
	Type string `json:"type"` // 被确认的入站事件类型
}

type ErrorPayload struct {
	Code    int32  `json:"code"`
	Message string `json:"message"`
}
