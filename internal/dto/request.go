package dto

// SendFriendRequestReq 发起好友申请
type SendFriendRequestReq struct {
	TargetUuid string `json:"target_uuid" binding:"required"`
}

// RespondFriendRequestReq 处理好友申请
type RespondFriendRequestReq struct {
	Accept bool `json:"accept"`
}

// SendMessageReq 发送私信
type SendMessageReq struct {
	ReceiverUuid string `json:"receiver_uuid" binding:"required"`
	Content      string `json:"content"`
}
