package consts

import "net/http"

// 通用错误码
const (
	CodeSuccess = 0 // 成功
)

// 客户端错误 (1xxxx)
const (
	CodeParamError       = 10001 // 参数验证失败
	CodeBodyError        = 10002 // 请求体格式错误
	CodeResourceNotFound = 10003 // 资源不存在
	CodeTooManyRequests  = 10005 // 请求过于频繁
)

// 认证错误 (2xxxx)
const (
	CodeUnauthorized   = 20001 // 未认证
	CodeInvalidToken   = 20002 // Token 无效
	CodePermissionDeny = 20004 // 权限不足
)

// 好友模块错误 (12xxx)
const (
	CodeFriendshipConflict = 12001 // 好友关系已存在或申请待处理
	CodeFriendshipNotFound = 12002 // 好友关系不存在
	CodeNotFriend          = 12003 // 对方还不是好友
	CodeCannotAddSelf      = 12004 // 不能添加自己为好友
	CodeNotReceiver        = 12005 // 只有接收方可以处理该申请
	CodeFriendshipRejected = 12006 // 申请曾被拒绝，不允许重新发起
)

// 消息模块错误 (13xxx)
const (
	CodeMessageEmpty    = 13001 // 消息内容为空
	CodeMessageTooLong  = 13002 // 消息内容过长
	CodeMessageSendFail = 13003 // 消息发送失败
	CodePeerNotFound    = 13004 // 对端用户不存在
	CodeBadCursor       = 13005 // 分页游标非法
)

// 通知模块错误 (15xxx)
const (
	CodeNotificationNotFound = 15001 // 通知不存在
)

// 服务端错误 (3xxxx)
const (
	CodeInternalError      = 30001 // 服务器内部错误
	CodeServiceUnavailable = 30002 // 服务暂不可用
)

// 错误消息映射
var CodeMessage = map[int32]string{
	CodeSuccess: "success",

	// 客户端错误
	CodeParamError:       "参数验证失败",
	CodeBodyError:        "请求体格式错误",
	CodeResourceNotFound: "资源不存在",
	CodeTooManyRequests:  "请求过于频繁",

	// 认证错误
	CodeUnauthorized:   "未认证",
	CodeInvalidToken:   "Token 无效",
	CodePermissionDeny: "权限不足",

	// 好友模块
	CodeFriendshipConflict: "好友关系已存在或申请待处理",
	CodeFriendshipNotFound: "好友关系不存在",
	CodeNotFriend:          "对方还不是好友",
	CodeCannotAddSelf:      "不能添加自己为好友",
	CodeNotReceiver:        "只有接收方可以处理该申请",
	CodeFriendshipRejected: "申请曾被拒绝，不允许重新发起",

	// 消息模块
	CodeMessageEmpty:    "消息内容为空",
	CodeMessageTooLong:  "消息内容过长",
	CodeMessageSendFail: "消息发送失败",
	CodePeerNotFound:    "对端用户不存在",
	CodeBadCursor:       "分页游标非法",

	// 通知模块
	CodeNotificationNotFound: "通知不存在",

	// 服务端错误
	CodeInternalError:      "服务器内部错误",
	CodeServiceUnavailable: "服务暂不可用",
}

// GetMessage 根据错误码获取错误消息
func GetMessage(code int32) string {
	if msg, ok := CodeMessage[code]; ok {
		return msg
	}
	return "未知错误"
}

// HTTPStatus 将业务码映射为 HTTP 状态码。
// 对外接口契约：401 未认证 / 403 无权限 / 404 不存在 / 409 冲突 / 400 参数错误。
func HTTPStatus(code int32) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeUnauthorized, CodeInvalidToken:
		return http.StatusUnauthorized
	case CodePermissionDeny, CodeNotFriend, CodeNotReceiver:
		return http.StatusForbidden
	case CodeResourceNotFound, CodeFriendshipNotFound, CodePeerNotFound, CodeNotificationNotFound:
		return http.StatusNotFound
	case CodeFriendshipConflict, CodeFriendshipRejected:
		return http.StatusConflict
	case CodeParamError, CodeBodyError, CodeMessageEmpty, CodeMessageTooLong, CodeBadCursor, CodeCannotAddSelf:
		return http.StatusBadRequest
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
