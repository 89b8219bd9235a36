package rediskey

import (
	"fmt"
	"time"
)

// ==================== TTL 常量 ====================

const (
	// AccessTokenTTL 访问令牌哈希缓存 TTL
	AccessTokenTTL = 2 * time.Hour

	// PresenceActiveTTL 设备活跃时间缓存 TTL
	PresenceActiveTTL = 7 * 24 * time.Hour
	// PresenceOnlineTTL 在线状态镜像 TTL（心跳间隔的 3 倍左右）
	PresenceOnlineTTL = 3 * time.Minute

	// NotifyUnreadTTL 通知未读计数 TTL
	NotifyUnreadTTL = 7 * 24 * time.Hour
)

// ==================== Key 构造函数 ====================

// AccessTokenKey 生成 AccessToken Key: auth:at:{user_uuid}:{device_id}
func AccessTokenKey(userUUID, deviceID string) string {
	return fmt.Sprintf("auth:at:%s:%s", userUUID, deviceID)
}

// PresenceActiveKey 生成设备活跃时间 Key: presence:active:{user_uuid}
// Hash：field=device_id，value=unix 秒。
func PresenceActiveKey(userUUID string) string {
	return fmt.Sprintf("presence:active:%s", userUUID)
}

// PresenceOnlineKey 生成在线状态镜像 Key: presence:online:{user_uuid}
// 值为该用户当前连接数所在进程续期的标记，供 HTTP 层查询在线状态。
func PresenceOnlineKey(userUUID string) string {
	return fmt.Sprintf("presence:online:%s", userUUID)
}

// NotifyUnreadKey 生成通知未读计数 Key: notify:unread:{user_uuid}
func NotifyUnreadKey(userUUID string) string {
	return fmt.Sprintf("notify:unread:%s", userUUID)
}

// ApiRateLimitKey 生成接口限流 Key: rate:limit:user:{user_uuid}
func ApiRateLimitKey(userUUID string) string {
	return fmt.Sprintf("rate:limit:user:%s", userUUID)
}
