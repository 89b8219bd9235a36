package presence

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	rediskey "github.com/Nevern1y/Whity-sub000/consts/redisKey"
	"github.com/Nevern1y/Whity-sub000/pkg/logger"
)

// Mirror 把内存在线状态镜像到 Redis，供 HTTP 层与其他服务查询。
// 内存状态是权威，Redis 仅是带 TTL 的影子：
// - 上线/心跳时续期 presence:online:{u}；
// - 下线时删除标记并记录设备最后活跃时间；
// - 所有写操作失败只记日志（fail-open），不影响连接层。
type Mirror struct {
	client *redis.Client
}

// NewMirror 创建镜像实例。client 为 nil 时所有操作退化为空操作。
func NewMirror(client *redis.Client) *Mirror {
	return &Mirror{client: client}
}

// MarkOnline 标记用户在线并记录设备活跃时间。
func (m *Mirror) MarkOnline(ctx context.Context, userUUID, deviceID string) {
	if m == nil || m.client == nil {
		return
	}

	now := time.Now().Unix()
	pipe := m.client.Pipeline()
	pipe.Set(ctx, rediskey.PresenceOnlineKey(userUUID), now, rediskey.PresenceOnlineTTL)
	pipe.HSet(ctx, rediskey.PresenceActiveKey(userUUID), deviceID, now)
	pipe.Expire(ctx, rediskey.PresenceActiveKey(userUUID), rediskey.PresenceActiveTTL)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		logger.Warn(ctx, "在线状态镜像写入失败",
			logger.String("user_uuid", userUUID),
			logger.ErrorField("error", err),
		)
	}
}

// Refresh 心跳续期在线标记。
func (m *Mirror) Refresh(ctx context.Context, userUUID, deviceID string) {
	m.MarkOnline(ctx, userUUID, deviceID)
}

// MarkOffline 清除在线标记，保留设备最后活跃时间。
func (m *Mirror) MarkOffline(ctx context.Context, userUUID, deviceID string, lastActive time.Time) {
	if m == nil || m.client == nil {
		return
	}

	pipe := m.client.Pipeline()
	pipe.Del(ctx, rediskey.PresenceOnlineKey(userUUID))
	pipe.HSet(ctx, rediskey.PresenceActiveKey(userUUID), deviceID, lastActive.Unix())
	pipe.Expire(ctx, rediskey.PresenceActiveKey(userUUID), rediskey.PresenceActiveTTL)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		logger.Warn(ctx, "离线状态镜像写入失败",
			logger.String("user_uuid", userUUID),
			logger.ErrorField("error", err),
		)
	}
}

// IsOnline 查询镜像中的在线状态。
// Redis 不可用时返回 false（查询方应把结果当作尽力而为的提示）。
func (m *Mirror) IsOnline(ctx context.Context, userUUID string) bool {
	if m == nil || m.client == nil {
		return false
	}
	n, err := m.client.Exists(ctx, rediskey.PresenceOnlineKey(userUUID)).Result()
	if err != nil {
		logger.Warn(ctx, "在线状态镜像查询失败",
			logger.String("user_uuid", userUUID),
			logger.ErrorField("error", err),
		)
		return false
	}
	return n > 0
}

// UserLastActiveAt 查询用户全部设备中最近的活跃时间，未知返回零值。
func (m *Mirror) UserLastActiveAt(ctx context.Context, userUUID string) time.Time {
	if m == nil || m.client == nil {
		return time.Time{}
	}
	vals, err := m.client.HGetAll(ctx, rediskey.PresenceActiveKey(userUUID)).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Warn(ctx, "用户活跃时间查询失败",
				logger.String("user_uuid", userUUID),
				logger.ErrorField("error", err),
			)
		}
		return time.Time{}
	}
	var latest int64
	for _, val := range vals {
		sec, err := strconv.ParseInt(val, 10, 64)
		if err == nil && sec > latest {
			latest = sec
		}
	}
	if latest == 0 {
		return time.Time{}
	}
	return time.Unix(latest, 0)
}

// LastActiveAt 查询用户某设备的最后活跃时间，未知返回零值。
func (m *Mirror) LastActiveAt(ctx context.Context, userUUID, deviceID string) time.Time {
	if m == nil || m.client == nil {
		return time.Time{}
	}
	val, err := m.client.HGet(ctx, rediskey.PresenceActiveKey(userUUID), deviceID).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Warn(ctx, "设备活跃时间查询失败",
				logger.String("user_uuid", userUUID),
				logger.ErrorField("error", err),
			)
		}
		return time.Time{}
	}
	sec, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
