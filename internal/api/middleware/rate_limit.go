package middleware

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/Nevern1y/Whity-sub000/consts"
	rediskey "github.com/Nevern1y/Whity-sub000/consts/redisKey"
	"github.com/Nevern1y/Whity-sub000/pkg/logger"
	"github.com/Nevern1y/Whity-sub000/pkg/result"
)

// 令牌桶 Lua 脚本。
// 返回值：1 允许通过，0 令牌不足。
// 时间戳使用毫秒级精度以提高计算准确性。
const luaTokenBucket = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local rate = tonumber(ARGV[3]) -- 每秒产生的令牌数
local requested = tonumber(ARGV[4])

-- 获取当前状态
local info = redis.call('HMGET', key, 'tokens', 'last_time')
local current_tokens = tonumber(info[1])
local last_time = tonumber(info[2])

-- 初始化
if current_tokens == nil then
    current_tokens = capacity
end
if last_time == nil then
    last_time = now
end

-- 计算补充令牌: (时间差ms * 速率) / 1000
local time_diff = math.max(0, now - last_time)
local new_tokens = math.floor((time_diff * rate) / 1000)

if new_tokens > 0 then
    current_tokens = math.min(capacity, current_tokens + new_tokens)
    last_time = now -- 只有产生了新令牌才更新时间，防止精度丢失
end

-- 判断是否允许通过
local allowed = 0
if current_tokens >= requested then
    current_tokens = current_tokens - requested
    allowed = 1
end

redis.call('HMSET', key, 'tokens', current_tokens, 'last_time', last_time)

-- 过期时间：桶填满所需时间 * 2，至少 60 秒
local fill_time = math.ceil(capacity / rate)
local ttl = math.max(60, fill_time * 2)
redis.call('EXPIRE', key, ttl)

return allowed
`

// RedisRateLimiter 基于 Redis 的令牌桶限流器。
// Redis 不可用时一律降级放行（fail-open），限流是保护手段而非业务约束。
type RedisRateLimiter struct {
	mu          sync.RWMutex
	redisClient *redis.Client
	rate        float64 // 每秒产生的令牌数
	burst       int     // 令牌桶容量
}

// NewRedisRateLimiter 创建限流器。
// rate: 每秒产生的令牌数；burst: 令牌桶容量。
func NewRedisRateLimiter(rate float64, burst int) *RedisRateLimiter {
	return &RedisRateLimiter{rate: rate, burst: burst}
}

// SetClient 设置 Redis 客户端，延迟注入避免初始化顺序问题。
func (r *RedisRateLimiter) SetClient(client *redis.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.redisClient = client
}

// Allow 检查是否允许请求通过。
func (r *RedisRateLimiter) Allow(ctx context.Context, key string) bool {
	r.mu.RLock()
	client := r.redisClient
	r.mu.RUnlock()

	if client == nil {
		return true
	}

	// Redis 操作加独立短超时，防止 Redis 响应慢拖死接口
	redisCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	now := time.Now().UnixMilli()
	cmd := client.Eval(redisCtx, luaTokenBucket, []string{key}, now, r.burst, r.rate, 1)
	res, err := cmd.Result()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			logger.Warn(ctx, "限流检查超时，降级放行",
				logger.String("key", key),
				logger.ErrorField("error", err),
			)
			return true
		}
		logger.Error(ctx, "限流检查失败，降级放行",
			logger.String("key", key),
			logger.ErrorField("error", err),
		)
		return true
	}

	allowed, ok := res.(int64)
	if !ok {
		logger.Warn(ctx, "限流返回值类型错误，降级放行",
			logger.String("key", key),
			logger.Any("result", res),
		)
		return true
	}
	return allowed == 1
}

// UserRateLimitMiddleware 用户级接口限流。
// 必须挂在 JWTAuthMiddleware 之后；未认证请求直接放行（交给认证中间件拒绝）。
func UserRateLimitMiddleware(limiter *RedisRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		userUUID, ok := GetUserUUID(c)
		if !ok || userUUID == "" {
			c.Next()
			return
		}

		ctx := NewContextWithGin(c)
		if !limiter.Allow(ctx, rediskey.ApiRateLimitKey(userUUID)) {
			result.Fail(c, consts.CodeTooManyRequests)
			c.Abort()
			return
		}
		c.Next()
	}
}
