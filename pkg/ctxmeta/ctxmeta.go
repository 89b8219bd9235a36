package ctxmeta

import (
	"context"

	"github.com/gin-gonic/gin"
)

// 上下文元数据键。
// 注意：logger 与异步任务透传都按这些字符串键取值，必须保持一致。
const (
	KeyTraceID  = "trace_id"
	KeyUserUUID = "user_uuid"
	KeyDeviceID = "device_id"
	KeyClientIP = "client_ip"
)

// WithTraceID 注入 trace_id。
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, KeyTraceID, traceID)
}

// WithUserUUID 注入 user_uuid。
func WithUserUUID(ctx context.Context, userUUID string) context.Context {
	return context.WithValue(ctx, KeyUserUUID, userUUID)
}

// WithDeviceID 注入 device_id。
func WithDeviceID(ctx context.Context, deviceID string) context.Context {
	return context.WithValue(ctx, KeyDeviceID, deviceID)
}

// WithClientIP 注入 client_ip。
func WithClientIP(ctx context.Context, clientIP string) context.Context {
	return context.WithValue(ctx, KeyClientIP, clientIP)
}

// TraceID 取出 trace_id，不存在返回空串。
func TraceID(ctx context.Context) string {
	return stringValue(ctx, KeyTraceID)
}

// UserUUID 取出 user_uuid，不存在返回空串。
func UserUUID(ctx context.Context) string {
	return stringValue(ctx, KeyUserUUID)
}

// DeviceID 取出 device_id，不存在返回空串。
func DeviceID(ctx context.Context) string {
	return stringValue(ctx, KeyDeviceID)
}

// TraceIDFromGin 从 Gin 上下文取 trace_id（由 Trace 中间件写入）。
func TraceIDFromGin(c *gin.Context) string {
	return c.GetString(KeyTraceID)
}

// Propagate 从父 ctx 萃取元数据字段，挂到一个全新的 Background 上。
// 用于异步任务：既透传追踪信息，又切断父请求的取消信号。
func Propagate(parent context.Context) context.Context {
	ctx := context.Background()
	if parent == nil {
		return ctx
	}
	for _, key := range []string{KeyTraceID, KeyUserUUID, KeyDeviceID, KeyClientIP} {
		if v := stringValue(parent, key); v != "" {
			ctx = context.WithValue(ctx, key, v)
		}
	}
	return ctx
}

func stringValue(ctx context.Context, key string) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}
