package config

import "time"

// RealtimeConfig 实时子系统的业务参数。
type RealtimeConfig struct {
	// HeartbeatInterval 客户端心跳间隔（客户端约定值，服务端据此推算超时）。
	HeartbeatInterval time.Duration `json:"heartbeatInterval" yaml:"heartbeatInterval"`
	// SendQueueSize 单连接下行写队列容量。
	SendQueueSize int `json:"sendQueueSize" yaml:"sendQueueSize"`
	// InboundRate 单连接上行帧速率限制（帧/秒）。
	InboundRate float64 `json:"inboundRate" yaml:"inboundRate"`
	// InboundBurst 单连接上行帧突发容量。
	InboundBurst int `json:"inboundBurst" yaml:"inboundBurst"`
	// MessagePageSize 消息历史分页大小。
	MessagePageSize int `json:"messagePageSize" yaml:"messagePageSize"`
	// MessagePageSizeMax 消息历史分页大小上限。
	MessagePageSizeMax int `json:"messagePageSizeMax" yaml:"messagePageSizeMax"`
	// MessageMaxLength 单条消息内容最大长度（字符）。
	MessageMaxLength int `json:"messageMaxLength" yaml:"messageMaxLength"`
	// AllowReapplyAfterReject 被拒绝后是否允许重新发起好友申请。
	// 产品策略未定，先做成显式开关，默认关闭。
	AllowReapplyAfterReject bool `json:"allowReapplyAfterReject" yaml:"allowReapplyAfterReject"`
}

// DefaultRealtimeConfig 返回默认配置。
func DefaultRealtimeConfig() RealtimeConfig {
	return RealtimeConfig{
		HeartbeatInterval:       60 * time.Second,
		SendQueueSize:           64,
		InboundRate:             20,
		InboundBurst:            40,
		MessagePageSize:         20,
		MessagePageSizeMax:      50,
		MessageMaxLength:        4096,
		AllowReapplyAfterReject: false,
	}
}
