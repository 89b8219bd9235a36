package config

import "time"

// KafkaConfig 事件总线配置。
// 多进程部署时，出站事件需要经 Kafka 复制到持有相关连接的其他进程。
// Brokers 为空表示单进程模式，不启用总线。
type KafkaConfig struct {
	Brokers      []string      `json:"brokers" yaml:"brokers"`           // broker 地址列表
	Topic        string        `json:"topic" yaml:"topic"`               // 出站事件 topic
	GroupID      string        `json:"groupId" yaml:"groupId"`           // 消费组前缀（每进程追加实例 ID）
	BatchTimeout time.Duration `json:"batchTimeout" yaml:"batchTimeout"` // 写端攒批时间
	WriteTimeout time.Duration `json:"writeTimeout" yaml:"writeTimeout"` // 写超时
}

// DefaultKafkaConfig 返回默认配置（默认关闭总线）。
func DefaultKafkaConfig() KafkaConfig {
	return KafkaConfig{
		Brokers:      nil,
		Topic:        "realtime.fanout",
		GroupID:      "realtime",
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 3 * time.Second,
	}
}
