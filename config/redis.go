package config

import "time"

// RedisConfig Redis 连接配置。
// 实时服务用 Redis 承载：在线状态镜像、通知未读计数、登录态校验。
type RedisConfig struct {
	Addr         string        `json:"addr" yaml:"addr"`                 // 服务地址，如 localhost:6379
	Password     string        `json:"password" yaml:"password"`         // 密码，空表示无鉴权
	DB           int           `json:"db" yaml:"db"`                     // 逻辑库编号
	PoolSize     int           `json:"poolSize" yaml:"poolSize"`         // 连接池大小
	MinIdleConns int           `json:"minIdleConns" yaml:"minIdleConns"` // 最小空闲连接数
	DialTimeout  time.Duration `json:"dialTimeout" yaml:"dialTimeout"`   // 建连超时
	ReadTimeout  time.Duration `json:"readTimeout" yaml:"readTimeout"`   // 读超时
	WriteTimeout time.Duration `json:"writeTimeout" yaml:"writeTimeout"` // 写超时
}

// DefaultRedisConfig 返回本地开发的默认配置。
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     64,
		MinIdleConns: 8,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	}
}
