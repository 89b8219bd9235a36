package config

import (
	"os"
	"time"
)

// ServerConfig 实时服务 HTTP 层配置。
// 超时用于限制异常连接占用资源，避免慢连接拖垮服务。
type ServerConfig struct {
	Addr              string        `json:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
	ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
	WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
	IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
	ShutdownTimeout   time.Duration `json:"shutdownTimeout" yaml:"shutdownTimeout"`
}

// DefaultServerConfig 返回默认配置。
// 端口优先读取 REALTIME_ADDR，未设置时默认监听 :8082。
func DefaultServerConfig() ServerConfig {
	addr := os.Getenv("REALTIME_ADDR")
	if addr == "" {
		addr = ":8082"
	}
	return ServerConfig{
		Addr:              addr,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ShutdownTimeout:   15 * time.Second,
	}
}
