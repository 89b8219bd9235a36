package config

import (
	"os"

	"github.com/goccy/go-yaml"
)

// Config 实时服务的聚合配置。
type Config struct {
	Logger   LoggerConfig   `json:"logger" yaml:"logger"`
	Redis    RedisConfig    `json:"redis" yaml:"redis"`
	DB       DBConfig       `json:"db" yaml:"db"`
	Async    AsyncConfig    `json:"async" yaml:"async"`
	Server   ServerConfig   `json:"server" yaml:"server"`
	Realtime RealtimeConfig `json:"realtime" yaml:"realtime"`
	Kafka    KafkaConfig    `json:"kafka" yaml:"kafka"`
	JWT      JWTConfig      `json:"jwt" yaml:"jwt"`
}

// Default 返回全部模块的默认配置。
func Default() Config {
	return Config{
		Logger:   DefaultLoggerConfig(),
		Redis:    DefaultRedisConfig(),
		DB:       DefaultDBConfig(),
		Async:    DefaultAsyncConfig(),
		Server:   DefaultServerConfig(),
		Realtime: DefaultRealtimeConfig(),
		Kafka:    DefaultKafkaConfig(),
		JWT:      DefaultJWTConfig(),
	}
}

// Load 在默认配置基础上叠加 yaml 配置文件。
// path 为空时直接返回默认配置；文件不存在视为错误（显式传了路径就必须可读）。
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
