package config

import "time"

// DBConfig MySQL 连接配置。
// 好友关系、私信、通知三张核心表都落在这里。
type DBConfig struct {
	DSN             string        `json:"dsn" yaml:"dsn"`                         // 数据源，如 user:pass@tcp(host:3306)/whity?parseTime=true
	MaxOpenConns    int           `json:"maxOpenConns" yaml:"maxOpenConns"`       // 最大打开连接数
	MaxIdleConns    int           `json:"maxIdleConns" yaml:"maxIdleConns"`       // 最大空闲连接数
	ConnMaxLifetime time.Duration `json:"connMaxLifetime" yaml:"connMaxLifetime"` // 连接最大存活时间
	SlowThreshold   time.Duration `json:"slowThreshold" yaml:"slowThreshold"`     // 慢查询阈值（gorm 日志）
	AutoMigrate     bool          `json:"autoMigrate" yaml:"autoMigrate"`         // 启动时是否自动建表（仅开发环境）
}

// DefaultDBConfig 返回本地开发的默认配置。
func DefaultDBConfig() DBConfig {
	return DBConfig{
		DSN:             "whity:whity@tcp(localhost:3306)/whity?charset=utf8mb4&parseTime=true&loc=Local",
		MaxOpenConns:    64,
		MaxIdleConns:    16,
		ConnMaxLifetime: time.Hour,
		SlowThreshold:   200 * time.Millisecond,
		AutoMigrate:     false,
	}
}
