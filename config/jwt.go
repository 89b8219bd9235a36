package config

import (
	"os"
	"time"
)

// JWTConfig 访问令牌校验配置。
// 令牌由账号体系签发，实时服务只做校验，不做签发。
type JWTConfig struct {
	Secret        string        `json:"secret" yaml:"secret"`               // HMAC 签名密钥
	Issuer        string        `json:"issuer" yaml:"issuer"`               // 期望的签发方
	AccessExpires time.Duration `json:"accessExpires" yaml:"accessExpires"` // 访问令牌有效期（测试签发用）
}

// DefaultJWTConfig 返回默认配置。
// 密钥优先读取 JWT_SECRET，避免把真实密钥写进配置文件。
func DefaultJWTConfig() JWTConfig {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "whity-dev-secret"
	}
	return JWTConfig{
		Secret:        secret,
		Issuer:        "whity",
		AccessExpires: 2 * time.Hour,
	}
}
