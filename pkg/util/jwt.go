package util

import (
	"errors"
	"time"

	"github.com/Nevern1y/Whity-sub000/config"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenInvalid Token 非法或已过期
	ErrTokenInvalid = errors.New("token is invalid")

	jwtSecret []byte
	jwtIssuer string
	jwtTTL    time.Duration
)

// Claims 访问令牌载荷。
// 实时服务只消费 user_uuid / device_id 两个业务字段。
type Claims struct {
	UserUUID string `json:"user_uuid"`
	DeviceID string `json:"device_id"`
	jwt.RegisteredClaims
}

// InitJWT 初始化令牌校验参数（进程启动时调用一次）。
func InitJWT(cfg config.JWTConfig) {
	jwtSecret = []byte(cfg.Secret)
	jwtIssuer = cfg.Issuer
	jwtTTL = cfg.AccessExpires
}

// ParseToken 解析并校验访问令牌。
// 签名算法固定 HS256，其他算法一律拒绝。
func ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if jwtIssuer != "" && claims.Issuer != jwtIssuer {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// GenerateToken 签发访问令牌。
// 正式环境由账号服务签发，这里保留签发能力给本地联调与测试。
func GenerateToken(userUUID, deviceID string) (string, error) {
	now := time.Now()
	ttl := jwtTTL
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	claims := &Claims{
		UserUUID: userUUID,
		DeviceID: deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    jwtIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}
