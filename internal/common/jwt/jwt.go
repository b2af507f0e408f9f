// Package jwt 提供运营人员 JWT 令牌的签发与校验
package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UserType 用户类型常量
const (
	UserTypeAdmin = "admin"
)

// 运营角色
const (
	RoleManager = "manager" // 可修改房屋、活动、优惠码与预订
	RoleViewer  = "viewer"  // 只读
)

// Claims 自定义 JWT 声明
type Claims struct {
	OperatorID int64  `json:"operator_id"`
	UserType   string `json:"user_type"`
	Role       string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Config JWT 配置
type Config struct {
	Secret           string
	AccessExpireTime time.Duration
	Issuer           string
}

// Manager JWT 管理器
type Manager struct {
	config *Config
}

// 预定义错误
var (
	ErrTokenInvalid   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenNotActive = errors.New("token not active yet")
)

// NewManager 创建 JWT 管理器
func NewManager(config *Config) *Manager {
	return &Manager{config: config}
}

// IssueOperatorToken 为运营人员签发访问令牌，返回令牌与过期时间戳
func (m *Manager) IssueOperatorToken(operatorID int64, role string) (string, int64, error) {
	now := time.Now()
	expireAt := now.Add(m.config.AccessExpireTime)

	claims := &Claims{
		OperatorID: operatorID,
		UserType:   UserTypeAdmin,
		Role:       role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   UserTypeAdmin,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expireAt),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.config.Secret))
	return token, expireAt.Unix(), err
}

// ParseToken 解析令牌
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(m.config.Secret), nil
	}, jwt.WithIssuer(m.config.Issuer))

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrTokenMalformed
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenNotActive
		}
		return nil, ErrTokenInvalid
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrTokenInvalid
}
