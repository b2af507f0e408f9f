package middleware

import (
	stderrors "errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/house-booking-backend/internal/common/jwt"
	"github.com/dumeirei/house-booking-backend/internal/common/response"
)

// 上下文键
const (
	ContextKeyOperatorID = "operator_id"
	ContextKeyRole       = "role"
	ContextKeyClaims     = "claims"
)

// AdminAuth 运营接口认证，只接受 admin 类型的令牌
func AdminAuth(jwtManager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}

		claims, err := jwtManager.ParseToken(token)
		if err != nil {
			if stderrors.Is(err, jwt.ErrTokenExpired) {
				response.Unauthorized(c, "登录已过期，请重新登录")
			} else {
				response.Unauthorized(c, "无效的令牌")
			}
			c.Abort()
			return
		}

		if claims.UserType != jwt.UserTypeAdmin {
			response.Forbidden(c, "无权访问")
			c.Abort()
			return
		}

		c.Set(ContextKeyOperatorID, claims.OperatorID)
		c.Set(ContextKeyRole, claims.Role)
		c.Set(ContextKeyClaims, claims)

		c.Next()
	}
}

// RequireRole 要求运营角色属于 roles 之一，需在 AdminAuth 之后使用
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		if _, ok := allowed[GetRole(c)]; !ok {
			response.Forbidden(c, "权限不足")
			c.Abort()
			return
		}
		c.Next()
	}
}

// extractToken 从 Authorization 头提取 Bearer 令牌
func extractToken(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// GetOperatorID 从上下文获取运营人员 ID
func GetOperatorID(c *gin.Context) int64 {
	return c.GetInt64(ContextKeyOperatorID)
}

// GetRole 从上下文获取运营角色
func GetRole(c *gin.Context) string {
	return c.GetString(ContextKeyRole)
}

// GetClaims 从上下文获取完整的 Claims
func GetClaims(c *gin.Context) *jwt.Claims {
	claims, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	return claims.(*jwt.Claims)
}
