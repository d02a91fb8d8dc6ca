package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"thesis-guidance/backend/pkg/jwt"
	"thesis-guidance/backend/pkg/response"
)

const identityKey = "identity"

// Identity 当前请求的认证身份，由 JWTAuth 注入，handler 取出后显式传给 service
type Identity struct {
	UserID   string
	Role     string
	TokenID  string    // access token 的 JTI，登出时加入黑名单
	ExpireAt time.Time // access token 过期时间
}

// RemainingTTL access token 剩余有效期
func (i Identity) RemainingTTL() time.Duration {
	return time.Until(i.ExpireAt)
}

// SetIdentity 注入身份（测试中亦用于模拟已登录请求）
func SetIdentity(c *gin.Context, id Identity) {
	c.Set(identityKey, id)
}

// GetIdentity 读取身份；未经过 JWTAuth 时返回 false
func GetIdentity(c *gin.Context) (Identity, bool) {
	v, exists := c.Get(identityKey)
	if !exists {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	if !ok || id.UserID == "" || id.Role == "" {
		return Identity{}, false
	}
	return id, true
}

// Blacklist Token 黑名单查询
type Blacklist interface {
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// JWTAuth JWT 认证中间件
// 从 Authorization: Bearer <token> 中提取并验证 Access Token
// blacklist 为 nil 时不检查黑名单；查询出错时降级放行
func JWTAuth(jwtMgr *jwt.Manager, blacklist Blacklist, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, response.CodeUnauthorized, "缺少认证头")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			response.Unauthorized(c, response.CodeUnauthorized, "认证头格式无效")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(parts[1])
		if err != nil {
			response.Unauthorized(c, response.CodeUnauthorized, "Token 无效或已过期")
			c.Abort()
			return
		}

		if claims.TokenType != jwt.TokenTypeAccess {
			response.Unauthorized(c, response.CodeUnauthorized, "Token 类型无效")
			c.Abort()
			return
		}

		if blacklist != nil {
			revoked, err := blacklist.IsBlacklisted(c.Request.Context(), claims.ID)
			switch {
			case err != nil:
				logger.Warn("查询 Token 黑名单失败，降级放行", zap.Error(err))
			case revoked:
				response.Unauthorized(c, response.CodeUnauthorized, "Token 已注销")
				c.Abort()
				return
			}
		}

		id := Identity{UserID: claims.UserID, Role: claims.Role, TokenID: claims.ID}
		if claims.ExpiresAt != nil {
			id.ExpireAt = claims.ExpiresAt.Time
		}
		SetIdentity(c, id)

		c.Next()
	}
}

// RoleAuth 角色权限中间件
// 无身份 → 401；角色不在白名单 → 403，并回显允许角色与实际角色
func RoleAuth(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := GetIdentity(c)
		if !ok {
			response.Unauthorized(c, response.CodeUnauthorized, "未认证")
			c.Abort()
			return
		}

		for _, r := range allowedRoles {
			if id.Role == r {
				c.Next()
				return
			}
		}

		response.ErrorWithData(c, http.StatusForbidden, response.CodeForbidden, "无权限访问", gin.H{
			"required_roles": allowedRoles,
			"current_role":   id.Role,
		})
		c.Abort()
	}
}
