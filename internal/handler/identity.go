package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/eidos-exchange/eidos-ledger/pkg/errors"
)

const (
	// AuthHeader 认证头名称
	AuthHeader = "Authorization"
	// BearerPrefix 认证方案前缀
	BearerPrefix = "Bearer "
	// UserIDKey context 中的用户 ID 键名
	UserIDKey = "user_id"
)

// IdentityResolver 从请求解析调用方用户 ID
type IdentityResolver interface {
	Resolve(c *gin.Context) (int64, error)
}

// BearerIdentityResolver 演示用认证: Authorization: Bearer {userId}
// 不做任何签名校验，只能用于内网或测试环境
type BearerIdentityResolver struct{}

// Resolve 解析用户 ID
func (BearerIdentityResolver) Resolve(c *gin.Context) (int64, error) {
	header := c.GetHeader(AuthHeader)
	if header == "" {
		return 0, errors.ErrUnauthorized.WithMessage("missing authorization header")
	}
	if !strings.HasPrefix(header, BearerPrefix) {
		return 0, errors.ErrUnauthorized.WithMessage("invalid authorization scheme")
	}
	userID, err := strconv.ParseInt(strings.TrimSpace(header[len(BearerPrefix):]), 10, 64)
	if err != nil || userID <= 0 {
		return 0, errors.ErrUnauthorized.WithMessage("invalid user id in authorization header")
	}
	return userID, nil
}

// Auth 返回认证中间件，解析成功后把用户 ID 写入 context
func Auth(resolver IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := resolver.Resolve(c)
		if err != nil {
			Error(c, err)
			c.Abort()
			return
		}
		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// RequireAdmin 返回管理员校验中间件，须挂在 Auth 之后
func RequireAdmin(adminIDs []int64) gin.HandlerFunc {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := admins[userID]; !ok {
			Error(c, errors.ErrForbidden.WithMessage("admin privileges required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetUserID 从 context 获取用户 ID
func GetUserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return 0, false
	}
	userID, ok := v.(int64)
	return userID, ok
}
