package middleware

import (
	"context"
	"errors"

	"job-board-go/internal/constants"
	"job-board-go/internal/logger"
	"job-board-go/internal/storage"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"
)

// 认证中间件写入RequestContext的键
const (
	CtxKeyUserID   = "user_id"
	CtxKeyUserType = "user_type"
)

// TokenAuth 返回基于Bearer令牌的认证中间件
// 令牌在Redis中映射到 userID:userType，不存在即视为未登录
func TokenAuth(rds *storage.Redis) app.HandlerFunc {
	return keyauth.New(
		keyauth.WithKeyLookUp("header:Authorization", "Bearer"),
		keyauth.WithValidator(func(ctx context.Context, c *app.RequestContext, token string) (bool, error) {
			userID, userType, err := rds.ResolveAPIToken(ctx, token)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					return false, nil
				}
				logger.Ctx(ctx).Warn().Err(err).Msg("解析API令牌失败")
				return false, err
			}
			c.Set(CtxKeyUserID, userID)
			c.Set(CtxKeyUserType, userType)
			return true, nil
		}),
		keyauth.WithErrorHandler(func(ctx context.Context, c *app.RequestContext, err error) {
			c.JSON(consts.StatusUnauthorized, utils.H{"error": "认证失败，请先登录"})
			c.Abort()
		}),
	)
}

// RequireUserType 返回角色检查中间件，放在TokenAuth之后
func RequireUserType(userType string) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		got := c.GetString(CtxKeyUserType)
		if got != userType {
			c.JSON(consts.StatusForbidden, utils.H{"error": "没有权限执行此操作"})
			c.Abort()
			return
		}
		c.Next(ctx)
	}
}

// RequireCandidate 仅允许候选人访问
func RequireCandidate() app.HandlerFunc {
	return RequireUserType(constants.UserTypeCandidate)
}

// RequireRecruiter 仅允许招聘者访问
func RequireRecruiter() app.HandlerFunc {
	return RequireUserType(constants.UserTypeRecruiter)
}
