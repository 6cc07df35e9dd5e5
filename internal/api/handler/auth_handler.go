package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"job-board-go/internal/config"
	"job-board-go/internal/constants"
	"job-board-go/internal/logger"
	"job-board-go/internal/storage"
	"job-board-go/internal/storage/models"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthHandler 处理注册、登录和登出
type AuthHandler struct {
	cfg     *config.Config
	storage *storage.Storage
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(cfg *config.Config, storage *storage.Storage) *AuthHandler {
	return &AuthHandler{cfg: cfg, storage: storage}
}

// RegisterRequest 注册请求体
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	UserType string `json:"user_type"`
	Company  string `json:"company"` // 仅招聘者需要
}

// LoginRequest 登录请求体，login 可以是用户名或邮箱
type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// LoginResponse 登录响应体
type LoginResponse struct {
	Token    string `json:"token"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	UserType string `json:"user_type"`
}

// Register 注册新用户
func (h *AuthHandler) Register(ctx context.Context, c *app.RequestContext) {
	var req RegisterRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "请求格式错误"})
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || len(req.Password) < 6 {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "用户名、邮箱不能为空，密码至少6位"})
		return
	}
	if req.UserType != constants.UserTypeCandidate && req.UserType != constants.UserTypeRecruiter {
		c.JSON(consts.StatusBadRequest, utils.H{"error": fmt.Sprintf("user_type 必须是 %s 或 %s", constants.UserTypeCandidate, constants.UserTypeRecruiter)})
		return
	}

	// 检查用户名/邮箱是否已占用
	for _, login := range []string{req.Username, req.Email} {
		if _, err := h.storage.MySQL.FindUserByLogin(ctx, login); err == nil {
			c.JSON(consts.StatusConflict, utils.H{"error": "用户名或邮箱已被注册"})
			return
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Ctx(ctx).Error().Err(err).Msg("查询用户失败")
			c.JSON(consts.StatusInternalServerError, utils.H{"error": "注册失败"})
			return
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("密码哈希失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "注册失败"})
		return
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		UserType:     req.UserType,
		Company:      req.Company,
	}
	if err := h.storage.MySQL.CreateUser(ctx, user); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("username", req.Username).Msg("创建用户失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "注册失败"})
		return
	}

	logger.Ctx(ctx).Info().Str("user_id", user.UserID).Str("user_type", user.UserType).Msg("用户注册成功")
	c.JSON(consts.StatusCreated, utils.H{
		"user_id":   user.UserID,
		"username":  user.Username,
		"user_type": user.UserType,
	})
}

// Login 登录并颁发API令牌
func (h *AuthHandler) Login(ctx context.Context, c *app.RequestContext) {
	var req LoginRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "请求格式错误"})
		return
	}

	user, err := h.storage.MySQL.FindUserByLogin(ctx, strings.TrimSpace(req.Login))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(consts.StatusUnauthorized, utils.H{"error": "用户名或密码错误"})
			return
		}
		logger.Ctx(ctx).Error().Err(err).Msg("登录查询失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "登录失败"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(consts.StatusUnauthorized, utils.H{"error": "用户名或密码错误"})
		return
	}

	// 颁发不透明令牌，有效期由Redis TTL控制
	token := uuid.NewString()
	if err := h.storage.Redis.StoreAPIToken(ctx, token, user.UserID, user.UserType); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("user_id", user.UserID).Msg("存储API令牌失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "登录失败"})
		return
	}

	c.JSON(consts.StatusOK, LoginResponse{
		Token:    token,
		UserID:   user.UserID,
		Username: user.Username,
		UserType: user.UserType,
	})
}

// Logout 吊销当前令牌
func (h *AuthHandler) Logout(ctx context.Context, c *app.RequestContext) {
	auth := string(c.GetHeader("Authorization"))
	token := strings.TrimPrefix(auth, "Bearer ")
	if token == "" || token == auth {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "缺少Bearer令牌"})
		return
	}

	if err := h.storage.Redis.RevokeAPIToken(ctx, token); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("吊销令牌失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "登出失败"})
		return
	}
	c.JSON(consts.StatusOK, utils.H{"status": "ok"})
}
