package router

import (
	"context"

	"job-board-go/internal/api/handler"
	"job-board-go/internal/api/middleware"
	"job-board-go/internal/storage"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// Handlers 路由注册所需的全部处理器
type Handlers struct {
	Auth        *handler.AuthHandler
	Job         *handler.JobHandler
	Application *handler.ApplicationHandler
	Resume      *handler.ResumeHandler
}

// RegisterRoutes 注册 API 路由
//
// 岗位列表和详情对外公开，其余接口要求登录，
// 写操作按用户类型 (candidate / recruiter) 分别限制。
func RegisterRoutes(h *server.Hertz, st *storage.Storage, handlers *Handlers) {
	api := h.Group("/api/v1")

	// 健康检查
	api.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})

	// 注册与登录无需鉴权
	api.POST("/auth/register", handlers.Auth.Register)
	api.POST("/auth/login", handlers.Auth.Login)

	// 开放岗位浏览
	api.GET("/jobs", handlers.Job.ListOpen)
	api.GET("/jobs/:id", handlers.Job.Get)

	authed := api.Group("", middleware.TokenAuth(st.Redis))
	authed.POST("/auth/logout", handlers.Auth.Logout)

	// 招聘者接口
	recruiter := authed.Group("", middleware.RequireRecruiter())
	recruiter.POST("/jobs", handlers.Job.Create)
	recruiter.PUT("/jobs/:id", handlers.Job.Update)
	recruiter.POST("/jobs/:id/close", handlers.Job.Close)
	recruiter.GET("/recruiter/jobs", handlers.Job.ListMine)
	recruiter.GET("/recruiter/applications", handlers.Application.ListForRecruiter)
	recruiter.PUT("/applications/:id/status", handlers.Application.UpdateStatus)
	recruiter.POST("/applications/:id/analyze", handlers.Application.Reanalyze)

	// 候选人接口
	candidate := authed.Group("", middleware.RequireCandidate())
	candidate.POST("/resume/upload", handlers.Resume.Upload)
	candidate.GET("/resume/profile", handlers.Resume.Profile)
	candidate.POST("/applications", handlers.Application.Apply)
	candidate.GET("/applications", handlers.Application.ListMine)
}
