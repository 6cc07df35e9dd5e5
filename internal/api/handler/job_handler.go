package handler

import (
	"context"
	"errors"
	"strings"

	"job-board-go/internal/api/middleware"
	"job-board-go/internal/config"
	"job-board-go/internal/logger"
	"job-board-go/internal/storage"
	"job-board-go/internal/storage/models"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// JobHandler 处理岗位的增删改查
type JobHandler struct {
	cfg     *config.Config
	storage *storage.Storage
}

// NewJobHandler 创建岗位处理器
func NewJobHandler(cfg *config.Config, storage *storage.Storage) *JobHandler {
	return &JobHandler{cfg: cfg, storage: storage}
}

// JobRequest 创建/更新岗位的请求体
type JobRequest struct {
	Title   string   `json:"title"`
	Details string   `json:"details"`
	Skills  []string `json:"skills"`
}

// JobResponse 岗位响应体
type JobResponse struct {
	JobID       string   `json:"job_id"`
	Title       string   `json:"title"`
	Details     string   `json:"details"`
	Skills      []string `json:"skills"`
	RecruiterID string   `json:"recruiter_id"`
	IsClosed    bool     `json:"is_closed"`
}

func toJobResponse(job *models.Job) JobResponse {
	skills, err := models.JSONToSlice(job.SkillsJSON)
	if err != nil {
		skills = []string{}
	}
	return JobResponse{
		JobID:       job.JobID,
		Title:       job.Title,
		Details:     job.Details,
		Skills:      skills,
		RecruiterID: job.RecruiterID,
		IsClosed:    job.IsClosed,
	}
}

// skillsToJSON 序列化技能列表，失败时落空数组
func skillsToJSON(skills []string) datatypes.JSON {
	data, err := models.SliceToJSON(skills)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return data
}

// normalizeSkills 去掉空白项，保留原始大小写（匹配时统一转小写）
func normalizeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Create 创建岗位（招聘者）
func (h *JobHandler) Create(ctx context.Context, c *app.RequestContext) {
	var req JobRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "请求格式错误"})
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "岗位名称不能为空"})
		return
	}

	job := &models.Job{
		Title:       strings.TrimSpace(req.Title),
		Details:     req.Details,
		SkillsJSON:  skillsToJSON(normalizeSkills(req.Skills)),
		RecruiterID: c.GetString(middleware.CtxKeyUserID),
	}
	if err := h.storage.MySQL.CreateJob(ctx, job); err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("创建岗位失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "创建岗位失败"})
		return
	}

	c.JSON(consts.StatusCreated, toJobResponse(job))
}

// Update 更新岗位（仅限发布者本人）
func (h *JobHandler) Update(ctx context.Context, c *app.RequestContext) {
	jobID := c.Param("id")
	job, err := h.storage.MySQL.GetJobByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(consts.StatusNotFound, utils.H{"error": "岗位不存在"})
			return
		}
		logger.Ctx(ctx).Error().Err(err).Str("job_id", jobID).Msg("查询岗位失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "查询岗位失败"})
		return
	}
	if job.RecruiterID != c.GetString(middleware.CtxKeyUserID) {
		c.JSON(consts.StatusForbidden, utils.H{"error": "只能修改自己发布的岗位"})
		return
	}

	var req JobRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "请求格式错误"})
		return
	}
	if strings.TrimSpace(req.Title) != "" {
		job.Title = strings.TrimSpace(req.Title)
	}
	if req.Details != "" {
		job.Details = req.Details
	}
	if req.Skills != nil {
		job.SkillsJSON = skillsToJSON(normalizeSkills(req.Skills))
	}

	if err := h.storage.MySQL.UpdateJob(ctx, job); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("job_id", jobID).Msg("更新岗位失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "更新岗位失败"})
		return
	}
	c.JSON(consts.StatusOK, toJobResponse(job))
}

// Close 关闭岗位，不再接受新申请
func (h *JobHandler) Close(ctx context.Context, c *app.RequestContext) {
	jobID := c.Param("id")
	recruiterID := c.GetString(middleware.CtxKeyUserID)

	if err := h.storage.MySQL.CloseJob(ctx, jobID, recruiterID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(consts.StatusNotFound, utils.H{"error": "岗位不存在或不属于当前用户"})
			return
		}
		logger.Ctx(ctx).Error().Err(err).Str("job_id", jobID).Msg("关闭岗位失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "关闭岗位失败"})
		return
	}
	c.JSON(consts.StatusOK, utils.H{"status": "closed"})
}

// Get 获取单个岗位详情
func (h *JobHandler) Get(ctx context.Context, c *app.RequestContext) {
	jobID := c.Param("id")
	job, err := h.storage.MySQL.GetJobByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(consts.StatusNotFound, utils.H{"error": "岗位不存在"})
			return
		}
		logger.Ctx(ctx).Error().Err(err).Str("job_id", jobID).Msg("查询岗位失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "查询岗位失败"})
		return
	}
	c.JSON(consts.StatusOK, toJobResponse(job))
}

// ListOpen 列出所有开放中的岗位
func (h *JobHandler) ListOpen(ctx context.Context, c *app.RequestContext) {
	jobs, err := h.storage.MySQL.ListOpenJobs(ctx)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("查询开放岗位失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "查询岗位失败"})
		return
	}

	resp := make([]JobResponse, 0, len(jobs))
	for i := range jobs {
		resp = append(resp, toJobResponse(&jobs[i]))
	}
	c.JSON(consts.StatusOK, utils.H{"jobs": resp})
}

// ListMine 列出当前招聘者发布的全部岗位（含已关闭）
func (h *JobHandler) ListMine(ctx context.Context, c *app.RequestContext) {
	recruiterID := c.GetString(middleware.CtxKeyUserID)
	jobs, err := h.storage.MySQL.ListJobsByRecruiter(ctx, recruiterID)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("recruiter_id", recruiterID).Msg("查询招聘者岗位失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "查询岗位失败"})
		return
	}

	resp := make([]JobResponse, 0, len(jobs))
	for i := range jobs {
		resp = append(resp, toJobResponse(&jobs[i]))
	}
	c.JSON(consts.StatusOK, utils.H{"jobs": resp})
}
