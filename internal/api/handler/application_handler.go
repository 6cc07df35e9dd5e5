package handler

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"job-board-go/internal/api/middleware"
	"job-board-go/internal/config"
	"job-board-go/internal/constants"
	"job-board-go/internal/logger"
	"job-board-go/internal/parser"
	"job-board-go/internal/storage"
	"job-board-go/internal/storage/models"
	"job-board-go/internal/types"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

var applicationTracer = otel.Tracer("job-board-go/api/application")

// ApplicationHandler 投递申请与匹配分析的处理器
type ApplicationHandler struct {
	cfg     *config.Config
	storage *storage.Storage
	matcher *parser.JobMatcher
}

// NewApplicationHandler 创建申请处理器
func NewApplicationHandler(cfg *config.Config, storage *storage.Storage, matcher *parser.JobMatcher) *ApplicationHandler {
	return &ApplicationHandler{
		cfg:     cfg,
		storage: storage,
		matcher: matcher,
	}
}

// ApplyRequest 投递申请请求体
// ResumeText 为空时回退到用户已提取的简历画像
type ApplyRequest struct {
	JobID       string `json:"job_id"`
	ResumeText  string `json:"resume_text"`
	CoverLetter string `json:"cover_letter"`
}

// ApplicationResponse 申请视图
type ApplicationResponse struct {
	ApplicationID string   `json:"application_id"`
	JobID         string   `json:"job_id"`
	JobTitle      string   `json:"job_title,omitempty"`
	CandidateID   string   `json:"candidate_id"`
	Status        string   `json:"status"`
	Score         *float64 `json:"score,omitempty"`
	Feedback      string   `json:"feedback,omitempty"`
	MatchedSkills []string `json:"matchedSkills"`
	MissingSkills []string `json:"missingSkills"`
	CreatedAt     string   `json:"created_at"`
}

func toApplicationResponse(app *models.Application) ApplicationResponse {
	matched, err := models.JSONToSlice(app.MatchedSkillsJSON)
	if err != nil {
		matched = []string{}
	}
	missing, err := models.JSONToSlice(app.MissingSkillsJSON)
	if err != nil {
		missing = []string{}
	}
	resp := ApplicationResponse{
		ApplicationID: app.ApplicationID,
		JobID:         app.JobID,
		CandidateID:   app.CandidateID,
		Status:        app.Status,
		Score:         app.CompatibilityScore,
		Feedback:      app.Feedback,
		MatchedSkills: matched,
		MissingSkills: missing,
		CreatedAt:     app.CreatedAt.Format(time.RFC3339),
	}
	if app.Job != nil {
		resp.JobTitle = app.Job.Title
	}
	return resp
}

// Apply 候选人投递岗位，同步完成匹配分析并随申请一起落库
func (h *ApplicationHandler) Apply(ctx context.Context, c *app.RequestContext) {
	ctx, span := applicationTracer.Start(ctx, "ApplicationHandler.Apply")
	defer span.End()

	candidateID := c.GetString(middleware.CtxKeyUserID)

	var req ApplyRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "请求体格式错误"})
		return
	}
	if strings.TrimSpace(req.JobID) == "" {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "job_id 不能为空"})
		return
	}
	span.SetAttributes(attribute.String("job.id", req.JobID))

	job, err := h.storage.MySQL.GetJobByID(ctx, req.JobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(consts.StatusNotFound, utils.H{"error": "岗位不存在"})
			return
		}
		logger.Ctx(ctx).Error().Err(err).Str("job_id", req.JobID).Msg("查询岗位失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "查询岗位失败"})
		return
	}
	if job.IsClosed {
		c.JSON(consts.StatusConflict, utils.H{"error": "岗位已关闭"})
		return
	}

	applied, err := h.storage.MySQL.HasApplied(ctx, candidateID, req.JobID)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("查询历史投递失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "查询历史投递失败"})
		return
	}
	if applied {
		c.JSON(consts.StatusConflict, utils.H{"error": "已投递过该岗位"})
		return
	}

	resumeText := req.ResumeText
	if strings.TrimSpace(resumeText) == "" {
		resumeText, err = h.resumeTextFromProfile(ctx, candidateID)
		if err != nil {
			c.JSON(consts.StatusBadRequest, utils.H{"error": "未提供简历文本且尚未上传简历"})
			return
		}
	}

	jobSkills, err := models.JSONToSlice(job.SkillsJSON)
	if err != nil {
		jobSkills = []string{}
	}
	result, err := h.matcher.AnalyzeResumeAgainstJob(ctx, resumeText, types.JobRequirement{
		Title:       job.Title,
		Skills:      jobSkills,
		Description: job.Details,
	})
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("job_id", req.JobID).Msg("匹配分析失败")
		c.JSON(consts.StatusUnprocessableEntity, utils.H{"error": "匹配分析失败"})
		return
	}

	matchedJSON, err := models.SliceToJSON(result.MatchedSkills)
	if err != nil {
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "序列化分析结果失败"})
		return
	}
	missingJSON, err := models.SliceToJSON(result.MissingSkills)
	if err != nil {
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "序列化分析结果失败"})
		return
	}

	score := result.Score
	application := &models.Application{
		CandidateID:        candidateID,
		JobID:              job.JobID,
		ResumeText:         resumeText,
		CoverLetter:        req.CoverLetter,
		Status:             constants.ApplicationStatusApplied,
		CompatibilityScore: &score,
		Feedback:           result.Feedback,
		MatchedSkillsJSON:  matchedJSON,
		MissingSkillsJSON:  missingJSON,
	}
	if err := h.storage.MySQL.CreateApplication(ctx, application); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("job_id", req.JobID).Msg("创建申请记录失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "创建申请记录失败"})
		return
	}

	// 发布分析完成事件。发布失败只告警，不影响本次投递结果
	event := &storage.AnalyzedEvent{
		ApplicationID: application.ApplicationID,
		JobID:         job.JobID,
		CandidateID:   candidateID,
		Score:         result.Score,
		Feedback:      result.Feedback,
		MatchedSkills: result.MatchedSkills,
		MissingSkills: result.MissingSkills,
		AnalyzedAt:    time.Now(),
	}
	if h.storage.RabbitMQ != nil {
		if err := h.storage.RabbitMQ.PublishApplicationAnalyzed(ctx, event); err != nil {
			logger.Ctx(ctx).Warn().Err(err).
				Str("application_id", application.ApplicationID).
				Msg("发布分析事件失败")
		}
	}

	logger.Ctx(ctx).Info().
		Str("application_id", application.ApplicationID).
		Str("job_id", job.JobID).
		Float64("score", result.Score).
		Msg("投递完成")

	application.Job = job
	c.JSON(consts.StatusCreated, toApplicationResponse(application))
}

// resumeTextFromProfile 从已存画像还原可供匹配的简历文本
func (h *ApplicationHandler) resumeTextFromProfile(ctx context.Context, userID string) (string, error) {
	user, err := h.storage.MySQL.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(user.ParsedProfileJSON) == 0 {
		return "", gorm.ErrRecordNotFound
	}
	var profile types.ResumeProfile
	if err := json.Unmarshal(user.ParsedProfileJSON, &profile); err != nil {
		return "", err
	}

	var sb strings.Builder
	if len(profile.Skills) > 0 {
		sb.WriteString("Skills: ")
		sb.WriteString(strings.Join(profile.Skills, ", "))
		sb.WriteString("\n")
	}
	for _, exp := range profile.Experience {
		sb.WriteString(exp.Title)
		if exp.Company != "" && exp.Company != "Unknown" {
			sb.WriteString(" at ")
			sb.WriteString(exp.Company)
		}
		if exp.Years != "" {
			sb.WriteString(" (")
			sb.WriteString(exp.Years)
			sb.WriteString(")")
		}
		sb.WriteString("\n")
	}
	for _, edu := range profile.Education {
		sb.WriteString(edu.Degree)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// ListMine 候选人查看自己的投递记录
func (h *ApplicationHandler) ListMine(ctx context.Context, c *app.RequestContext) {
	candidateID := c.GetString(middleware.CtxKeyUserID)

	apps, err := h.storage.MySQL.ListApplicationsByCandidate(ctx, candidateID)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("查询投递记录失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "查询投递记录失败"})
		return
	}

	resp := make([]ApplicationResponse, 0, len(apps))
	for i := range apps {
		resp = append(resp, toApplicationResponse(&apps[i]))
	}
	c.JSON(consts.StatusOK, utils.H{"applications": resp})
}

// ListForRecruiter 招聘者查看名下岗位收到的申请
func (h *ApplicationHandler) ListForRecruiter(ctx context.Context, c *app.RequestContext) {
	recruiterID := c.GetString(middleware.CtxKeyUserID)

	apps, err := h.storage.MySQL.ListApplicationsForRecruiter(ctx, recruiterID)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("查询收到的申请失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "查询收到的申请失败"})
		return
	}

	resp := make([]ApplicationResponse, 0, len(apps))
	for i := range apps {
		resp = append(resp, toApplicationResponse(&apps[i]))
	}
	c.JSON(consts.StatusOK, utils.H{"applications": resp})
}

// Reanalyze 招聘者对一份申请按需重算匹配分析
//
// 使用申请时保存的简历文本，权重或技能要求调整后可刷新旧申请的分数。
func (h *ApplicationHandler) Reanalyze(ctx context.Context, c *app.RequestContext) {
	ctx, span := applicationTracer.Start(ctx, "ApplicationHandler.Reanalyze")
	defer span.End()

	recruiterID := c.GetString(middleware.CtxKeyUserID)
	applicationID := c.Param("id")

	application, err := h.storage.MySQL.GetApplicationByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(consts.StatusNotFound, utils.H{"error": "申请不存在"})
			return
		}
		logger.Ctx(ctx).Error().Err(err).Str("application_id", applicationID).Msg("查询申请失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "查询申请失败"})
		return
	}

	job, err := h.storage.MySQL.GetJobByID(ctx, application.JobID)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("job_id", application.JobID).Msg("查询申请所属岗位失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "查询岗位失败"})
		return
	}
	if job.RecruiterID != recruiterID {
		c.JSON(consts.StatusForbidden, utils.H{"error": "无权操作该申请"})
		return
	}
	if strings.TrimSpace(application.ResumeText) == "" {
		c.JSON(consts.StatusUnprocessableEntity, utils.H{"error": "申请未保存简历文本，无法重新分析"})
		return
	}

	jobSkills, err := models.JSONToSlice(job.SkillsJSON)
	if err != nil {
		jobSkills = []string{}
	}
	result, err := h.matcher.AnalyzeResumeAgainstJob(ctx, application.ResumeText, types.JobRequirement{
		Title:       job.Title,
		Skills:      jobSkills,
		Description: job.Details,
	})
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("application_id", applicationID).Msg("重新分析失败")
		c.JSON(consts.StatusUnprocessableEntity, utils.H{"error": "重新分析失败"})
		return
	}

	matchedJSON, err := models.SliceToJSON(result.MatchedSkills)
	if err != nil {
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "序列化分析结果失败"})
		return
	}
	missingJSON, err := models.SliceToJSON(result.MissingSkills)
	if err != nil {
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "序列化分析结果失败"})
		return
	}
	if err := h.storage.MySQL.UpdateApplicationAnalysis(ctx, applicationID, result.Score, result.Feedback, matchedJSON, missingJSON); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("application_id", applicationID).Msg("保存分析结果失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "保存分析结果失败"})
		return
	}

	if h.storage.RabbitMQ != nil {
		event := &storage.AnalyzedEvent{
			ApplicationID: applicationID,
			JobID:         job.JobID,
			CandidateID:   application.CandidateID,
			Score:         result.Score,
			Feedback:      result.Feedback,
			MatchedSkills: result.MatchedSkills,
			MissingSkills: result.MissingSkills,
			AnalyzedAt:    time.Now(),
		}
		if err := h.storage.RabbitMQ.PublishApplicationAnalyzed(ctx, event); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("application_id", applicationID).Msg("发布分析事件失败")
		}
	}

	score := result.Score
	application.CompatibilityScore = &score
	application.Feedback = result.Feedback
	application.MatchedSkillsJSON = matchedJSON
	application.MissingSkillsJSON = missingJSON
	application.Job = job
	c.JSON(consts.StatusOK, toApplicationResponse(application))
}

// UpdateStatusRequest 申请状态更新请求体
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus 招聘者更新申请状态，只能操作自己岗位下的申请
func (h *ApplicationHandler) UpdateStatus(ctx context.Context, c *app.RequestContext) {
	recruiterID := c.GetString(middleware.CtxKeyUserID)
	applicationID := c.Param("id")

	var req UpdateStatusRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "请求体格式错误"})
		return
	}
	if !constants.ValidApplicationStatus(req.Status) {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "无效的申请状态"})
		return
	}

	application, err := h.storage.MySQL.GetApplicationByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(consts.StatusNotFound, utils.H{"error": "申请不存在"})
			return
		}
		logger.Ctx(ctx).Error().Err(err).Str("application_id", applicationID).Msg("查询申请失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "查询申请失败"})
		return
	}

	job, err := h.storage.MySQL.GetJobByID(ctx, application.JobID)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("job_id", application.JobID).Msg("查询申请所属岗位失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "查询岗位失败"})
		return
	}
	if job.RecruiterID != recruiterID {
		c.JSON(consts.StatusForbidden, utils.H{"error": "无权操作该申请"})
		return
	}

	if err := h.storage.MySQL.UpdateApplicationStatus(ctx, applicationID, req.Status); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("application_id", applicationID).Msg("更新申请状态失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "更新申请状态失败"})
		return
	}

	logger.Ctx(ctx).Info().
		Str("application_id", applicationID).
		Str("status", req.Status).
		Msg("申请状态已更新")
	c.JSON(consts.StatusOK, utils.H{"application_id": applicationID, "status": req.Status})
}
