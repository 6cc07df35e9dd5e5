package handler

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"job-board-go/internal/api/middleware"
	"job-board-go/internal/config"
	"job-board-go/internal/constants"
	"job-board-go/internal/logger"
	"job-board-go/internal/parser"
	"job-board-go/internal/storage"
	"job-board-go/internal/storage/models"
	"job-board-go/internal/tracing"
	"job-board-go/internal/types"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/gofrs/uuid/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var resumeTracer = otel.Tracer("job-board-go/api/resume")

// 上传大小上限，超过直接拒绝
const maxResumeFileSize = 10 << 20 // 10MB

// ResumeHandler 简历上传与画像提取的处理器
type ResumeHandler struct {
	cfg          *config.Config
	storage      *storage.Storage
	pdfExtractor parser.PDFExtractor
	extractor    *parser.ResumeExtractor
}

// NewResumeHandler 创建简历处理器
func NewResumeHandler(cfg *config.Config, storage *storage.Storage, pdfExtractor parser.PDFExtractor, extractor *parser.ResumeExtractor) *ResumeHandler {
	return &ResumeHandler{
		cfg:          cfg,
		storage:      storage,
		pdfExtractor: pdfExtractor,
		extractor:    extractor,
	}
}

// ResumeUploadResponse 简历上传响应
type ResumeUploadResponse struct {
	UploadUUID string               `json:"upload_uuid"`
	Status     string               `json:"status"`
	Profile    *types.ResumeProfile `json:"profile,omitempty"`
}

// Upload 接收简历文件，提取文本和画像并写回用户记录
// 支持 .pdf（经PDF解析器提取文本）和 .txt（原样作为文本）
func (h *ResumeHandler) Upload(ctx context.Context, c *app.RequestContext) {
	ctx, span := resumeTracer.Start(ctx, "ResumeHandler.Upload")
	defer span.End()

	userID := c.GetString(middleware.CtxKeyUserID)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "文件未找到"})
		return
	}
	if fileHeader.Size > maxResumeFileSize {
		c.JSON(consts.StatusRequestEntityTooLarge, utils.H{"error": "文件超过大小限制"})
		return
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if ext != ".pdf" && ext != ".txt" {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "仅支持 .pdf 或 .txt 格式的简历"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "打开文件失败"})
		return
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "读取文件失败"})
		return
	}

	// 原始文件MD5去重，避免重复处理同一份文件
	sum := md5.Sum(fileBytes)
	rawMD5 := hex.EncodeToString(sum[:])
	dup, err := h.storage.Redis.CheckAndAddRawFileMD5(ctx, rawMD5)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("md5", rawMD5).Msg("文件MD5去重检查失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "文件校验失败"})
		return
	}
	if dup {
		logger.Ctx(ctx).Info().Str("md5", rawMD5).Str("filename", fileHeader.Filename).Msg("检测到重复的文件MD5，跳过处理")
		c.JSON(consts.StatusOK, ResumeUploadResponse{Status: "DUPLICATE_FILE_SKIPPED"})
		return
	}

	uuidV7, err := uuid.NewV7()
	if err != nil {
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "生成上传ID失败"})
		return
	}
	uploadUUID := uuidV7.String()

	// 记录上传审计行
	upload := &models.ResumeUpload{
		UploadUUID:       uploadUUID,
		UserID:           userID,
		OriginalFilename: fileHeader.Filename,
		RawFileMD5:       rawMD5,
		ProcessingStatus: constants.UploadStatusReceived,
		ExtractorVersion: h.cfg.ActiveExtractorVersion,
	}
	if err := h.storage.MySQL.CreateResumeUpload(ctx, upload); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("upload_uuid", uploadUUID).Msg("创建上传记录失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "创建上传记录失败"})
		return
	}

	// 原始文件入对象存储
	objectKey, storedMD5, err := h.storage.MinIO.UploadResumeFileStreaming(ctx, uploadUUID, ext, bytes.NewReader(fileBytes), int64(len(fileBytes)))
	if err != nil {
		h.failUpload(ctx, uploadUUID, rawMD5)
		logger.Ctx(ctx).Error().Err(err).Str("upload_uuid", uploadUUID).Msg("上传简历到MinIO失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "存储简历文件失败"})
		return
	}
	if storedMD5 != rawMD5 {
		logger.Ctx(ctx).Warn().Str("expected", rawMD5).Str("stored", storedMD5).Msg("上传流MD5与预计算值不一致")
	}

	// 提取纯文本
	var text string
	if ext == ".txt" {
		text = string(fileBytes)
	} else {
		text, _, err = h.pdfExtractor.ExtractTextFromBytes(ctx, fileBytes, objectKey, nil)
		if err != nil {
			h.failUpload(ctx, uploadUUID, rawMD5)
			tracing.RecordError(span, err, tracing.ErrorTypeExternal)
			logger.Ctx(ctx).Error().Err(err).Str("upload_uuid", uploadUUID).Msg("PDF文本提取失败")
			c.JSON(consts.StatusUnprocessableEntity, utils.H{"error": "无法从文件中提取文本"})
			return
		}
	}

	span.SetAttributes(
		attribute.Int("resume.text_length", len(text)),
		attribute.String("resume.preview", tracing.SafeResumeContent(text)),
	)

	// 记录解析文本MD5，重复文本只记日志不阻断流程
	textSum := md5.Sum([]byte(text))
	textMD5 := hex.EncodeToString(textSum[:])
	if textDup, err := h.storage.Redis.CheckAndAddParsedTextMD5(ctx, textMD5); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("upload_uuid", uploadUUID).Msg("文本MD5去重检查失败，继续处理")
	} else if textDup {
		logger.Ctx(ctx).Info().Str("text_md5", textMD5).Str("upload_uuid", uploadUUID).Msg("检测到重复的文本内容")
	}

	parsedKey, err := h.storage.MinIO.UploadParsedText(ctx, uploadUUID, text)
	if err != nil {
		h.failUpload(ctx, uploadUUID, rawMD5)
		logger.Ctx(ctx).Error().Err(err).Str("upload_uuid", uploadUUID).Msg("上传解析文本到MinIO失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "存储解析文本失败"})
		return
	}

	if err := h.storage.MySQL.UpdateResumeUploadFields(ctx, uploadUUID, map[string]interface{}{
		"original_file_key": objectKey,
		"parsed_text_key":   parsedKey,
		"parsed_text_md5":   textMD5,
		"processing_status": constants.UploadStatusParsed,
	}); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("upload_uuid", uploadUUID).Msg("更新上传记录失败")
	}

	// 画像提取
	profile, err := h.extractor.ExtractResumeDetails(ctx, text)
	if err != nil {
		h.failUpload(ctx, uploadUUID, rawMD5)
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		logger.Ctx(ctx).Error().Err(err).Str("upload_uuid", uploadUUID).Msg("简历画像提取失败")
		c.JSON(consts.StatusUnprocessableEntity, utils.H{"error": "简历画像提取失败"})
		return
	}

	profileJSON, err := json.Marshal(profile)
	if err != nil {
		h.failUpload(ctx, uploadUUID, rawMD5)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "序列化画像失败"})
		return
	}
	if err := h.storage.MySQL.UpdateUserResumeProfile(ctx, userID, profileJSON, objectKey); err != nil {
		h.failUpload(ctx, uploadUUID, rawMD5)
		logger.Ctx(ctx).Error().Err(err).Str("user_id", userID).Msg("保存用户画像失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "保存画像失败"})
		return
	}
	if err := h.storage.MySQL.UpdateResumeUploadStatus(ctx, uploadUUID, constants.UploadStatusExtracted); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("upload_uuid", uploadUUID).Msg("更新上传状态失败")
	}

	span.SetAttributes(attribute.String("resume.contact_email", tracing.MaskPII(profile.Contact.Email)))
	logger.Ctx(ctx).Info().
		Str("upload_uuid", uploadUUID).
		Str("user_id", userID).
		Int("skills", len(profile.Skills)).
		Int("experience", len(profile.Experience)).
		Msg("简历画像提取完成")

	c.JSON(consts.StatusOK, ResumeUploadResponse{
		UploadUUID: uploadUUID,
		Status:     constants.UploadStatusExtracted,
		Profile:    profile,
	})
}

// failUpload 标记上传失败并回滚文件MD5去重记录，允许用户重试同一文件
func (h *ResumeHandler) failUpload(ctx context.Context, uploadUUID, rawMD5 string) {
	if err := h.storage.MySQL.UpdateResumeUploadStatus(ctx, uploadUUID, constants.UploadStatusFailed); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("upload_uuid", uploadUUID).Msg("更新上传状态为失败时出错")
	}
	if err := h.storage.Redis.RemoveRawFileMD5(ctx, rawMD5); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("md5", rawMD5).Msg("回滚文件MD5记录失败")
	}
}

// Profile 返回当前用户已提取的画像
func (h *ResumeHandler) Profile(ctx context.Context, c *app.RequestContext) {
	userID := c.GetString(middleware.CtxKeyUserID)
	user, err := h.storage.MySQL.GetUserByID(ctx, userID)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("user_id", userID).Msg("查询用户失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "查询用户失败"})
		return
	}

	if len(user.ParsedProfileJSON) == 0 {
		c.JSON(consts.StatusNotFound, utils.H{"error": "尚未上传简历"})
		return
	}

	var profile types.ResumeProfile
	if err := json.Unmarshal(user.ParsedProfileJSON, &profile); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("user_id", userID).Msg("解析存储的画像失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "画像数据损坏"})
		return
	}
	c.JSON(consts.StatusOK, profile)
}
