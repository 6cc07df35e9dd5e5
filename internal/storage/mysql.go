package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"job-board-go/internal/config"
	"job-board-go/internal/constants"
	"job-board-go/internal/storage/models"
	"job-board-go/internal/tracing"

	"github.com/gofrs/uuid/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var mysqlTracer = otel.Tracer("job-board-go/storage/mysql")

// GormTracingPlugin 是一个GORM插件，用于向OpenTelemetry中添加数据库操作的追踪点
type GormTracingPlugin struct {
	tracer         trace.Tracer
	dbName         string
	dbSystem       string
	disableErrSkip bool
}

// Name 返回插件名称
func (p *GormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

// Initialize 注册GORM回调以启用追踪
func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	// 为各种操作类型注册回调
	cb := db.Callback()

	// 为所有CRUD操作注册Before和After回调
	if err := cb.Create().Before("gorm:create").Register("otel:before_create", p.before("CREATE")); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("otel:after_create", p.after()); err != nil {
		return err
	}

	if err := cb.Query().Before("gorm:query").Register("otel:before_query", p.before("SELECT")); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("otel:after_query", p.after()); err != nil {
		return err
	}

	if err := cb.Update().Before("gorm:update").Register("otel:before_update", p.before("UPDATE")); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("otel:after_update", p.after()); err != nil {
		return err
	}

	if err := cb.Delete().Before("gorm:delete").Register("otel:before_delete", p.before("DELETE")); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("otel:after_delete", p.after()); err != nil {
		return err
	}

	if err := cb.Row().Before("gorm:row").Register("otel:before_row", p.before("ROW")); err != nil {
		return err
	}
	if err := cb.Row().After("gorm:row").Register("otel:after_row", p.after()); err != nil {
		return err
	}

	if err := cb.Raw().Before("gorm:raw").Register("otel:before_raw", p.before("RAW")); err != nil {
		return err
	}
	if err := cb.Raw().After("gorm:raw").Register("otel:after_raw", p.after()); err != nil {
		return err
	}

	return nil
}

// before 返回在GORM操作之前执行的回调函数
func (p *GormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		// 如果是错误跳过且DisableErrSkip为true，则跳过追踪
		if p.disableErrSkip && db.Statement.SkipHooks {
			return
		}

		// 从DB获取上下文
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		// 获取操作表名，如果为空则使用"unknown"
		tableName := db.Statement.Table
		if tableName == "" {
			tableName = "unknown"
		}

		// 创建一个新的span
		spanName := fmt.Sprintf("%s %s", operation, tableName)
		opts := []trace.SpanStartOption{
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemMySQL,
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", tableName),
			),
		}

		// 获取SQL语句（如果有）
		sqlStatement := db.Statement.SQL.String()
		if sqlStatement != "" {
			opts = append(opts, trace.WithAttributes(
				attribute.String("db.statement", tracing.SafeSQL(sqlStatement)),
			))
		}

		newCtx, span := p.tracer.Start(ctx, spanName, opts...)

		// 将span保存在DB上下文中，以便在after回调中使用
		db.Statement.Context = context.WithValue(newCtx, "otel-span", span)
	}
}

// after 返回在GORM操作之后执行的回调函数
func (p *GormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		// 从DB上下文中获取span
		span, ok := db.Statement.Context.Value("otel-span").(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		// 添加额外的属性
		if db.Statement.RowsAffected > 0 {
			span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
		} else {
			span.SetAttributes(attribute.Int64("db.rows_affected", 0))
		}

		// 记录错误（如果有），但正确处理ErrRecordNotFound
		if db.Error != nil {
			if db.Error == gorm.ErrRecordNotFound {
				// ErrRecordNotFound 是业务逻辑正常情况的一部分，不应作为错误处理
				span.SetAttributes(attribute.String("error.type", "record_not_found"))
				span.SetStatus(codes.Ok, "record not found")
			} else {
				// 真正的错误情况
				span.SetAttributes(attribute.String("error.type", "database_error"))
				span.SetAttributes(attribute.String("error.message", db.Error.Error()))
				span.RecordError(db.Error)
				span.SetStatus(codes.Error, db.Error.Error())
			}
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}

// NewGormTracingPlugin 创建一个新的GORM追踪插件
func NewGormTracingPlugin(dbName string) *GormTracingPlugin {
	return &GormTracingPlugin{
		tracer:         mysqlTracer,
		dbName:         dbName,
		dbSystem:       "mysql",
		disableErrSkip: true, // 默认禁用错误跳过，减少误报错误
	}
}

// WithDisableErrSkip 设置是否禁用错误跳过
func (p *GormTracingPlugin) WithDisableErrSkip(disable bool) *GormTracingPlugin {
	p.disableErrSkip = disable
	return p
}

// MySQL 提供关系数据库功能
type MySQL struct {
	db  *gorm.DB
	cfg *config.MySQLConfig
}

// NewMySQL 创建MySQL客户端
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	// 构建DSN，添加超时设置
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%ds&readTimeout=%ds&writeTimeout=%ds",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		cfg.ConnectTimeoutSeconds, cfg.ReadTimeoutSeconds, cfg.WriteTimeoutSeconds)

	// 配置GORM日志级别
	var logLevel logger.LogLevel
	switch cfg.LogLevel {
	case 1:
		logLevel = logger.Silent
	case 2:
		logLevel = logger.Error
	case 3:
		logLevel = logger.Warn
	case 4:
		logLevel = logger.Info
	default:
		logLevel = logger.Info // 默认Info级别
	}

	// GORM配置增强
	gormConfig := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,                             // 禁用自动外键创建
		Logger:                                   logger.Default.LogMode(logLevel), // 设置日志级别
		PrepareStmt:                              true,                             // 开启预编译语句缓存
		NowFunc: func() time.Time {
			return time.Now().Local() // 使用本地时间作为默认时间
		},
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	// 设置连接池参数
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)                                           // 最大空闲连接数
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)                                           // 最大打开连接数
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute) // 连接最大生命周期
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute) // 空闲连接最大生命周期

	m := &MySQL{
		db:  db,
		cfg: cfg,
	}

	// 注册OpenTelemetry追踪插件
	tracingPlugin := NewGormTracingPlugin(cfg.Database).WithDisableErrSkip(true)
	if err := db.Use(tracingPlugin); err != nil {
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}

	// 使用 GORM 的 AutoMigrate 功能自动迁移表结构
	if err := m.autoMigrateSchema(); err != nil {
		sqlDB, _ := db.DB() // 尝试获取底层 *sql.DB 以关闭
		if sqlDB != nil {
			sqlDB.Close()
		}
		return nil, fmt.Errorf("自动迁移数据库结构失败: %w", err)
	}

	log.Println("成功连接到MySQL并自动迁移数据库结构")
	return m, nil
}

// autoMigrateSchema 使用GORM自动迁移数据库表结构
func (m *MySQL) autoMigrateSchema() error {
	// 保存当前的日志级别
	currentLogger := m.db.Logger

	// 创建一个静默的logger以关闭SQL日志打印
	silentLogger := logger.New(
		log.New(log.Writer(), "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Silent, // 设置为Silent级别，关闭所有SQL日志
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	// 创建一个使用静默日志记录器的DB会话
	silentDB := m.db.Session(&gorm.Session{Logger: silentLogger})

	// 列出所有需要迁移的模型
	err := silentDB.AutoMigrate(
		&models.User{},
		&models.Job{},
		&models.Application{},
		&models.ResumeUpload{},
		&models.AnalysisRecord{},
	)

	// 恢复原来的日志记录器
	m.db = m.db.Session(&gorm.Session{Logger: currentLogger})

	if err != nil {
		return fmt.Errorf("GORM自动迁移失败: %w", err)
	}
	log.Println("GORM数据库结构迁移成功")
	return nil
}

// DB 返回GORM数据库连接实例
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 关闭数据库连接
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return sqlDB.Close()
}

// CreateUser 创建用户，UserID 为空时生成 UUIDv7
func (m *MySQL) CreateUser(ctx context.Context, user *models.User) error {
	if user.UserID == "" {
		newUUID, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("生成UUIDv7失败: %w", err)
		}
		user.UserID = newUUID.String()
	}
	return m.db.WithContext(ctx).Create(user).Error
}

// FindUserByLogin 通过用户名或邮箱查找用户，用于登录
func (m *MySQL) FindUserByLogin(ctx context.Context, login string) (*models.User, error) {
	ctx, span := mysqlTracer.Start(ctx, "FindUserByLogin")
	defer span.End()

	if login == "" {
		err := fmt.Errorf("用户名或邮箱不能为空")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var user models.User
	err := m.db.WithContext(ctx).Where("username = ?", login).Or("email = ?", login).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetAttributes(attribute.Bool("user.found", false))
			return nil, err
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to query user")
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}

	span.SetAttributes(attribute.Bool("user.found", true), attribute.String("user.id", user.UserID))
	return &user, nil
}

// GetUserByID 通过 UserID 获取用户
func (m *MySQL) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := m.db.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUserResumeProfile 把最新提取的画像和简历对象键写回用户记录
func (m *MySQL) UpdateUserResumeProfile(ctx context.Context, userID string, profileJSON []byte, objectKey string) error {
	updates := map[string]interface{}{
		"parsed_profile_json": models.StringToJSON(string(profileJSON)),
		"resume_object_key":   objectKey,
	}
	return m.db.WithContext(ctx).Model(&models.User{}).Where("user_id = ?", userID).Updates(updates).Error
}

// CreateJob 创建岗位，JobID 为空时生成 UUIDv7
func (m *MySQL) CreateJob(ctx context.Context, job *models.Job) error {
	if job.JobID == "" {
		newUUID, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("生成UUIDv7失败: %w", err)
		}
		job.JobID = newUUID.String()
	}
	return m.db.WithContext(ctx).Create(job).Error
}

// UpdateJob 更新岗位记录
func (m *MySQL) UpdateJob(ctx context.Context, job *models.Job) error {
	return m.db.WithContext(ctx).Save(job).Error // Save 会基于主键更新或创建
}

// GetJobByID 通过 JobID 获取 Job 记录
func (m *MySQL) GetJobByID(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	if err := m.db.WithContext(ctx).Where("job_id = ?", jobID).First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// ListOpenJobs 列出所有未关闭的岗位
func (m *MySQL) ListOpenJobs(ctx context.Context) ([]models.Job, error) {
	var jobs []models.Job
	if err := m.db.WithContext(ctx).Where("is_closed = ?", false).Order("created_at DESC").Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// ListJobsByRecruiter 列出某招聘者发布的全部岗位
func (m *MySQL) ListJobsByRecruiter(ctx context.Context, recruiterID string) ([]models.Job, error) {
	var jobs []models.Job
	if err := m.db.WithContext(ctx).Where("recruiter_id = ?", recruiterID).Order("created_at DESC").Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// CloseJob 关闭岗位，校验归属
func (m *MySQL) CloseJob(ctx context.Context, jobID, recruiterID string) error {
	result := m.db.WithContext(ctx).Model(&models.Job{}).
		Where("job_id = ? AND recruiter_id = ?", jobID, recruiterID).
		Update("is_closed", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CreateApplication 创建申请记录，ApplicationID 为空时生成 UUIDv7
func (m *MySQL) CreateApplication(ctx context.Context, app *models.Application) error {
	if app.ApplicationID == "" {
		newUUID, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("生成UUIDv7失败: %w", err)
		}
		app.ApplicationID = newUUID.String()
	}
	return m.db.WithContext(ctx).Create(app).Error
}

// GetApplicationByID 通过 ApplicationID 获取申请
func (m *MySQL) GetApplicationByID(ctx context.Context, applicationID string) (*models.Application, error) {
	var app models.Application
	if err := m.db.WithContext(ctx).Where("application_id = ?", applicationID).First(&app).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

// HasApplied 判断候选人是否已投递过该岗位
func (m *MySQL) HasApplied(ctx context.Context, candidateID, jobID string) (bool, error) {
	var count int64
	err := m.db.WithContext(ctx).Model(&models.Application{}).
		Where("candidate_id = ? AND job_id = ?", candidateID, jobID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListApplicationsByCandidate 列出候选人自己的全部申请
func (m *MySQL) ListApplicationsByCandidate(ctx context.Context, candidateID string) ([]models.Application, error) {
	var apps []models.Application
	err := m.db.WithContext(ctx).
		Preload("Job").
		Where("candidate_id = ?", candidateID).
		Order("created_at DESC").
		Find(&apps).Error
	if err != nil {
		return nil, err
	}
	return apps, nil
}

// ListApplicationsForRecruiter 列出招聘者名下岗位收到的申请
// 已淘汰的申请 (Not Selected) 不出现在招聘者视图中
func (m *MySQL) ListApplicationsForRecruiter(ctx context.Context, recruiterID string) ([]models.Application, error) {
	var apps []models.Application
	err := m.db.WithContext(ctx).
		Preload("Job").
		Joins("JOIN jobs ON jobs.job_id = applications.job_id").
		Where("jobs.recruiter_id = ? AND applications.status <> ?", recruiterID, constants.ApplicationStatusNotSelected).
		Order("applications.created_at DESC").
		Find(&apps).Error
	if err != nil {
		return nil, err
	}
	return apps, nil
}

// UpdateApplicationAnalysis 覆盖申请上存储的分析快照
func (m *MySQL) UpdateApplicationAnalysis(ctx context.Context, applicationID string, score float64, feedback string, matchedJSON, missingJSON datatypes.JSON) error {
	return m.db.WithContext(ctx).Model(&models.Application{}).
		Where("application_id = ?", applicationID).
		Updates(map[string]interface{}{
			"compatibility_score": score,
			"feedback":            feedback,
			"matched_skills_json": matchedJSON,
			"missing_skills_json": missingJSON,
		}).Error
}

// UpdateApplicationStatus 更新申请状态
func (m *MySQL) UpdateApplicationStatus(ctx context.Context, applicationID, status string) error {
	return m.db.WithContext(ctx).Model(&models.Application{}).
		Where("application_id = ?", applicationID).
		Update("status", status).Error
}

// CreateResumeUpload 创建简历上传审计记录
func (m *MySQL) CreateResumeUpload(ctx context.Context, upload *models.ResumeUpload) error {
	if upload.UploadUUID == "" {
		newUUID, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("生成UUIDv7失败: %w", err)
		}
		upload.UploadUUID = newUUID.String()
	}
	return m.db.WithContext(ctx).Create(upload).Error
}

// UpdateResumeUploadStatus 更新简历上传处理状态
func (m *MySQL) UpdateResumeUploadStatus(ctx context.Context, uploadUUID string, status string) error {
	return m.db.WithContext(ctx).Model(&models.ResumeUpload{}).
		Where("upload_uuid = ?", uploadUUID).
		Update("processing_status", status).Error
}

// UpdateResumeUploadFields 更新 ResumeUpload 表的多个字段
func (m *MySQL) UpdateResumeUploadFields(ctx context.Context, uploadUUID string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return m.db.WithContext(ctx).Model(&models.ResumeUpload{}).
		Where("upload_uuid = ?", uploadUUID).
		Updates(updates).Error
}

// CreateAnalysisRecord 写入分析快照，由消费者调用
func (m *MySQL) CreateAnalysisRecord(ctx context.Context, record *models.AnalysisRecord) error {
	return m.db.WithContext(ctx).Create(record).Error
}
