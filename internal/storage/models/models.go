package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// User 用户主表，候选人和招聘者共用一张表，用 UserType 区分
type User struct {
	UserID       string `gorm:"type:char(36);primaryKey"`
	Username     string `gorm:"type:varchar(255);not null;uniqueIndex:idx_users_username_unique"`
	Email        string `gorm:"type:varchar(255);not null;uniqueIndex:idx_users_email_unique"`
	PasswordHash string `gorm:"type:varchar(255);not null"`
	UserType     string `gorm:"type:varchar(20);not null;index:idx_users_user_type"` // candidate / recruiter
	Company      string `gorm:"type:varchar(255)"`                                   // 仅招聘者
	// 最近一次简历提取出的结构化画像 (types.ResumeProfile 的JSON)
	ParsedProfileJSON datatypes.JSON `gorm:"type:json"`
	// 最近上传的原始简历对象键
	ResumeObjectKey string    `gorm:"type:varchar(1024)"`
	CreatedAt       time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt       time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}

// Job 岗位信息表
type Job struct {
	JobID       string         `gorm:"type:char(36);primaryKey"`
	Title       string         `gorm:"type:varchar(255);not null"`
	Details     string         `gorm:"type:text;not null"`
	SkillsJSON  datatypes.JSON `gorm:"type:json"` // 岗位要求技能 ([]string 的JSON)
	RecruiterID string         `gorm:"type:char(36);not null;index:idx_jobs_recruiter_id"`
	IsClosed    bool           `gorm:"default:false;index:idx_jobs_is_closed"`
	CreatedAt   time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt   time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	Recruiter *User `gorm:"foreignKey:RecruiterID;references:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (Job) TableName() string {
	return "jobs"
}

// Application 投递申请表，落库时带上当次分析的分数与反馈快照
type Application struct {
	ApplicationID string `gorm:"type:char(36);primaryKey"`
	CandidateID   string `gorm:"type:char(36);not null;index:idx_applications_candidate_id;uniqueIndex:idx_applications_candidate_job_unique,priority:1"`
	JobID         string `gorm:"type:char(36);not null;index:idx_applications_job_id;uniqueIndex:idx_applications_candidate_job_unique,priority:2"`
	ResumeText    string `gorm:"type:mediumtext"`
	CoverLetter   string `gorm:"type:text"`
	// Applied / Under Review / Selected / Not Selected
	Status             string         `gorm:"type:varchar(50);default:'Applied';index:idx_applications_status"`
	CompatibilityScore *float64       `gorm:"type:float"`
	Feedback           string         `gorm:"type:text"`
	MatchedSkillsJSON  datatypes.JSON `gorm:"type:json"`
	MissingSkillsJSON  datatypes.JSON `gorm:"type:json"`
	CreatedAt          time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt          time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	Candidate *User `gorm:"foreignKey:CandidateID;references:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Job       *Job  `gorm:"foreignKey:JobID;references:JobID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (Application) TableName() string {
	return "applications"
}

// ResumeUpload 简历上传审计表，记录一次上传从收件到画像提取的生命周期
type ResumeUpload struct {
	UploadUUID       string `gorm:"type:char(36);primaryKey"`
	UserID           string `gorm:"type:char(36);not null;index:idx_resume_uploads_user_id"`
	OriginalFilename string `gorm:"type:varchar(255)"`
	OriginalFileKey  string `gorm:"type:varchar(1024)"`
	ParsedTextKey    string `gorm:"type:varchar(1024)"`
	RawFileMD5       string `gorm:"type:char(32);index:idx_resume_uploads_raw_file_md5"`
	ParsedTextMD5    string `gorm:"type:char(32)"`
	// UPLOAD_RECEIVED / TEXT_PARSED / PROFILE_EXTRACTED / PROCESSING_FAILED
	ProcessingStatus string    `gorm:"type:varchar(50);default:'UPLOAD_RECEIVED';index:idx_resume_uploads_processing_status"`
	ExtractorVersion string    `gorm:"type:varchar(50)"`
	CreatedAt        time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt        time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	User *User `gorm:"foreignKey:UserID;references:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (ResumeUpload) TableName() string {
	return "resume_uploads"
}

// AnalysisRecord 分析快照表，由消费者在请求路径之外异步落库
type AnalysisRecord struct {
	RecordID          uint64         `gorm:"primaryKey;autoIncrement"`
	ApplicationID     string         `gorm:"type:char(36);not null;index:idx_analysis_records_application_id"`
	JobID             string         `gorm:"type:char(36);not null;index:idx_analysis_records_job_id"`
	CandidateID       string         `gorm:"type:char(36);not null"`
	Score             float64        `gorm:"type:float;not null"`
	Feedback          string         `gorm:"type:text"`
	MatchedSkillsJSON datatypes.JSON `gorm:"type:json"`
	MissingSkillsJSON datatypes.JSON `gorm:"type:json"`
	AnalyzedAt        time.Time      `gorm:"type:datetime(6);not null"`
	CreatedAt         time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
}

func (AnalysisRecord) TableName() string {
	return "analysis_records"
}

// StringToJSON Helper function to convert string to datatypes.JSON
func StringToJSON(s string) datatypes.JSON {
	return datatypes.JSON(s)
}

// SliceToJSON Helper function to convert a string slice to datatypes.JSON
func SliceToJSON(values []string) (datatypes.JSON, error) {
	if values == nil {
		values = []string{}
	}
	bytes, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return bytes, nil
}

// JSONToSlice Helper function to decode datatypes.JSON into a string slice
func JSONToSlice(data datatypes.JSON) ([]string, error) {
	if len(data) == 0 {
		return []string{}, nil
	}
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, err
	}
	return values, nil
}
