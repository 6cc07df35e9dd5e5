package constants

const (
	// Application-level constants
	DefaultExtractorVer = "1.0" // Placeholder for actual Tika/NER model versions

	// 用户角色
	UserTypeCandidate = "candidate"
	UserTypeRecruiter = "recruiter"

	// 申请状态流转：Applied -> Under Review -> Selected / Not Selected
	ApplicationStatusApplied     = "Applied"
	ApplicationStatusUnderReview = "Under Review"
	ApplicationStatusSelected    = "Selected"
	ApplicationStatusNotSelected = "Not Selected"

	// 简历上传处理状态
	UploadStatusReceived  = "UPLOAD_RECEIVED"
	UploadStatusParsed    = "TEXT_PARSED"
	UploadStatusExtracted = "PROFILE_EXTRACTED"
	UploadStatusFailed    = "PROCESSING_FAILED"
)

// ValidApplicationStatus 判断是否为合法的申请状态
func ValidApplicationStatus(s string) bool {
	switch s {
	case ApplicationStatusApplied, ApplicationStatusUnderReview,
		ApplicationStatusSelected, ApplicationStatusNotSelected:
		return true
	}
	return false
}
