package types

// ContactInfo 简历中提取出的联系方式
type ContactInfo struct {
	Name  string `json:"name"`  // 候选人姓名，未识别时为 "Unknown"
	Email string `json:"email"` // 邮箱，未识别时为 "N/A"
	Phone string `json:"phone"` // 电话，未识别时为 "N/A"
}

// ExperienceEntry 一条工作经历
type ExperienceEntry struct {
	Title   string `json:"title"`   // 职位名称
	Company string `json:"company"` // 公司名称，无法拆分时为 "Unknown"
	Years   string `json:"years"`   // 时间区间原文，如 "2019-2022" 或 "2019-present"
}

// EducationEntry 一条教育经历
type EducationEntry struct {
	Degree string `json:"degree"` // 学位或原始行文本
	School string `json:"school"` // 院校，未识别时为 "Unknown"
	Year   string `json:"year"`   // 年份，未识别时为 "N/A"
}

// ResumeProfile 简历结构化提取结果
//
// 四个字段始终为非 nil，提取不到内容时为空切片或哨兵值，
// 保证 JSON 序列化后形状稳定。
type ResumeProfile struct {
	Contact    ContactInfo       `json:"contact"`
	Skills     []string          `json:"skills"`
	Experience []ExperienceEntry `json:"experience"`
	Education  []EducationEntry  `json:"education"`
}

// JobRequirement 岗位匹配输入
type JobRequirement struct {
	Title       string   `json:"title"`
	Skills      []string `json:"skills"`
	Description string   `json:"description"`
}

// AnalysisResult 简历与岗位的匹配结果
type AnalysisResult struct {
	// 匹配分数 (0-100)
	Score float64 `json:"score"`

	// 命中的岗位技能
	MatchedSkills []string `json:"matchedSkills"`

	// 缺失的岗位技能
	MissingSkills []string `json:"missingSkills"`

	// 面向候选人的一句话反馈
	Feedback string `json:"feedback"`
}

// TaggedSpan 实体识别服务返回的单个片段
type TaggedSpan struct {
	Word        string  `json:"word"`
	EntityGroup string  `json:"entity_group"`
	Score       float64 `json:"score"`
}
