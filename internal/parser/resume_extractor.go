package parser

import (
	"context"
	"strings"
	"unicode/utf8"

	"job-board-go/internal/logger"
	"job-board-go/internal/tracing"
	"job-board-go/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// 定义tracer
var tracer = otel.Tracer("parser")

// EntityTagger 实体识别能力的抽象接口
//
// 任何接受原始文本并返回 {word, entity_group, score} 片段列表的实现
// （本地模型、远程API）都可以替换接入。
type EntityTagger interface {
	// Tag 对全文做一次实体识别，返回打标片段
	Tag(ctx context.Context, text string) ([]types.TaggedSpan, error)
}

// 默认的已知技能词表，可通过 WithKnownSkills 替换
var defaultKnownSkills = []string{
	"javascript", "python", "java", "react", "node.js", "sql", "aws", "docker", "git", "html", "css",
	"project management", "agile", "ux design", "figma", "typescript", "mongodb", "graphql",
}

// 章节标题与终止关键词
var (
	expHeadingKeywords = []string{"experience", "work history", "employment", "professional experience"}
	eduHeadingKeywords = []string{"education", "academic", "degree"}
)

// sectionState 行扫描状态机的状态
type sectionState int

const (
	stateOutside sectionState = iota
	stateInExperience
	stateInEducation
)

// ResumeExtractor 从非结构化简历文本中提取结构化画像
//
// 无状态，单次调用内除一次实体识别外调外无副作用，可安全并发使用。
// 所有启发式规则都是尽力而为：缺失信息用哨兵值/空切片表示，
// 畸形输入不报错，只产出更稀疏的结果。
type ResumeExtractor struct {
	tagger EntityTagger

	// 已知技能词表（小写），关键词匹配白名单
	knownSkills map[string]struct{}

	// 实体置信度阈值，高于该值的片段即使不是SKILL实体也保留
	scoreThreshold float64

	// 严格模式下实体识别失败使整次提取失败；
	// 默认失败仅丢弃AI信号，继续用关键词技能
	strictTagging bool
}

// ResumeExtractorOption 定义配置选项函数
type ResumeExtractorOption func(*ResumeExtractor)

// WithKnownSkills 替换已知技能词表
func WithKnownSkills(skills []string) ResumeExtractorOption {
	return func(e *ResumeExtractor) {
		if len(skills) == 0 {
			return
		}
		m := make(map[string]struct{}, len(skills))
		for _, s := range skills {
			m[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
		}
		e.knownSkills = m
	}
}

// WithScoreThreshold 配置实体置信度阈值
func WithScoreThreshold(threshold float64) ResumeExtractorOption {
	return func(e *ResumeExtractor) {
		e.scoreThreshold = threshold
	}
}

// WithStrictTagging 配置实体识别失败时是否整体失败
func WithStrictTagging(strict bool) ResumeExtractorOption {
	return func(e *ResumeExtractor) {
		e.strictTagging = strict
	}
}

// NewResumeExtractor 创建简历提取器
//
// tagger 可以为 nil，此时跳过AI信号，只用关键词匹配提取技能。
func NewResumeExtractor(tagger EntityTagger, options ...ResumeExtractorOption) *ResumeExtractor {
	extractor := &ResumeExtractor{
		tagger:         tagger,
		scoreThreshold: 0.8,
		strictTagging:  false,
	}
	WithKnownSkills(defaultKnownSkills)(extractor)

	// 应用选项
	for _, option := range options {
		option(extractor)
	}

	return extractor
}

// ExtractResumeDetails 把原始简历文本提取为结构化画像
//
// 返回的画像总是完整成形：四个字段均非nil，提取不到的内容用
// 哨兵值或空切片填充。只有严格模式下的实体识别失败会返回错误。
func (e *ResumeExtractor) ExtractResumeDetails(ctx context.Context, resumeText string) (*types.ResumeProfile, error) {
	ctx, span := tracer.Start(ctx, "ExtractResumeDetails")
	defer span.End()
	span.SetAttributes(attribute.Int("resume.text_length", len(resumeText)))

	lines := normalizeLines(resumeText)

	profile := &types.ResumeProfile{
		Contact:    e.extractContact(resumeText, lines),
		Skills:     []string{},
		Experience: []types.ExperienceEntry{},
		Education:  []types.EducationEntry{},
	}

	// 技能：AI信号与关键词信号取并集
	aiSkills, err := e.skillsFromTagger(ctx, resumeText)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeExternal)
		if e.strictTagging {
			return nil, NewExtractionError(err.Error())
		}
		// 非严格模式：丢弃AI信号，关键词技能照常产出
		logger.Ctx(ctx).Warn().Err(err).Msg("实体识别调用失败，降级为纯关键词技能提取")
		aiSkills = nil
	}
	profile.Skills = mergeSkills(aiSkills, e.skillsFromKeywords(lines))

	profile.Experience, profile.Education = e.extractSections(lines)

	span.SetAttributes(
		attribute.Int("resume.skills_count", len(profile.Skills)),
		attribute.Int("resume.experience_count", len(profile.Experience)),
		attribute.Int("resume.education_count", len(profile.Education)),
	)
	return profile, nil
}

// extractContact 提取联系方式
//
// 邮箱/电话在原始全文上取第一个匹配；姓名只看前5个归一化行，
// 取第一个长度大于2、不含@、不含连续3位数字的行。
func (e *ResumeExtractor) extractContact(resumeText string, lines []string) types.ContactInfo {
	contact := types.ContactInfo{
		Name:  "Unknown",
		Email: "N/A",
		Phone: "N/A",
	}

	if m := emailRe.FindString(resumeText); m != "" {
		contact.Email = m
	}
	if m := phoneRe.FindString(resumeText); m != "" {
		contact.Phone = m
	}

	limit := len(lines)
	if limit > 5 {
		limit = 5
	}
	for i := 0; i < limit; i++ {
		line := lines[i]
		if utf8.RuneCountInString(line) > 2 && !strings.Contains(line, "@") && !digitRunRe.MatchString(line) {
			contact.Name = line
			break
		}
	}

	return contact
}

// skillsFromTagger AI信号：保留SKILL实体或置信度超过阈值的片段
func (e *ResumeExtractor) skillsFromTagger(ctx context.Context, resumeText string) ([]string, error) {
	if e.tagger == nil {
		return nil, nil
	}

	spans, err := e.tagger.Tag(ctx, resumeText)
	if err != nil {
		return nil, NewTaggingError(err.Error())
	}

	skills := make([]string, 0, len(spans))
	for _, s := range spans {
		if s.EntityGroup == "SKILL" || s.Score > e.scoreThreshold {
			skills = append(skills, strings.ToLower(s.Word))
		}
	}
	return skills, nil
}

// skillsFromKeywords 关键词信号：逐行小写后按逗号/分号切token，
// 保留词表内的token或长度大于2的token（后者是故意放宽的兜底）
func (e *ResumeExtractor) skillsFromKeywords(lines []string) []string {
	var skills []string
	for _, line := range lines {
		for _, token := range skillSplitRe.Split(strings.ToLower(line), -1) {
			token = strings.TrimSpace(token)
			if token == "" {
				continue
			}
			if _, ok := e.knownSkills[token]; ok || utf8.RuneCountInString(token) > 2 {
				skills = append(skills, token)
			}
		}
	}
	return skills
}

// mergeSkills 合并两路技能信号，去重并保持首次出现顺序
func mergeSkills(aiSkills, keywordSkills []string) []string {
	merged := make([]string, 0, len(aiSkills)+len(keywordSkills))
	seen := make(map[string]struct{}, len(aiSkills)+len(keywordSkills))
	for _, s := range aiSkills {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			merged = append(merged, s)
		}
	}
	for _, s := range keywordSkills {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			merged = append(merged, s)
		}
	}
	return merged
}

// extractSections 单趟状态机扫描工作经历与教育经历
//
// 状态 {Outside, InExperience, InEducation}，标题行触发进入，
// 标题行与终止行本身均被消费不作为内容；首个匹配生效，
// 下一个标题结束当前章节。文档结尾会补齐未关闭的经历条目。
func (e *ResumeExtractor) extractSections(lines []string) ([]types.ExperienceEntry, []types.EducationEntry) {
	experience := []types.ExperienceEntry{}
	education := []types.EducationEntry{}

	state := stateOutside
	var currentExp *types.ExperienceEntry

	flushExp := func() {
		if currentExp != nil {
			experience = append(experience, *currentExp)
			currentExp = nil
		}
	}

	for _, line := range lines {
		lower := strings.ToLower(line)

		// 章节标题转移
		if containsAny(lower, expHeadingKeywords) {
			flushExp()
			state = stateInExperience
			continue
		}
		if containsAny(lower, eduHeadingKeywords) {
			flushExp()
			state = stateInEducation
			continue
		}

		switch state {
		case stateInExperience:
			if strings.Contains(lower, "skills") {
				flushExp()
				state = stateOutside
				continue
			}
			// 年份区间开启一条新经历，下一行补职位/公司
			if m := yearRangeRe.FindString(line); m != "" {
				flushExp()
				currentExp = &types.ExperienceEntry{Years: m}
			} else if currentExp != nil && currentExp.Title == "" {
				parts := titleSplitRe.Split(line, -1)
				currentExp.Title = strings.TrimSpace(parts[0])
				if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
					currentExp.Company = strings.TrimSpace(parts[1])
				} else {
					currentExp.Company = "Unknown"
				}
			}

		case stateInEducation:
			if strings.Contains(lower, "skills") {
				state = stateOutside
				continue
			}
			degreeHit := degreeRe.MatchString(line)
			yearHit := bareYearRe.FindString(line)
			if degreeHit || yearHit != "" {
				parts := eduSplitRe.Split(line, -1)
				entry := types.EducationEntry{
					Degree: strings.TrimSpace(parts[0]),
					School: "Unknown",
					Year:   "N/A",
				}
				if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
					entry.School = strings.TrimSpace(parts[1])
				}
				if yearHit != "" {
					entry.Year = yearHit
				}
				education = append(education, entry)
			}
		}
	}
	flushExp()

	return experience, education
}
