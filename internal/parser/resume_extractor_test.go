package parser

import (
	"context"
	"errors"
	"strings"
	"testing"

	"job-board-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 测试用实体识别模拟器
type mockEntityTagger struct {
	// 模拟响应片段
	spans []types.TaggedSpan
	// 用于测试的错误
	Err error
	// 用于测试的调用次数
	CallCount int
}

// Tag 实现EntityTagger接口
func (m *mockEntityTagger) Tag(ctx context.Context, text string) ([]types.TaggedSpan, error) {
	m.CallCount++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.spans, nil
}

const sampleResume = `John Smith
john@example.com
(555) 123-4567

Professional Experience
2019 - 2022
Senior Engineer at Acme Corp
Built internal tooling
2022 - present
Staff Engineer, Globex

Education
B.S. Computer Science, State University - 2018

Skills
go; docker, sql`

// TestExtractContact 测试联系方式提取
func TestExtractContact(t *testing.T) {
	extractor := NewResumeExtractor(&mockEntityTagger{})

	profile, err := extractor.ExtractResumeDetails(context.Background(), sampleResume)
	require.NoError(t, err)
	require.NotNil(t, profile)

	assert.Equal(t, "John Smith", profile.Contact.Name)
	assert.Equal(t, "john@example.com", profile.Contact.Email)
	assert.Equal(t, "(555) 123-4567", profile.Contact.Phone)
}

// TestExtractContactSentinels 测试无可提取信息时的哨兵值
func TestExtractContactSentinels(t *testing.T) {
	extractor := NewResumeExtractor(&mockEntityTagger{})

	// 前5行均不满足姓名条件：过短、含@、含连续数字
	profile, err := extractor.ExtractResumeDetails(context.Background(), "Hi\nok\n@@@\n007 agent file")
	require.NoError(t, err)

	assert.Equal(t, "Unknown", profile.Contact.Name)
	assert.Equal(t, "N/A", profile.Contact.Email)
	assert.Equal(t, "N/A", profile.Contact.Phone)
}

// TestExtractEmptyInput 测试空输入仍返回完整成形的画像
func TestExtractEmptyInput(t *testing.T) {
	extractor := NewResumeExtractor(&mockEntityTagger{})

	profile, err := extractor.ExtractResumeDetails(context.Background(), "")
	require.NoError(t, err)
	require.NotNil(t, profile)

	assert.Equal(t, types.ContactInfo{Name: "Unknown", Email: "N/A", Phone: "N/A"}, profile.Contact)
	assert.NotNil(t, profile.Skills)
	assert.Empty(t, profile.Skills)
	assert.NotNil(t, profile.Experience)
	assert.Empty(t, profile.Experience)
	assert.NotNil(t, profile.Education)
	assert.Empty(t, profile.Education)
}

// TestSkillsLowercaseDedup 测试技能统一小写并去重
func TestSkillsLowercaseDedup(t *testing.T) {
	tagger := &mockEntityTagger{
		spans: []types.TaggedSpan{
			{Word: "PYTHON", EntityGroup: "SKILL", Score: 0.99},
			{Word: "Docker", EntityGroup: "MISC", Score: 0.95}, // 高置信度非SKILL实体也保留
			{Word: "noise", EntityGroup: "PER", Score: 0.1},
		},
	}
	extractor := NewResumeExtractor(tagger)

	profile, err := extractor.ExtractResumeDetails(context.Background(), "Skills: Python, DOCKER, python")
	require.NoError(t, err)

	seen := make(map[string]int)
	for _, s := range profile.Skills {
		assert.Equal(t, strings.ToLower(s), s, "技能应为小写: %s", s)
		seen[s]++
	}
	assert.Equal(t, 1, seen["python"])
	assert.Equal(t, 1, seen["docker"])
	assert.NotContains(t, profile.Skills, "noise")
}

// TestTaggerFailureDegradesToKeywords 测试实体识别失败时降级为纯关键词提取
func TestTaggerFailureDegradesToKeywords(t *testing.T) {
	tagger := &mockEntityTagger{Err: errors.New("service unavailable")}
	extractor := NewResumeExtractor(tagger)

	profile, err := extractor.ExtractResumeDetails(context.Background(), "react, sql")
	require.NoError(t, err)
	require.NotNil(t, profile)

	assert.Equal(t, 1, tagger.CallCount)
	assert.Contains(t, profile.Skills, "react")
	assert.Contains(t, profile.Skills, "sql")
}

// TestTaggerFailureStrictMode 测试严格模式下实体识别失败使整次提取失败
func TestTaggerFailureStrictMode(t *testing.T) {
	tagger := &mockEntityTagger{Err: errors.New("service unavailable")}
	extractor := NewResumeExtractor(tagger, WithStrictTagging(true))

	profile, err := extractor.ExtractResumeDetails(context.Background(), "Skills: react, sql")
	require.Error(t, err)
	assert.Nil(t, profile)
	assert.True(t, errors.Is(err, ErrExtractionFailed))
}

// TestExtractDeterminism 测试固定输入与固定识别结果下提取是纯函数
func TestExtractDeterminism(t *testing.T) {
	tagger := &mockEntityTagger{
		spans: []types.TaggedSpan{{Word: "React", EntityGroup: "SKILL", Score: 0.9}},
	}
	extractor := NewResumeExtractor(tagger)

	first, err := extractor.ExtractResumeDetails(context.Background(), sampleResume)
	require.NoError(t, err)
	second, err := extractor.ExtractResumeDetails(context.Background(), sampleResume)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

// TestExtractSections 测试工作经历与教育经历的章节扫描
func TestExtractSections(t *testing.T) {
	extractor := NewResumeExtractor(&mockEntityTagger{})

	profile, err := extractor.ExtractResumeDetails(context.Background(), sampleResume)
	require.NoError(t, err)

	require.Len(t, profile.Experience, 2)
	assert.Equal(t, types.ExperienceEntry{
		Title:   "Senior Engineer",
		Company: "Acme Corp",
		Years:   "2019 - 2022",
	}, profile.Experience[0])
	assert.Equal(t, types.ExperienceEntry{
		Title:   "Staff Engineer",
		Company: "Globex",
		Years:   "2022 - present",
	}, profile.Experience[1])

	require.Len(t, profile.Education, 1)
	assert.Equal(t, types.EducationEntry{
		Degree: "B.S. Computer Science",
		School: "State University",
		Year:   "2018",
	}, profile.Education[0])
}

// TestExperienceTrailingFlush 测试经历章节延伸到文档末尾时仍补齐最后一条
func TestExperienceTrailingFlush(t *testing.T) {
	extractor := NewResumeExtractor(&mockEntityTagger{})

	text := "Work History\n2020 - 2021\nDeveloper at Initech"
	profile, err := extractor.ExtractResumeDetails(context.Background(), text)
	require.NoError(t, err)

	require.Len(t, profile.Experience, 1)
	assert.Equal(t, "Developer", profile.Experience[0].Title)
	assert.Equal(t, "Initech", profile.Experience[0].Company)
	assert.Equal(t, "2020 - 2021", profile.Experience[0].Years)
}

// TestExperienceCompanyFallback 测试职位行无法拆分出公司时的兜底值
func TestExperienceCompanyFallback(t *testing.T) {
	extractor := NewResumeExtractor(&mockEntityTagger{})

	text := "Experience\n2018-2020\nFreelancer"
	profile, err := extractor.ExtractResumeDetails(context.Background(), text)
	require.NoError(t, err)

	require.Len(t, profile.Experience, 1)
	assert.Equal(t, "Freelancer", profile.Experience[0].Title)
	assert.Equal(t, "Unknown", profile.Experience[0].Company)
}

// TestNilTaggerSkipsAISignal 测试未注入识别器时只走关键词通路
func TestNilTaggerSkipsAISignal(t *testing.T) {
	extractor := NewResumeExtractor(nil)

	profile, err := extractor.ExtractResumeDetails(context.Background(), "aws, git")
	require.NoError(t, err)
	assert.Contains(t, profile.Skills, "aws")
	assert.Contains(t, profile.Skills, "git")
}

// TestKnownSkillsOverride 测试注入自定义技能词表
func TestKnownSkillsOverride(t *testing.T) {
	extractor := NewResumeExtractor(nil, WithKnownSkills([]string{"k8s", "go"}))

	// "go" 长度不超过2，只有进了词表才会被保留
	profile, err := extractor.ExtractResumeDetails(context.Background(), "go, k8s")
	require.NoError(t, err)
	assert.Contains(t, profile.Skills, "go")
	assert.Contains(t, profile.Skills, "k8s")
}
