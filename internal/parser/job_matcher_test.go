package parser

import (
	"context"
	"strings"
	"testing"

	"job-board-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMatcher(tagger EntityTagger) *JobMatcher {
	return NewJobMatcher(NewResumeExtractor(tagger))
}

// TestAnalyzePartialMatch 测试部分技能命中的完整匹配结果
func TestAnalyzePartialMatch(t *testing.T) {
	tagger := &mockEntityTagger{
		spans: []types.TaggedSpan{{Word: "React", EntityGroup: "SKILL", Score: 0.95}},
	}
	matcher := newTestMatcher(tagger)

	resumeText := "Experienced React developer. Skills: react, node.js, sql."
	job := types.JobRequirement{Title: "Software Engineer", Skills: []string{"react", "node.js", "docker"}}

	result, err := matcher.AnalyzeResumeAgainstJob(context.Background(), resumeText, job)
	require.NoError(t, err)

	assert.Contains(t, result.MatchedSkills, "react")
	assert.Contains(t, result.MatchedSkills, "node.js")
	assert.Contains(t, result.MissingSkills, "docker")
	assert.Contains(t, result.Feedback, "docker")
	assert.True(t, strings.HasPrefix(result.Feedback, "Missing skills:"))

	// 2/3技能命中，标题未出现，文本超过长度阈值
	assert.InDelta(t, 2.0/3.0*70+10+10, result.Score, 0.001)
}

// TestAnalyzeShortResumeNoOverlap 测试短文本且零技能命中的下限分
func TestAnalyzeShortResumeNoOverlap(t *testing.T) {
	matcher := newTestMatcher(&mockEntityTagger{})

	resumeText := "Plumber, pipe work."
	job := types.JobRequirement{Title: "Software Engineer", Skills: []string{"react", "docker"}}

	result, err := matcher.AnalyzeResumeAgainstJob(context.Background(), resumeText, job)
	require.NoError(t, err)

	// 0 + 10 + 5
	assert.Equal(t, 15.0, result.Score)
	assert.Empty(t, result.MatchedSkills)
	assert.ElementsMatch(t, []string{"react", "docker"}, result.MissingSkills)
}

// TestAnalyzeEmptyJobSkills 测试岗位未声明技能时不报错且技能分记0
func TestAnalyzeEmptyJobSkills(t *testing.T) {
	matcher := newTestMatcher(&mockEntityTagger{})

	result, err := matcher.AnalyzeResumeAgainstJob(context.Background(), "Some resume text", types.JobRequirement{
		Title:  "X",
		Skills: []string{},
	})
	require.NoError(t, err)

	assert.Empty(t, result.MatchedSkills)
	assert.Empty(t, result.MissingSkills)
	assert.Equal(t, 15.0, result.Score) // 0 + 10 + 5，文本不足50字符
	assert.Equal(t, "Strong match! Your skills align well with this job.", result.Feedback)
}

// TestAnalyzeScoreBounds 测试各种输入下分数始终落在[0,100]
func TestAnalyzeScoreBounds(t *testing.T) {
	matcher := newTestMatcher(&mockEntityTagger{})

	longText := "Software Engineer with deep experience. " + strings.Repeat("react, docker, sql, aws. ", 10)
	cases := []struct {
		name string
		text string
		job  types.JobRequirement
	}{
		{"全部命中且标题出现", longText, types.JobRequirement{Title: "Software Engineer", Skills: []string{"react", "docker", "sql", "aws"}}},
		{"空文本", "", types.JobRequirement{Title: "X", Skills: []string{"react"}}},
		{"空岗位", "anything at all here", types.JobRequirement{}},
		{"零命中", "nothing relevant", types.JobRequirement{Title: "Y", Skills: []string{"cobol"}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := matcher.AnalyzeResumeAgainstJob(context.Background(), tc.text, tc.job)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, result.Score, 0.0)
			assert.LessOrEqual(t, result.Score, 100.0)
		})
	}
}

// TestAnalyzeFullMatchCapped 测试满分封顶与强匹配反馈
func TestAnalyzeFullMatchCapped(t *testing.T) {
	matcher := newTestMatcher(&mockEntityTagger{})

	resumeText := "Senior Software Engineer. Lots of production experience here, react, docker"
	job := types.JobRequirement{Title: "Software Engineer", Skills: []string{"React", "Docker"}}

	result, err := matcher.AnalyzeResumeAgainstJob(context.Background(), resumeText, job)
	require.NoError(t, err)

	// 70 + 20 + 10 恰好封顶
	assert.Equal(t, 100.0, result.Score)
	assert.Empty(t, result.MissingSkills)
	assert.Equal(t, "Strong match! Your skills align well with this job.", result.Feedback)
}

// TestAnalyzeTitleSubstring 测试标题按字面子串匹配（区分大小写）
func TestAnalyzeTitleSubstring(t *testing.T) {
	matcher := newTestMatcher(&mockEntityTagger{})
	job := types.JobRequirement{Title: "Data Analyst", Skills: []string{"sql"}}

	withTitle, err := matcher.AnalyzeResumeAgainstJob(context.Background(),
		"Worked three years as Data Analyst. sql, reporting", job)
	require.NoError(t, err)

	lowerTitle, err := matcher.AnalyzeResumeAgainstJob(context.Background(),
		"Worked three years as data analyst. sql, reporting", job)
	require.NoError(t, err)

	assert.Equal(t, withTitle.Score-lowerTitle.Score, 10.0)
}

// TestAnalyzeCustomWeights 测试权重作为配置注入
func TestAnalyzeCustomWeights(t *testing.T) {
	weights := ScoreWeights{
		SkillWeight:    50,
		TitleHitScore:  30,
		TitleMissScore: 0,
		DepthHitScore:  20,
		DepthMissScore: 0,
		DepthThreshold: 10,
	}
	matcher := NewJobMatcher(NewResumeExtractor(&mockEntityTagger{}), WithScoreWeights(weights))

	result, err := matcher.AnalyzeResumeAgainstJob(context.Background(),
		"Backend Engineer, sql, docker", types.JobRequirement{Title: "Backend Engineer", Skills: []string{"sql", "docker"}})
	require.NoError(t, err)

	// 50 + 30 + 20
	assert.Equal(t, 100.0, result.Score)
}

// TestAnalyzeExtractionFailurePropagates 测试严格模式下提取失败向上包装传播
func TestAnalyzeExtractionFailurePropagates(t *testing.T) {
	tagger := &mockEntityTagger{Err: assert.AnError}
	matcher := NewJobMatcher(NewResumeExtractor(tagger, WithStrictTagging(true)))

	result, err := matcher.AnalyzeResumeAgainstJob(context.Background(), "whatever", types.JobRequirement{
		Title:  "X",
		Skills: []string{"go"},
	})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrAnalysisFailed)
}
