package parser

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"job-board-go/internal/tracing"
	"job-board-go/internal/types"

	"go.opentelemetry.io/otel/attribute"
)

// ScoreWeights 匹配打分权重配置
//
// 数值是产品约定而非推导结果，作为配置注入，调参不动代码。
type ScoreWeights struct {
	// 技能重合度满分
	SkillWeight float64 `yaml:"skill_weight"`
	// 岗位标题在简历原文中出现/未出现时的经验分
	TitleHitScore  float64 `yaml:"title_hit_score"`
	TitleMissScore float64 `yaml:"title_miss_score"`
	// 简历长度超过/未超过阈值时的充实度分
	DepthHitScore  float64 `yaml:"depth_hit_score"`
	DepthMissScore float64 `yaml:"depth_miss_score"`
	// 充实度判定的字符数阈值
	DepthThreshold int `yaml:"depth_threshold"`
}

// DefaultScoreWeights 默认权重 70/20/10
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		SkillWeight:    70,
		TitleHitScore:  20,
		TitleMissScore: 10,
		DepthHitScore:  10,
		DepthMissScore: 5,
		DepthThreshold: 50,
	}
}

// JobMatcher 简历与岗位的兼容度分析器
//
// 依赖 ResumeExtractor 提取技能，自身无状态，可安全并发调用。
// 相同输入与相同提取结果下输出确定。
type JobMatcher struct {
	extractor *ResumeExtractor
	weights   ScoreWeights
}

// JobMatcherOption 定义配置选项函数
type JobMatcherOption func(*JobMatcher)

// WithScoreWeights 替换打分权重
func WithScoreWeights(weights ScoreWeights) JobMatcherOption {
	return func(m *JobMatcher) {
		m.weights = weights
	}
}

// NewJobMatcher 创建岗位匹配分析器
func NewJobMatcher(extractor *ResumeExtractor, options ...JobMatcherOption) *JobMatcher {
	matcher := &JobMatcher{
		extractor: extractor,
		weights:   DefaultScoreWeights(),
	}

	// 应用选项
	for _, option := range options {
		option(matcher)
	}

	return matcher
}

// AnalyzeResumeAgainstJob 计算简历对岗位的匹配结果
//
// 岗位未声明技能时技能分记0分而非报错；提取失败包装后向上传播，
// 不做重试，由调用方决定是否整体重试。
func (m *JobMatcher) AnalyzeResumeAgainstJob(ctx context.Context, resumeText string, job types.JobRequirement) (*types.AnalysisResult, error) {
	ctx, span := tracer.Start(ctx, "AnalyzeResumeAgainstJob")
	defer span.End()
	span.SetAttributes(
		attribute.String("job.title", job.Title),
		attribute.Int("job.skills_count", len(job.Skills)),
	)

	jobSkills := make([]string, 0, len(job.Skills))
	for _, s := range job.Skills {
		jobSkills = append(jobSkills, strings.ToLower(s))
	}

	profile, err := m.extractor.ExtractResumeDetails(ctx, resumeText)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		return nil, NewAnalysisError(err.Error())
	}

	jobSkillSet := make(map[string]struct{}, len(jobSkills))
	for _, s := range jobSkills {
		jobSkillSet[s] = struct{}{}
	}

	matched := []string{}
	matchedSet := make(map[string]struct{})
	for _, skill := range profile.Skills {
		if _, ok := jobSkillSet[skill]; ok {
			if _, dup := matchedSet[skill]; !dup {
				matchedSet[skill] = struct{}{}
				matched = append(matched, skill)
			}
		}
	}

	missing := []string{}
	for _, s := range jobSkills {
		if _, ok := matchedSet[s]; !ok {
			missing = append(missing, s)
		}
	}

	// 技能分：岗位无声明技能时记0，避免除零
	var skillScore float64
	if len(jobSkills) > 0 {
		skillScore = float64(len(matched)) / float64(len(jobSkills)) * m.weights.SkillWeight
	}

	// 经验分：岗位标题是否按字面出现在简历原文中
	expScore := m.weights.TitleMissScore
	if strings.Contains(resumeText, job.Title) {
		expScore = m.weights.TitleHitScore
	}

	// 充实度分：防近空投递
	depthScore := m.weights.DepthMissScore
	if utf8.RuneCountInString(resumeText) > m.weights.DepthThreshold {
		depthScore = m.weights.DepthHitScore
	}

	score := skillScore + expScore + depthScore
	if score > 100 {
		score = 100
	}

	feedback := "Strong match! Your skills align well with this job."
	if len(missing) > 0 {
		feedback = fmt.Sprintf("Missing skills: %s. Consider adding relevant projects.", strings.Join(missing, ", "))
	}

	span.SetAttributes(
		attribute.Float64("match.score", score),
		attribute.Int("match.matched_count", len(matched)),
		attribute.Int("match.missing_count", len(missing)),
	)

	return &types.AnalysisResult{
		Score:         score,
		MatchedSkills: matched,
		MissingSkills: missing,
		Feedback:      feedback,
	}, nil
}
