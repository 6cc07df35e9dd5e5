package parser

import (
	"errors"
	"fmt"
)

// 定义基础错误类型
var (
	ErrEntityTaggingFailed = errors.New("实体识别服务调用失败")
	ErrExtractionFailed    = errors.New("简历提取失败")
	ErrAnalysisFailed      = errors.New("简历岗位匹配分析失败")
	ErrInvalidJobReference = errors.New("岗位记录缺少技能列表")
)

// MatchProcessError 包含详细错误信息的自定义错误
type MatchProcessError struct {
	Op      string
	BaseErr error
	Detail  string
}

func (e *MatchProcessError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (操作:%s): %s", e.BaseErr, e.Op, e.Detail)
	}
	return fmt.Sprintf("%s (操作:%s)", e.BaseErr, e.Op)
}

func (e *MatchProcessError) Unwrap() error {
	return e.BaseErr
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *MatchProcessError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// 错误构造函数
func NewTaggingError(detail string) error {
	return &MatchProcessError{
		Op:      "tag",
		BaseErr: ErrEntityTaggingFailed,
		Detail:  detail,
	}
}

func NewExtractionError(detail string) error {
	return &MatchProcessError{
		Op:      "extract",
		BaseErr: ErrExtractionFailed,
		Detail:  detail,
	}
}

func NewAnalysisError(detail string) error {
	return &MatchProcessError{
		Op:      "analyze",
		BaseErr: ErrAnalysisFailed,
		Detail:  detail,
	}
}
