package parser

import (
	"regexp"
	"strings"
)

// 文本归一化与各启发式规则共用的正则
var (
	// 行内连续空白折叠为单个空格
	whitespaceRe = regexp.MustCompile(`\s+`)

	// 邮箱与电话，取全文第一个匹配
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phoneRe = regexp.MustCompile(`\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)

	// 连续3位数字，姓名行排除用
	digitRunRe = regexp.MustCompile(`\d{3}`)

	// 年份区间，如 "2019-2022" / "2019 - present"，兼容长短横线
	yearRangeRe = regexp.MustCompile(`(?i)(\d{4}\s*[-–—]\s*\d{4}|\d{4}\s*-\s*present)`)

	// 职位/公司行拆分
	titleSplitRe = regexp.MustCompile(`(?i) at |, | - `)

	// 学位缩写与四位年份
	degreeRe   = regexp.MustCompile(`(?i)(b\.s\.|m\.s\.|ph\.d\.|bachelor|master|diploma)`)
	bareYearRe = regexp.MustCompile(`\d{4}`)

	// 学位/院校行拆分
	eduSplitRe = regexp.MustCompile(`,| - `)

	// 技能token分隔符
	skillSplitRe = regexp.MustCompile(`[,;]`)
)

// normalizeLines 把原始简历文本整理成干净的行语料：
// 按换行切分，行内空白折叠为单个空格，去掉首尾空白和空行。
// 后续所有按行扫描的启发式规则都在这份语料上工作。
func normalizeLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSpace(whitespaceRe.ReplaceAllString(line, " "))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// containsAny 判断行（小写后）是否包含任一关键词
func containsAny(lowerLine string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(lowerLine, k) {
			return true
		}
	}
	return false
}
