// resumetool 是离线调试工具：不依赖数据库和消息队列，
// 直接对本地简历文件运行文本提取、画像提取和岗位匹配。
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"job-board-go/internal/parser"
	"job-board-go/internal/types"

	"github.com/spf13/pflag"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "extract":
		runExtract(os.Args[2:])
	case "match":
		runMatch(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "用法:")
	fmt.Fprintln(os.Stderr, "  resumetool extract -f resume.pdf [--tika-url http://localhost:9998]")
	fmt.Fprintln(os.Stderr, "  resumetool match -f resume.pdf --title \"Backend Engineer\" --skills go,mysql")
}

func runExtract(args []string) {
	flags := pflag.NewFlagSet("extract", pflag.ExitOnError)
	filePath := flags.StringP("file", "f", "", "简历文件路径 (.pdf 或 .txt)")
	tikaURL := flags.String("tika-url", "", "Tika服务器地址，为空时使用本地解析")
	if err := flags.Parse(args); err != nil {
		log.Fatalf("解析参数失败: %v", err)
	}

	text := loadResumeText(*filePath, *tikaURL)
	extractor := parser.NewResumeExtractor(nil)
	profile, err := extractor.ExtractResumeDetails(context.Background(), text)
	if err != nil {
		log.Fatalf("画像提取失败: %v", err)
	}
	printJSON(profile)
}

func runMatch(args []string) {
	flags := pflag.NewFlagSet("match", pflag.ExitOnError)
	filePath := flags.StringP("file", "f", "", "简历文件路径 (.pdf 或 .txt)")
	tikaURL := flags.String("tika-url", "", "Tika服务器地址，为空时使用本地解析")
	title := flags.String("title", "", "岗位标题")
	skillsCSV := flags.String("skills", "", "岗位技能，逗号分隔")
	if err := flags.Parse(args); err != nil {
		log.Fatalf("解析参数失败: %v", err)
	}
	if *title == "" {
		log.Fatal("必须提供 --title")
	}

	var skills []string
	for _, s := range strings.Split(*skillsCSV, ",") {
		if s = strings.TrimSpace(s); s != "" {
			skills = append(skills, s)
		}
	}

	text := loadResumeText(*filePath, *tikaURL)
	matcher := parser.NewJobMatcher(parser.NewResumeExtractor(nil))
	result, err := matcher.AnalyzeResumeAgainstJob(context.Background(), text, types.JobRequirement{
		Title:  *title,
		Skills: skills,
	})
	if err != nil {
		log.Fatalf("匹配分析失败: %v", err)
	}
	printJSON(result)
}

// loadResumeText 读取文件并提取纯文本，.txt直接读取，.pdf走PDF解析器
func loadResumeText(filePath, tikaURL string) string {
	if filePath == "" {
		log.Fatal("必须提供 -f 文件路径")
	}
	ctx := context.Background()

	ext := strings.ToLower(filepath.Ext(filePath))
	if ext == ".txt" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			log.Fatalf("读取文件失败: %v", err)
		}
		return string(data)
	}

	var pdfExtractor parser.PDFExtractor
	if tikaURL != "" {
		pdfExtractor = parser.NewTikaPDFExtractor(tikaURL,
			parser.WithMinimalMetadata(true),
			parser.WithTimeout(60*time.Second),
		)
	} else {
		var err error
		pdfExtractor, err = parser.NewEinoPDFTextExtractor(ctx)
		if err != nil {
			log.Fatalf("创建PDF提取器失败: %v", err)
		}
	}

	text, _, err := pdfExtractor.ExtractFromFile(ctx, filePath)
	if err != nil {
		log.Fatalf("提取文本失败: %v", err)
	}
	return text
}

func printJSON(v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("序列化输出失败: %v", err)
	}
	fmt.Println(string(out))
}
