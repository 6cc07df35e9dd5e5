package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"job-board-go/internal/types"
)

// HFEntityTagger 是基于HuggingFace Inference API的实体识别客户端
//
// 调用 token-classification 管线，返回 {word, entity_group, score} 片段。
// 任何暴露相同响应形状的服务（含自建模型服务）都可以直接替换地址接入。
type HFEntityTagger struct {
	// 服务地址，例如 https://api-inference.huggingface.co
	ServerURL string
	// HTTP客户端，可配置超时等参数
	Client *http.Client
	// token-classification 模型名
	model string
	// API密钥，为空时不携带Authorization头
	apiKey string
	// 日志记录
	logger *log.Logger
}

// TaggerOption 定义配置选项函数
type TaggerOption func(*HFEntityTagger)

// WithTaggerModel 配置使用的模型
func WithTaggerModel(model string) TaggerOption {
	return func(t *HFEntityTagger) {
		if model != "" {
			t.model = model
		}
	}
}

// WithTaggerAPIKey 配置API密钥
func WithTaggerAPIKey(apiKey string) TaggerOption {
	return func(t *HFEntityTagger) {
		t.apiKey = apiKey
	}
}

// WithTaggerTimeout 配置HTTP客户端超时时间
//
// 超时会作为普通错误返回给提取器，由提取器决定降级还是失败。
func WithTaggerTimeout(timeout time.Duration) TaggerOption {
	return func(t *HFEntityTagger) {
		t.Client.Timeout = timeout
	}
}

// WithTaggerLogger 配置自定义日志记录器
func WithTaggerLogger(logger *log.Logger) TaggerOption {
	return func(t *HFEntityTagger) {
		t.logger = logger
	}
}

// 确保HFEntityTagger实现了EntityTagger接口
var _ EntityTagger = (*HFEntityTagger)(nil)

// NewHFEntityTagger 创建一个新的实体识别客户端
func NewHFEntityTagger(serverURL string, options ...TaggerOption) *HFEntityTagger {
	// 设置默认的HTTP客户端，包含合理的超时设置
	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	tagger := &HFEntityTagger{
		ServerURL: serverURL,
		Client:    client,
		model:     "dslim/bert-base-NER",
		logger:    log.New(os.Stderr, "[EntityTagger] ", log.LstdFlags),
	}

	// 应用选项
	for _, option := range options {
		option(tagger)
	}

	return tagger
}

// taggerRequest Inference API请求体
type taggerRequest struct {
	Inputs string `json:"inputs"`
}

// Tag 对全文执行一次 token-classification 调用
func (t *HFEntityTagger) Tag(ctx context.Context, text string) ([]types.TaggedSpan, error) {
	startTime := time.Now()

	body, err := json.Marshal(taggerRequest{Inputs: text})
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s", t.ServerURL, t.model)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.Client.Do(req)
	if err != nil {
		t.logger.Printf("实体识别请求失败: %v (用时 %.2f秒)", err, time.Since(startTime).Seconds())
		return nil, fmt.Errorf("发送请求到实体识别服务失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("实体识别服务返回错误状态码: %d, body: %s", resp.StatusCode, string(respBody))
	}

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取实体识别响应失败: %w", err)
	}

	var spans []types.TaggedSpan
	if err := json.Unmarshal(respBytes, &spans); err != nil {
		// 部分部署把结果多包一层数组
		var nested [][]types.TaggedSpan
		if nestedErr := json.Unmarshal(respBytes, &nested); nestedErr != nil || len(nested) == 0 {
			return nil, fmt.Errorf("解析实体识别响应失败: %w", err)
		}
		spans = nested[0]
	}

	t.logger.Printf("实体识别完成: %d 个片段 (用时 %.2f秒)", len(spans), time.Since(startTime).Seconds())
	return spans, nil
}
