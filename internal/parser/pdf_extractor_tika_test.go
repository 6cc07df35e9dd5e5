package parser

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTikaPDFExtractor(t *testing.T) {
	// 测试创建新的Tika PDF解析器（默认选项）
	extractorInterface := NewTikaPDFExtractor("http://localhost:9998")
	extractor, ok := extractorInterface.(*TikaPDFExtractor)
	require.True(t, ok, "应该能够将接口转换为TikaPDFExtractor类型")

	require.NotNil(t, extractor, "创建的Tika PDF提取器不应为nil")
	assert.Equal(t, "http://localhost:9998", extractor.ServerURL, "ServerURL应该被正确设置")
	require.NotNil(t, extractor.Client, "HTTP客户端不应为nil")
	assert.Equal(t, 60*time.Second, extractor.Client.Timeout, "HTTP客户端超时应为60秒")
	assert.False(t, extractor.extractFullMetadata, "默认应该不提取完整元数据")
	assert.True(t, extractor.extractMinimalMetadata, "默认应该提取精简元数据")

	// 测试创建带自定义选项的解析器
	customLogger := log.New(os.Stdout, "[测试] ", log.LstdFlags)
	customExtractorInterface := NewTikaPDFExtractor(
		"http://localhost:9998",
		WithFullMetadata(true),
		WithMinimalMetadata(false),
		WithTikaLogger(customLogger),
		WithTimeout(30*time.Second),
	)

	customExtractor, ok := customExtractorInterface.(*TikaPDFExtractor)
	require.True(t, ok, "应该能够将接口转换为TikaPDFExtractor类型")

	assert.True(t, customExtractor.extractFullMetadata, "应该设置为提取完整元数据")
	assert.False(t, customExtractor.extractMinimalMetadata, "应该设置为不提取精简元数据")
	assert.Equal(t, customLogger, customExtractor.logger, "应该使用提供的自定义logger")
	assert.Equal(t, 30*time.Second, customExtractor.Client.Timeout, "应该使用自定义超时")
}

// newFakeTikaServer 返回一个模拟Tika协议的测试服务器
func newFakeTikaServer(t *testing.T, text string, metadata map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method, "Tika请求应该使用PUT方法")
		assert.Equal(t, "application/pdf", r.Header.Get("Content-Type"))

		switch r.URL.Path {
		case "/tika":
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte(text))
		case "/meta":
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(metadata)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestTikaExtractTextFromBytes(t *testing.T) {
	sampleText := "Jane Doe\njane@example.com\nSkills\ngo, sql"
	server := newFakeTikaServer(t, sampleText, map[string]interface{}{
		"xmpTPg:NPages": "1",
		"dc:title":      "resume",
		"custom:junk":   "should be filtered",
	})
	defer server.Close()

	extractor := NewTikaPDFExtractor(server.URL)

	text, metadata, err := extractor.ExtractTextFromBytes(context.Background(), []byte("%PDF-1.4 fake"), "resume.pdf", nil)
	require.NoError(t, err)
	assert.Equal(t, sampleText, text)

	// 精简模式下只保留重要的元数据字段
	assert.Equal(t, "1", metadata["xmpTPg:NPages"])
	assert.Equal(t, "resume", metadata["dc:title"])
	assert.NotContains(t, metadata, "custom:junk")
	assert.Equal(t, len(sampleText), metadata["text_length"])
	assert.Equal(t, "resume.pdf", metadata["source_file_path"])
}

func TestTikaExtractTextFromReader(t *testing.T) {
	server := newFakeTikaServer(t, "plain resume text", nil)
	defer server.Close()

	extractor := NewTikaPDFExtractor(server.URL, WithMinimalMetadata(false))

	text, metadata, err := extractor.ExtractTextFromReader(context.Background(), strings.NewReader("%PDF-1.4 fake"), "r.pdf", nil)
	require.NoError(t, err)
	assert.Equal(t, "plain resume text", text)
	// 关闭元数据提取时只返回基本元数据
	assert.Contains(t, metadata, "extraction_time")
	assert.NotContains(t, metadata, "xmpTPg:NPages")
}

func TestTikaServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	extractor := NewTikaPDFExtractor(server.URL)

	_, _, err := extractor.ExtractTextFromBytes(context.Background(), []byte("bad"), "x.pdf", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestTikaMetadataFailureKeepsText(t *testing.T) {
	// /tika 正常而 /meta 失败时，文本提取不应受影响
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/tika" {
			_, _ = w.Write([]byte("still ok"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	extractor := NewTikaPDFExtractor(server.URL)

	text, metadata, err := extractor.ExtractTextFromBytes(context.Background(), []byte("%PDF"), "y.pdf", nil)
	require.NoError(t, err)
	assert.Equal(t, "still ok", text)
	assert.Contains(t, metadata, "text_length")
}
