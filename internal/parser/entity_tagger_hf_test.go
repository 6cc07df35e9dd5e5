package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHFEntityTaggerTag 测试正常响应的解析
func TestHFEntityTaggerTag(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/models/dslim/bert-base-NER", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"word": "React", "entity_group": "SKILL", "score": 0.97},
			{"word": "Paris", "entity_group": "LOC", "score": 0.99}
		]`))
	}))
	defer server.Close()

	tagger := NewHFEntityTagger(server.URL, WithTaggerAPIKey("test-key"))

	spans, err := tagger.Tag(context.Background(), "React developer in Paris")
	require.NoError(t, err)
	require.Len(t, spans, 2)
	assert.Equal(t, "React", spans[0].Word)
	assert.Equal(t, "SKILL", spans[0].EntityGroup)
	assert.InDelta(t, 0.97, spans[0].Score, 0.001)
}

// TestHFEntityTaggerNestedResponse 测试多包一层数组的响应形状
func TestHFEntityTaggerNestedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[[{"word": "sql", "entity_group": "SKILL", "score": 0.9}]]`))
	}))
	defer server.Close()

	tagger := NewHFEntityTagger(server.URL)

	spans, err := tagger.Tag(context.Background(), "sql")
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, "sql", spans[0].Word)
}

// TestHFEntityTaggerServerError 测试非200响应转为错误
func TestHFEntityTaggerServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	tagger := NewHFEntityTagger(server.URL)

	spans, err := tagger.Tag(context.Background(), "text")
	require.Error(t, err)
	assert.Nil(t, spans)
	assert.Contains(t, err.Error(), "503")
}

// TestHFEntityTaggerTimeout 测试超时作为普通错误返回
func TestHFEntityTaggerTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	tagger := NewHFEntityTagger(server.URL, WithTaggerTimeout(20*time.Millisecond))

	_, err := tagger.Tag(context.Background(), "text")
	require.Error(t, err)
}

// TestHFEntityTaggerCustomModel 测试自定义模型路径
func TestHFEntityTaggerCustomModel(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	tagger := NewHFEntityTagger(server.URL, WithTaggerModel("acme/skill-ner"))

	_, err := tagger.Tag(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, "/models/acme/skill-ner", gotPath)
}
