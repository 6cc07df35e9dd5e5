package storage

import (
	"context"
	"testing"

	"job-board-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStorageNilConfig(t *testing.T) {
	st, err := NewStorage(context.Background(), nil)
	require.Error(t, err)
	assert.Nil(t, st)
}

// 空配置下 MySQL/Redis/RabbitMQ 被跳过，MinIO 因空endpoint失败，
// 所有组件均为 nil 时必须返回错误而不是半初始化的管理器
func TestNewStorageAllComponentsFailed(t *testing.T) {
	st, err := NewStorage(context.Background(), &config.Config{})
	require.Error(t, err)
	assert.Nil(t, st)
	assert.Contains(t, err.Error(), "MinIO")
}

func TestStorageCloseEmpty(t *testing.T) {
	s := &Storage{}
	assert.NotPanics(t, func() { s.Close() })
}
