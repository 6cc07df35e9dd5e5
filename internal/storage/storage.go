package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"job-board-go/internal/config"
)

// Storage 聚合岗位服务依赖的所有存储组件
// 未配置或初始化失败的组件保持 nil，调用方据此降级
type Storage struct {
	MySQL    *MySQL    // 用户/岗位/申请主数据
	Redis    *Redis    // 登录令牌与简历MD5去重
	MinIO    *MinIO    // 简历原件与解析文本
	RabbitMQ *RabbitMQ // application.analyzed 事件
}

// NewStorage 按配置逐个初始化存储组件
// 单个组件失败只记录警告，全部失败才返回错误
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	st := &Storage{}
	var degraded []string
	warn := func(component string, err error) {
		log.Printf("警告: 初始化%s失败: %v", component, err)
		degraded = append(degraded, fmt.Sprintf("%s: %v", component, err))
	}

	if cfg.MySQL.Host != "" {
		var err error
		if st.MySQL, err = NewMySQL(&cfg.MySQL); err != nil {
			warn("MySQL", err)
		}
	}

	if cfg.Redis.Address != "" {
		var err error
		if st.Redis, err = NewRedisAdapter(&cfg.Redis); err != nil {
			warn("Redis", err)
		}
	}

	// debug 级别时 MinIO 客户端输出详细日志，其余级别静默
	minioLogger := log.New(io.Discard, "", 0)
	if cfg.Logger.Level == "debug" {
		minioLogger = log.New(os.Stderr, "[MinIOStorage] ", log.LstdFlags|log.Lshortfile)
	}
	var err error
	if st.MinIO, err = NewMinIO(&cfg.MinIO, minioLogger); err != nil {
		warn("MinIO", err)
	}

	if cfg.RabbitMQ.URL != "" {
		if st.RabbitMQ, err = NewRabbitMQ(&cfg.RabbitMQ); err != nil {
			warn("RabbitMQ", err)
		} else if err = st.RabbitMQ.SetupApplicationTopology(); err != nil {
			// 拓扑声明失败时连接保留，后续发布失败只记警告不影响请求
			warn("RabbitMQ拓扑", err)
		}
	}

	if st.MySQL == nil && st.Redis == nil && st.MinIO == nil && st.RabbitMQ == nil {
		return nil, fmt.Errorf("所有存储组件初始化失败: %s", strings.Join(degraded, "; "))
	}
	if len(degraded) > 0 {
		log.Printf("警告: 以下存储组件降级运行: %s", strings.Join(degraded, "; "))
	}
	return st, nil
}

// Close 关闭持有连接的组件，MinIO客户端无需显式关闭
func (s *Storage) Close() {
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			log.Printf("关闭RabbitMQ连接失败: %v", err)
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Printf("关闭Redis连接失败: %v", err)
		}
	}
	if s.MySQL != nil {
		if err := s.MySQL.Close(); err != nil {
			log.Printf("关闭MySQL连接失败: %v", err)
		}
	}
}
