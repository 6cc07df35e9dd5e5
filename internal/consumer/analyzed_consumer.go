package consumer

import (
	"context"
	"encoding/json"

	"job-board-go/internal/config"
	"job-board-go/internal/logger"
	"job-board-go/internal/storage"
	"job-board-go/internal/storage/models"
)

// DefaultAnalyzedWorkers 未配置时的消费协程数
const DefaultAnalyzedWorkers = 2

// AnalysisStore 分析快照的落库依赖
type AnalysisStore interface {
	CreateAnalysisRecord(ctx context.Context, record *models.AnalysisRecord) error
}

// AnalyzedConsumer 消费投递分析事件，把每次分析的快照异步落库
//
// 落库失败时返回 false 触发重新入队，由 MQ 负责重试。
type AnalyzedConsumer struct {
	cfg   *config.RabbitMQConfig
	mq    storage.MessageQueue
	store AnalysisStore
}

// NewAnalyzedConsumer 创建分析事件消费者
func NewAnalyzedConsumer(cfg *config.RabbitMQConfig, mq storage.MessageQueue, store AnalysisStore) *AnalyzedConsumer {
	return &AnalyzedConsumer{
		cfg:   cfg,
		mq:    mq,
		store: store,
	}
}

// Start 按配置的协程数启动消费，返回所有消费者的停止通道
func (c *AnalyzedConsumer) Start(ctx context.Context) ([]<-chan struct{}, error) {
	workers := c.cfg.ConsumerWorkers["analyzed_consumer_workers"]
	if workers <= 0 {
		workers = DefaultAnalyzedWorkers
	}

	stopChs := make([]<-chan struct{}, 0, workers)
	for i := 0; i < workers; i++ {
		stopCh, err := c.mq.StartConsumer(c.cfg.AnalyzedQueue, c.cfg.PrefetchCount, func(body []byte) bool {
			return c.handleMessage(ctx, body)
		})
		if err != nil {
			return stopChs, err
		}
		stopChs = append(stopChs, stopCh)
	}

	logger.Info().
		Int("workers", workers).
		Str("queue", c.cfg.AnalyzedQueue).
		Msg("分析事件消费者已启动")
	return stopChs, nil
}

// handleMessage 处理一条分析事件，返回值决定 Ack 还是 Nack 重入队
func (c *AnalyzedConsumer) handleMessage(ctx context.Context, body []byte) bool {
	var event storage.AnalyzedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		// 格式错误的消息重试也不会成功，直接确认丢弃
		logger.Error().Err(err).Msg("分析事件反序列化失败，丢弃消息")
		return true
	}
	if event.ApplicationID == "" || event.JobID == "" {
		logger.Error().Msg("分析事件缺少必要字段，丢弃消息")
		return true
	}

	matchedJSON, err := models.SliceToJSON(event.MatchedSkills)
	if err != nil {
		logger.Error().Err(err).Str("application_id", event.ApplicationID).Msg("序列化技能列表失败，丢弃消息")
		return true
	}
	missingJSON, err := models.SliceToJSON(event.MissingSkills)
	if err != nil {
		logger.Error().Err(err).Str("application_id", event.ApplicationID).Msg("序列化技能列表失败，丢弃消息")
		return true
	}

	record := &models.AnalysisRecord{
		ApplicationID:     event.ApplicationID,
		JobID:             event.JobID,
		CandidateID:       event.CandidateID,
		Score:             event.Score,
		Feedback:          event.Feedback,
		MatchedSkillsJSON: matchedJSON,
		MissingSkillsJSON: missingJSON,
		AnalyzedAt:        event.AnalyzedAt,
	}
	if err := c.store.CreateAnalysisRecord(ctx, record); err != nil {
		logger.Error().Err(err).Str("application_id", event.ApplicationID).Msg("分析快照落库失败，重新入队")
		return false
	}

	logger.Debug().
		Str("application_id", event.ApplicationID).
		Float64("score", event.Score).
		Msg("分析快照已落库")
	return true
}
