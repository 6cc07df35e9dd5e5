package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"job-board-go/internal/config"
	"job-board-go/internal/storage"
	"job-board-go/internal/storage/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAnalysisStore struct {
	records []*models.AnalysisRecord
	err     error
}

func (m *mockAnalysisStore) CreateAnalysisRecord(ctx context.Context, record *models.AnalysisRecord) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, record)
	return nil
}

func newTestConsumer(store *mockAnalysisStore) *AnalyzedConsumer {
	cfg := &config.RabbitMQConfig{
		AnalyzedQueue:   "application.analyzed.queue",
		PrefetchCount:   5,
		ConsumerWorkers: map[string]int{"analyzed_consumer_workers": 1},
	}
	return NewAnalyzedConsumer(cfg, nil, store)
}

func TestHandleMessageStoresRecord(t *testing.T) {
	store := &mockAnalysisStore{}
	c := newTestConsumer(store)

	event := storage.AnalyzedEvent{
		ApplicationID: "app-1",
		JobID:         "job-1",
		CandidateID:   "cand-1",
		Score:         85.5,
		Feedback:      "Strong match! Your skills align well with this job.",
		MatchedSkills: []string{"go", "mysql"},
		MissingSkills: []string{},
		AnalyzedAt:    time.Now(),
	}
	body, err := json.Marshal(event)
	require.NoError(t, err)

	ack := c.handleMessage(context.Background(), body)
	assert.True(t, ack)
	require.Len(t, store.records, 1)

	record := store.records[0]
	assert.Equal(t, "app-1", record.ApplicationID)
	assert.Equal(t, "job-1", record.JobID)
	assert.Equal(t, "cand-1", record.CandidateID)
	assert.InDelta(t, 85.5, record.Score, 0.001)

	matched, err := models.JSONToSlice(record.MatchedSkillsJSON)
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "mysql"}, matched)
}

func TestHandleMessageDiscardsMalformed(t *testing.T) {
	store := &mockAnalysisStore{}
	c := newTestConsumer(store)

	// 反序列化失败的消息应当确认丢弃而不是无限重试
	ack := c.handleMessage(context.Background(), []byte("not json"))
	assert.True(t, ack)
	assert.Empty(t, store.records)
}

func TestHandleMessageDiscardsMissingFields(t *testing.T) {
	store := &mockAnalysisStore{}
	c := newTestConsumer(store)

	body, err := json.Marshal(storage.AnalyzedEvent{Score: 50})
	require.NoError(t, err)

	ack := c.handleMessage(context.Background(), body)
	assert.True(t, ack)
	assert.Empty(t, store.records)
}

func TestHandleMessageRequeuesOnStoreError(t *testing.T) {
	store := &mockAnalysisStore{err: errors.New("db down")}
	c := newTestConsumer(store)

	body, err := json.Marshal(storage.AnalyzedEvent{
		ApplicationID: "app-1",
		JobID:         "job-1",
		CandidateID:   "cand-1",
		AnalyzedAt:    time.Now(),
	})
	require.NoError(t, err)

	ack := c.handleMessage(context.Background(), body)
	assert.False(t, ack)
}
