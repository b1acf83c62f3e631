package worker

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doarbem/doar-api/internal/model"
	"github.com/doarbem/doar-api/pkg/logger"
	"github.com/doarbem/doar-api/pkg/metrics"
)

// One shared registry-backed metrics instance; promauto registration is
// global and would panic on a second NewMetrics with the same names.
var testMetrics = metrics.NewMetrics("test", "worker")

var testLogger = logger.NewLogger(&logger.Config{
	Level:  logger.ErrorLevel,
	Output: os.Stderr,
})

type memoryOutboxRepo struct {
	pending   []*model.OutboxEvent
	processed []uuid.UUID
	failed    map[uuid.UUID]string
	retryAts  map[uuid.UUID]*time.Time
}

func newMemoryOutboxRepo(events ...*model.OutboxEvent) *memoryOutboxRepo {
	return &memoryOutboxRepo{
		pending:  events,
		failed:   make(map[uuid.UUID]string),
		retryAts: make(map[uuid.UUID]*time.Time),
	}
}

func (m *memoryOutboxRepo) Create(_ context.Context, evt *model.OutboxEvent) error {
	m.pending = append(m.pending, evt)
	return nil
}

func (m *memoryOutboxRepo) GetPending(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	if len(m.pending) > limit {
		return m.pending[:limit], nil
	}
	return m.pending, nil
}

func (m *memoryOutboxRepo) MarkProcessed(_ context.Context, id uuid.UUID) error {
	m.processed = append(m.processed, id)
	return nil
}

func (m *memoryOutboxRepo) MarkFailed(_ context.Context, id uuid.UUID, errorMessage string, retryAt *time.Time) error {
	m.failed[id] = errorMessage
	m.retryAts[id] = retryAt
	return nil
}

func (m *memoryOutboxRepo) DeleteProcessedBefore(_ context.Context, _ time.Time) (int64, error) {
	deleted := int64(len(m.processed))
	m.processed = nil
	return deleted, nil
}

type recordingBroker struct {
	published []interface{}
	err       error
	channel   string
}

func (b *recordingBroker) Publish(_ context.Context, channel string, message interface{}) error {
	if b.err != nil {
		return b.err
	}
	b.channel = channel
	b.published = append(b.published, message)
	return nil
}

func (b *recordingBroker) Subscribe(_ context.Context, _ string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

func (b *recordingBroker) Close() error { return nil }

func outboxEvent(eventType string) *model.OutboxEvent {
	return &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   json.RawMessage(`{"doacao_id":"x"}`),
		Status:    model.OutboxStatusPending,
	}
}

func testConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Millisecond,
		RetryAttempts: 3,
		RetryDelay:    time.Minute,
	}
}

func TestProcessEventsPublishesAndMarks(t *testing.T) {
	evt := outboxEvent(model.EventTypeNotificationCreated)
	repo := newMemoryOutboxRepo(evt)
	broker := &recordingBroker{}
	p := NewOutboxProcessor(repo, broker, testConfig(), testLogger, testMetrics)

	require.NoError(t, p.processEvents(context.Background()))

	require.Len(t, broker.published, 1)
	assert.Equal(t, "doarbem:eventos", broker.channel)
	assert.Equal(t, []uuid.UUID{evt.ID}, repo.processed)
	assert.Empty(t, repo.failed)
}

func TestProcessEventsSchedulesRetryOnPublishFailure(t *testing.T) {
	evt := outboxEvent(model.EventTypeDonationReceived)
	repo := newMemoryOutboxRepo(evt)
	broker := &recordingBroker{err: errors.New("redis down")}
	p := NewOutboxProcessor(repo, broker, testConfig(), testLogger, testMetrics)

	require.NoError(t, p.processEvents(context.Background()))

	assert.Empty(t, repo.processed)
	assert.Equal(t, "redis down", repo.failed[evt.ID])
	require.NotNil(t, repo.retryAts[evt.ID], "first failure must schedule a retry")
}

func TestProcessEventsParksExhaustedEvent(t *testing.T) {
	evt := outboxEvent(model.EventTypeDonationReceived)
	evt.RetryCount = 2 // third attempt is the last
	repo := newMemoryOutboxRepo(evt)
	broker := &recordingBroker{err: errors.New("redis down")}
	p := NewOutboxProcessor(repo, broker, testConfig(), testLogger, testMetrics)

	require.NoError(t, p.processEvents(context.Background()))

	assert.Nil(t, repo.retryAts[evt.ID], "exhausted event must not be rescheduled")
}

func TestNewOutboxProcessorRejectsBadConfig(t *testing.T) {
	repo := newMemoryOutboxRepo()
	broker := &recordingBroker{}

	assert.Panics(t, func() {
		NewOutboxProcessor(repo, broker, OutboxProcessorConfig{}, testLogger, testMetrics)
	})
}
